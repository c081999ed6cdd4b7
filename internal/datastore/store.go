package datastore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// Store runs the exposure reads and writes of the ingestion pipeline. A
// Store obtained inside Transaction is bound to that transaction.
type Store struct {
	db    *gorm.DB
	batch int
}

// NewStore wraps db. batch is the number of rows per INSERT statement.
func NewStore(db *gorm.DB, batch int) *Store {
	return &Store{db: db, batch: batchSize(batch)}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn in one database transaction; fn's Store is bound to it.
// Any error returned by fn rolls the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, batch: s.batch})
	})
}

// CreateExposure inserts e. A file name that already exists yields a
// duplicate entity error.
func (s *Store) CreateExposure(ctx context.Context, e *entities.Exposure) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return writeError(err, "create_exposure", "exposure", e.FileName)
	}
	return nil
}

// ExposureByName returns the exposure with the given natural key.
func (s *Store) ExposureByName(ctx context.Context, name string) (*entities.Exposure, error) {
	var e entities.Exposure
	err := s.db.WithContext(ctx).Where("exp = ?", name).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrExposureNotFound, name)
	}
	if err != nil {
		return nil, dbError(err, "get_exposure", errors.PriorityMedium, "exposure", name)
	}
	return &e, nil
}

// ExposureExists reports whether an exposure with the natural key exists.
func (s *Store) ExposureExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entities.Exposure{}).Where("exp = ?", name).Count(&count).Error
	if err != nil {
		return false, dbError(err, "exposure_exists", errors.PriorityMedium, "exposure", name)
	}
	return count > 0, nil
}

// CreateCorrectedExposure inserts c.
func (s *Store) CreateCorrectedExposure(ctx context.Context, c *entities.CorrectedExposure) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return writeError(err, "create_corrected_exposure", "corrected exposure", c.FileName)
	}
	return nil
}

// CorrectedExposureByName returns the corrected exposure with the natural key.
func (s *Store) CorrectedExposureByName(ctx context.Context, name string) (*entities.CorrectedExposure, error) {
	var c entities.CorrectedExposure
	err := s.db.WithContext(ctx).Where("corrected_exp = ?", name).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrCorrectedExposureNotFound, name)
	}
	if err != nil {
		return nil, dbError(err, "get_corrected_exposure", errors.PriorityMedium, "corrected_exposure", name)
	}
	return &c, nil
}

// InsertRamps bulk inserts ramp rows.
func (s *Store) InsertRamps(ctx context.Context, rows []entities.Ramp) error {
	if err := s.createInBatches(ctx, &rows); err != nil {
		return writeError(err, "insert_ramps", "ramp", "")
	}
	return nil
}

// InsertGroups bulk inserts group rows.
func (s *Store) InsertGroups(ctx context.Context, rows []entities.Group) error {
	if err := s.createInBatches(ctx, &rows); err != nil {
		return writeError(err, "insert_groups", "group", "")
	}
	return nil
}

// InsertCorrectedRamps bulk inserts corrected ramp rows.
func (s *Store) InsertCorrectedRamps(ctx context.Context, rows []entities.CorrectedRamp) error {
	if err := s.createInBatches(ctx, &rows); err != nil {
		return writeError(err, "insert_corrected_ramps", "corrected ramp", "")
	}
	return nil
}

// InsertCorrectedGroups bulk inserts corrected group rows.
func (s *Store) InsertCorrectedGroups(ctx context.Context, rows []entities.CorrectedGroup) error {
	if err := s.createInBatches(ctx, &rows); err != nil {
		return writeError(err, "insert_corrected_groups", "corrected group", "")
	}
	return nil
}

func (s *Store) createInBatches(ctx context.Context, rows any) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(rows, s.batch).Error
}
