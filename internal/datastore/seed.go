package datastore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/dqflags"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/exposure"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
)

// SeedOptions describes the static rows of a new database.
type SeedOptions struct {
	Frame     geometry.Frame
	Detectors []exposure.Detector
	Flags     *dqflags.Table
	BatchSize int
}

// SeedResult counts the rows written by Seed. Zero counts mean the table
// was already populated.
type SeedResult struct {
	Detectors int
	Pixels    int
	Flags     int
}

// Seed fills the detector, pixel and DQ flag tables. Each table is only
// written when it is empty, so Seed can run on every start.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) (*SeedResult, error) {
	if err := opts.Frame.Validate(); err != nil {
		return nil, err
	}
	if opts.Flags == nil {
		opts.Flags = dqflags.StandardTable()
	}
	if len(opts.Detectors) == 0 {
		opts.Detectors = exposure.DefaultDetectors
	}
	batch := batchSize(opts.BatchSize)

	res := &SeedResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := seedDetectors(tx, opts)
		if err != nil {
			return err
		}
		res.Detectors = n

		if res.Pixels, err = seedPixels(tx, opts.Frame, batch); err != nil {
			return err
		}
		res.Flags, err = seedFlags(tx, opts.Flags)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func seedDetectors(tx *gorm.DB, opts SeedOptions) (int, error) {
	var count int64
	if err := tx.Model(&entities.Detector{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "seed_detectors", errors.PriorityHigh)
	}
	if count > 0 {
		return 0, nil
	}

	rows := make([]entities.Detector, len(opts.Detectors))
	for i, d := range opts.Detectors {
		rows[i] = entities.Detector{
			ID:   uint(d.SCAID),
			Name: d.Name,
			Cols: opts.Frame.Cols,
			Rows: opts.Frame.Rows,
		}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return 0, writeError(err, "seed_detectors", "detector", "")
	}
	return len(rows), nil
}

// seedPixels writes one row per full-frame pixel id, row-major.
func seedPixels(tx *gorm.DB, f geometry.Frame, batch int) (int, error) {
	var count int64
	if err := tx.Model(&entities.Pixel{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "seed_pixels", errors.PriorityHigh)
	}
	if count > 0 {
		if count != int64(f.PixelCount()) {
			return 0, errors.Configuration(component, "pixel table holds %d rows, frame %dx%d needs %d",
				count, f.Rows, f.Cols, f.PixelCount())
		}
		return 0, nil
	}

	buf := make([]entities.Pixel, 0, batch)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := tx.Create(&buf).Error; err != nil {
			return dbError(err, "seed_pixels", errors.PriorityHigh)
		}
		buf = buf[:0]
		return nil
	}

	imaging := f.ImagingRows()
	for r := range f.Rows {
		for c := range f.Cols {
			buf = append(buf, entities.Pixel{
				ID:        f.PixelID(r, c),
				Row:       r + 1,
				Col:       c + 1,
				Reference: r >= imaging,
			})
			if len(buf) == batch {
				if err := flush(); err != nil {
					return 0, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return f.PixelCount(), nil
}

// seedFlags upserts the decode table so renamed flags follow the table.
func seedFlags(tx *gorm.DB, table *dqflags.Table) (int, error) {
	flags := table.Flags()
	rows := make([]entities.DQFlag, len(flags))
	for i, f := range flags {
		rows[i] = entities.DQFlag{Bit: f.Bit, Value: f.Value, Name: f.Name}
	}

	var count int64
	if err := tx.Model(&entities.DQFlag{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "seed_flags", errors.PriorityHigh)
	}
	if count == int64(len(rows)) {
		return 0, nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bit"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "name"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, dbError(err, "seed_flags", errors.PriorityHigh)
	}
	return len(rows), nil
}

func batchSize(n int) int {
	if n <= 0 {
		return defaultBatchSize
	}
	return n
}

const defaultBatchSize = 1000
