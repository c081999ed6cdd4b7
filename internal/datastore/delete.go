package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// Counts holds the dependent row counts of one exposure.
type Counts struct {
	Ramps              int64
	Groups             int64
	CorrectedExposures int64
	CorrectedRamps     int64
	CorrectedGroups    int64
}

// Total returns the number of dependent rows.
func (c Counts) Total() int64 {
	return c.Ramps + c.Groups + c.CorrectedExposures + c.CorrectedRamps + c.CorrectedGroups
}

// DeleteResult describes a completed delete.
type DeleteResult struct {
	Exposure *entities.Exposure
	Removed  Counts
}

type idRange struct {
	MinID *uint64
	MaxID *uint64
}

func (r idRange) empty() bool {
	return r.MinID == nil || r.MaxID == nil
}

// ExposureCounts counts the rows that depend on the exposure.
func (s *Store) ExposureCounts(ctx context.Context, expID uint) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)

	queries := []struct {
		name string
		dest *int64
		run  func(dest *int64) error
	}{
		{"ramps", &c.Ramps, func(dest *int64) error {
			return db.Model(&entities.Ramp{}).Where("exp_id = ?", expID).Count(dest).Error
		}},
		{"ramp_groups", &c.Groups, func(dest *int64) error {
			return db.Table("ramp_groups AS g").
				Joins("JOIN ramps AS r ON r.ramp_id = g.ramp_id").
				Where("r.exp_id = ?", expID).Count(dest).Error
		}},
		{"corrected_exposures", &c.CorrectedExposures, func(dest *int64) error {
			return db.Model(&entities.CorrectedExposure{}).Where("exp_id = ?", expID).Count(dest).Error
		}},
		{"corrected_ramps", &c.CorrectedRamps, func(dest *int64) error {
			return db.Table("corrected_ramps AS cr").
				Joins("JOIN corrected_exposures AS ce ON ce.corrected_exp_id = cr.corrected_exp_id").
				Where("ce.exp_id = ?", expID).Count(dest).Error
		}},
		{"corrected_groups", &c.CorrectedGroups, func(dest *int64) error {
			return db.Table("corrected_groups AS cg").
				Joins("JOIN corrected_ramps AS cr ON cr.corr_ramp_id = cg.corr_ramp_id").
				Joins("JOIN corrected_exposures AS ce ON ce.corrected_exp_id = cr.corrected_exp_id").
				Where("ce.exp_id = ?", expID).Count(dest).Error
		}},
	}
	for _, q := range queries {
		if err := q.run(q.dest); err != nil {
			return Counts{}, dbError(err, "count_"+q.name, errors.PriorityMedium, "exp_id", expID)
		}
	}
	return c, nil
}

// DeleteExposure removes the exposure with the given file name. Only the
// root row is deleted; dependents go through the ON DELETE CASCADE
// constraints. The delete is verified in the same transaction and rolled
// back with a cascade failure error when any dependent survives.
func (s *Store) DeleteExposure(ctx context.Context, name string) (*DeleteResult, error) {
	var res *DeleteResult
	err := s.Transaction(ctx, func(tx *Store) error {
		e, err := tx.ExposureByName(ctx, name)
		if err != nil {
			return err
		}
		counts, err := tx.ExposureCounts(ctx, e.ID)
		if err != nil {
			return err
		}
		snap, err := tx.snapshot(ctx, e.ID)
		if err != nil {
			return err
		}

		if err := tx.db.WithContext(ctx).Where("exp_id = ?", e.ID).Delete(&entities.Exposure{}).Error; err != nil {
			return dbError(err, "delete_exposure", errors.PriorityHigh, "exposure", name)
		}

		if err := tx.verifyDeleted(ctx, e, snap); err != nil {
			return err
		}
		res = &DeleteResult{Exposure: e, Removed: counts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// deleteSnapshot captures the keys needed to find survivors once the parent
// rows are gone.
type deleteSnapshot struct {
	correctedIDs  []uint
	rampRange     idRange
	corrRampRange idRange
}

func (s *Store) snapshot(ctx context.Context, expID uint) (*deleteSnapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &deleteSnapshot{}

	if err := db.Model(&entities.CorrectedExposure{}).
		Where("exp_id = ?", expID).
		Pluck("corrected_exp_id", &snap.correctedIDs).Error; err != nil {
		return nil, dbError(err, "delete_snapshot", errors.PriorityHigh, "exp_id", expID)
	}
	if err := db.Model(&entities.Ramp{}).
		Select("MIN(ramp_id) AS min_id, MAX(ramp_id) AS max_id").
		Where("exp_id = ?", expID).
		Scan(&snap.rampRange).Error; err != nil {
		return nil, dbError(err, "delete_snapshot", errors.PriorityHigh, "exp_id", expID)
	}
	if len(snap.correctedIDs) > 0 {
		if err := db.Model(&entities.CorrectedRamp{}).
			Select("MIN(corr_ramp_id) AS min_id, MAX(corr_ramp_id) AS max_id").
			Where("corrected_exp_id IN ?", snap.correctedIDs).
			Scan(&snap.corrRampRange).Error; err != nil {
			return nil, dbError(err, "delete_snapshot", errors.PriorityHigh, "exp_id", expID)
		}
	}
	return snap, nil
}

// verifyDeleted counts rows that still reference the deleted exposure.
func (s *Store) verifyDeleted(ctx context.Context, e *entities.Exposure, snap *deleteSnapshot) error {
	db := s.db.WithContext(ctx)
	left := make(map[string]int64)

	var n int64
	if err := db.Model(&entities.Ramp{}).Where("exp_id = ?", e.ID).Count(&n).Error; err != nil {
		return dbError(err, "verify_delete", errors.PriorityHigh, "table", "ramps")
	}
	left["ramps"] = n

	if err := db.Model(&entities.CorrectedExposure{}).Where("exp_id = ?", e.ID).Count(&n).Error; err != nil {
		return dbError(err, "verify_delete", errors.PriorityHigh, "table", "corrected_exposures")
	}
	left["corrected_exposures"] = n

	n = 0
	if len(snap.correctedIDs) > 0 {
		if err := db.Model(&entities.CorrectedRamp{}).
			Where("corrected_exp_id IN ?", snap.correctedIDs).Count(&n).Error; err != nil {
			return dbError(err, "verify_delete", errors.PriorityHigh, "table", "corrected_ramps")
		}
	}
	left["corrected_ramps"] = n

	n = 0
	if !snap.rampRange.empty() {
		if err := db.Table("ramp_groups AS g").
			Where("g.ramp_id BETWEEN ? AND ?", *snap.rampRange.MinID, *snap.rampRange.MaxID).
			Where("NOT EXISTS (SELECT 1 FROM ramps AS r WHERE r.ramp_id = g.ramp_id)").
			Count(&n).Error; err != nil {
			return dbError(err, "verify_delete", errors.PriorityHigh, "table", "ramp_groups")
		}
	}
	left["ramp_groups"] = n

	n = 0
	if !snap.corrRampRange.empty() {
		if err := db.Table("corrected_groups AS cg").
			Where("cg.corr_ramp_id BETWEEN ? AND ?", *snap.corrRampRange.MinID, *snap.corrRampRange.MaxID).
			Where("NOT EXISTS (SELECT 1 FROM corrected_ramps AS cr WHERE cr.corr_ramp_id = cg.corr_ramp_id)").
			Count(&n).Error; err != nil {
			return dbError(err, "verify_delete", errors.PriorityHigh, "table", "corrected_groups")
		}
	}
	left["corrected_groups"] = n

	var survivors []string
	for _, table := range []string{"ramps", "ramp_groups", "corrected_exposures", "corrected_ramps", "corrected_groups"} {
		if left[table] > 0 {
			survivors = append(survivors, fmt.Sprintf("%s=%d", table, left[table]))
		}
	}
	if len(survivors) == 0 {
		return nil
	}
	return errors.CascadeFailure(component, "delete of %s left dependent rows: %s",
		e.FileName, strings.Join(survivors, ", "))
}
