package datastore

import (
	"context"

	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/dqflags"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// Exposures lists every exposure ordered by start time.
func (s *Store) Exposures(ctx context.Context) ([]entities.Exposure, error) {
	var list []entities.Exposure
	if err := s.db.WithContext(ctx).Order("t0, exp").Find(&list).Error; err != nil {
		return nil, dbError(err, "list_exposures", errors.PriorityLow)
	}
	return list, nil
}

// CorrectedExposures lists the corrected exposures of one exposure.
func (s *Store) CorrectedExposures(ctx context.Context, expID uint) ([]entities.CorrectedExposure, error) {
	var list []entities.CorrectedExposure
	err := s.db.WithContext(ctx).Where("exp_id = ?", expID).Order("corrected_exp_id").Find(&list).Error
	if err != nil {
		return nil, dbError(err, "list_corrected_exposures", errors.PriorityLow, "exp_id", expID)
	}
	return list, nil
}

// Detectors lists the seeded detectors.
func (s *Store) Detectors(ctx context.Context) ([]entities.Detector, error) {
	var list []entities.Detector
	if err := s.db.WithContext(ctx).Order("detector_id").Find(&list).Error; err != nil {
		return nil, dbError(err, "list_detectors", errors.PriorityLow)
	}
	return list, nil
}

// FlagTable loads the DQ decode table stored in dq_flags.
func (s *Store) FlagTable(ctx context.Context) (*dqflags.Table, error) {
	var rows []entities.DQFlag
	if err := s.db.WithContext(ctx).Order("bit").Find(&rows).Error; err != nil {
		return nil, dbError(err, "load_dq_flags", errors.PriorityMedium)
	}
	flags := make([]dqflags.Flag, len(rows))
	for i, r := range rows {
		flags[i] = dqflags.Flag{Bit: r.Bit, Value: r.Value, Name: r.Name}
	}
	return dqflags.NewTable(flags)
}

// FlagCount is the number of corrected ramps carrying one flag.
type FlagCount struct {
	Flag  dqflags.Flag
	Ramps int64
}

// FlagHistogram counts, per flag, the corrected ramps of a corrected
// exposure whose mask carries it. Flags no ramp carries are omitted.
func (s *Store) FlagHistogram(ctx context.Context, correctedExpID uint, table *dqflags.Table) ([]FlagCount, error) {
	var masks []struct {
		DQMask int64 `gorm:"column:dq_mask"`
		N      int64 `gorm:"column:n"`
	}
	err := s.db.WithContext(ctx).
		Model(&entities.CorrectedRamp{}).
		Select("dq_mask, COUNT(*) AS n").
		Where("corrected_exp_id = ? AND dq_mask <> 0", correctedExpID).
		Group("dq_mask").
		Scan(&masks).Error
	if err != nil {
		return nil, dbError(err, "flag_histogram", errors.PriorityLow, "corrected_exp_id", correctedExpID)
	}

	perBit := make(map[int]int64)
	for _, m := range masks {
		flags, err := table.Decompose(m.DQMask)
		if err != nil {
			return nil, err
		}
		for _, f := range flags {
			perBit[f.Bit] += m.N
		}
	}

	var out []FlagCount
	for _, f := range table.Flags() {
		if n := perBit[f.Bit]; n > 0 {
			out = append(out, FlagCount{Flag: f, Ramps: n})
		}
	}
	return out, nil
}

// FlaggedRamps counts the corrected ramps of a corrected exposure whose
// mask carries flag.
func (s *Store) FlaggedRamps(ctx context.Context, correctedExpID uint, flag dqflags.Flag) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&entities.CorrectedRamp{}).
		Where("corrected_exp_id = ? AND (dq_mask & ?) <> 0", correctedExpID, flag.Value).
		Count(&n).Error
	if err != nil {
		return 0, dbError(err, "flagged_ramps", errors.PriorityLow, "flag", flag.Name)
	}
	return n, nil
}
