package datastore

import (
	"context"

	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/errors"
)

// RampKey identifies a ramp within one exposure.
type RampKey struct {
	PixelID   int64
	IntNumber int
}

// GroupKey identifies a group within one ramp.
type GroupKey struct {
	RampID      uint64
	GroupNumber int
}

// RampIDs returns the generated id of every ramp of the exposure, keyed by
// pixel and integration.
func (s *Store) RampIDs(ctx context.Context, expID uint) (map[RampKey]uint64, error) {
	rows, err := s.db.WithContext(ctx).
		Model(&entities.Ramp{}).
		Select("ramp_id, pixel_id, intnumber").
		Where("exp_id = ?", expID).
		Rows()
	if err != nil {
		return nil, dbError(err, "read_ramp_ids", errors.PriorityHigh, "exp_id", expID)
	}
	defer rows.Close()

	ids := make(map[RampKey]uint64)
	for rows.Next() {
		var (
			id  uint64
			key RampKey
		)
		if err := rows.Scan(&id, &key.PixelID, &key.IntNumber); err != nil {
			return nil, dbError(err, "read_ramp_ids", errors.PriorityHigh, "exp_id", expID)
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "read_ramp_ids", errors.PriorityHigh, "exp_id", expID)
	}
	return ids, nil
}

// GroupIDs returns the generated id of every group of the exposure, keyed by
// ramp id and group number.
func (s *Store) GroupIDs(ctx context.Context, expID uint) (map[GroupKey]uint64, error) {
	rows, err := s.db.WithContext(ctx).
		Table("ramp_groups AS g").
		Select("g.group_id, g.ramp_id, g.group_number").
		Joins("JOIN ramps AS r ON r.ramp_id = g.ramp_id").
		Where("r.exp_id = ?", expID).
		Rows()
	if err != nil {
		return nil, dbError(err, "read_group_ids", errors.PriorityHigh, "exp_id", expID)
	}
	defer rows.Close()

	ids := make(map[GroupKey]uint64)
	for rows.Next() {
		var (
			id  uint64
			key GroupKey
		)
		if err := rows.Scan(&id, &key.RampID, &key.GroupNumber); err != nil {
			return nil, dbError(err, "read_group_ids", errors.PriorityHigh, "exp_id", expID)
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "read_group_ids", errors.PriorityHigh, "exp_id", expID)
	}
	return ids, nil
}

// CorrectedRampIDs maps raw ramp id to corrected ramp id for one corrected
// exposure.
func (s *Store) CorrectedRampIDs(ctx context.Context, correctedExpID uint) (map[uint64]uint64, error) {
	rows, err := s.db.WithContext(ctx).
		Model(&entities.CorrectedRamp{}).
		Select("corr_ramp_id, ramp_id").
		Where("corrected_exp_id = ?", correctedExpID).
		Rows()
	if err != nil {
		return nil, dbError(err, "read_corrected_ramp_ids", errors.PriorityHigh, "corrected_exp_id", correctedExpID)
	}
	defer rows.Close()

	ids := make(map[uint64]uint64)
	for rows.Next() {
		var id, rampID uint64
		if err := rows.Scan(&id, &rampID); err != nil {
			return nil, dbError(err, "read_corrected_ramp_ids", errors.PriorityHigh, "corrected_exp_id", correctedExpID)
		}
		ids[rampID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "read_corrected_ramp_ids", errors.PriorityHigh, "corrected_exp_id", correctedExpID)
	}
	return ids, nil
}
