package ingest

import (
	"context"
	"time"

	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/observability/metrics"
)

// Delete removes the exposure with the given file name and everything that
// depends on it.
func (e *Engine) Delete(ctx context.Context, name string) (res *datastore.DeleteResult, err error) {
	start := time.Now()
	defer func() { e.finish(metrics.OpDelete, start, err) }()

	res, err = e.store.DeleteExposure(ctx, name)
	if err != nil {
		e.log.WithContext(ctx).Error("delete failed", logger.String("exposure", name), logger.Error(err))
		return nil, err
	}
	e.log.WithContext(ctx).Info("exposure deleted",
		logger.String("exposure", name),
		logger.Int64("ramps", res.Removed.Ramps),
		logger.Int64("groups", res.Removed.Groups),
		logger.Int64("corrected_exposures", res.Removed.CorrectedExposures),
		logger.Int64("corrected_ramps", res.Removed.CorrectedRamps),
		logger.Int64("corrected_groups", res.Removed.CorrectedGroups))
	return res, nil
}

// CorrectedStats describes one calibration of an exposure.
type CorrectedStats struct {
	Exposure entities.CorrectedExposure
	Flags    []datastore.FlagCount
}

// Stats describes what the database holds for one exposure.
type Stats struct {
	Exposure  *entities.Exposure
	Counts    datastore.Counts
	Corrected []CorrectedStats
}

// Stats returns row counts for the exposure and, per corrected exposure,
// how many ramps carry each DQ flag.
func (e *Engine) Stats(ctx context.Context, name string) (*Stats, error) {
	exp, err := e.store.ExposureByName(ctx, name)
	if err != nil {
		return nil, err
	}
	counts, err := e.store.ExposureCounts(ctx, exp.ID)
	if err != nil {
		return nil, err
	}
	corrected, err := e.store.CorrectedExposures(ctx, exp.ID)
	if err != nil {
		return nil, err
	}

	st := &Stats{Exposure: exp, Counts: counts}
	for _, ce := range corrected {
		flags, err := e.store.FlagHistogram(ctx, ce.ID, e.flags)
		if err != nil {
			return nil, err
		}
		st.Corrected = append(st.Corrected, CorrectedStats{Exposure: ce, Flags: flags})
	}
	return st, nil
}
