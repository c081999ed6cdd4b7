package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/tphakala/miri-pixeldb/internal/cube"
	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/exposure"
	"github.com/tphakala/miri-pixeldb/internal/fitsfile"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/observability/metrics"
)

// RawResult summarizes a stored raw exposure.
type RawResult struct {
	Exposure        *entities.Exposure
	Ramps           int
	Groups          int
	ReferencePixels int
	Duration        time.Duration
}

// rawExposure is a raw product read and checked against its metadata.
type rawExposure struct {
	meta   *exposure.Metadata
	keys   []datastore.RampKey
	refs   int
	values []int64 // flattened raw counts, Length per ramp
	length int
}

// IngestRaw stores the raw exposure at path with its ramps and groups in
// one transaction. runID is recorded on the exposure row.
func (e *Engine) IngestRaw(ctx context.Context, path, provenance, runID string) (res *RawResult, err error) {
	start := time.Now()
	defer func() { e.finish(metrics.OpRawIngest, start, err) }()

	log := e.log.WithContext(ctx).With(logger.String("file", filepath.Base(path)))

	raw, err := e.readRaw(ctx, path, provenance)
	if err != nil {
		return nil, err
	}

	exists, err := e.store.ExposureExists(ctx, raw.meta.FileName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Duplicate(component, "exposure %s is already ingested", raw.meta.FileName)
	}

	exp := newExposure(raw.meta, runID)
	var groups int
	err = e.store.Transaction(ctx, func(tx *datastore.Store) error {
		var txErr error
		groups, txErr = e.writeRaw(ctx, tx, exp, raw)
		return txErr
	})
	if err != nil {
		log.Error("raw ingest failed", logger.Error(err))
		return nil, err
	}

	e.recordRows(metrics.TableRamps, len(raw.keys))
	e.recordRows(metrics.TableGroups, groups)

	res = &RawResult{
		Exposure:        exp,
		Ramps:           len(raw.keys),
		Groups:          groups,
		ReferencePixels: raw.refs,
		Duration:        time.Since(start),
	}
	log.Info("raw exposure stored",
		logger.Int64("exp_id", int64(exp.ID)),
		logger.String("subarray", exp.Subarray),
		logger.Int("ramps", res.Ramps),
		logger.Int("groups", res.Groups),
		logger.Duration("duration", res.Duration))
	return res, nil
}

// readRaw decodes the SCI cube of path and checks it against the header.
func (e *Engine) readRaw(ctx context.Context, path, provenance string) (*rawExposure, error) {
	prod, err := fitsfile.Read(path, "SCI")
	if err != nil {
		return nil, err
	}
	meta, err := e.parser.Exposure(prod.Primary, path, provenance)
	if err != nil {
		return nil, err
	}

	mapping, err := e.mapper.Map(meta.Window)
	if err != nil {
		return nil, err
	}

	sci, err := prod.Extension("SCI")
	if err != nil {
		return nil, err
	}
	c, err := sci.Cube()
	if err != nil {
		return nil, err
	}
	want := cube.Shape{Ints: meta.Ints, Groups: meta.Groups, Rows: meta.Window.Height, Cols: meta.Window.Width}
	if err := checkShape(path, "SCI", c.Shape, want); err != nil {
		return nil, err
	}
	if len(mapping.DataIDs) != want.Pixels() {
		return nil, errors.Configuration(component, "%s: window maps to %d pixels, cube holds %d",
			path, len(mapping.DataIDs), want.Pixels())
	}

	flat, err := e.flatten(ctx, c)
	if err != nil {
		return nil, err
	}
	values, err := flat[0].Int64s()
	if err != nil {
		return nil, err
	}

	return &rawExposure{
		meta:   meta,
		keys:   planRamps(mapping.DataIDs, meta.Ints),
		refs:   len(mapping.ReferenceIDs),
		values: values,
		length: flat[0].Length,
	}, nil
}

// writeRaw inserts the exposure, its ramps and groups using tx and returns
// the number of group rows written.
func (e *Engine) writeRaw(ctx context.Context, tx *datastore.Store, exp *entities.Exposure, raw *rawExposure) (int, error) {
	if err := tx.CreateExposure(ctx, exp); err != nil {
		return 0, err
	}

	g := raw.length
	ramps := make([]entities.Ramp, len(raw.keys))
	for k, key := range raw.keys {
		ramps[k] = entities.Ramp{
			ExposureID: exp.ID,
			PixelID:    key.PixelID,
			IntNumber:  key.IntNumber,
			Values:     entities.Int64Series(raw.values[k*g : (k+1)*g]),
		}
	}
	if err := tx.InsertRamps(ctx, ramps); err != nil {
		return 0, err
	}

	rampIDs, err := tx.RampIDs(ctx, exp.ID)
	if err != nil {
		return 0, err
	}
	if len(rampIDs) != len(raw.keys) {
		return 0, errors.OrderingViolation(component, "exposure %s: wrote %d ramps, re-read %d",
			exp.FileName, len(raw.keys), len(rampIDs))
	}

	err = chunks(len(raw.keys), g, func(lo, hi int) error {
		rows := make([]entities.Group, 0, (hi-lo)*g)
		for k := lo; k < hi; k++ {
			id, ok := rampIDs[raw.keys[k]]
			if !ok {
				return errors.OrderingViolation(component, "exposure %s: no ramp id for pixel %d integration %d",
					exp.FileName, raw.keys[k].PixelID, raw.keys[k].IntNumber)
			}
			for n := range g {
				rows = append(rows, entities.Group{
					RampID:      id,
					GroupNumber: n + 1,
					RawValue:    raw.values[k*g+n],
				})
			}
		}
		return tx.InsertGroups(ctx, rows)
	})
	if err != nil {
		return 0, err
	}

	counts, err := tx.ExposureCounts(ctx, exp.ID)
	if err != nil {
		return 0, err
	}
	want := len(raw.keys) * g
	if counts.Groups != int64(want) {
		return 0, errors.OrderingViolation(component, "exposure %s: wrote %d groups, re-read %d",
			exp.FileName, want, counts.Groups)
	}
	return want, nil
}

func newExposure(m *exposure.Metadata, runID string) *entities.Exposure {
	return &entities.Exposure{
		FileName:        m.FileName,
		DetectorID:      uint(m.SCAID),
		Provenance:      m.Provenance,
		Groups:          m.Groups,
		Ints:            m.Ints,
		Subarray:        m.Subarray,
		ReadPattern:     m.ReadPattern,
		Start:           m.Start,
		End:             m.End,
		ExposureTime:    m.ExposureTime,
		IntegrationTime: m.IntegrationTime,
		OriginX:         m.Window.X,
		OriginY:         m.Window.Y,
		Width:           m.Window.Width,
		Height:          m.Window.Height,
		RunID:           runID,
	}
}
