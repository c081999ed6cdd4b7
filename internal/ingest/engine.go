// Package ingest stores raw and calibrated exposures in the pixel database.
//
// Generated keys are never correlated by position. Every ramp carries its
// (pixel_id, intnumber) key to the database, and child rows resolve their
// parent ids through a re-read keyed on that pair. A re-read returning
// fewer or more rows than were written aborts the transaction with an
// ordering violation.
package ingest

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/miri-pixeldb/internal/cube"
	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/dqflags"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/exposure"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/observability/metrics"
)

const component = "ingest"

// groupChunkRows bounds the group rows built in memory before an insert.
const groupChunkRows = 50_000

// Config wires an Engine. Store, Mapper and Parser are required.
type Config struct {
	Store   *datastore.Store
	Mapper  *geometry.Mapper
	Parser  *exposure.Parser
	Flags   *dqflags.Table
	Workers int
	Metrics metrics.Recorder
	Logger  logger.Logger
}

// Engine writes exposures through a Store.
type Engine struct {
	store   *datastore.Store
	mapper  *geometry.Mapper
	parser  *exposure.Parser
	flags   *dqflags.Table
	workers int
	metrics metrics.Recorder
	rows    metrics.RowRecorder
	log     logger.Logger
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.Configuration(component, "engine requires a store")
	case cfg.Mapper == nil:
		return nil, errors.Configuration(component, "engine requires a subarray mapper")
	case cfg.Parser == nil:
		return nil, errors.Configuration(component, "engine requires a header parser")
	}

	e := &Engine{
		store:   cfg.Store,
		mapper:  cfg.Mapper,
		parser:  cfg.Parser,
		flags:   cfg.Flags,
		workers: max(cfg.Workers, 1),
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}
	if e.flags == nil {
		e.flags = dqflags.StandardTable()
	}
	if e.metrics == nil {
		e.metrics = metrics.NewNoOpRecorder()
	}
	if rr, ok := e.metrics.(metrics.RowRecorder); ok {
		e.rows = rr
	}
	if e.log == nil {
		e.log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	e.log = e.log.Module(component)
	return e, nil
}

// Store returns the store the engine writes to.
func (e *Engine) Store() *datastore.Store {
	return e.store
}

// Flags returns the DQ decode table used to aggregate ramp masks.
func (e *Engine) Flags() *dqflags.Table {
	return e.flags
}

// finish records the outcome of an operation.
func (e *Engine) finish(op string, start time.Time, err error) {
	e.metrics.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		e.metrics.RecordOperation(op, metrics.StatusError)
		e.metrics.RecordError(op, errors.Kind(err))
		return
	}
	e.metrics.RecordOperation(op, metrics.StatusSuccess)
}

func (e *Engine) recordRows(table string, n int) {
	if e.rows != nil {
		e.rows.RecordRows(table, n)
	}
}

// flatten turns every cube into ramps, at most e.workers at a time.
func (e *Engine) flatten(ctx context.Context, cubes ...*cube.Cube) ([]*cube.Ramps, error) {
	start := time.Now()
	out := make([]*cube.Ramps, len(cubes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range cubes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := cube.Flatten(c)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	err := g.Wait()
	e.finish(metrics.OpFlatten, start, err)
	return out, err
}

// planRamps lists the correlation key of every ramp in flattened cube
// order: pixel-scan order of the window, repeated once per integration.
func planRamps(dataIDs []int64, ints int) []datastore.RampKey {
	keys := make([]datastore.RampKey, 0, len(dataIDs)*ints)
	for n := 1; n <= ints; n++ {
		for _, id := range dataIDs {
			keys = append(keys, datastore.RampKey{PixelID: id, IntNumber: n})
		}
	}
	return keys
}

// checkShape verifies a cube read from file against the exposure metadata.
func checkShape(file, ext string, got, want cube.Shape) error {
	if got != want {
		return errors.Configuration(component, "%s: %s cube is %dx%dx%dx%d (ints x groups x rows x cols), metadata implies %dx%dx%dx%d",
			file, ext, got.Ints, got.Groups, got.Rows, got.Cols, want.Ints, want.Groups, want.Rows, want.Cols)
	}
	return nil
}

// nullable maps non-finite values to SQL NULL.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// chunks calls fn with consecutive [lo, hi) ramp ranges whose group rows
// stay under groupChunkRows.
func chunks(ramps, groups int, fn func(lo, hi int) error) error {
	step := max(groupChunkRows/max(groups, 1), 1)
	for lo := 0; lo < ramps; lo += step {
		if err := fn(lo, min(lo+step, ramps)); err != nil {
			return err
		}
	}
	return nil
}
