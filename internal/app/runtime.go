// Package app assembles the miridb services from Settings for the command
// line. Commands open a Runtime, use the services they need and close it.
package app

import (
	"context"
	"time"

	"github.com/tphakala/miri-pixeldb/internal/calibration"
	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/exposure"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
	"github.com/tphakala/miri-pixeldb/internal/ingest"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/observability"
	"github.com/tphakala/miri-pixeldb/internal/telemetry"
)

const component = "app"

// Runtime owns the logger, telemetry, metrics registry and database of one
// command invocation.
type Runtime struct {
	Settings  *conf.Settings
	Log       logger.Logger
	Manager   datastore.Manager
	Store     *datastore.Store
	Frame     geometry.Frame
	Subarrays *geometry.SubarrayTable
	Mapper    *geometry.Mapper
	Metrics   *observability.Metrics

	central        *logger.CentralLogger
	flushTelemetry func()
}

// NewLogger builds the central logger from settings. Debug raises the
// default and console levels to debug.
func NewLogger(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = cfg.DefaultLevel
			cfg.Console = &console
		}
	}
	return logger.NewCentralLogger(&cfg)
}

// Frame returns the detector frame described by settings.
func Frame(g *conf.GeometrySettings) geometry.Frame {
	return geometry.Frame{
		Rows:                    g.Rows,
		Cols:                    g.Cols,
		ReferenceRows:           g.ReferenceRows,
		DataColumnsPerReference: g.DataColumnsPerReference,
	}
}

// Subarrays returns the default subarray table extended by settings.
func Subarrays(g *conf.GeometrySettings) *geometry.SubarrayTable {
	extra := make([]geometry.Subarray, 0, len(g.Subarrays))
	for _, s := range g.Subarrays {
		extra = append(extra, geometry.Subarray{
			Name:   s.Name,
			Window: geometry.Window{X: s.OriginX, Y: s.OriginY, Width: s.Width, Height: s.Height},
		})
	}
	return geometry.NewSubarrayTable(extra...)
}

// Detectors converts the configured detectors, nil when none are set.
func Detectors(g *conf.GeometrySettings) []exposure.Detector {
	if len(g.Detectors) == 0 {
		return nil
	}
	out := make([]exposure.Detector, len(g.Detectors))
	for i, d := range g.Detectors {
		out[i] = exposure.Detector{Name: d.Name, SCAID: d.SCAID}
	}
	return out
}

// Open starts logging and telemetry and connects to the database.
func Open(settings *conf.Settings, release string) (*Runtime, error) {
	central, err := NewLogger(settings)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Settings:  settings,
		Log:       central.Module(component),
		Frame:     Frame(&settings.Geometry),
		Subarrays: Subarrays(&settings.Geometry),
		central:   central,
	}
	if err := rt.open(settings, release); err != nil {
		_ = rt.Close()
		return nil, err
	}

	rt.Log.Debug("runtime ready",
		logger.String("database", rt.Manager.Dialect()),
		logger.String("location", rt.Manager.Path()))
	return rt, nil
}

func (rt *Runtime) open(settings *conf.Settings, release string) error {
	var err error
	if rt.flushTelemetry, err = telemetry.Init(&settings.Telemetry, release, rt.central.Module("telemetry")); err != nil {
		return err
	}

	lattice, err := geometry.NewLattice(rt.Frame)
	if err != nil {
		return err
	}
	rt.Mapper = geometry.NewMapper(lattice)

	if rt.Metrics, err = observability.NewMetrics(); err != nil {
		return err
	}

	if rt.Manager, err = datastore.NewManager(&settings.Database, rt.central.Module("datastore")); err != nil {
		return err
	}
	rt.Store = datastore.NewStore(rt.Manager.DB(), settings.Database.BatchSize)
	return nil
}

// Run opens a Runtime, calls fn and closes the Runtime. Close errors are
// joined with the error of fn.
func Run(settings *conf.Settings, release string, fn func(rt *Runtime) error) (err error) {
	rt, err := Open(settings, release)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(rt)
}

// Prepare creates or updates the schema and seeds the static tables.
func (rt *Runtime) Prepare(ctx context.Context) (*datastore.SeedResult, error) {
	start := time.Now()
	if err := rt.Manager.Initialize(ctx); err != nil {
		return nil, err
	}
	res, err := datastore.Seed(ctx, rt.Manager.DB(), datastore.SeedOptions{
		Frame:     rt.Frame,
		Detectors: Detectors(&rt.Settings.Geometry),
		BatchSize: rt.Settings.Database.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	rt.Log.Info("database prepared",
		logger.Int("detectors_seeded", res.Detectors),
		logger.Int("pixels_seeded", res.Pixels),
		logger.Int("flags_seeded", res.Flags),
		logger.Duration("duration", time.Since(start)))
	return res, nil
}

// Engine builds an ingest engine decoding DQ codes with the seeded flag table.
func (rt *Runtime) Engine(ctx context.Context) (*ingest.Engine, error) {
	flags, err := rt.Store.FlagTable(ctx)
	if err != nil {
		return nil, err
	}
	parser := exposure.NewParser(
		rt.Settings.Ingest.AllowedProvenance,
		Detectors(&rt.Settings.Geometry),
		rt.Subarrays,
		rt.central.Module("exposure"),
	)
	return ingest.NewEngine(ingest.Config{
		Store:   rt.Store,
		Mapper:  rt.Mapper,
		Parser:  parser,
		Flags:   flags,
		Workers: rt.Settings.Ingest.FlattenWorkers,
		Metrics: rt.Metrics.Ingest,
		Logger:  rt.central.Module("ingest"),
	})
}

// Pipeline builds the ingest pipeline with the configured calibration runner.
func (rt *Runtime) Pipeline(ctx context.Context) (*ingest.Pipeline, error) {
	engine, err := rt.Engine(ctx)
	if err != nil {
		return nil, err
	}
	runner := calibration.NewRunner(&rt.Settings.Calibration, rt.central.Module("calibration"))
	return ingest.NewPipeline(engine, runner, rt.Settings.Ingest.CleanupOnFailure), nil
}

// Close writes the metrics textfile, flushes telemetry and closes the
// database and log file.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Metrics != nil {
		if err := rt.Metrics.WriteTextfile(rt.Settings.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.Manager != nil {
		if err := rt.Manager.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.flushTelemetry != nil {
		rt.flushTelemetry()
	}
	if err := rt.central.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component(component).
			Context("operation", "close_runtime").
			Build()
	}
	return nil
}
