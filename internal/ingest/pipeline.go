package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/miri-pixeldb/internal/calibration"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/exposure"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/observability/metrics"
)

// Calibrator produces the corrected products of a pipeline-ready file.
// *calibration.Runner implements it.
type Calibrator interface {
	Start(ctx context.Context, pipePath string, ints int) <-chan calibration.Result
}

// Report describes one pipeline run.
type Report struct {
	RunID       string
	Raw         *RawResult
	Calibration *calibration.Result
	Corrected   *CorrectedResult
	CleanedUp   bool
	Duration    time.Duration
}

// Pipeline ingests a raw exposure, calibrates it and ingests the result.
type Pipeline struct {
	engine     *Engine
	calibrator Calibrator
	cleanup    bool
	log        logger.Logger
}

// NewPipeline returns a pipeline over engine. With cleanup set, a run that
// fails after the raw exposure was stored deletes it again.
func NewPipeline(engine *Engine, calibrator Calibrator, cleanup bool) *Pipeline {
	return &Pipeline{
		engine:     engine,
		calibrator: calibrator,
		cleanup:    cleanup,
		log:        engine.log.Module("pipeline"),
	}
}

// Run processes one pipeline-ready raw file.
func (p *Pipeline) Run(ctx context.Context, path, provenance string) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString()}
	ctx = logger.WithTraceID(ctx, rep.RunID)
	log := p.log.WithContext(ctx).With(logger.String("file", filepath.Base(path)))

	if base := filepath.Base(path); exposure.PipelineReadyName(base) != base {
		log.Warn("input is not named as a pipeline-ready file",
			logger.String("expected", exposure.PipelineReadyName(base)))
	}

	raw, err := p.engine.IngestRaw(ctx, path, provenance, rep.RunID)
	if err != nil {
		rep.Duration = time.Since(start)
		return rep, err
	}
	rep.Raw = raw

	cal, err := p.calibrate(ctx, path, raw.Exposure.Ints)
	rep.Calibration = cal
	if err != nil {
		return p.fail(ctx, rep, start, err)
	}

	corrected, err := p.engine.IngestCorrected(ctx, cal.CorrectedRamp)
	if err != nil {
		return p.fail(ctx, rep, start, err)
	}
	rep.Corrected = corrected
	rep.Duration = time.Since(start)

	log.Info("exposure ingested",
		logger.String("exposure", raw.Exposure.FileName),
		logger.Bool("calibration_cached", cal.Cached),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}

// calibrate waits for the calibrator. Cancelling ctx stops waiting; the
// calibrator observes the same ctx and delivers into a buffered channel.
func (p *Pipeline) calibrate(ctx context.Context, path string, ints int) (*calibration.Result, error) {
	m := p.engine.metrics
	start := time.Now()

	var res calibration.Result
	select {
	case r, ok := <-p.calibrator.Start(ctx, path, ints):
		if !ok {
			return nil, errors.Newf("calibrator closed its result channel without a result").
				Component(component).
				Category(errors.CategoryState).
				Build()
		}
		res = r
	case <-ctx.Done():
		return nil, errors.New(ctx.Err()).
			Component(component).
			Category(errors.CategoryCancellation).
			Build()
	}

	m.RecordDuration(metrics.OpCalibration, time.Since(start).Seconds())
	switch {
	case res.Err != nil:
		m.RecordOperation(metrics.OpCalibration, metrics.StatusError)
		m.RecordError(metrics.OpCalibration, errors.Kind(res.Err))
		return &res, res.Err
	case res.Cached:
		m.RecordOperation(metrics.OpCalibration, metrics.StatusCached)
	default:
		m.RecordOperation(metrics.OpCalibration, metrics.StatusSuccess)
	}
	return &res, nil
}

// fail removes the committed raw exposure when cleanup is enabled. The
// delete runs even when ctx was cancelled.
func (p *Pipeline) fail(ctx context.Context, rep *Report, start time.Time, cause error) (*Report, error) {
	defer func() { rep.Duration = time.Since(start) }()

	name := rep.Raw.Exposure.FileName
	log := p.log.WithContext(ctx).With(logger.String("exposure", name))
	if !p.cleanup {
		log.Warn("ingest failed after raw exposure was stored, leaving it in place", logger.Error(cause))
		return rep, cause
	}

	if _, err := p.engine.Delete(context.WithoutCancel(ctx), name); err != nil {
		log.Error("cleanup after failed ingest failed", logger.Error(err))
		return rep, errors.Join(cause, err)
	}
	rep.CleanedUp = true
	log.Info("removed partially ingested exposure", logger.Error(cause))
	return rep, cause
}
