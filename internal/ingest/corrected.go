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
	"github.com/tphakala/miri-pixeldb/internal/geometry"
	"github.com/tphakala/miri-pixeldb/internal/logger"
	"github.com/tphakala/miri-pixeldb/internal/observability/metrics"
)

// Extension names of the corrected ramp product.
const (
	extSCI     = "SCI"
	extGroupDQ = "GROUPDQ"
	extErr     = "ERR"
)

// CorrectedResult summarizes a stored corrected exposure.
type CorrectedResult struct {
	Corrected    *entities.CorrectedExposure
	Exposure     *entities.Exposure
	Ramps        int
	Groups       int
	FlaggedRamps int // ramps with a non-zero DQ mask
	Duration     time.Duration
}

// correctedExposure holds the flattened cubes of a corrected product.
type correctedExposure struct {
	meta   *exposure.CorrectedMetadata
	keys   []datastore.RampKey
	length int
	values []float64
	errs   []float64
	dq     []int64
	masks  []int64
	slopes []float64
}

// IngestCorrected stores the corrected ramp product at path and its slope
// sibling. The raw exposure must already be stored under the name derived
// from path.
func (e *Engine) IngestCorrected(ctx context.Context, path string) (res *CorrectedResult, err error) {
	start := time.Now()
	defer func() { e.finish(metrics.OpCorrectedIngest, start, err) }()

	log := e.log.WithContext(ctx).With(logger.String("file", filepath.Base(path)))

	rawName := exposure.RawName(path)
	exp, err := e.store.ExposureByName(ctx, rawName)
	if err != nil {
		return nil, err
	}

	corr, err := e.readCorrected(ctx, path, exp)
	if err != nil {
		return nil, err
	}

	ce := newCorrectedExposure(corr.meta, exp.ID)
	err = e.store.Transaction(ctx, func(tx *datastore.Store) error {
		return e.writeCorrected(ctx, tx, exp, ce, corr)
	})
	if err != nil {
		log.Error("corrected ingest failed", logger.Error(err))
		return nil, err
	}

	groups := len(corr.keys) * corr.length
	e.recordRows(metrics.TableCorrectedRamps, len(corr.keys))
	e.recordRows(metrics.TableCorrectedGroups, groups)

	flagged := 0
	for _, m := range corr.masks {
		if m != 0 {
			flagged++
		}
	}

	res = &CorrectedResult{
		Corrected:    ce,
		Exposure:     exp,
		Ramps:        len(corr.keys),
		Groups:       groups,
		FlaggedRamps: flagged,
		Duration:     time.Since(start),
	}
	log.Info("corrected exposure stored",
		logger.Int64("corrected_exp_id", int64(ce.ID)),
		logger.String("exposure", exp.FileName),
		logger.Int("ramps", res.Ramps),
		logger.Int("flagged_ramps", flagged),
		logger.Duration("duration", res.Duration))
	return res, nil
}

// readCorrected decodes the corrected ramp product and its slope sibling
// and checks every cube against the stored raw exposure.
func (e *Engine) readCorrected(ctx context.Context, path string, exp *entities.Exposure) (*correctedExposure, error) {
	prod, err := fitsfile.Read(path, extSCI, extGroupDQ, extErr)
	if err != nil {
		return nil, err
	}
	meta, err := exposure.ParseCorrected(prod.Primary, path)
	if err != nil {
		return nil, err
	}

	slopePath := exposure.SlopeName(path, exp.Ints)
	slopeProd, err := fitsfile.Read(slopePath, extSCI)
	if err != nil {
		return nil, err
	}

	want := cube.Shape{Ints: exp.Ints, Groups: exp.Groups, Rows: exp.Height, Cols: exp.Width}
	cubes := make([]*cube.Cube, 0, 4)
	for _, ext := range []string{extSCI, extGroupDQ, extErr} {
		c, err := extensionCube(prod, ext)
		if err != nil {
			return nil, err
		}
		if err := checkShape(path, ext, c.Shape, want); err != nil {
			return nil, err
		}
		cubes = append(cubes, c)
	}
	slope, err := extensionCube(slopeProd, extSCI)
	if err != nil {
		return nil, err
	}
	slopeWant := want
	slopeWant.Groups = 1
	if err := checkShape(slopePath, extSCI, slope.Shape, slopeWant); err != nil {
		return nil, err
	}
	cubes = append(cubes, slope)

	mapping, err := e.mapper.Map(geometry.Window{X: exp.OriginX, Y: exp.OriginY, Width: exp.Width, Height: exp.Height})
	if err != nil {
		return nil, err
	}

	flat, err := e.flatten(ctx, cubes...)
	if err != nil {
		return nil, err
	}
	dq, err := flat[1].Int64s()
	if err != nil {
		return nil, err
	}

	corr := &correctedExposure{
		meta:   meta,
		keys:   planRamps(mapping.DataIDs, exp.Ints),
		length: flat[0].Length,
		values: flat[0].Values,
		dq:     dq,
		errs:   flat[2].Values,
		slopes: flat[3].Values,
	}
	corr.masks = make([]int64, len(corr.keys))
	g := corr.length
	for k := range corr.keys {
		if corr.masks[k], err = e.flags.Aggregate(dq[k*g : (k+1)*g]); err != nil {
			return nil, errors.Configuration(component, "%s: ramp %d: %v", path, k, err)
		}
	}
	return corr, nil
}

func extensionCube(p *fitsfile.Product, ext string) (*cube.Cube, error) {
	img, err := p.Extension(ext)
	if err != nil {
		return nil, err
	}
	return img.Cube()
}

// writeCorrected inserts the corrected exposure and its ramps and groups,
// linking each to its raw counterpart through the correlation keys.
func (e *Engine) writeCorrected(ctx context.Context, tx *datastore.Store, exp *entities.Exposure, ce *entities.CorrectedExposure, corr *correctedExposure) error {
	if err := tx.CreateCorrectedExposure(ctx, ce); err != nil {
		return err
	}

	rampIDs, err := tx.RampIDs(ctx, exp.ID)
	if err != nil {
		return err
	}
	if len(rampIDs) != len(corr.keys) {
		return errors.OrderingViolation(component, "exposure %s holds %d ramps, corrected product has %d",
			exp.FileName, len(rampIDs), len(corr.keys))
	}

	g := corr.length
	ramps := make([]entities.CorrectedRamp, len(corr.keys))
	for k, key := range corr.keys {
		id, ok := rampIDs[key]
		if !ok {
			return errors.OrderingViolation(component, "exposure %s: no ramp id for pixel %d integration %d",
				exp.FileName, key.PixelID, key.IntNumber)
		}
		ramps[k] = entities.CorrectedRamp{
			CorrectedExposureID: ce.ID,
			RampID:              id,
			Slope:               nullable(corr.slopes[k]),
			CorrectedValues:     entities.Float64Series(corr.values[k*g : (k+1)*g]),
			DQValues:            entities.Int64Series(corr.dq[k*g : (k+1)*g]),
			ErrorValues:         entities.Float64Series(corr.errs[k*g : (k+1)*g]),
			DQMask:              corr.masks[k],
		}
	}
	if err := tx.InsertCorrectedRamps(ctx, ramps); err != nil {
		return err
	}

	corrIDs, err := tx.CorrectedRampIDs(ctx, ce.ID)
	if err != nil {
		return err
	}
	if len(corrIDs) != len(ramps) {
		return errors.OrderingViolation(component, "corrected exposure %s: wrote %d ramps, re-read %d",
			ce.FileName, len(ramps), len(corrIDs))
	}

	groupIDs, err := tx.GroupIDs(ctx, exp.ID)
	if err != nil {
		return err
	}
	if len(groupIDs) != len(corr.keys)*g {
		return errors.OrderingViolation(component, "exposure %s holds %d groups, corrected product has %d",
			exp.FileName, len(groupIDs), len(corr.keys)*g)
	}

	err = chunks(len(ramps), g, func(lo, hi int) error {
		rows := make([]entities.CorrectedGroup, 0, (hi-lo)*g)
		for k := lo; k < hi; k++ {
			rampID := ramps[k].RampID
			corrID, ok := corrIDs[rampID]
			if !ok {
				return errors.OrderingViolation(component, "corrected exposure %s: no corrected ramp for ramp %d",
					ce.FileName, rampID)
			}
			for n := range g {
				groupID, ok := groupIDs[datastore.GroupKey{RampID: rampID, GroupNumber: n + 1}]
				if !ok {
					return errors.OrderingViolation(component, "exposure %s: no group %d for ramp %d",
						exp.FileName, n+1, rampID)
				}
				i := k*g + n
				rows = append(rows, entities.CorrectedGroup{
					CorrectedRampID: corrID,
					GroupID:         groupID,
					GroupNumber:     n + 1,
					CorrectedValue:  nullable(corr.values[i]),
					DQValue:         corr.dq[i],
					ErrorValue:      nullable(corr.errs[i]),
				})
			}
		}
		return tx.InsertCorrectedGroups(ctx, rows)
	})
	if err != nil {
		return err
	}

	counts, err := tx.ExposureCounts(ctx, exp.ID)
	if err != nil {
		return err
	}
	if counts.CorrectedGroups < int64(len(ramps)*g) {
		return errors.OrderingViolation(component, "corrected exposure %s: wrote %d groups, re-read %d",
			ce.FileName, len(ramps)*g, counts.CorrectedGroups)
	}
	return nil
}

func newCorrectedExposure(m *exposure.CorrectedMetadata, expID uint) *entities.CorrectedExposure {
	return &entities.CorrectedExposure{
		FileName:        m.FileName,
		ExposureID:      expID,
		PipelineVersion: m.CalVersion,
		CRDSVersion:     m.CRDSVersion,
		CalVCS:          m.CalVCS,

		DarkSubtraction:      m.Steps.Dark,
		DQInit:               m.Steps.DQInit,
		FirstFrameCorrection: m.Steps.FirstFrame,
		GroupScale:           m.Steps.GroupScale,
		IPC:                  m.Steps.IPC,
		JumpDetection:        m.Steps.Jump,
		LastFrameCorrection:  m.Steps.LastFrame,
		Linearity:            m.Steps.Linearity,
		RefPixCorrection:     m.Steps.RefPix,
		RSCD:                 m.Steps.RSCD,
		SaturationCheck:      m.Steps.Saturation,

		DarkRefFile:       m.References.Dark,
		GainRefFile:       m.References.Gain,
		IPCRefFile:        m.References.IPC,
		LinearRefFile:     m.References.Linearity,
		MaskRefFile:       m.References.Mask,
		ReadNoiseRefFile:  m.References.ReadNoise,
		RSCDRefFile:       m.References.RSCD,
		SaturationRefFile: m.References.Saturation,
	}
}
