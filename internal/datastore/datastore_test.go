package datastore

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/datastore/entities"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

func smallFrame() geometry.Frame {
	return geometry.Frame{Rows: 10, Cols: 8, ReferenceRows: 2, DataColumnsPerReference: 4}
}

// newTestManager opens a migrated SQLite database in a temporary directory.
func newTestManager(t *testing.T) *SQLiteManager {
	t.Helper()

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	m, err := NewSQLiteManager(filepath.Join(t.TempDir(), "miri.db"), gormConfig(&conf.DatabaseSettings{}, log))
	require.NoError(t, err, "Failed to open SQLite database")
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Initialize(t.Context()), "Failed to migrate schema")
	return m
}

// newTestStore returns a seeded store over the small test frame. A batch
// size of 7 forces multi-statement inserts.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	m := newTestManager(t)
	_, err := Seed(t.Context(), m.DB(), SeedOptions{Frame: smallFrame()})
	require.NoError(t, err, "Failed to seed static tables")
	return NewStore(m.DB(), 7)
}

// fixture describes a stored exposure and the ids generated for it.
type fixture struct {
	exposure  *entities.Exposure
	corrected *entities.CorrectedExposure
	rampIDs   map[RampKey]uint64
	groupIDs  map[GroupKey]uint64
}

const (
	fixturePixels = 4
	fixtureInts   = 2
	fixtureGroups = 3
)

// storeFixture writes an exposure with fixturePixels*fixtureInts ramps of
// fixtureGroups groups. Corrected rows are added when corrected is true;
// ramp k of the corrected exposure carries DQ mask dqMasks[k%len(dqMasks)].
func storeFixture(t *testing.T, s *Store, name string, corrected bool, dqMasks ...int64) *fixture {
	t.Helper()
	ctx := t.Context()

	e := &entities.Exposure{
		FileName:    name,
		DetectorID:  493,
		Provenance:  "FLIGHT",
		Groups:      fixtureGroups,
		Ints:        fixtureInts,
		Subarray:    "FULL",
		ReadPattern: "FAST",
		Start:       time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC),
		End:         time.Date(2022, 5, 1, 12, 5, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateExposure(ctx, e))
	require.NotZero(t, e.ID)

	var ramps []entities.Ramp
	for pix := int64(1); pix <= fixturePixels; pix++ {
		for n := 1; n <= fixtureInts; n++ {
			ramps = append(ramps, entities.Ramp{
				ExposureID: e.ID,
				PixelID:    pix,
				IntNumber:  n,
				Values:     entities.Int64Series{pix * 10, pix*10 + 1, pix*10 + 2},
			})
		}
	}
	require.NoError(t, s.InsertRamps(ctx, ramps))

	rampIDs, err := s.RampIDs(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, rampIDs, fixturePixels*fixtureInts)

	var groups []entities.Group
	for key, id := range rampIDs {
		for g := 1; g <= fixtureGroups; g++ {
			groups = append(groups, entities.Group{RampID: id, GroupNumber: g, RawValue: key.PixelID*10 + int64(g-1)})
		}
	}
	require.NoError(t, s.InsertGroups(ctx, groups))

	groupIDs, err := s.GroupIDs(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, groupIDs, fixturePixels*fixtureInts*fixtureGroups)

	f := &fixture{exposure: e, rampIDs: rampIDs, groupIDs: groupIDs}
	if !corrected {
		return f
	}

	c := &entities.CorrectedExposure{
		FileName:        name[:len(name)-len(".fits")] + "_pipe_ramp.fits",
		ExposureID:      e.ID,
		PipelineVersion: "1.8.2",
		CRDSVersion:     "11.16.16",
		DarkRefFile:     "N/A",
		Linearity:       true,
	}
	require.NoError(t, s.CreateCorrectedExposure(ctx, c))
	f.corrected = c

	if len(dqMasks) == 0 {
		dqMasks = []int64{0}
	}
	var cramps []entities.CorrectedRamp
	k := 0
	for _, id := range rampIDs {
		slope := 0.5
		cramps = append(cramps, entities.CorrectedRamp{
			CorrectedExposureID: c.ID,
			RampID:              id,
			Slope:               &slope,
			CorrectedValues:     entities.Float64Series{1, 2, 3},
			DQValues:            entities.Int64Series{0, 0, dqMasks[k%len(dqMasks)]},
			ErrorValues:         entities.Float64Series{0.1, 0.1, 0.1},
			DQMask:              dqMasks[k%len(dqMasks)],
		})
		k++
	}
	require.NoError(t, s.InsertCorrectedRamps(ctx, cramps))

	cids, err := s.CorrectedRampIDs(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, cids, len(rampIDs))

	var cgroups []entities.CorrectedGroup
	for key, gid := range groupIDs {
		v := float64(key.GroupNumber)
		cgroups = append(cgroups, entities.CorrectedGroup{
			CorrectedRampID: cids[key.RampID],
			GroupID:         gid,
			GroupNumber:     key.GroupNumber,
			CorrectedValue:  &v,
		})
	}
	require.NoError(t, s.InsertCorrectedGroups(ctx, cgroups))
	return f
}

func TestSeedSmallFrame(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := t.Context()

	res, err := Seed(ctx, m.DB(), SeedOptions{Frame: smallFrame(), BatchSize: 9})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Detectors)
	assert.Equal(t, 80, res.Pixels)
	assert.Equal(t, 31, res.Flags)

	var refs int64
	require.NoError(t, m.DB().Model(&entities.Pixel{}).Where("ref_pix = ?", true).Count(&refs).Error)
	assert.Equal(t, int64(16), refs, "two reference rows of eight columns")

	var last entities.Pixel
	require.NoError(t, m.DB().Order("pixel_id DESC").Take(&last).Error)
	assert.Equal(t, int64(80), last.ID)
	assert.Equal(t, 10, last.Row)
	assert.Equal(t, 8, last.Col)
	assert.True(t, last.Reference)

	again, err := Seed(ctx, m.DB(), SeedOptions{Frame: smallFrame()})
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, *again, "second seed must not write")
}

func TestSeedRejectsDifferentFrame(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	_, err := Seed(t.Context(), m.DB(), SeedOptions{Frame: smallFrame()})
	require.NoError(t, err)

	bigger := smallFrame()
	bigger.Rows = 20
	bigger.ReferenceRows = 4
	_, err = Seed(t.Context(), m.DB(), SeedOptions{Frame: bigger})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestCreateExposureDuplicate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	storeFixture(t, s, "jw01_mirimage_uncal.fits", false)

	err := s.CreateExposure(t.Context(), &entities.Exposure{
		FileName:   "jw01_mirimage_uncal.fits",
		DetectorID: 493,
		Provenance: "FLIGHT",
		Groups:     1,
		Ints:       1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateEntity)
	assert.Equal(t, "duplicate", errors.Kind(err))
}

func TestExposureLookup(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()
	f := storeFixture(t, s, "jw02_mirimage_uncal.fits", true)

	got, err := s.ExposureByName(ctx, "jw02_mirimage_uncal.fits")
	require.NoError(t, err)
	assert.Equal(t, f.exposure.ID, got.ID)
	assert.Equal(t, "FULL", got.Subarray)
	assert.True(t, got.Start.Equal(f.exposure.Start))

	ok, err := s.ExposureExists(ctx, "jw02_mirimage_uncal.fits")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.ExposureByName(ctx, "missing.fits")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExposureNotFound)

	c, err := s.CorrectedExposureByName(ctx, "jw02_mirimage_uncal_pipe_ramp.fits")
	require.NoError(t, err)
	assert.Equal(t, f.exposure.ID, c.ExposureID)
	assert.True(t, c.Linearity)
	assert.False(t, c.DarkSubtraction)

	_, err = s.CorrectedExposureByName(ctx, "missing_ramp.fits")
	assert.ErrorIs(t, err, ErrCorrectedExposureNotFound)
}

func TestCorrelationKeysAreDistinctPerExposure(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := storeFixture(t, s, "a.fits", false)
	b := storeFixture(t, s, "b.fits", false)

	seen := make(map[uint64]bool)
	for _, ids := range []map[RampKey]uint64{a.rampIDs, b.rampIDs} {
		for _, id := range ids {
			assert.False(t, seen[id], "ramp id %d generated twice", id)
			seen[id] = true
		}
	}

	// Stored values follow the correlation key, not insertion order.
	var r entities.Ramp
	require.NoError(t, s.DB().Where("ramp_id = ?", a.rampIDs[RampKey{PixelID: 3, IntNumber: 2}]).Take(&r).Error)
	assert.Equal(t, int64(3), r.PixelID)
	assert.Equal(t, 2, r.IntNumber)
	assert.Equal(t, entities.Int64Series{30, 31, 32}, r.Values)

	var g entities.Group
	key := GroupKey{RampID: a.rampIDs[RampKey{PixelID: 4, IntNumber: 1}], GroupNumber: 3}
	require.NoError(t, s.DB().Where("group_id = ?", a.groupIDs[key]).Take(&g).Error)
	assert.Equal(t, int64(42), g.RawValue)
}

func TestTransactionRollsBack(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	sentinel := errors.NewStd("abort")
	err := s.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.CreateExposure(ctx, &entities.Exposure{
			FileName: "rollback.fits", DetectorID: 493, Provenance: "JPL", Groups: 1, Ints: 1,
		}))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	ok, err := s.ExposureExists(ctx, "rollback.fits")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewManagerUnsupported(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&conf.DatabaseSettings{Type: "oracle"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDatabase)
}

func TestSQLiteManagerDelete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "miri.db")
	m, err := NewSQLiteManager(path, gormConfig(&conf.DatabaseSettings{}, nil))
	require.NoError(t, err)
	require.NoError(t, m.Initialize(context.Background()))
	assert.Equal(t, "sqlite", m.Dialect())
	assert.Equal(t, path, m.Path())
	assert.FileExists(t, path)

	require.NoError(t, m.Delete())
	assert.NoFileExists(t, path)
}
