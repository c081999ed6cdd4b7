package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/observability/metrics"
)

// ingestBoth stores the raw and corrected products of s.
func ingestBoth(t *testing.T, env *testEnv, s synthExposure) {
	t.Helper()
	_, err := env.engine.IngestRaw(t.Context(), s.writeRaw(t, env.dir), "JPL", "run")
	require.NoError(t, err)
	_, err = env.engine.IngestCorrected(t.Context(), s.writeCorrected(t, env.dir, nil))
	require.NoError(t, err)
}

func TestStats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, smallFrame())

	s := smallExposure("MIRI_TEST_0201_pipe.fits")
	ingestBoth(t, env, s)

	st, err := env.engine.Stats(t.Context(), s.name)
	require.NoError(t, err)
	assert.Equal(t, s.name, st.Exposure.FileName)
	assert.Equal(t, int64(129), st.Counts.Total())
	require.Len(t, st.Corrected, 1)
	assert.Equal(t, "MIRI_TEST_0201_pipe_ramp.fits", st.Corrected[0].Exposure.FileName)

	byName := map[string]int64{}
	for _, fc := range st.Corrected[0].Flags {
		byName[fc.Flag.Name] = fc.Ramps
	}
	assert.Equal(t, map[string]int64{"saturated": 2, "jump_det": 4}, byName)

	_, err = env.engine.Stats(t.Context(), "missing_pipe.fits")
	require.ErrorIs(t, err, datastore.ErrExposureNotFound)
}

func TestDeleteLeavesOtherExposures(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, smallFrame())
	ctx := t.Context()

	gone := smallExposure("MIRI_TEST_0202_pipe.fits")
	kept := smallExposure("MIRI_TEST_0203_pipe.fits")
	kept.window.X = 5
	ingestBoth(t, env, gone)
	ingestBoth(t, env, kept)

	res, err := env.engine.Delete(ctx, gone.name)
	require.NoError(t, err)
	assert.Equal(t, datastore.Counts{Ramps: 16, Groups: 48, CorrectedExposures: 1, CorrectedRamps: 16, CorrectedGroups: 48}, res.Removed)

	after, err := env.store.ExposureCounts(ctx, res.Exposure.ID)
	require.NoError(t, err)
	assert.Zero(t, after.Total())

	survivor, err := env.store.ExposureByName(ctx, kept.name)
	require.NoError(t, err)
	counts, err := env.store.ExposureCounts(ctx, survivor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(129), counts.Total())

	_, err = env.engine.Delete(ctx, gone.name)
	require.ErrorIs(t, err, datastore.ErrExposureNotFound)
	assert.Equal(t, 1, env.metrics.count(metrics.OpDelete, metrics.StatusSuccess))
	assert.Equal(t, 1, env.metrics.count(metrics.OpDelete, metrics.StatusError))
}
