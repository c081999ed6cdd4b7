package ingest

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/datastore"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
)

// TestIngestSUB64FullScale ingests a five integration, fifty group SUB64
// exposure on the full MIRI frame. It writes about 2.3 million rows and is
// skipped unless MIRIDB_FULL_SCALE is set.
func TestIngestSUB64FullScale(t *testing.T) {
	if os.Getenv("MIRIDB_FULL_SCALE") == "" {
		t.Skip("set MIRIDB_FULL_SCALE=1 to run the full-scale ingest")
	}
	env := newTestEnv(t, geometry.MIRIFrame())
	ctx := t.Context()

	sub64, ok := geometry.NewSubarrayTable().Lookup("SUB64")
	require.True(t, ok)

	s := synthExposure{name: "MIRI_SUB64_FULL_pipe.fits", window: sub64, ints: 5, groups: 50}
	raw, err := env.engine.IngestRaw(ctx, s.writeRaw(t, env.dir), "FLIGHT", "full-scale")
	require.NoError(t, err)
	assert.Equal(t, 72*64*5, raw.Ramps)
	assert.Equal(t, 23040*50, raw.Groups)

	corrected, err := env.engine.IngestCorrected(ctx, s.writeCorrected(t, env.dir, nil))
	require.NoError(t, err)
	assert.Equal(t, 23040, corrected.Ramps)
	assert.Equal(t, 1_152_000, corrected.Groups)

	counts, err := env.store.ExposureCounts(ctx, raw.Exposure.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.Counts{
		Ramps:              23040,
		Groups:             1_152_000,
		CorrectedExposures: 1,
		CorrectedRamps:     23040,
		CorrectedGroups:    1_152_000,
	}, counts)

	res, err := env.engine.Delete(ctx, s.name)
	require.NoError(t, err)
	assert.Equal(t, counts, res.Removed)
}
