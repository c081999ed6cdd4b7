package telemetry

import (
	"io"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/miri-pixeldb/internal/conf"
	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// initWithMock enables telemetry against an in-memory transport. These tests
// share the global Sentry hub and must not run in parallel.
func initWithMock(t *testing.T) *MockTransport {
	t.Helper()
	transport := NewMockTransport()
	flush, err := initSentry(&conf.TelemetrySettings{Enabled: true, Environment: "test"}, "test", transport, quietLogger())
	require.NoError(t, err)
	t.Cleanup(flush)
	return transport
}

func TestInitDisabled(t *testing.T) {
	flush, err := Init(&conf.TelemetrySettings{Enabled: false}, "dev", quietLogger())
	require.NoError(t, err)
	require.NotNil(t, flush)
	flush()
	assert.Nil(t, errors.GetTelemetryReporter())

	flush, err = Init(nil, "dev", nil)
	require.NoError(t, err)
	require.NotNil(t, flush)
}

func TestInitEnabledWithoutDSN(t *testing.T) {
	_, err := Init(&conf.TelemetrySettings{Enabled: true}, "dev", quietLogger())
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestEnhancedErrorReachesSentryScrubbed(t *testing.T) {
	transport := initWithMock(t)

	err := errors.Newf("open /home/alice/raw/MIRI_TEST_pipe.fits: permission denied").
		Component("ingest").
		Category(errors.CategoryFileIO).
		Context("operation", "read_raw").
		Build()
	require.True(t, err.IsReported())
	require.True(t, transport.WaitForEventCount(1, time.Second))

	event := transport.Events()[0]
	assert.NotContains(t, event.Message, "alice")
	assert.Contains(t, event.Message, "/home/[USER]/raw")
	assert.Equal(t, "ingest", event.Tags["component"])
	assert.Equal(t, string(errors.CategoryFileIO), event.Tags["category"])
	assert.Empty(t, event.ServerName)
	assert.Equal(t, "test", event.Environment)
	assert.Equal(t, "miridb@test", event.Release)
}

func TestFlushDetachesReporter(t *testing.T) {
	transport := NewMockTransport()
	flush, err := initSentry(&conf.TelemetrySettings{Enabled: true}, "test", transport, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, errors.GetTelemetryReporter())

	flush()
	assert.Nil(t, errors.GetTelemetryReporter())

	built := errors.Newf("after flush").Component("ingest").Build()
	assert.False(t, built.IsReported())
	assert.Empty(t, transport.Events())
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := sentry.NewEvent()
	event.ServerName = "obs-node-7"
	event.User = sentry.User{ID: "alice", IPAddress: "10.0.0.7"}
	event.Contexts["os"] = sentry.Context{"name": "linux"}
	event.Contexts["application"] = sentry.Context{"name": "miridb"}
	event.Tags["hostname"] = "obs-node-7"
	event.Tags["component"] = "datastore"
	event.Message = "dial miri:s3cret@tcp(db:3306)/miri failed"
	event.Exception = []sentry.Exception{{Type: "Database Error", Value: "connect password=hunter2 rejected"}}

	out := applyPrivacyFilters(event, nil)

	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "application")
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "datastore", out.Tags["component"])
	assert.NotContains(t, out.Message, "s3cret")
	assert.NotContains(t, out.Exception[0].Value, "hunter2")
}
