// Package testutil provides shared test helpers for miridb packages:
// synthetic FITS products and waiting on asynchronous results.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second

	// LongTestTimeout is for operations that may take longer (CI environments).
	LongTestTimeout = 30 * time.Second
)

// Receive returns the next value from ch, failing the test if ch is closed
// or nothing arrives within timeout.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed before a value was received")
		return v
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for channel value", "timeout %s", timeout)
	}
	var zero T
	return zero
}

// RequireClosed fails unless ch is closed within timeout without
// delivering further values.
func RequireClosed[T any](t *testing.T, ch <-chan T, timeout time.Duration) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel delivered an unexpected value")
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for channel close", "timeout %s", timeout)
	}
}
