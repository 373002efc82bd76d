package spacebottest

import (
	"context"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

// TimeoutContext returns a context bound to the test that gives up after a few seconds.
func TimeoutContext(tb testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(tb.Context(), testTimeout)
	tb.Cleanup(cancel)
	return ctx
}
