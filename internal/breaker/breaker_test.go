package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixedassets/depflow/internal/common"
)

var errBoom = errors.New("boom")

func failing(_ context.Context) error { return errBoom }
func succeeding(_ context.Context) error { return nil }

func newTestBreaker(t *testing.T) (*CircuitBreaker, *time.Time) {
	t.Helper()
	cb := New(DefaultConfig(), nil)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return current }
	return cb, &current
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}

	require.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// Open circuit fails fast without invoking the operation.
	called := false
	err := cb.Execute(ctx, func(_ context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, common.ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, int64(1), cb.Snapshot().Blocked)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.Error(t, cb.Execute(ctx, failing))
	}
	require.NoError(t, cb.Execute(ctx, succeeding))

	// The streak restarted, so four more failures stay closed.
	for i := 0; i < 4; i++ {
		require.Error(t, cb.Execute(ctx, failing))
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	cb, current := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, cb.Execute(ctx, failing))
	}
	require.Equal(t, StateOpen, cb.State())

	*current = current.Add(59 * time.Second)
	assert.Equal(t, StateOpen, cb.State())

	*current = current.Add(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb, current := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, cb.Execute(ctx, failing))
	}
	*current = current.Add(61 * time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb, current := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, cb.Execute(ctx, failing))
	}
	*current = current.Add(61 * time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerIgnoresRateLimitErrors(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	rateLimited := func(_ context.Context) error {
		return common.NewServiceError(common.CategoryRateLimit, errors.New("429 too many requests"))
	}
	for i := 0; i < 20; i++ {
		require.Error(t, cb.Execute(ctx, rateLimited))
	}

	assert.Equal(t, StateClosed, cb.State())
	stats := cb.Snapshot()
	assert.Equal(t, int64(20), stats.RateLimited)
	assert.Equal(t, int64(0), stats.Failures)
}

func TestBreakerStatsCountCalls(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Error(t, cb.Execute(ctx, failing))

	stats := cb.Snapshot()
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, int64(1), stats.Successes)
	assert.Equal(t, int64(1), stats.Failures)
}
