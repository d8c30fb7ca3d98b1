package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagePacerFirstFetchImmediate(t *testing.T) {
	pacer := NewPagePacer(200 * time.Millisecond)

	start := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond,
		"first wait should not be delayed")
}

func TestPagePacerSpacesSubsequentFetches(t *testing.T) {
	pacer := NewPagePacer(100 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, pacer.Wait(ctx))

	start := time.Now()
	require.NoError(t, pacer.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond,
		"second wait should cover most of the page delay")
}

func TestPagePacerZeroDelay(t *testing.T) {
	pacer := NewPagePacer(0)
	assert.True(t, pacer.Allow())
}

func TestAllowExhaustsBurst(t *testing.T) {
	tb := NewTokenBucketRateLimiter(1, 2)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	stats := tb.GetStats()
	assert.Equal(t, int64(2), stats.AllowedRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
}

func TestReserveReportsDelay(t *testing.T) {
	tb := NewTokenBucketRateLimiter(10, 1)

	first := tb.Reserve()
	require.True(t, first.OK())
	assert.Equal(t, time.Duration(0), first.Delay())

	second := tb.Reserve()
	require.True(t, second.OK())
	assert.Greater(t, second.Delay(), time.Duration(0))

	second.Cancel()
	assert.False(t, second.OK())
}

func TestWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucketRateLimiter(0.1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
