package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldown_FirstCallDoesNotWait(t *testing.T) {
	c := NewCooldown(time.Hour)
	assert.Equal(t, time.Duration(0), c.Remaining())
	require.NoError(t, c.Wait(context.Background()))
}

func TestCooldown_RemainingAfterSuccess(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCooldown(2 * time.Second)
	c.now = func() time.Time { return now }

	c.MarkSuccess()
	assert.Equal(t, 2*time.Second, c.Remaining())

	now = now.Add(1500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, c.Remaining())

	now = now.Add(time.Second)
	assert.LessOrEqual(t, c.Remaining(), time.Duration(0))
}

func TestCooldown_WaitBlocksUntilInterval(t *testing.T) {
	c := NewCooldown(80 * time.Millisecond)
	c.MarkSuccess()

	start := time.Now()
	require.NoError(t, c.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestCooldown_WaitHonoursContext(t *testing.T) {
	c := NewCooldown(time.Hour)
	c.MarkSuccess()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCooldown_ZeroIntervalDisabled(t *testing.T) {
	c := NewCooldown(0)
	c.MarkSuccess()
	assert.Equal(t, time.Duration(0), c.Remaining())
}
