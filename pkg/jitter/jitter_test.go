package jitter

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationStaysInRange(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := Duration(base, DefaultJitter)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}

func TestDurationWithSeedIsDeterministic(t *testing.T) {
	a := DurationWithSeed(time.Second, 0.5, rand.New(rand.NewSource(42)))
	b := DurationWithSeed(time.Second, 0.5, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestExponentialBackoffIsCapped(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, capped(10*time.Millisecond, time.Second, 0))
	assert.Equal(t, 40*time.Millisecond, capped(10*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, capped(10*time.Millisecond, time.Second, 20))

	d := ExponentialBackoff(10*time.Millisecond, 50*time.Millisecond, 10, 0)
	assert.Equal(t, 50*time.Millisecond, d)
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
