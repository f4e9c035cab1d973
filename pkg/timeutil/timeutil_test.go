package timeutil

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{
			name:      "multiple values returns maximum",
			durations: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond},
			want:      500 * time.Millisecond,
		},
		{
			name:      "empty slice returns zero",
			durations: []time.Duration{},
			want:      0,
		},
		{
			name:      "all negative returns least negative",
			durations: []time.Duration{-100 * time.Millisecond, -50 * time.Millisecond},
			want:      -50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxDuration(tt.durations))
		})
	}
}

func TestComputeJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		j := ComputeJitter(50*time.Millisecond, rng)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 50*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), ComputeJitter(0, rng))
	assert.Equal(t, time.Duration(0), ComputeJitter(time.Second, nil))
}

func TestExponentialBackoffDelay(t *testing.T) {
	param := NewBackoffParam(100*time.Millisecond, 2.0, time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 4, want: 800 * time.Millisecond},
		{attempt: 5, want: time.Second},
		{attempt: 10, want: time.Second},
	}

	for _, tt := range tests {
		got := ExponentialBackoffDelay(tt.attempt, 0, nil, param)
		assert.Equal(t, tt.want, got, "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffDelay_JitterIsDeterministic(t *testing.T) {
	param := NewBackoffParam(10*time.Millisecond, 2.0, time.Second)
	a := ExponentialBackoffDelay(2, 5*time.Millisecond, rand.New(rand.NewSource(7)), param)
	b := ExponentialBackoffDelay(2, 5*time.Millisecond, rand.New(rand.NewSource(7)), param)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 20*time.Millisecond)
	assert.Less(t, a, 25*time.Millisecond)
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepContext_Elapses(t *testing.T) {
	err := SleepContext(context.Background(), 5*time.Millisecond)
	assert.NoError(t, err)
}
