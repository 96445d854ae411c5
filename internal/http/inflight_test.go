package http

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlightTracker_CountsPerRoute(t *testing.T) {
	tracker := &InFlightTracker{}
	assert.Zero(t, tracker.Count())

	endA := tracker.Begin("/dashboard")
	endB := tracker.Begin("/dashboard")
	endC := tracker.Begin("/health")
	assert.EqualValues(t, 3, tracker.Count())
	assert.Equal(t, map[string]int64{"/dashboard": 2, "/health": 1}, tracker.Routes())

	endA()
	endA()
	assert.EqualValues(t, 2, tracker.Count(), "ending twice must not double count")

	endB()
	endC()
	assert.Zero(t, tracker.Count())
	assert.Empty(t, tracker.Routes())
}

func TestInFlightTracker_WaitReturnsWhenDrained(t *testing.T) {
	tracker := &InFlightTracker{}
	end := tracker.Begin("/dashboard")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- tracker.Wait(ctx) }()

	time.Sleep(10 * time.Millisecond)
	end()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Wait did not return after the last request ended")
	}
}

func TestInFlightTracker_WaitIdleReturnsImmediately(t *testing.T) {
	tracker := &InFlightTracker{}
	require.NoError(t, tracker.Wait(context.Background()))
}

func TestInFlightTracker_WaitContextCanceled(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Begin("/dashboard")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tracker.Wait(ctx), context.Canceled)
}
