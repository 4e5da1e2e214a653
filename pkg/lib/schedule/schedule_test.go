package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestNew_RejectsInvalidExpression(t *testing.T) {
	_, err := New(Descriptor{Enabled: true, Expression: "not a cron", TimeZone: "UTC"}, noop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestNew_RejectsInvalidTimeZone(t *testing.T) {
	_, err := New(Descriptor{Enabled: true, Expression: "0 3 * * *", TimeZone: "Mars/Olympus"}, noop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time zone")
}

func TestNew_RequiresCallback(t *testing.T) {
	_, err := New(Descriptor{Expression: "0 3 * * *", TimeZone: "UTC"}, nil, nil)
	assert.Error(t, err)
}

func TestNext_EvaluatesInTimeZone(t *testing.T) {
	s, err := New(Descriptor{Enabled: true, Expression: "0 3 * * *", TimeZone: "Europe/Berlin"}, noop, nil)
	require.NoError(t, err)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	now := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

	next := s.Next(now).In(berlin)

	want := time.Date(2026, time.January, 11, 3, 0, 0, 0, berlin)
	assert.True(t, want.Equal(next), "expected %s, got %s", want, next)
	assert.Equal(t, "Europe/Berlin", s.Location().String())
}

func TestTicksDoNotOverlap(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	s, err := New(Descriptor{Enabled: true, Expression: "@every 1s", TimeZone: "UTC"}, func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, nil)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	// The next tick fires while the first restart is still running and must be skipped.
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}
