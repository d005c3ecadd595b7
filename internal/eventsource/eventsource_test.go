package eventsource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerEventSourceEmitsAtInterval(t *testing.T) {
	src := NewTimerEventSource("tick", 7, 10*time.Millisecond)
	events := src.Events("#inst")

	select {
	case spec := <-events:
		assert.Equal(t, "tick", spec.Event)
		assert.Equal(t, 7, spec.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the first tick")
	}

	src.Stop()

	drained := false
	deadline := time.After(100 * time.Millisecond)
	for !drained {
		select {
		case _, ok := <-events:
			if !ok {
				drained = true
			}
		case <-deadline:
			t.Fatal("expected the events channel to close after Stop")
		}
	}
}

func TestTimerEventSourceStopClosesImmediately(t *testing.T) {
	src := NewTimerEventSource("tick", nil, time.Hour)
	events := src.Events("#inst")
	src.Stop()

	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, time.Second, 5*time.Millisecond)
}
