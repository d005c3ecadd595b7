package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeform/statepath"
)

func TestChannelPublisherDeliversWhenRoom(t *testing.T) {
	ch := make(chan statepath.Snapshot, 1)
	p := NewChannelPublisher(ch)

	snap := statepath.Snapshot{InstanceID: "#a"}
	require.NoError(t, p.Publish("#a", snap))

	select {
	case got := <-ch:
		assert.Equal(t, snap, got)
	default:
		t.Fatal("expected the snapshot to be delivered")
	}
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	ch := make(chan statepath.Snapshot, 1)
	ch <- statepath.Snapshot{InstanceID: "#stale"}
	p := NewChannelPublisher(ch)

	err := p.Publish("#a", statepath.Snapshot{InstanceID: "#a"})
	require.NoError(t, err, "a full channel should be a silent drop, not an error")

	got := <-ch
	assert.Equal(t, "#stale", got.InstanceID, "the pending value should be untouched")
}
