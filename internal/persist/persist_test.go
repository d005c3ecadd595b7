package persist

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeform/statepath"
)

func TestJSONPersisterRoundTrip(t *testing.T) {
	p, err := NewJSONPersister(t.TempDir())
	require.NoError(t, err)

	snap := statepath.Snapshot{
		InstanceID: "#abc",
		Active:     []string{"#abc.root.running"},
		Data:       map[string]any{"n": float64(3)},
	}
	require.NoError(t, p.Save("#abc", snap))

	loaded, err := p.Load("#abc")
	require.NoError(t, err)
	assert.Equal(t, snap.InstanceID, loaded.InstanceID)
	assert.Equal(t, snap.Active, loaded.Active)
}

func TestJSONPersisterLoadMissingReturnsErrNotExist(t *testing.T) {
	p, err := NewJSONPersister(t.TempDir())
	require.NoError(t, err)

	_, err = p.Load("#nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestYAMLPersisterRoundTrip(t *testing.T) {
	p, err := NewYAMLPersister(t.TempDir())
	require.NoError(t, err)

	snap := statepath.Snapshot{
		InstanceID: "#xyz",
		Active:     []string{"#xyz.root.a"},
		Data:       map[string]any{"flag": true},
	}
	require.NoError(t, p.Save("#xyz", snap))

	loaded, err := p.Load("#xyz")
	require.NoError(t, err)
	assert.Equal(t, snap.InstanceID, loaded.InstanceID)
	assert.Equal(t, snap.Active, loaded.Active)
}
