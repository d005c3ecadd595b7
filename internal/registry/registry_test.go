package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterLookupUnregister(t *testing.T) {
	r := NewInMemoryRegistry()

	if _, ok := r.Lookup("a"); ok {
		t.Fatal("expected no entry before Register")
	}

	r.Register("a", 42)
	got, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	assert.ElementsMatch(t, []string{"a"}, r.IDs())

	r.Unregister("a")
	_, ok = r.Lookup("a")
	assert.False(t, ok)
	assert.Empty(t, r.IDs())
}

func TestIDsReflectsMultipleEntries(t *testing.T) {
	r := NewInMemoryRegistry()
	r.Register("a", 1)
	r.Register("b", 2)
	assert.ElementsMatch(t, []string{"a", "b"}, r.IDs())
}
