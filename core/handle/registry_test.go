package handle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLookupRelease(t *testing.T) {
	r := NewRegistry()

	h := r.Create("covers/abc", "image/jpeg")
	require.NotNil(t, h)
	assert.True(t, strings.HasPrefix(h.URL(), "/media/"))

	got := r.Lookup(h.Token)
	require.NotNil(t, got)
	assert.Equal(t, "covers/abc", got.ObjectKey)
	assert.Equal(t, "image/jpeg", got.Mime)

	r.Release(h)
	assert.Nil(t, r.Lookup(h.Token), "a released handle stops resolving")
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := NewRegistry()

	h := r.Create("audio/abc", "")
	r.Release(h)
	r.Release(h)
	r.Release(nil)

	created, released := r.Stats()
	assert.Equal(t, int64(1), created)
	assert.Equal(t, int64(1), released, "double release counts once")
	assert.Equal(t, 0, r.LiveCount())
}

func TestTokensAreUnique(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		h := r.Create("audio/same-key", "")
		assert.False(t, seen[h.Token])
		seen[h.Token] = true
	}
	assert.Equal(t, 100, r.LiveCount())
}
