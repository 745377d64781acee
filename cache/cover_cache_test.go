package cache

import (
	"testing"

	"DriveFM/core/handle"
	"DriveFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coverSong(id string, ts int64) *model.Song {
	return &model.Song{
		ID:            id,
		Title:         "Song " + id,
		LastEditedUtc: ts,
		CoverPath:     "covers/" + id,
		CoverMime:     "image/jpeg",
	}
}

func bareSong(id string, ts int64) *model.Song {
	return &model.Song{ID: id, Title: "Song " + id, LastEditedUtc: ts}
}

func TestRefreshCreatesHandlesForCoverSongsOnly(t *testing.T) {
	registry := handle.NewRegistry()
	c := NewCoverCache(registry)

	c.Refresh([]*model.Song{coverSong("a", 100), bareSong("b", 100)})

	assert.Equal(t, 1, c.Len())
	assert.NotEmpty(t, c.URLFor("a"))
	assert.Empty(t, c.URLFor("b"), "songs without covers get no handle")
	assert.Equal(t, 1, registry.LiveCount())
}

func TestRefreshIsStableForUnchangedSongs(t *testing.T) {
	registry := handle.NewRegistry()
	c := NewCoverCache(registry)

	songs := []*model.Song{coverSong("a", 100)}
	c.Refresh(songs)
	url := c.URLFor("a")

	c.Refresh(songs)
	assert.Equal(t, url, c.URLFor("a"), "unchanged song keeps its handle")

	created, released := registry.Stats()
	assert.Equal(t, int64(1), created)
	assert.Equal(t, int64(0), released)
}

func TestRefreshRegeneratesStaleEntry(t *testing.T) {
	registry := handle.NewRegistry()
	c := NewCoverCache(registry)

	c.Refresh([]*model.Song{coverSong("a", 100)})
	oldURL := c.URLFor("a")

	// The song advanced: the old handle is revoked and a new one issued in
	// the same pass.
	c.Refresh([]*model.Song{coverSong("a", 200)})
	newURL := c.URLFor("a")

	assert.NotEqual(t, oldURL, newURL)
	assert.Equal(t, 1, registry.LiveCount())
	created, released := registry.Stats()
	assert.Equal(t, int64(2), created)
	assert.Equal(t, int64(1), released)
}

func TestRefreshReleasesDeletedSongs(t *testing.T) {
	registry := handle.NewRegistry()
	c := NewCoverCache(registry)

	c.Refresh([]*model.Song{coverSong("a", 100), coverSong("b", 100)})
	require.Equal(t, 2, c.Len())

	c.Refresh([]*model.Song{coverSong("a", 100)})

	assert.Equal(t, 1, c.Len())
	assert.Empty(t, c.URLFor("b"))
	assert.Equal(t, 1, registry.LiveCount())
}

func TestRefreshBalancesCreateAndRelease(t *testing.T) {
	registry := handle.NewRegistry()
	c := NewCoverCache(registry)

	// Churn: add, update, delete across several passes.
	c.Refresh([]*model.Song{coverSong("a", 100), coverSong("b", 100)})
	c.Refresh([]*model.Song{coverSong("a", 150), coverSong("c", 100)})
	c.Refresh([]*model.Song{coverSong("c", 100)})
	c.Refresh(nil)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, registry.LiveCount())
	created, released := registry.Stats()
	assert.Equal(t, created, released, "every handle released exactly once")
}

func TestCoverAppearsOnMetadataUpdate(t *testing.T) {
	registry := handle.NewRegistry()
	c := NewCoverCache(registry)

	// First pass: no embedded art. Second pass: re-ingested with a cover.
	c.Refresh([]*model.Song{bareSong("a", 100)})
	assert.Empty(t, c.URLFor("a"))

	c.Refresh([]*model.Song{coverSong("a", 200)})
	assert.NotEmpty(t, c.URLFor("a"))
}
