package cache

import (
	"context"
	"sync"

	"DriveFM/core/events"
	"DriveFM/core/handle"
	"DriveFM/logger"
	"DriveFM/model"
	"DriveFM/repository"
)

// coverEntry is one live cover handle with the source timestamp it was
// derived from.
type coverEntry struct {
	h  *handle.Handle
	ts int64
}

// CoverCache derives and tracks the revocable display handles for embedded
// cover images, keyed by song id. Entries follow the live song collection:
// a song whose content advanced invalidates its entry, a deleted song
// releases it. Handles are process-lifetime only and never persisted.
type CoverCache struct {
	mu       sync.Mutex
	registry *handle.Registry
	entries  map[string]*coverEntry
}

// NewCoverCache creates an empty cover cache.
func NewCoverCache(registry *handle.Registry) *CoverCache {
	return &CoverCache{
		registry: registry,
		entries:  make(map[string]*coverEntry),
	}
}

// Refresh reconciles the cache with the current live song collection:
//
//  1. entries whose song is gone are released and removed,
//  2. entries older than their song's LastEditedUtc are released and
//     removed as stale,
//  3. songs with cover bytes and no entry get a fresh handle recorded
//     against the song's current timestamp.
//
// Every created handle is released exactly once, on staleness or deletion;
// a handle is never released while the map still points at it.
func (c *CoverCache) Refresh(songs []*model.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := make(map[string]*model.Song, len(songs))
	for _, song := range songs {
		current[song.ID] = song
	}

	// Drop entries for deleted songs.
	for id, entry := range c.entries {
		if _, ok := current[id]; !ok {
			c.registry.Release(entry.h)
			delete(c.entries, id)
		}
	}

	for _, song := range songs {
		if entry, ok := c.entries[song.ID]; ok && entry.ts < song.LastEditedUtc {
			// Stale: the song's content advanced past this handle.
			c.registry.Release(entry.h)
			delete(c.entries, song.ID)
		}
		if _, ok := c.entries[song.ID]; !ok && song.HasCover() {
			c.entries[song.ID] = &coverEntry{
				h:  c.registry.Create(song.CoverPath, song.CoverMime),
				ts: song.LastEditedUtc,
			}
		}
	}
}

// URLFor returns the display URL of a song's cover handle, "" when the
// song has no live cover entry.
func (c *CoverCache) URLFor(songID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[songID]; ok {
		return entry.h.URL()
	}
	return ""
}

// Len returns the number of live entries.
func (c *CoverCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Watch subscribes the cache to store change events and refreshes it from
// the repository whenever the song collection changes. Blocks until the
// context is cancelled.
func (c *CoverCache) Watch(ctx context.Context, bus *events.Bus, songs repository.SongRepository) {
	ch, cancel := bus.Subscribe()
	defer cancel()

	refresh := func() {
		all, err := songs.All()
		if err != nil {
			logger.Error("封面缓存刷新失败", logger.ErrorField(err))
			return
		}
		c.Refresh(all)
	}
	refresh()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Type == events.SongsChanged {
				refresh()
			}
		}
	}
}
