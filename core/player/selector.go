// Package player owns the single process-wide playback resource: which song
// is loaded, its revocable media handle and the play/pause state.
package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"DriveFM/core/handle"
	"DriveFM/core/smartlist"
	"DriveFM/model"
	"DriveFM/repository"
)

// ErrNoSongs is the benign "nothing matches the current scope" condition.
// The selector stays in its current state when it is returned.
var ErrNoSongs = errors.New("no songs to play")

// State is the playback state machine position.
type State string

const (
	Idle          State = "idle"
	LoadedPaused  State = "paused"
	LoadedPlaying State = "playing"
)

// Snapshot is the externally visible playback state.
type Snapshot struct {
	State    State   `json:"state"`
	SongID   string  `json:"songId,omitempty"`
	Title    string  `json:"title,omitempty"`
	Scope    string  `json:"scope"` // active album name, "" = all songs
	MediaURL string  `json:"mediaUrl,omitempty"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// Selector picks which track plays next and manages the media handle
// lifecycle: exactly one live handle exists, and every transition releases
// the previous one before assigning its replacement.
type Selector struct {
	mu       sync.Mutex
	songs    repository.SongRepository
	albums   repository.AlbumRepository
	registry *handle.Registry

	state    State
	current  *model.Song
	handle   *handle.Handle
	scope    string
	position float64
	duration float64

	persist func(Snapshot) // optional, e.g. the Redis playback cache
}

// NewSelector creates an idle selector.
func NewSelector(songs repository.SongRepository, albums repository.AlbumRepository, registry *handle.Registry) *Selector {
	return &Selector{
		songs:    songs,
		albums:   albums,
		registry: registry,
		state:    Idle,
	}
}

// OnChange registers a hook invoked with a snapshot after every state
// mutation. The hook runs outside the selector's lock and must not call
// back into the selector.
func (s *Selector) OnChange(persist func(Snapshot)) {
	s.persist = persist
}

// SelectExplicit loads a specific song and starts playing it.
func (s *Selector) SelectExplicit(song *model.Song) Snapshot {
	s.mu.Lock()
	snap := s.loadLocked(song)
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// SelectNext picks a random track from the active scope, avoiding an
// immediate repeat when alternatives exist. On an empty scope it returns
// ErrNoSongs and leaves the current state untouched.
func (s *Selector) SelectNext(ctx context.Context, scope string) (Snapshot, error) {
	candidates, err := s.scopeSongs(ctx, scope)
	if err != nil {
		return s.SnapshotState(), err
	}
	if len(candidates) == 0 {
		return s.SnapshotState(), ErrNoSongs
	}

	s.mu.Lock()
	pick := candidates[rand.Intn(len(candidates))]
	for len(candidates) > 1 && s.current != nil && pick.ID == s.current.ID {
		pick = candidates[rand.Intn(len(candidates))]
	}
	s.scope = scope
	snap := s.loadLocked(pick)
	s.mu.Unlock()

	s.notify(snap)
	return snap, nil
}

// Pause moves a playing track to paused; no-op from Idle.
func (s *Selector) Pause() Snapshot {
	return s.setPlaying(LoadedPaused)
}

// Resume moves a paused track back to playing; no-op from Idle.
func (s *Selector) Resume() Snapshot {
	return s.setPlaying(LoadedPlaying)
}

// OnTrackEnd auto-advances within the active scope when a track finishes
// naturally.
func (s *Selector) OnTrackEnd(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()
	return s.SelectNext(ctx, scope)
}

// ReportProgress records the client's playback position.
func (s *Selector) ReportProgress(position, duration float64) Snapshot {
	s.mu.Lock()
	if s.state != Idle {
		s.position = position
		s.duration = duration
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// Unload drops the loaded track and releases its handle, returning to Idle.
// Called when the loaded song disappears from the store.
func (s *Selector) Unload() Snapshot {
	s.mu.Lock()
	s.registry.Release(s.handle)
	s.handle = nil
	s.current = nil
	s.state = Idle
	s.position = 0
	s.duration = 0
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// CurrentSongID returns the loaded song's id, "" when idle.
func (s *Selector) CurrentSongID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.ID
}

// SnapshotState returns the current state without mutating anything.
func (s *Selector) SnapshotState() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// loadLocked swaps the loaded track: the old handle is released before the
// new one is created, so two live handles never coexist past the
// transition itself.
func (s *Selector) loadLocked(song *model.Song) Snapshot {
	s.registry.Release(s.handle)
	s.handle = s.registry.Create(song.AudioPath, "")
	s.current = song
	s.state = LoadedPlaying
	s.position = 0
	s.duration = 0
	return s.snapshotLocked()
}

func (s *Selector) setPlaying(target State) Snapshot {
	s.mu.Lock()
	if s.state != Idle {
		s.state = target
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Selector) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    s.state,
		Scope:    s.scope,
		Position: s.position,
		Duration: s.duration,
	}
	if s.current != nil {
		snap.SongID = s.current.ID
		snap.Title = s.current.Title
	}
	if s.handle != nil {
		snap.MediaURL = s.handle.URL()
	}
	return snap
}

func (s *Selector) notify(snap Snapshot) {
	if s.persist != nil {
		s.persist(snap)
	}
}

// scopeSongs resolves the active scope to its matching song set: the whole
// library for an empty scope, otherwise the smart playlist filter applied
// to the named album.
func (s *Selector) scopeSongs(ctx context.Context, scope string) ([]*model.Song, error) {
	songs, err := s.songs.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	if scope == "" {
		return songs, nil
	}

	albums, err := s.albums.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load albums: %w", err)
	}
	for _, album := range albums {
		if album.Name == scope {
			return smartlist.Filter(album, songs), nil
		}
	}
	// Unknown scope behaves like an empty match, reported as the benign
	// no-songs condition rather than a lookup error.
	return nil, nil
}
