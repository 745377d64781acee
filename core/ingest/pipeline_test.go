package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"DriveFM/core/meta"
	"DriveFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory document tree.
type fakeSource struct {
	mu         sync.Mutex
	children   map[string][]model.DocumentDescriptor
	content    map[string][]byte
	listErr    map[string]error
	fetchErr   map[string]error
	fetchCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		children: make(map[string][]model.DocumentDescriptor),
		content:  make(map[string][]byte),
		listErr:  make(map[string]error),
		fetchErr: make(map[string]error),
	}
}

func (s *fakeSource) ListChildren(ctx context.Context, folderID string) ([]model.DocumentDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listErr[folderID]; err != nil {
		return nil, err
	}
	return s.children[folderID], nil
}

func (s *fakeSource) FetchContent(ctx context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if err := s.fetchErr[fileID]; err != nil {
		return nil, err
	}
	data, ok := s.content[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

// fakeSongRepo mirrors the MySQL repository's last-writer-wins rule.
type fakeSongRepo struct {
	mu    sync.Mutex
	songs map[string]*model.Song
}

func newFakeSongRepo() *fakeSongRepo {
	return &fakeSongRepo{songs: make(map[string]*model.Song)}
}

func (r *fakeSongRepo) GetByID(id string) (*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.songs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSongRepo) Upsert(song *model.Song) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.songs[song.ID]; ok && existing.LastEditedUtc >= song.LastEditedUtc {
		return false, nil
	}
	cp := *song
	r.songs[song.ID] = &cp
	return true, nil
}

func (r *fakeSongRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.songs, id)
	return nil
}

func (r *fakeSongRepo) All() ([]*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Song, 0, len(r.songs))
	for _, s := range r.songs {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSongRepo) SearchByTitle(q string) ([]*model.Song, error) {
	all, _ := r.All()
	out := make([]*model.Song, 0)
	for _, s := range all {
		if strings.Contains(s.Title, q) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSongRepo) AllSortedByAlbum() ([]*model.Song, error) {
	all, _ := r.All()
	sort.Slice(all, func(i, j int) bool { return all[i].Album < all[j].Album })
	return all, nil
}

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	s.types[key] = contentType
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("object %s not found", key)
	}
	return data, s.types[key], nil
}

func (s *memStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

// stubExtractor parses a pipe-separated payload: title|artist|album|genre|year.
// A payload starting with "BAD" fails extraction.
type stubExtractor struct{}

func (stubExtractor) Extract(data []byte) (*meta.Meta, error) {
	text := string(data)
	if strings.HasPrefix(text, "BAD") {
		return nil, errors.New("unparseable payload")
	}
	parts := strings.Split(text, "|")
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	m := &meta.Meta{Title: parts[0], Artist: parts[1], Album: parts[2], Genre: parts[3], Year: parts[4]}
	return m, nil
}

func newTestPipeline(src *fakeSource, repo *fakeSongRepo, store *memStore) *Pipeline {
	return NewPipeline(src, repo, store, stubExtractor{}, 4, 1000)
}

func file(id, name string, ts int64) model.DocumentDescriptor {
	return model.DocumentDescriptor{ID: id, Name: name, LastEditedUtc: ts}
}

func folder(id, name string) model.DocumentDescriptor {
	return model.DocumentDescriptor{ID: id, Name: name, IsFolder: true}
}

func TestIngestRecursiveFolderFlattening(t *testing.T) {
	src := newFakeSource()
	src.children["root"] = []model.DocumentDescriptor{
		file("f1", "one.mp3", 100),
		folder("sub", "subfolder"),
	}
	src.children["sub"] = []model.DocumentDescriptor{
		file("f2", "two.mp3", 100),
	}
	src.content["f1"] = []byte("One|A|X|Rock|2020")
	src.content["f2"] = []byte("Two|B|Y|Jazz|2021")

	repo := newFakeSongRepo()
	p := newTestPipeline(src, repo, newMemStore())

	report, err := p.Ingest(context.Background(), []model.DocumentDescriptor{folder("root", "Music")})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ingested)
	assert.Equal(t, 0, report.Failed)

	songs, _ := repo.All()
	require.Len(t, songs, 2)
}

func TestIngestIdempotentReingestion(t *testing.T) {
	src := newFakeSource()
	src.content["f1"] = []byte("One|A|X|Rock|2020")
	repo := newFakeSongRepo()
	p := newTestPipeline(src, repo, newMemStore())

	doc := file("f1", "one.mp3", 100)

	report, err := p.Ingest(context.Background(), []model.DocumentDescriptor{doc})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)

	before, _ := repo.GetByID("f1")

	report, err = p.Ingest(context.Background(), []model.DocumentDescriptor{doc})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Ingested)
	assert.Equal(t, 1, report.Skipped)
	// Unchanged timestamp means the file is not even fetched again.
	assert.Equal(t, 1, src.fetchCalls)

	after, _ := repo.GetByID("f1")
	assert.Equal(t, before, after)
}

func TestIngestLastWriterWins(t *testing.T) {
	src := newFakeSource()
	src.content["f1"] = []byte("Old|A|X|Rock|2020")
	repo := newFakeSongRepo()
	p := newTestPipeline(src, repo, newMemStore())

	_, err := p.Ingest(context.Background(), []model.DocumentDescriptor{file("f1", "one.mp3", 100)})
	require.NoError(t, err)

	// Older candidate: store unchanged.
	report, err := p.Ingest(context.Background(), []model.DocumentDescriptor{file("f1", "one.mp3", 50)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	song, _ := repo.GetByID("f1")
	assert.Equal(t, "Old", song.Title)
	assert.Equal(t, int64(100), song.LastEditedUtc)

	// Newer candidate: all fields replaced.
	src.content["f1"] = []byte("New|B|Y|Jazz|2021")
	report, err = p.Ingest(context.Background(), []model.DocumentDescriptor{file("f1", "one.mp3", 150)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	song, _ = repo.GetByID("f1")
	assert.Equal(t, "New", song.Title)
	assert.Equal(t, "B", song.Artist)
	assert.Equal(t, int64(150), song.LastEditedUtc)
}

func TestIngestPerFileIsolation(t *testing.T) {
	src := newFakeSource()
	src.children["root"] = []model.DocumentDescriptor{
		file("good", "good.mp3", 100),
		file("broken-fetch", "broken.mp3", 100),
		file("broken-tags", "mangled.mp3", 100),
	}
	src.content["good"] = []byte("Good|A|X|Rock|2020")
	src.content["broken-tags"] = []byte("BAD payload")
	src.fetchErr["broken-fetch"] = errors.New("403 forbidden")

	repo := newFakeSongRepo()
	p := newTestPipeline(src, repo, newMemStore())

	report, err := p.Ingest(context.Background(), []model.DocumentDescriptor{folder("root", "Music")})
	require.NoError(t, err, "per-file failures must not fail the batch")
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, report.Errors, 2)

	song, _ := repo.GetByID("good")
	require.NotNil(t, song, "siblings of failed files still land")
}

func TestIngestStructuralFailureAbortsBatch(t *testing.T) {
	src := newFakeSource()
	src.listErr["root"] = errors.New("invalid query")

	p := newTestPipeline(src, newFakeSongRepo(), newMemStore())

	report, err := p.Ingest(context.Background(), []model.DocumentDescriptor{folder("root", "Music")})
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestIngestNullStrippingAndTitleFallback(t *testing.T) {
	src := newFakeSource()
	// No tag title at all: the filename stem takes over.
	src.content["f1"] = []byte("|The\x00 Band|X|Rock\x00|2020")

	repo := newFakeSongRepo()
	store := newMemStore()
	p := newTestPipeline(src, repo, store)

	_, err := p.Ingest(context.Background(), []model.DocumentDescriptor{file("f1", "track07.mp3", 100)})
	require.NoError(t, err)

	song, _ := repo.GetByID("f1")
	require.NotNil(t, song)
	assert.Equal(t, "track07", song.Title)
	assert.Equal(t, "Rock", song.Genre)
	assert.Equal(t, "The Band", song.Artist)

	// The audio payload landed under the song's object key.
	data, _, err := store.Get(context.Background(), song.AudioPath)
	require.NoError(t, err)
	assert.Equal(t, src.content["f1"], data)
}

func TestIngestTraversalCap(t *testing.T) {
	src := newFakeSource()
	// A folder that lists itself: unbounded nesting.
	src.children["loop"] = []model.DocumentDescriptor{folder("loop", "loop")}

	p := NewPipeline(src, newFakeSongRepo(), newMemStore(), stubExtractor{}, 2, 10)

	report, err := p.Ingest(context.Background(), []model.DocumentDescriptor{folder("loop", "loop")})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "traversal cap")
}

func TestIngestCancellation(t *testing.T) {
	src := newFakeSource()
	src.content["f1"] = []byte("One|A|X|Rock|2020")
	p := newTestPipeline(src, newFakeSongRepo(), newMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Ingest(ctx, []model.DocumentDescriptor{file("f1", "one.mp3", 100)})
	require.Error(t, err)
	assert.Nil(t, report)
}
