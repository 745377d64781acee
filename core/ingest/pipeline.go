// Package ingest implements the song ingestion and synchronization pipeline:
// it walks picked drive documents, downloads audio payloads, extracts tag
// metadata and reconciles the results against the local store.
package ingest

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"DriveFM/core/meta"
	"DriveFM/core/source"
	"DriveFM/logger"
	"DriveFM/model"
	"DriveFM/repository"
	"DriveFM/storage"

	"github.com/google/uuid"
)

// FileError records one isolated per-file failure inside a batch.
type FileError struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report is the aggregate outcome of one ingestion call. Per-file failures
// are collected here instead of aborting sibling work; a structural failure
// (folder listing, traversal cap) fails the whole call and no report is
// produced.
type Report struct {
	BatchID    string      `json:"batchId"`
	Ingested   int         `json:"ingested"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Errors     []FileError `json:"errors,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}

// Pipeline wires the external document source, the metadata extractor and
// the local store together for one-shot ingestion batches.
type Pipeline struct {
	source    source.DocumentSource
	songs     repository.SongRepository
	store     storage.ObjectStore
	extractor meta.Extractor

	maxConcurrent int // bound on in-flight fetch/extract operations
	maxItems      int // traversal cap guarding against pathological nesting
}

// NewPipeline creates an ingestion pipeline. maxConcurrent bounds the
// fan-out of external fetches; maxItems caps total traversed documents.
func NewPipeline(src source.DocumentSource, songs repository.SongRepository, store storage.ObjectStore, extractor meta.Extractor, maxConcurrent, maxItems int) *Pipeline {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if maxItems <= 0 {
		maxItems = 100000
	}
	return &Pipeline{
		source:        src,
		songs:         songs,
		store:         store,
		extractor:     extractor,
		maxConcurrent: maxConcurrent,
		maxItems:      maxItems,
	}
}

// batchState is the shared mutable state of one ingestion call.
type batchState struct {
	mu       sync.Mutex
	ingested int
	skipped  int
	failed   int
	errors   []FileError

	items int // traversed documents, guarded by mu

	structuralOnce sync.Once
	structuralErr  error
	cancel         context.CancelFunc

	sem chan struct{} // bounds concurrent fetch/extract work

	maxItemsSnapshot int // traversal cap, fixed at batch start
}

// fail records an isolated per-file failure.
func (st *batchState) fail(doc model.DocumentDescriptor, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.failed++
	st.errors = append(st.errors, FileError{ID: doc.ID, Name: doc.Name, Error: err.Error()})
}

// abort records a structural failure and cancels all in-flight work. Only
// the first structural error wins.
func (st *batchState) abort(err error) {
	st.structuralOnce.Do(func() {
		st.structuralErr = err
		st.cancel()
	})
}

// countItem enforces the traversal cap. Returns false once the cap is hit,
// at which point the whole batch is aborted.
func (st *batchState) countItem() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.items++
	return st.items <= st.maxItemsSnapshot
}

// Ingest traverses the picked documents and reconciles every reachable
// audio file with the local store. Sibling files and sibling folders are
// processed concurrently; the call returns only after all spawned work has
// settled. Per-file fetch/extract failures are isolated and surfaced in the
// report; a folder-listing failure aborts the whole call.
func (p *Pipeline) Ingest(ctx context.Context, docs []model.DocumentDescriptor) (*Report, error) {
	started := time.Now()
	batchID := uuid.NewString()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &batchState{
		cancel:           cancel,
		sem:              make(chan struct{}, p.maxConcurrent),
		maxItemsSnapshot: p.maxItems,
	}

	logger.Info("开始同步批次",
		logger.String("batchId", batchID),
		logger.Int("documents", len(docs)))

	var wg sync.WaitGroup
	for _, doc := range docs {
		p.dispatch(ctx, st, &wg, doc)
	}
	wg.Wait()

	if st.structuralErr != nil {
		logger.Error("同步批次失败",
			logger.String("batchId", batchID),
			logger.ErrorField(st.structuralErr))
		return nil, st.structuralErr
	}
	if err := ctx.Err(); err != nil {
		// Cancelled from outside: abandoned work, no partial report.
		return nil, err
	}

	report := &Report{
		BatchID:    batchID,
		Ingested:   st.ingested,
		Skipped:    st.skipped,
		Failed:     st.failed,
		Errors:     st.errors,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	logger.Info("同步批次完成",
		logger.String("batchId", batchID),
		logger.Int("ingested", report.Ingested),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
		logger.Duration("elapsed", report.FinishedAt.Sub(started)))
	return report, nil
}

// dispatch starts one goroutine for a document, branching on the folder flag.
func (p *Pipeline) dispatch(ctx context.Context, st *batchState, wg *sync.WaitGroup, doc model.DocumentDescriptor) {
	if !st.countItem() {
		st.abort(fmt.Errorf("traversal cap of %d documents exceeded", st.maxItemsSnapshot))
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		if doc.IsFolder {
			p.walkFolder(ctx, st, wg, doc)
		} else {
			p.handleFile(ctx, st, doc)
		}
	}()
}

// walkFolder lists a folder's direct children and dispatches each of them.
// Folder nesting is walked goroutine-per-folder rather than by recursion on
// one stack, so arbitrary drive nesting cannot exhaust a call stack; the
// traversal cap bounds the total amount of work instead.
func (p *Pipeline) walkFolder(ctx context.Context, st *batchState, wg *sync.WaitGroup, doc model.DocumentDescriptor) {
	children, err := p.source.ListChildren(ctx, doc.ID)
	if err != nil {
		// Listing failures are structural: a malformed query or a revoked
		// token would fail every sibling the same way.
		st.abort(fmt.Errorf("failed to list folder %q: %w", doc.Name, err))
		return
	}

	for _, child := range children {
		p.dispatch(ctx, st, wg, child)
	}
}

// handleFile reconciles a single audio file with the local store. Every
// failure in here is isolated to this file.
func (p *Pipeline) handleFile(ctx context.Context, st *batchState, doc model.DocumentDescriptor) {
	existing, err := p.songs.GetByID(doc.ID)
	if err != nil {
		st.fail(doc, fmt.Errorf("store lookup failed: %w", err))
		return
	}
	if existing != nil && existing.LastEditedUtc >= doc.LastEditedUtc {
		st.mu.Lock()
		st.skipped++
		st.mu.Unlock()
		return
	}

	// Bound the expensive part: download plus tag parsing.
	select {
	case st.sem <- struct{}{}:
		defer func() { <-st.sem }()
	case <-ctx.Done():
		return
	}

	data, err := p.source.FetchContent(ctx, doc.ID)
	if err != nil {
		st.fail(doc, fmt.Errorf("fetch failed: %w", err))
		return
	}

	md, err := p.extractor.Extract(data)
	if err != nil {
		st.fail(doc, fmt.Errorf("metadata extraction failed: %w", err))
		return
	}
	if md == nil {
		st.fail(doc, fmt.Errorf("metadata extraction returned no result"))
		return
	}

	song := p.deriveSong(doc, md)

	// Blobs first, record last: a failed blob write leaves no record behind,
	// and an orphaned blob is overwritten by the next successful pass.
	if err := p.store.Put(ctx, song.AudioPath, data, audioContentType(doc.Name)); err != nil {
		st.fail(doc, fmt.Errorf("audio upload failed: %w", err))
		return
	}
	if md.Picture != nil {
		if err := p.store.Put(ctx, song.CoverPath, md.Picture.Data, md.Picture.Mime); err != nil {
			st.fail(doc, fmt.Errorf("cover upload failed: %w", err))
			return
		}
	}

	applied, err := p.songs.Upsert(song)
	if err != nil {
		st.fail(doc, fmt.Errorf("store upsert failed: %w", err))
		return
	}

	st.mu.Lock()
	if applied {
		st.ingested++
	} else {
		st.skipped++
	}
	st.mu.Unlock()
}

// deriveSong builds the storage record from a descriptor and its extracted
// metadata: filename-stem title fallback, null stripping, cover object key.
func (p *Pipeline) deriveSong(doc model.DocumentDescriptor, md *meta.Meta) *model.Song {
	title := meta.StripNulls(md.Title)
	if title == "" {
		title = meta.StripNulls(meta.TitleFallback(doc.Name))
	}

	song := &model.Song{
		ID:            doc.ID,
		Title:         title,
		Artist:        meta.StripNulls(md.Artist),
		Album:         meta.StripNulls(md.Album),
		Genre:         meta.StripNulls(md.Genre),
		Year:          meta.StripNulls(md.Year),
		LastEditedUtc: doc.LastEditedUtc,
		AudioPath:     storage.AudioKey(doc.ID),
	}
	if md.Picture != nil {
		song.CoverPath = storage.CoverKey(doc.ID)
		song.CoverMime = md.Picture.Mime
	}
	return song
}

func audioContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
