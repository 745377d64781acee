package server

import (
	"context"
	"encoding/json"
	"net/http"

	"DriveFM/cache"
	"DriveFM/config"
	"DriveFM/core/events"
	"DriveFM/core/handle"
	"DriveFM/core/meta"
	"DriveFM/core/player"
	"DriveFM/core/source"
	"DriveFM/repository"
	"DriveFM/storage"
)

// sourceFactory builds a document source around a per-request bearer token.
// Swapped for a fake in tests.
type sourceFactory func(ctx context.Context, accessToken string) (source.DocumentSource, error)

// APIHandler 处理所有API请求
type APIHandler struct {
	cfg          *config.Config
	songRepo     repository.SongRepository
	albumRepo    repository.AlbumRepository
	settingsRepo repository.SettingsRepository
	store        storage.ObjectStore
	extractor    meta.Extractor
	bus          *events.Bus
	registry     *handle.Registry
	covers       *cache.CoverCache
	selector     *player.Selector
	playback     *cache.PlaybackCache
	newSource    sourceFactory
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	cfg *config.Config,
	songRepo repository.SongRepository,
	albumRepo repository.AlbumRepository,
	settingsRepo repository.SettingsRepository,
	store storage.ObjectStore,
	extractor meta.Extractor,
	bus *events.Bus,
	registry *handle.Registry,
	covers *cache.CoverCache,
	selector *player.Selector,
	playback *cache.PlaybackCache,
) *APIHandler {
	h := &APIHandler{
		cfg:          cfg,
		songRepo:     songRepo,
		albumRepo:    albumRepo,
		settingsRepo: settingsRepo,
		store:        store,
		extractor:    extractor,
		bus:          bus,
		registry:     registry,
		covers:       covers,
		selector:     selector,
		playback:     playback,
	}
	h.newSource = func(ctx context.Context, accessToken string) (source.DocumentSource, error) {
		return source.NewDriveSource(ctx, accessToken, cfg.DrivePageSize)
	}
	return h
}

// writeJSON serializes a response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError emits the uniform error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}
