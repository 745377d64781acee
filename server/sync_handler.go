package server

import (
	"encoding/json"
	"net/http"
	"time"

	"DriveFM/core/events"
	"DriveFM/core/ingest"
	"DriveFM/logger"
	"DriveFM/model"
	"DriveFM/repository"
)

// syncRequest is the payload the browser posts after the drive picker
// closes: the picked documents plus the bearer token its own authorization
// flow produced. The token is used for this call only and never stored.
type syncRequest struct {
	AccessToken string                     `json:"accessToken"`
	Documents   []model.DocumentDescriptor `json:"documents"`
}

// SyncHandler runs one ingestion batch. The response carries exactly one
// of a success report or a failure notice, never both.
func (h *APIHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sync request body")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "missing access token")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents to sync")
		return
	}

	logger.Info("收到同步请求",
		logger.Int("documents", len(req.Documents)),
		logger.String("remoteAddr", r.RemoteAddr))

	src, err := h.newSource(r.Context(), req.AccessToken)
	if err != nil {
		logger.Error("创建文档源失败", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "failed to connect to document source")
		return
	}

	pipeline := ingest.NewPipeline(src, h.songRepo, h.store, h.extractor,
		h.cfg.IngestMaxConcurrent, h.cfg.IngestMaxItems)

	report, err := pipeline.Ingest(r.Context(), req.Documents)
	if err != nil {
		// Structural failure: the batch as a whole failed.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	lastUpdated := time.Now().UTC().Format(time.RFC3339)
	if err := h.settingsRepo.Set(repository.SettingLastUpdated, lastUpdated); err != nil {
		logger.Error("写入同步时间失败", logger.ErrorField(err))
	}
	h.bus.Publish(events.Event{Type: events.SyncCompleted})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"report":      report,
		"lastUpdated": lastUpdated,
	})
}

// StatusHandler exposes the lastUpdated slot and library size for the
// header bar.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	lastUpdated, err := h.settingsRepo.Get(repository.SettingLastUpdated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	songs, err := h.songRepo.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lastUpdated": lastUpdated,
		"songCount":   len(songs),
	})
}
