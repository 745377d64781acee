package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"DriveFM/core/player"
	"DriveFM/logger"

	"github.com/gorilla/mux"
)

// GetPlayerHandler returns the current playback snapshot. When the
// in-memory selector is idle it falls back to the Redis snapshot so a
// reloaded page can offer to resume.
func (h *APIHandler) GetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	snap := h.selector.SnapshotState()
	if snap.State == player.Idle && h.playback != nil {
		if saved, err := h.playback.Load(r.Context()); err == nil && saved != nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"current": snap,
				"saved":   saved,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"current": snap})
}

// SelectSongHandler loads a specific song and starts playing it.
func (h *APIHandler) SelectSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song, err := h.songRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up song")
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}

	writeJSON(w, http.StatusOK, h.selector.SelectExplicit(song))
}

// NextSongHandler picks a random track within the active scope
// (?album=<name>, empty = whole library).
func (h *APIHandler) NextSongHandler(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("album")

	snap, err := h.selector.SelectNext(r.Context(), scope)
	if err != nil {
		h.writePlayerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PauseHandler and ResumeHandler toggle within the loaded states; both are
// no-ops from idle.
func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.selector.Pause())
}

func (h *APIHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.selector.Resume())
}

// TrackEndedHandler auto-advances when the browser reports natural
// end-of-track.
func (h *APIHandler) TrackEndedHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.selector.OnTrackEnd(r.Context())
	if err != nil {
		h.writePlayerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ProgressHandler records the client's playback position so the session
// survives a reload.
func (h *APIHandler) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Position float64 `json:"position"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid progress body")
		return
	}
	writeJSON(w, http.StatusOK, h.selector.ReportProgress(body.Position, body.Duration))
}

// writePlayerError distinguishes the benign empty-scope notice from real
// faults: no songs to play is a 200 with a notice, not an error.
func (h *APIHandler) writePlayerError(w http.ResponseWriter, err error) {
	if errors.Is(err, player.ErrNoSongs) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "empty",
			"notice": "no songs to play",
			"player": h.selector.SnapshotState(),
		})
		return
	}
	logger.Error("播放器操作失败", logger.ErrorField(err))
	writeError(w, http.StatusInternalServerError, "player operation failed")
}
