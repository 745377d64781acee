package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"DriveFM/core/smartlist"
	"DriveFM/logger"
	"DriveFM/model"
	"DriveFM/repository"

	"github.com/gorilla/mux"
)

// GetAlbumsHandler lists every smart playlist.
func (h *APIHandler) GetAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albumRepo.All(r.Context())
	if err != nil {
		logger.Error("查询歌单失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to query albums")
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// CreateAlbumHandler creates a smart playlist. A duplicate name is rejected
// before any mutation with a validation error.
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	var album model.Album
	if err := json.NewDecoder(r.Body).Decode(&album); err != nil {
		writeError(w, http.StatusBadRequest, "invalid album body")
		return
	}
	album.ID = 0

	if err := h.albumRepo.Create(r.Context(), &album); err != nil {
		h.writeAlbumError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

// UpdateAlbumHandler edits a smart playlist, with the same duplicate-name
// rejection as creation.
func (h *APIHandler) UpdateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid album id")
		return
	}

	existing, err := h.albumRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up album")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "album not found")
		return
	}

	var album model.Album
	if err := json.NewDecoder(r.Body).Decode(&album); err != nil {
		writeError(w, http.StatusBadRequest, "invalid album body")
		return
	}
	album.ID = id
	album.CreatedAt = existing.CreatedAt

	if err := h.albumRepo.Update(r.Context(), &album); err != nil {
		h.writeAlbumError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

// DeleteAlbumHandler removes a smart playlist. Songs are untouched.
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid album id")
		return
	}
	if err := h.albumRepo.Delete(r.Context(), id); err != nil {
		logger.Error("删除歌单失败", logger.Int64("albumId", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete album")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetAlbumSongsHandler evaluates a smart playlist against the live song
// collection.
func (h *APIHandler) GetAlbumSongsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid album id")
		return
	}

	album, err := h.albumRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up album")
		return
	}
	if album == nil {
		writeError(w, http.StatusNotFound, "album not found")
		return
	}

	songs, err := h.songRepo.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query songs")
		return
	}

	writeJSON(w, http.StatusOK, h.songViews(smartlist.Filter(album, songs)))
}

// writeAlbumError maps repository errors to status codes: validation
// conflicts are the caller's problem, everything else is ours.
func (h *APIHandler) writeAlbumError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrDuplicateAlbumName) {
		writeError(w, http.StatusConflict, "an album with this name already exists")
		return
	}
	if errors.Is(err, model.ErrInvalidAlbum) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error("歌单操作失败", logger.ErrorField(err))
	writeError(w, http.StatusInternalServerError, "album operation failed")
}
