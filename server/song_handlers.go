package server

import (
	"net/http"

	"DriveFM/logger"
	"DriveFM/model"
	"DriveFM/storage"

	"github.com/gorilla/mux"
)

// songView decorates a song record with its live cover handle URL.
type songView struct {
	*model.Song
	CoverURL string `json:"coverUrl,omitempty"`
}

func (h *APIHandler) songViews(songs []*model.Song) []songView {
	views := make([]songView, 0, len(songs))
	for _, song := range songs {
		views = append(views, songView{Song: song, CoverURL: h.covers.URLFor(song.ID)})
	}
	return views
}

// GetSongsHandler lists the library. ?q= filters by title substring,
// ?sort=album returns the album-ordered view.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		songs []*model.Song
		err   error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		songs, err = h.songRepo.SearchByTitle(r.URL.Query().Get("q"))
	case r.URL.Query().Get("sort") == "album":
		songs, err = h.songRepo.AllSortedByAlbum()
	default:
		songs, err = h.songRepo.All()
	}
	if err != nil {
		logger.Error("查询歌曲失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to query songs")
		return
	}

	writeJSON(w, http.StatusOK, h.songViews(songs))
}

// DeleteSongHandler removes a song record and its blobs. The cover cache
// releases the song's handle on the change event that follows; if the song
// was loaded in the player, it is unloaded and its media handle released.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := h.songRepo.Delete(id); err != nil {
		logger.Error("删除歌曲失败", logger.String("songId", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete song")
		return
	}

	if h.selector.CurrentSongID() == id {
		h.selector.Unload()
	}

	// Blob cleanup is best-effort; an orphaned object cannot be reached
	// once the record and its handles are gone.
	if err := h.store.Remove(r.Context(), storage.AudioKey(id)); err != nil {
		logger.Warn("删除音频对象失败", logger.String("songId", id), logger.ErrorField(err))
	}
	if song.HasCover() {
		if err := h.store.Remove(r.Context(), storage.CoverKey(id)); err != nil {
			logger.Warn("删除封面对象失败", logger.String("songId", id), logger.ErrorField(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
