package server

import (
	"net/http"

	"DriveFM/logger"

	"github.com/gorilla/mux"
)

// MediaHandler resolves a live media handle and streams the underlying
// object. A released handle stops resolving immediately, which is what
// makes handle release an effective revocation.
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	hd := h.registry.Lookup(token)
	if hd == nil {
		http.Error(w, "media handle not found or revoked", http.StatusNotFound)
		return
	}

	data, contentType, err := h.store.Get(r.Context(), hd.ObjectKey)
	if err != nil {
		logger.Error("读取媒体对象失败",
			logger.String("objectKey", hd.ObjectKey),
			logger.ErrorField(err))
		http.Error(w, "failed to read media object", http.StatusInternalServerError)
		return
	}

	if hd.Mime != "" {
		contentType = hd.Mime
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store") // handles are revocable, never cache
	w.Write(data)
}
