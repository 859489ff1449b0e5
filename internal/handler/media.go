package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"photobox/internal/auth"
	"photobox/internal/model"
	"photobox/internal/realtime"
	"photobox/internal/storage"
	"photobox/internal/store"
)

// maxUploadBytes caps a single upload at 200MB, enough for phone video.
const maxUploadBytes = 200 << 20

type MediaHandler struct {
	mediaStore *store.MediaStore
	blobs      storage.Store
	hub        *realtime.Hub
	logger     *slog.Logger
}

func NewMediaHandler(ms *store.MediaStore, blobs storage.Store, hub *realtime.Hub, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{mediaStore: ms, blobs: blobs, hub: hub, logger: logger}
}

// uploadKey builds the stored filename. The uuid keeps concurrent
// uploads of the same file distinct; the original name is kept as a
// suffix so downloads stay recognizable.
func uploadKey(originalName string) string {
	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString())
	base := filepath.Base(strings.TrimSpace(originalName))
	if base != "" && base != "." && base != ".." && base != "/" {
		key += "-" + strings.ReplaceAll(base, " ", "_")
	}
	return key
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "media file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := uploadKey(header.Filename)
	if err := h.blobs.Save(r.Context(), key, contentType, header.Size, file); err != nil {
		h.logger.Error("save blob", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	var s3Key *string
	if h.blobs.Type() == model.StorageS3 {
		s3Key = &key
	}
	m, err := h.mediaStore.Create(ac.UserID, key, header.Filename, contentType, header.Size, h.blobs.Type(), s3Key)
	if err != nil {
		h.logger.Error("create media row", "key", key, "error", err)
		// Orphaned blobs are cheaper than lost rows; clean up anyway.
		if derr := h.blobs.Delete(r.Context(), key); derr != nil {
			h.logger.Warn("remove orphaned blob", "key", key, "error", derr)
		}
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	h.resolveURL(r, m)
	h.hub.Notify(realtime.Event{Type: realtime.EventMediaUploaded, MediaID: m.ID, UserID: m.UserID})
	writeJSON(w, http.StatusCreated, m)
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.mediaStore.ListByUser(ac.UserID)
	if err != nil {
		h.logger.Error("list media", "user_id", ac.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for i := range items {
		h.resolveURL(r, &items[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": items})
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid media id")
		return
	}

	m, err := h.mediaStore.GetByID(id)
	if err != nil {
		h.logger.Error("get media", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if m.UserID != ac.UserID {
		writeError(w, http.StatusForbidden, "not your media")
		return
	}

	// Blob removal is best effort; the row is authoritative.
	if m.StorageType == h.blobs.Type() {
		if err := h.blobs.Delete(r.Context(), h.blobKey(m)); err != nil {
			h.logger.Warn("delete blob", "id", id, "error", err)
		}
	}
	if err := h.mediaStore.Delete(id); err != nil {
		h.logger.Error("delete media row", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Notify(realtime.Event{Type: realtime.EventMediaDeleted, MediaID: id, UserID: ac.UserID})
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *MediaHandler) blobKey(m *model.Media) string {
	if m.S3Key != nil {
		return *m.S3Key
	}
	return m.Filename
}

// resolveURL fills in m.URL. Local rows always resolve to the static
// /media/ path; S3 rows need the configured backend to presign, so a
// row written under a different backend is left without a URL.
func (h *MediaHandler) resolveURL(r *http.Request, m *model.Media) {
	if m.StorageType == model.StorageLocal {
		m.URL = "/media/" + m.Filename
		return
	}
	if m.StorageType != h.blobs.Type() {
		return
	}
	url, err := h.blobs.URL(r.Context(), h.blobKey(m))
	if err != nil {
		h.logger.Warn("resolve media url", "id", m.ID, "error", err)
		return
	}
	m.URL = url
}
