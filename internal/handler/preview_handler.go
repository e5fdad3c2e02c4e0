package handler

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"evidence-explorer/internal/session"
	"evidence-explorer/pkg/apierror"
)

const (
	minThumbnailSize     = 32
	defaultThumbnailSize = 256
)

type PreviewHandler struct {
	sessions *session.Manager
}

func NewPreviewHandler(sessions *session.Manager) *PreviewHandler {
	return &PreviewHandler{sessions: sessions}
}

func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	data, err := s.Preview(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, nil)
}

// Thumbnail renders into memory first so that a decode failure still gets
// a JSON error instead of a truncated image.
func (h *PreviewHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	requestedPath := strings.TrimSpace(r.URL.Query().Get("path"))
	if requestedPath == "" {
		writeError(w, apierror.New(apierror.CodeBadRequest, "query parameter 'path' is required", "path", http.StatusBadRequest))
		return
	}

	size := max(parseIntOrDefault(r.URL.Query().Get("size"), defaultThumbnailSize), minThumbnailSize)

	var buf bytes.Buffer
	if err := s.Thumbnail(r.Context(), requestedPath, size, &buf); err != nil {
		if apierror.HasCode(err, apierror.CodeUnsupportedType) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, err)
		return
	}

	filename := path.Base(requestedPath) + ".jpg"
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
