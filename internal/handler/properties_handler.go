package handler

import (
	"net/http"
	"strings"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/session"
	"evidence-explorer/pkg/apierror"
)

// PropertiesHandler edits the metadata of one file of the current listing.
type PropertiesHandler struct {
	sessions *session.Manager
}

func NewPropertiesHandler(sessions *session.Manager) *PropertiesHandler {
	return &PropertiesHandler{sessions: sessions}
}

func (h *PropertiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeError(w, apierror.New(apierror.CodeBadRequest, "query parameter 'path' is required", "path", http.StatusBadRequest))
		return
	}

	props, err := s.Properties(path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, props, nil)
}

func (h *PropertiesHandler) AddKey(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.MetadataKeyRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	props, err := s.AddMetadataKey(payload.Path, payload.Key, payload.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, props, nil)
}

func (h *PropertiesHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.SaveMetadataRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Path) == "" {
		writeError(w, apierror.New(apierror.CodeBadRequest, "path is required", "path", http.StatusBadRequest))
		return
	}

	props, err := s.SaveProperties(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, props, nil)
}
