package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/session"
	"evidence-explorer/internal/upload"
	"evidence-explorer/pkg/apierror"
)

type UploadHandler struct {
	sessions      *session.Manager
	maxUploadSize int64
}

func NewUploadHandler(sessions *session.Manager, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{sessions: sessions, maxUploadSize: maxUploadSize}
}

// Upload accepts multipart "files" parts plus an optional "destination"
// folder and starts the batch in the background. Progress and overwrite
// prompts are delivered over the session's event socket.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.New(apierror.CodeBadRequest, "invalid multipart body", "", http.StatusBadRequest))
		return
	}

	destination := strings.TrimSpace(r.URL.Query().Get("destination"))
	var sources []upload.Source

	for {
		part, nextErr := reader.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			writeMultipartError(w, nextErr)
			return
		}

		switch {
		case part.FormName() == "destination":
			value, readErr := io.ReadAll(part)
			_ = part.Close()
			if readErr != nil {
				writeMultipartError(w, readErr)
				return
			}
			if v := strings.TrimSpace(string(value)); v != "" {
				destination = v
			}

		case part.FormName() == "files" && strings.TrimSpace(part.FileName()) != "":
			data, readErr := io.ReadAll(part)
			_ = part.Close()
			if readErr != nil {
				writeMultipartError(w, readErr)
				return
			}
			sources = append(sources, upload.NewMemorySource(part.FileName(), data))

		default:
			_ = part.Close()
		}
	}

	if len(sources) == 0 {
		writeError(w, apierror.New(apierror.CodeBadRequest, "at least one file is required", "files", http.StatusBadRequest))
		return
	}

	accepted, err := s.StartUpload(r.Context(), destination, sources)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusAccepted, accepted, nil)
}

func (h *UploadHandler) Batch(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	view, err := s.Batch(chi.URLParam(r, "batch_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

// Resolve answers the overwrite prompt of one task.
func (h *UploadHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.ResolutionRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := s.ResolveConflict(chi.URLParam(r, "batch_id"), payload.TaskIndex, payload.Overwrite); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeMultipartError(w http.ResponseWriter, err error) {
	if isPayloadTooLarge(err) {
		writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
		return
	}
	writeError(w, apierror.New(apierror.CodeBadRequest, "invalid multipart stream", err.Error(), http.StatusBadRequest))
}
