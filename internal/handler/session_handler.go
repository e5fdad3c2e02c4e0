package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evidence-explorer/internal/middleware"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/session"
	"evidence-explorer/pkg/apierror"
)

// SessionHandler serves the folder view of a session: container, folder,
// sort, pagination, selection and bulk delete.
type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// lookupSession resolves {session_id} for the calling user and writes the
// error response when it cannot.
func lookupSession(sessions *session.Manager, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return nil, false
	}

	s, err := sessions.Get(chi.URLParam(r, "session_id"), claims.UserID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	return s, true
}

// sessionOwner is the audit actor of every entry the new session writes.
func sessionOwner(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		actor.UserID = claims.UserID
		actor.Username = claims.Username
	}
	return actor
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create(sessionOwner(r))
	writeSuccess(w, http.StatusCreated, model.SessionCreated{SessionID: s.ID}, nil)
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	h.sessions.Remove(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SetContainer(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.SetContainerRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	container := strings.TrimSpace(payload.Container)
	if container == "" {
		writeError(w, apierror.New(apierror.CodeBadRequest, "container is required", "container", http.StatusBadRequest))
		return
	}

	view, err := s.SetContainer(r.Context(), container)
	if err != nil {
		writeError(w, err)
		return
	}

	writeView(w, view)
}

func (h *SessionHandler) View(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	mode := session.ModeFlat
	if strings.EqualFold(r.URL.Query().Get("mode"), session.ModeTree) {
		mode = session.ModeTree
	}

	writeView(w, s.View(mode))
}

func (h *SessionHandler) SetFolder(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.SetFolderRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	view, err := s.SetFolder(payload.Folder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeView(w, view)
}

func (h *SessionHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.SetSortRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	writeView(w, s.SetSort(model.SortSpec{Column: payload.Column, Direction: payload.Direction}))
}

func (h *SessionHandler) SetExpanded(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.SetExpandedRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.ID) == "" {
		writeError(w, apierror.New(apierror.CodeBadRequest, "id is required", "id", http.StatusBadRequest))
		return
	}

	writeView(w, s.SetExpanded(payload.ID, payload.Expanded))
}

func (h *SessionHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	view, err := s.NextPage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeView(w, view)
}

func (h *SessionHandler) PreviousPage(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	view, err := s.PreviousPage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeView(w, view)
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	view, err := s.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeView(w, view)
}

func (h *SessionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.ToggleRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	selected, err := s.Toggle(payload.Path, payload.Index, payload.Shift)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.SelectionData{Selected: selected}, nil)
}

func (h *SessionHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	var payload model.SelectAllRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	writeSuccess(w, http.StatusOK, model.SelectionData{Selected: s.SelectAll(payload.Checked)}, nil)
}

// DeleteSelection answers 200 with per-path results even when some deletes
// failed; only a missing container or empty selection is an error.
func (h *SessionHandler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	result, err := s.DeleteSelected(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func writeView(w http.ResponseWriter, view model.ViewData) {
	writeSuccess(w, http.StatusOK, view, &model.Meta{
		Page:        view.Pagination.Number,
		HasNext:     view.Pagination.HasNext,
		HasPrevious: view.Pagination.HasPrevious,
	})
}
