package handler

import (
	"context"
	"net/http"
	"strings"

	"evidence-explorer/internal/model"
)

type auditQuerier interface {
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

// AuditHandler lists the chain-of-custody log.
type AuditHandler struct {
	repo auditQuerier
}

func NewAuditHandler(repo auditQuerier) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, meta, err := h.repo.Query(r.Context(), model.AuditQuery{
		Action:    strings.TrimSpace(query.Get("action")),
		ActorID:   strings.TrimSpace(query.Get("actor_id")),
		Container: strings.TrimSpace(query.Get("container")),
		Status:    strings.TrimSpace(query.Get("status")),
		Path:      strings.TrimSpace(query.Get("path")),
		From:      strings.TrimSpace(query.Get("from")),
		To:        strings.TrimSpace(query.Get("to")),
		Page:      parseIntOrDefault(query.Get("page"), 1),
		Limit:     parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}
