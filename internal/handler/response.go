package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"evidence-explorer/internal/model"
	"evidence-explorer/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{model.ErrSessionNotFound, http.StatusNotFound, apierror.CodeNotFound, "Session not found"},
	{model.ErrBatchNotFound, http.StatusNotFound, apierror.CodeNotFound, "Upload batch not found"},
	{model.ErrPromptNotFound, http.StatusConflict, apierror.CodeConflict, "No overwrite decision is pending for this file"},
	{model.ErrEntryNotFound, http.StatusNotFound, apierror.CodeNotFound, "Entry is not in the current listing"},
	{model.ErrNoContainer, http.StatusConflict, "NO_CONTAINER", "Select a container first"},
	{model.ErrNoNextPage, http.StatusConflict, "NO_NEXT_PAGE", "Already on the last page"},
	{model.ErrNoPreviousPage, http.StatusConflict, "NO_PREVIOUS_PAGE", "Already on the first page"},
	{model.ErrSuperseded, http.StatusConflict, "SUPERSEDED", "A newer request replaced this one"},
	{model.ErrNotSelectable, http.StatusBadRequest, apierror.CodeBadRequest, "Only files can be selected"},
	{model.ErrEmptyMetadataKey, http.StatusBadRequest, apierror.CodeBadRequest, "Metadata key cannot be empty"},
	{model.ErrDuplicateMetadataKey, http.StatusBadRequest, apierror.CodeBadRequest, "Metadata key already exists"},
	{model.ErrUnauthorized, http.StatusUnauthorized, apierror.CodeUnauthorized, "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, apierror.CodeForbidden, "Access denied"},
	{model.ErrInvalidInput, http.StatusBadRequest, apierror.CodeBadRequest, "Invalid input"},
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if mapping, ok := lookupError(err); ok {
		status = mapping.status
		body.Code = mapping.code
		body.Message = mapping.message
	} else {
		// Unclassified errors would otherwise only surface as a bare 500.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func lookupError(err error) (errorMapping, bool) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			return mapping, true
		}
	}
	return errorMapping{}, false
}

// decodeJSON reads a JSON request body, writing the error response itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apierror.New(apierror.CodeBadRequest, "invalid JSON body", "", http.StatusBadRequest))
		return false
	}
	return true
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
