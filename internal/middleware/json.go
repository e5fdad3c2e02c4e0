package middleware

import (
	"encoding/json"
	"net/http"

	"evidence-explorer/internal/model"
)

// errorEnvelope renders the failure body shared with the handler package.
func errorEnvelope(code string, message string) []byte {
	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	})
	return body
}

func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(errorEnvelope(code, message))
}
