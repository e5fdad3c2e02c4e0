package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"evidence-explorer/pkg/apierror"
)

const connectivityHint = "check the network connection to the evidence service and try again"

const maxErrorBody = 64 << 10

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

// statusError maps a non-2xx backend response onto the explorer error
// taxonomy. 403 messages are passed through verbatim.
func statusError(resp *http.Response) *apierror.APIError {
	message := responseMessage(resp)

	switch resp.StatusCode {
	case http.StatusForbidden:
		if message == "" {
			message = "access denied"
		}
		return apierror.New(apierror.CodeForbidden, message, "", http.StatusForbidden)
	case http.StatusUnauthorized:
		if message == "" {
			message = "authentication required"
		}
		return apierror.New(apierror.CodeUnauthorized, message, "", http.StatusUnauthorized)
	case http.StatusConflict:
		if message == "" {
			message = "object already exists"
		}
		return apierror.New(apierror.CodeConflict, message, "", http.StatusConflict)
	case http.StatusNotFound:
		if message == "" {
			message = "not found"
		}
		return apierror.New(apierror.CodeNotFound, message, "", http.StatusNotFound)
	default:
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return apierror.New(apierror.CodeUpstream, message, fmt.Sprintf("backend status %d", resp.StatusCode), http.StatusBadGateway)
	}
}

func responseMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, candidate := range []string{body.Message, body.Error, body.Detail} {
			if strings.TrimSpace(candidate) != "" {
				return strings.TrimSpace(candidate)
			}
		}
		return ""
	}

	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

func networkError(err error) *apierror.APIError {
	return apierror.New(apierror.CodeUpstreamUnavailable, "evidence service is unreachable: "+connectivityHint, err.Error(), http.StatusServiceUnavailable)
}
