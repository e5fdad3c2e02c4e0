package middleware

import (
	"net/http"
	"time"

	"evidence-explorer/pkg/apierror"
)

// Timeout bounds short JSON calls. Transfers use TransferTimeout and the
// event socket has no deadline at all.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body := string(errorEnvelope(apierror.CodeTimeout, "request timed out"))

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, body)
	}
}
