package middleware

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// TransferTimeout guards upload and thumbnail routes, which must not be
// buffered by http.TimeoutHandler. The request fails when the whole transfer
// exceeds maxDuration or when neither the request body nor the response
// moves for idleTimeout.
func TransferTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			deadline := time.Now().Add(maxDuration)
			_ = rc.SetWriteDeadline(deadline)
			_ = rc.SetReadDeadline(deadline)

			idle := &idleTimer{rc: rc, timeout: idleTimeout, cancel: cancel}
			idle.reset()
			defer idle.stop()

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &idleReader{ReadCloser: r.Body, idle: idle}
			}

			next.ServeHTTP(&transferWriter{ResponseWriter: w, idle: idle}, r.WithContext(ctx))
		})
	}
}

// idleTimer cancels the request after a period without I/O and shortens the
// connection deadlines so blocked reads and writes fail fast.
type idleTimer struct {
	rc      *http.ResponseController
	timeout time.Duration
	cancel  context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

func (t *idleTimer) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	t.timer = time.AfterFunc(t.timeout, func() {
		now := time.Now()
		_ = t.rc.SetWriteDeadline(now)
		_ = t.rc.SetReadDeadline(now)
		t.cancel()
	})
}

func (t *idleTimer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
}

type idleReader struct {
	io.ReadCloser
	idle *idleTimer
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.idle.reset()
	}
	return n, err
}

type transferWriter struct {
	http.ResponseWriter
	idle *idleTimer
}

func (w *transferWriter) Write(b []byte) (int, error) {
	w.idle.reset()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the real writer.
func (w *transferWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *transferWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
