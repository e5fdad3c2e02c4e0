package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	h := NewPrettyHandler(buf, &slog.HandlerOptions{Level: level})
	h.noColor = true
	return slog.New(h)
}

func TestPrettyHandler(t *testing.T) {
	t.Run("formats attributes", func(t *testing.T) {
		var buf bytes.Buffer
		log := newTestLogger(&buf, slog.LevelInfo)

		log.Info("upload finished", "session_id", "s1", "name", "case notes.pdf", "error", errors.New("boom"))

		line := buf.String()
		assert.Contains(t, line, "INFO  upload finished")
		assert.Contains(t, line, " session_id=s1")
		assert.Contains(t, line, ` name="case notes.pdf"`)
		assert.Contains(t, line, " error=boom")
		assert.NotContains(t, line, "\033[")
	})

	t.Run("filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		log := newTestLogger(&buf, slog.LevelWarn)

		log.Info("hidden")
		log.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "WARN  shown")
	})

	t.Run("prefixes groups and keeps stored attributes", func(t *testing.T) {
		var buf bytes.Buffer
		log := newTestLogger(&buf, slog.LevelDebug).With("request_id", "r1").WithGroup("blob")

		log.Debug("retry", "attempt", 2, slog.Group("http", "status", 503))

		line := buf.String()
		assert.Contains(t, line, " request_id=r1")
		assert.Contains(t, line, " blob.attempt=2")
		assert.Contains(t, line, " blob.http.status=503")
	})
}
