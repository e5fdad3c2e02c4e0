package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/model"
)

// fakeBackend serves the evidence service endpoints used by evidencectl for
// the container "case".
type fakeBackend struct {
	mu          sync.Mutex
	pages       [][]model.RemoteEntry
	failDelete  map[string]bool
	deleted     []string
	savedPath   string
	savedValues map[string]string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "GET /api/containers/case/objects":
		index := 0
		if token := r.URL.Query().Get("continuationToken"); token != "" {
			index, _ = strconv.Atoi(token)
		}
		result := model.ListResult{Items: f.pages[index]}
		if index+1 < len(f.pages) {
			next := strconv.Itoa(index + 1)
			result.NextContinuationToken = &next
		}
		_ = json.NewEncoder(w).Encode(result)

	case "DELETE /api/containers/case/objects":
		path := r.URL.Query().Get("path")
		if f.failDelete[path] {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"blob is under legal hold"}`))
			return
		}
		f.deleted = append(f.deleted, path)
		w.WriteHeader(http.StatusNoContent)

	case "PUT /api/containers/case/metadata":
		var body struct {
			Path     string            `json:"path"`
			Metadata map[string]string `json:"metadata"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.savedPath = body.Path
		f.savedValues = body.Metadata
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()

	backend := &fakeBackend{
		pages: [][]model.RemoteEntry{
			{
				{Name: "photos/b.jpg", Checksum: "c2", DocumentID: "12", Metadata: map[string]string{"modifiedBy": "kline"}},
				{Name: "photos/a.jpg", Checksum: "c1", DocumentID: "11"},
				{Name: "notes.txt", Checksum: "c3", Metadata: map[string]string{"Exhibit": "A7"}},
			},
			{
				{Name: "mail/0001.eml", Checksum: "c4"},
			},
		},
		failDelete: map[string]bool{},
	}

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	return backend, server.URL
}

func runCLI(t *testing.T, backendURL string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--backend", backendURL, "--token", "secret", "--container", "case", "--retries", "0"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestLsCommand(t *testing.T) {
	_, url := newFakeBackend(t)

	t.Run("root lists folders before files", func(t *testing.T) {
		out, err := runCLI(t, url, "ls")
		require.NoError(t, err)

		assert.Contains(t, out, "case\n")
		assert.Contains(t, out, "photos/")
		assert.Contains(t, out, "2 object(s)")
		assert.Less(t, bytes.Index([]byte(out), []byte("photos/")), bytes.Index([]byte(out), []byte("notes.txt")))
		assert.Contains(t, out, "page 1, 3 object(s) (more: --page 2)")
	})

	t.Run("folder sorted descending", func(t *testing.T) {
		out, err := runCLI(t, url, "ls", "photos", "--desc")
		require.NoError(t, err)

		assert.Contains(t, out, "case / photos")
		assert.Less(t, bytes.Index([]byte(out), []byte("b.jpg")), bytes.Index([]byte(out), []byte("a.jpg")))
		assert.Contains(t, out, "kline")
	})

	t.Run("second page", func(t *testing.T) {
		out, err := runCLI(t, url, "ls", "--page", "2")
		require.NoError(t, err)

		assert.Contains(t, out, "mail/")
		assert.NotContains(t, out, "photos/")
		assert.Contains(t, out, "page 2, 1 object(s)\n")
	})

	t.Run("page past the end", func(t *testing.T) {
		_, err := runCLI(t, url, "ls", "--page", "3")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only 2 page(s)")
	})
}

func TestRmCommand(t *testing.T) {
	backend, url := newFakeBackend(t)
	backend.failDelete["held.txt"] = true

	out, err := runCLI(t, url, "rm", "--yes", "notes.txt", "held.txt", "photos/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 delete(s) failed")

	assert.Contains(t, out, "deleted  notes.txt")
	assert.Contains(t, out, "failed   held.txt: blob is under legal hold")
	assert.ElementsMatch(t, []string{"notes.txt", "photos/a.jpg"}, backend.deleted)
}

func TestMetaCommands(t *testing.T) {
	backend, url := newFakeBackend(t)

	t.Run("get finds entries on later pages", func(t *testing.T) {
		out, err := runCLI(t, url, "meta", "get", "mail/0001.eml")
		require.NoError(t, err)
		assert.Contains(t, out, "checksum  c4")
	})

	t.Run("get unknown path", func(t *testing.T) {
		_, err := runCLI(t, url, "meta", "get", "missing.txt")
		require.ErrorIs(t, err, model.ErrEntryNotFound)
	})

	t.Run("set updates existing and adds new keys", func(t *testing.T) {
		out, err := runCLI(t, url, "meta", "set", "notes.txt", "exhibit=B2", "Officer=kline")
		require.NoError(t, err)
		assert.Contains(t, out, "Saved notes.txt")

		assert.Equal(t, "notes.txt", backend.savedPath)
		assert.Equal(t, map[string]string{"Exhibit": "B2", "officer": "kline"}, backend.savedValues)
	})

	t.Run("set without changes does not save", func(t *testing.T) {
		backend.savedPath = ""
		out, err := runCLI(t, url, "meta", "set", "notes.txt", "exhibit=A7")
		require.NoError(t, err)
		assert.Contains(t, out, "No changes.")
		assert.Empty(t, backend.savedPath)
	})

	t.Run("remove unknown key", func(t *testing.T) {
		_, err := runCLI(t, url, "meta", "set", "notes.txt", "--remove", "draft")
		require.Error(t, err)
	})
}

func TestParsePairs(t *testing.T) {
	t.Parallel()

	pairs, err := parsePairs([]string{"a=1", "b=x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, []model.MetadataPair{{Key: "a", Value: "1"}, {Key: "b", Value: "x=y"}, {Key: "c", Value: ""}}, pairs)

	_, err = parsePairs([]string{"novalue"})
	require.Error(t, err)

	_, err = parsePairs([]string{"A=1", "a=2"})
	require.ErrorIs(t, err, model.ErrDuplicateMetadataKey)
}

func TestPromptConfirmer(t *testing.T) {
	t.Parallel()

	prompt := model.ConflictPrompt{Name: "a.jpg"}

	always := &promptConfirmer{policy: overwriteAlways}
	ok, err := always.ConfirmOverwrite(context.Background(), prompt)
	require.NoError(t, err)
	assert.True(t, ok)

	never := &promptConfirmer{policy: overwriteNever}
	ok, err = never.ConfirmOverwrite(context.Background(), prompt)
	require.NoError(t, err)
	assert.False(t, ok)

	ask := &promptConfirmer{policy: overwriteAsk}
	_, err = ask.ConfirmOverwrite(context.Background(), prompt)
	require.ErrorIs(t, err, errNotInteractive)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = always.ConfirmOverwrite(ctx, prompt)
	require.ErrorIs(t, err, context.Canceled)

	_, err = parseOverwritePolicy("sometimes")
	require.Error(t, err)
}

func TestHumanBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "3.0 MiB", humanBytes(3<<20))
}
