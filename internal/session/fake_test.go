package session

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/event"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/preview"
	"evidence-explorer/internal/upload"
	"evidence-explorer/pkg/apierror"
)

// fakeStore is an in-memory evidence service and blob store.
type fakeStore struct {
	mu         sync.Mutex
	containers map[string][]model.RemoteEntry
	pageSize   int
	denied     map[string]bool
	failDelete map[string]bool
	uploads    int
	audit      []model.AuditEntry
}

func newFakeStore(container string, names ...string) *fakeStore {
	store := &fakeStore{
		containers: map[string][]model.RemoteEntry{},
		pageSize:   100,
		denied:     map[string]bool{},
		failDelete: map[string]bool{},
	}
	for _, name := range names {
		store.containers[container] = append(store.containers[container], model.RemoteEntry{Name: name, Checksum: "md5-" + name})
	}
	return store
}

func (f *fakeStore) List(_ context.Context, container string, token string) (model.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denied[container] {
		return model.ListResult{}, apierror.New(apierror.CodeForbidden, "access to "+container+" denied", "", http.StatusForbidden)
	}

	entries := f.containers[container]
	start, _ := strconv.Atoi(token)
	end := min(start+f.pageSize, len(entries))

	result := model.ListResult{Items: append([]model.RemoteEntry(nil), entries[start:end]...)}
	if end < len(entries) {
		next := strconv.Itoa(end)
		result.NextContinuationToken = &next
	}
	return result, nil
}

func (f *fakeStore) GenerateUploadURL(_ context.Context, container string) ([]model.SasUploadInfo, error) {
	return []model.SasUploadInfo{{SasURL: "https://fake.blob/" + container + "?sig=1", ContainerName: container}}, nil
}

func (f *fakeStore) GenerateReadURL(_ context.Context, container string, path string) (model.ReadURL, error) {
	return model.ReadURL{FullDownloadURL: "https://fake.blob/" + container + "/" + path + "?sig=r"}, nil
}

func (f *fakeStore) GetMessageContent(_ context.Context, _ string, path string) (model.MessageContent, error) {
	return model.MessageContent{Subject: "subject of " + path, Text: "body"}, nil
}

func (f *fakeStore) DeleteObject(_ context.Context, container string, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDelete[path] {
		return apierror.New(apierror.CodeUpstream, "blob is under legal hold", "", http.StatusBadGateway)
	}

	entries := f.containers[container]
	for i := range entries {
		if entries[i].Name == path {
			f.containers[container] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return apierror.New(apierror.CodeNotFound, "not found", "", http.StatusNotFound)
}

func (f *fakeStore) UpdateMetadata(_ context.Context, container string, path string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.containers[container] {
		if f.containers[container][i].Name == path {
			f.containers[container][i].Metadata = metadata
			return nil
		}
	}
	return apierror.New(apierror.CodeNotFound, "not found", "", http.StatusNotFound)
}

func (f *fakeStore) Upload(_ context.Context, sas model.SasUploadInfo, src upload.Source, destination string, overwrite bool) error {
	container := sas.ContainerName

	r, err := src.Open()
	if err != nil {
		return err
	}
	data, _ := io.ReadAll(r)
	_ = r.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++

	for i, entry := range f.containers[container] {
		if entry.Name == destination {
			if !overwrite {
				return apierror.New(apierror.CodeConflict, "A file named "+destination+" already exists", "", http.StatusConflict)
			}
			f.containers[container][i].Checksum = "len-" + strconv.Itoa(len(data))
			return nil
		}
	}

	f.containers[container] = append(f.containers[container], model.RemoteEntry{Name: destination, Checksum: "len-" + strconv.Itoa(len(data))})
	return nil
}

func (f *fakeStore) Record(_ context.Context, entry model.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit = append(f.audit, entry)
}

func (f *fakeStore) auditActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.audit))
	for _, entry := range f.audit {
		out = append(out, entry.Action+":"+entry.Status+":"+entry.Resource)
	}
	return out
}

// gatedStore holds GenerateReadURL for gate until release is closed.
type gatedStore struct {
	*fakeStore
	gate    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) GenerateReadURL(ctx context.Context, container string, path string) (model.ReadURL, error) {
	if path == g.gate {
		close(g.entered)
		<-g.release
	}
	return g.fakeStore.GenerateReadURL(ctx, container, path)
}

func newGatedSession(t *testing.T, store *gatedStore) *Session {
	t.Helper()

	manager := NewManager(Deps{
		Backend:           store,
		Transport:         store,
		Preview:           preview.NewService(store, nil, 256, 0),
		Bus:               event.NewBus(),
		Audit:             store,
		DeleteConcurrency: 4,
		PromptTimeout:     5 * time.Second,
	}, time.Hour)
	t.Cleanup(manager.Close)
	return manager.Create(model.AuditActor{UserID: "u1", Username: "kim"})
}

func newTestManager(store *fakeStore, bus event.Bus) *Manager {
	return NewManager(Deps{
		Backend:           store,
		Transport:         store,
		Preview:           preview.NewService(store, nil, 256, 0),
		Bus:               bus,
		Audit:             store,
		DeleteConcurrency: 4,
		PromptTimeout:     5 * time.Second,
	}, time.Hour)
}

func newTestSession(t *testing.T, store *fakeStore) *Session {
	t.Helper()

	manager := newTestManager(store, event.NewBus())
	t.Cleanup(manager.Close)
	return manager.Create(model.AuditActor{UserID: "u1", Username: "kim"})
}

func itemIDs(view model.ViewData) []string {
	out := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		out = append(out, item.ID)
	}
	return out
}

func waitForEvent(t *testing.T, events <-chan event.Event, typ event.Type) event.Event {
	t.Helper()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type == typ {
				return e
			}
		case <-timeout:
			require.FailNow(t, "event not received", string(typ))
		}
	}
}

func hasPrefix(items []string, prefix string) bool {
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			return true
		}
	}
	return false
}
