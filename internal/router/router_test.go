package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/backend"
	"evidence-explorer/internal/config"
	"evidence-explorer/internal/event"
	"evidence-explorer/internal/handler"
	"evidence-explorer/internal/middleware"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/preview"
	"evidence-explorer/internal/repository"
	"evidence-explorer/internal/session"
	"evidence-explorer/internal/upload"
	"evidence-explorer/internal/websocket"
	"evidence-explorer/pkg/apierror"
)

const testSecret = "router-test-secret-0123456789"

// evidenceService is an in-memory evidence service for the container "case".
type evidenceService struct {
	mu      sync.Mutex
	objects map[string]model.RemoteEntry
}

func newEvidenceService(names ...string) *evidenceService {
	svc := &evidenceService{objects: map[string]model.RemoteEntry{}}
	for _, name := range names {
		svc.objects[name] = model.RemoteEntry{Name: name, Checksum: "sum-" + name}
	}
	return svc
}

func (s *evidenceService) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[name]
	return ok
}

func (s *evidenceService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/api/containers/case/") {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"no access to container"}`))
		return
	}

	switch r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/containers/case/") {
	case "GET objects":
		items := make([]model.RemoteEntry, 0, len(s.objects))
		for _, entry := range s.objects {
			items = append(items, entry)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		_ = json.NewEncoder(w).Encode(model.ListResult{Items: items})

	case "DELETE objects":
		delete(s.objects, r.URL.Query().Get("path"))
		w.WriteHeader(http.StatusNoContent)

	case "PUT metadata":
		var body struct {
			Path     string            `json:"path"`
			Metadata map[string]string `json:"metadata"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		entry := s.objects[body.Path]
		entry.Metadata = body.Metadata
		s.objects[body.Path] = entry
		w.WriteHeader(http.StatusNoContent)

	case "GET messages":
		_ = json.NewEncoder(w).Encode(model.MessageContent{Subject: "subject of " + r.URL.Query().Get("path")})

	case "POST sas/read":
		_ = json.NewEncoder(w).Encode(model.ReadURL{FullDownloadURL: "https://blob.example/case/file?sig=r"})

	case "POST sas/upload":
		_ = json.NewEncoder(w).Encode([]model.SasUploadInfo{{SasURL: "https://blob.example/case?sig=w", ContainerName: "case"}})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// blobWriter stands in for the blob transport and writes into the service.
type blobWriter struct {
	svc *evidenceService
}

func (b blobWriter) Upload(_ context.Context, _ model.SasUploadInfo, src upload.Source, destination string, overwrite bool) error {
	if b.svc.has(destination) && !overwrite {
		return apierror.New(apierror.CodeConflict, "blob already exists", destination, http.StatusConflict)
	}

	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	b.svc.objects[destination] = model.RemoteEntry{Name: destination, Checksum: "new"}
	return nil
}

type auditLog struct{}

func (auditLog) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	return []model.AuditEntry{{Action: "delete", Status: "success", Container: "case", Resource: query.Path}}, model.Meta{Page: 1}, nil
}

type gateway struct {
	url string
	svc *evidenceService
}

func newGateway(t *testing.T, names ...string) *gateway {
	t.Helper()

	svc := newEvidenceService(names...)
	evidence := httptest.NewServer(svc)
	t.Cleanup(evidence.Close)

	validator, err := middleware.NewHMACValidator(testSecret)
	require.NoError(t, err)

	client := backend.NewClient(backend.Options{BaseURL: evidence.URL, Timeout: 5 * time.Second})
	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	sessions := session.NewManager(session.Deps{
		Backend:           client,
		Transport:         blobWriter{svc: svc},
		Preview:           preview.NewService(client, nil, 256, 0),
		Bus:               bus,
		Audit:             repository.DiscardAudit{},
		DeleteConcurrency: 4,
		PromptTimeout:     time.Minute,
	}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		sessions.Close()
		cancel()
	})

	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		TransferTimeout:    time.Minute,
		CORSOrigins:        []string{"*"},
		UploadRateLimitRPM: 1000,
		MaxUploadSize:      1 << 20,
	}

	server := httptest.NewServer(New(cfg, middleware.NewAuthMiddleware(validator), Handlers{
		Health:     handler.NewHealthHandler(nil),
		Session:    handler.NewSessionHandler(sessions),
		Upload:     handler.NewUploadHandler(sessions, cfg.MaxUploadSize),
		Properties: handler.NewPropertiesHandler(sessions),
		Preview:    handler.NewPreviewHandler(sessions),
		Events:     handler.NewEventsHandler(sessions, hub, websocket.NewUpgrader(cfg.CORSOrigins)),
		Audit:      handler.NewAuditHandler(auditLog{}),
	}))
	t.Cleanup(server.Close)

	return &gateway{url: server.URL, svc: svc}
}

func signToken(t *testing.T, userID string, role string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      userID,
		"username": userID + "-name",
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (g *gateway) do(t *testing.T, token string, method string, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, g.url+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    T               `json:"data"`
		Error   *model.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success, "error: %+v", envelope.Error)
	return envelope.Data
}

func decodeError(t *testing.T, resp *http.Response) model.APIError {
	t.Helper()

	var envelope model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	return *envelope.Error
}

func (g *gateway) openSession(t *testing.T, token string) string {
	t.Helper()

	resp := g.do(t, token, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeData[model.SessionCreated](t, resp)
	require.NotEmpty(t, created.SessionID)

	resp = g.do(t, token, http.MethodPut, "/api/v1/sessions/"+created.SessionID+"/container", model.SetContainerRequest{Container: "case"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return "/api/v1/sessions/" + created.SessionID
}

func itemNames(items []model.VirtualItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

func TestHealthAndAuth(t *testing.T) {
	g := newGateway(t)

	resp := g.do(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeData[map[string]string](t, resp)["status"])

	resp = g.do(t, "", http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apierror.CodeUnauthorized, decodeError(t, resp).Code)

	resp = g.do(t, "not-a-jwt", http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionBrowsing(t *testing.T) {
	g := newGateway(t, "photos/a.jpg", "photos/b.jpg", "mail/0001.eml", "notes.txt")
	token := signToken(t, "u1", "investigator")
	base := g.openSession(t, token)

	t.Run("root listing puts folders first", func(t *testing.T) {
		resp := g.do(t, token, http.MethodGet, base+"/view", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		view := decodeData[model.ViewData](t, resp)
		assert.Equal(t, "case", view.Container)
		assert.Equal(t, []string{"mail", "photos", "notes.txt"}, itemNames(view.Items))
		assert.Equal(t, 1, view.Pagination.Number)
		assert.False(t, view.Pagination.HasNext)
	})

	t.Run("folder with breadcrumbs and descending sort", func(t *testing.T) {
		resp := g.do(t, token, http.MethodPut, base+"/folder", model.SetFolderRequest{Folder: "photos"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = g.do(t, token, http.MethodPut, base+"/sort", model.SetSortRequest{Column: "name", Direction: "desc"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		view := decodeData[model.ViewData](t, resp)
		assert.Equal(t, []string{"b.jpg", "a.jpg"}, itemNames(view.Items))
		require.Len(t, view.Breadcrumbs, 2)
		assert.Equal(t, "photos/", view.Breadcrumbs[1].Path)
	})

	t.Run("no next page", func(t *testing.T) {
		resp := g.do(t, token, http.MethodPost, base+"/pages/next", nil)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "NO_NEXT_PAGE", decodeError(t, resp).Code)
	})

	t.Run("other users cannot use the session", func(t *testing.T) {
		resp := g.do(t, signToken(t, "u2", "investigator"), http.MethodGet, base+"/view", nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("denied container", func(t *testing.T) {
		resp := g.do(t, token, http.MethodPut, base+"/container", model.SetContainerRequest{Container: "sealed"})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "no access to container", decodeError(t, resp).Message)
	})

	t.Run("message preview", func(t *testing.T) {
		resp := g.do(t, token, http.MethodGet, base+"/preview?path=mail/0001.eml", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := decodeData[model.PreviewData](t, resp)
		assert.Equal(t, model.PreviewMessage, data.Kind)
		require.NotNil(t, data.Message)
		assert.Equal(t, "subject of mail/0001.eml", data.Message.Subject)
	})

	t.Run("close", func(t *testing.T) {
		resp := g.do(t, token, http.MethodDelete, base, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = g.do(t, token, http.MethodGet, base+"/view", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSelectionDeleteAndProperties(t *testing.T) {
	g := newGateway(t, "a.txt", "b.txt", "c.txt")
	token := signToken(t, "u1", "investigator")
	base := g.openSession(t, token)

	resp := g.do(t, token, http.MethodPost, base+"/selection/toggle", model.ToggleRequest{Path: "a.txt", Index: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = g.do(t, token, http.MethodPost, base+"/selection/toggle", model.ToggleRequest{Path: "c.txt", Index: 2, Shift: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt"}, decodeData[model.SelectionData](t, resp).Selected)

	resp = g.do(t, token, http.MethodPost, base+"/selection/toggle", model.ToggleRequest{Path: "b.txt", Index: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = g.do(t, token, http.MethodDelete, base+"/selection", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decodeData[model.DeleteResponse](t, resp)
	assert.ElementsMatch(t, []string{"a.txt", "c.txt"}, deleted.Deleted)
	assert.Empty(t, deleted.Failed)
	assert.False(t, g.svc.has("a.txt"))
	assert.True(t, g.svc.has("b.txt"))

	resp = g.do(t, token, http.MethodPost, base+"/properties/keys", model.MetadataKeyRequest{Path: "b.txt", Key: "Exhibit", Value: "A7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	props := decodeData[model.PropertiesData](t, resp)
	assert.True(t, props.Dirty)
	assert.Equal(t, []model.MetadataPair{{Key: "exhibit", Value: "A7"}}, props.Metadata)

	resp = g.do(t, token, http.MethodPost, base+"/properties/keys", model.MetadataKeyRequest{Path: "b.txt", Key: "exhibit", Value: "B"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = g.do(t, token, http.MethodPut, base+"/properties", model.SaveMetadataRequest{Path: "b.txt"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeData[model.PropertiesData](t, resp).Dirty)

	g.svc.mu.Lock()
	assert.Equal(t, map[string]string{"exhibit": "A7"}, g.svc.objects["b.txt"].Metadata)
	g.svc.mu.Unlock()
}

func TestUploadBatch(t *testing.T) {
	g := newGateway(t, "evidence/existing.jpg")
	token := signToken(t, "u1", "investigator")
	base := g.openSession(t, token)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("destination", "evidence"))
	part, err := form.CreateFormFile("files", "new.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg bytes"))
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, g.url+base+"/uploads", &body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	accepted := decodeData[model.UploadAccepted](t, resp)
	assert.Equal(t, 1, accepted.Tasks)

	require.Eventually(t, func() bool {
		resp := g.do(t, token, http.MethodGet, base+"/uploads/"+accepted.BatchID, nil)
		return resp.StatusCode == http.StatusOK && decodeData[model.UploadBatchView](t, resp).Done
	}, 2*time.Second, 20*time.Millisecond)

	assert.True(t, g.svc.has("evidence/new.jpg"))

	resp = g.do(t, token, http.MethodGet, base+"/uploads/unknown", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuditRoute(t *testing.T) {
	g := newGateway(t)

	resp := g.do(t, signToken(t, "u1", "investigator"), http.MethodGet, "/api/v1/audit?path=a.txt", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = g.do(t, signToken(t, "u2", "auditor"), http.MethodGet, "/api/v1/audit?path=a.txt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decodeData[model.AuditListData](t, resp).Items
	require.Len(t, items, 1)
	assert.Equal(t, "a.txt", items[0].Resource)
}
