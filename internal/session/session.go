// Package session owns the folder-view state of one browser session: the
// active container and page, the derived listing, the selection, pending
// metadata edits and running upload batches.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"evidence-explorer/internal/backend"
	"evidence-explorer/internal/event"
	"evidence-explorer/internal/explorer"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/pagination"
	"evidence-explorer/internal/preview"
	"evidence-explorer/internal/properties"
	"evidence-explorer/internal/selection"
	"evidence-explorer/internal/upload"
	"evidence-explorer/internal/util"
)

const (
	ModeFlat = "flat"
	ModeTree = "tree"
)

// Backend is the subset of the evidence service a session calls.
type Backend interface {
	pagination.Lister
	upload.URLIssuer
	preview.Backend
	DeleteObject(ctx context.Context, container string, path string) error
	UpdateMetadata(ctx context.Context, container string, path string, metadata map[string]string) error
}

// AuditRecorder keeps the chain-of-custody trail of mutations.
type AuditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

type Deps struct {
	Backend           Backend
	Transport         upload.Transport
	Preview           *preview.Service
	Bus               event.Bus
	Audit             AuditRecorder
	DeleteConcurrency int
	PromptTimeout     time.Duration
}

// Session state is mutated under mu. Network calls run with mu released;
// their results are applied through the pagination callback, which discards
// superseded responses.
type Session struct {
	ID    string
	Actor model.AuditActor

	deps   Deps
	pager  *pagination.Controller
	broker *upload.Broker

	ctx      context.Context
	cancel   context.CancelFunc
	uploadMu sync.Mutex
	wg       sync.WaitGroup

	mu            sync.Mutex
	container     string
	entries       []model.RemoteEntry
	folder        string
	mode          string
	sort          model.SortSpec
	expanded      map[string]bool
	items         []model.VirtualItem
	selection     *selection.Tracker
	draft         *properties.Draft
	previewTarget string
	batches       map[string]*upload.Batch
	lastSeen      time.Time
}

func newSession(id string, actor model.AuditActor, deps Deps) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		ID:        id,
		Actor:     actor,
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		mode:      ModeFlat,
		sort:      explorer.NormalizeSort(model.SortSpec{}),
		expanded:  make(map[string]bool),
		selection: selection.NewTracker(),
		batches:   make(map[string]*upload.Batch),
		lastSeen:  timeNow(),
	}

	s.pager = pagination.NewController(deps.Backend)
	s.pager.OnChange(s.onPage)
	s.broker = upload.NewBroker(func(prompt model.ConflictPrompt) {
		s.publish(event.TypeUploadConflict, prompt)
	}, deps.PromptTimeout)

	return s
}

// onPage replaces the raw entries after every successful list call. A new
// container resets the folder; every page change clears the selection.
func (s *Session) onPage(page model.Page) {
	s.mu.Lock()
	if page.Container != s.container {
		s.container = page.Container
		s.folder = ""
		s.expanded = make(map[string]bool)
		s.draft = nil
		s.previewTarget = ""
	}
	s.entries = page.Items
	s.rebuildLocked()
	s.selection.Reset(s.visibleLocked())
	s.mu.Unlock()

	s.publish(event.TypeListingRefreshed, page)
}

func (s *Session) rebuildLocked() {
	s.items = explorer.BuildListing(s.entries, s.folder, s.sort)
}

// visibleLocked returns the paths of the file rows the active mode displays.
func (s *Session) visibleLocked() []string {
	if s.mode == ModeTree {
		return explorer.VisibleTreeFiles(explorer.BuildTree(s.entries, s.sort, s.expanded))
	}

	return explorer.VisibleFiles(s.items)
}

// setModeLocked switches the displayed view. Switching clears the selection
// since the two views show different rows.
func (s *Session) setModeLocked(mode string) {
	if mode != ModeTree {
		mode = ModeFlat
	}
	if mode == s.mode {
		return
	}

	s.mode = mode
	s.selection.Reset(s.visibleLocked())
}

func (s *Session) currentView() model.ViewData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(s.mode)
}

func (s *Session) SetContainer(ctx context.Context, container string) (model.ViewData, error) {
	if _, err := s.pager.LoadFirstPage(ctx, container); err != nil {
		return model.ViewData{}, err
	}

	return s.currentView(), nil
}

func (s *Session) NextPage(ctx context.Context) (model.ViewData, error) {
	if _, err := s.pager.Next(ctx); err != nil {
		return model.ViewData{}, err
	}

	return s.currentView(), nil
}

func (s *Session) PreviousPage(ctx context.Context) (model.ViewData, error) {
	if _, err := s.pager.Previous(ctx); err != nil {
		return model.ViewData{}, err
	}

	return s.currentView(), nil
}

func (s *Session) Refresh(ctx context.Context) (model.ViewData, error) {
	if _, err := s.pager.Refresh(ctx); err != nil {
		return model.ViewData{}, err
	}

	return s.currentView(), nil
}

// SetFolder navigates within the loaded page.
func (s *Session) SetFolder(folder string) (model.ViewData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.container == "" {
		return model.ViewData{}, model.ErrNoContainer
	}

	s.folder = explorer.NormalizeFolder(folder)
	s.rebuildLocked()
	s.mode = ModeFlat
	s.selection.Reset(s.visibleLocked())

	return s.viewLocked(ModeFlat), nil
}

// SetSort re-sorts the displayed view; checked rows that remain visible stay
// checked.
func (s *Session) SetSort(spec model.SortSpec) model.ViewData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sort = explorer.NormalizeSort(spec)
	s.rebuildLocked()
	s.selection.Reorder(s.visibleLocked())

	return s.viewLocked(s.mode)
}

// SetExpanded opens or closes a tree folder and switches to the tree view.
// Checked files hidden by a collapse are unchecked.
func (s *Session) SetExpanded(id string, expanded bool) model.ViewData {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expanded {
		s.expanded[id] = true
	} else {
		delete(s.expanded, id)
	}

	if s.mode == ModeTree {
		s.selection.Reorder(s.visibleLocked())
	} else {
		s.setModeLocked(ModeTree)
	}

	return s.viewLocked(ModeTree)
}

// View renders mode and makes it the view selection ranges over.
func (s *Session) View(mode string) model.ViewData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setModeLocked(mode)
	return s.viewLocked(s.mode)
}

func (s *Session) viewLocked(mode string) model.ViewData {
	data := model.ViewData{
		Container:   s.container,
		Folder:      s.folder,
		Mode:        ModeFlat,
		Pagination:  s.pager.Page(),
		Breadcrumbs: explorer.Breadcrumbs(s.container, s.folder),
		Sort:        s.sort,
		Selected:    s.selection.Selected(),
	}

	if mode == ModeTree {
		data.Mode = ModeTree
		data.Rows = explorer.BuildTree(s.entries, s.sort, s.expanded)
		return data
	}

	data.Items = s.items
	return data
}

func (s *Session) Toggle(path string, index int, shift bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.selection.Toggle(path, index, shift); err != nil {
		return nil, err
	}

	return s.selection.Selected(), nil
}

func (s *Session) SelectAll(checked bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection.SelectAll(checked)
	return s.selection.Selected()
}

func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Selected()
}

// Properties opens the metadata editor on path, keeping a pending draft of
// the same path.
func (s *Session) Properties(path string) (model.PropertiesData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.draftLocked(path)
	if err != nil {
		return model.PropertiesData{}, err
	}

	return draft.View(), nil
}

func (s *Session) AddMetadataKey(path string, key string, value string) (model.PropertiesData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.draftLocked(path)
	if err != nil {
		return model.PropertiesData{}, err
	}
	if err := draft.Add(key, value); err != nil {
		return model.PropertiesData{}, err
	}

	return draft.View(), nil
}

// SaveProperties submits the draft of req.Path, or req.Metadata when given,
// and refreshes the listing. A failed save keeps the draft.
func (s *Session) SaveProperties(ctx context.Context, req model.SaveMetadataRequest) (model.PropertiesData, error) {
	s.mu.Lock()
	container := s.container
	draft, err := s.draftLocked(req.Path)
	if err != nil {
		s.mu.Unlock()
		return model.PropertiesData{}, err
	}

	metadata := draft.Metadata()
	if req.Metadata != nil {
		metadata, err = properties.ValidatePairs(req.Metadata)
		if err != nil {
			s.mu.Unlock()
			return model.PropertiesData{}, err
		}
	}
	checksum := draft.View().Checksum
	s.mu.Unlock()

	err = s.deps.Backend.UpdateMetadata(ctx, container, req.Path, metadata)
	s.audit("metadata.update", container, req.Path, map[string]any{"keys": len(metadata)}, err)
	if err != nil {
		return model.PropertiesData{}, err
	}

	s.mu.Lock()
	s.draft = properties.NewDraft(model.RemoteEntry{Name: req.Path, Checksum: checksum, Metadata: metadata})
	view := s.draft.View()
	s.mu.Unlock()

	s.publish(event.TypeMetadataUpdated, map[string]string{"path": req.Path})
	s.refreshAfterMutation(ctx, container)

	return view, nil
}

func (s *Session) draftLocked(path string) (*properties.Draft, error) {
	if s.container == "" {
		return nil, model.ErrNoContainer
	}
	if s.draft != nil && s.draft.Path() == path {
		return s.draft, nil
	}

	for i := range s.entries {
		if s.entries[i].Name == path {
			s.draft = properties.NewDraft(s.entries[i])
			return s.draft, nil
		}
	}

	return nil, model.ErrEntryNotFound
}

// Preview describes path. If another preview was requested while this one
// was in flight, the result is dropped with ErrSuperseded.
func (s *Session) Preview(ctx context.Context, path string) (model.PreviewData, error) {
	path, err := util.ValidateBlobPath(path)
	if err != nil {
		return model.PreviewData{}, err
	}

	s.mu.Lock()
	container := s.container
	s.previewTarget = path
	s.mu.Unlock()

	if container == "" {
		return model.PreviewData{}, model.ErrNoContainer
	}

	data, err := s.deps.Preview.Describe(ctx, container, path)

	s.mu.Lock()
	active := s.previewTarget == path && s.container == container
	s.mu.Unlock()

	if !active {
		return model.PreviewData{}, model.ErrSuperseded
	}
	if err != nil {
		return model.PreviewData{}, err
	}

	if preview.Thumbnailable(path) {
		data.ThumbnailURL = fmt.Sprintf("/api/v1/sessions/%s/preview/thumbnail?path=%s", url.PathEscape(s.ID), url.QueryEscape(path))
	}

	return data, nil
}

func (s *Session) Thumbnail(ctx context.Context, path string, size int, w io.Writer) error {
	path, err := util.ValidateBlobPath(path)
	if err != nil {
		return err
	}

	container := s.pager.Container()
	if container == "" {
		return model.ErrNoContainer
	}

	return s.deps.Preview.Thumbnail(ctx, container, path, size, w)
}

// refreshAfterMutation reloads the current page if container is still the
// active one. Failures only affect the listing, never the mutation result.
func (s *Session) refreshAfterMutation(ctx context.Context, container string) {
	if s.pager.Container() != container {
		return
	}

	if _, err := s.pager.Refresh(ctx); err != nil && !errors.Is(err, model.ErrSuperseded) {
		slog.Warn("listing refresh after mutation failed", "session_id", s.ID, "container", container, "error", err)
	}
}

func (s *Session) publish(t event.Type, payload interface{}) {
	if s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(event.New(t, s.ID, payload))
}

func (s *Session) audit(action string, container string, resource string, detail any, err error) {
	entry := s.auditEntry(action, container, resource, detail)
	if err != nil {
		entry.Status = "failed"
		entry.Error = err.Error()
	}

	s.recordAudit(entry)
}

func (s *Session) auditEntry(action string, container string, resource string, detail any) model.AuditEntry {
	return model.AuditEntry{
		Action:     action,
		SessionID:  s.ID,
		OccurredAt: timeNow().UTC().Format(time.RFC3339),
		Actor:      s.Actor,
		Status:     "success",
		Container:  container,
		Resource:   resource,
		Detail:     detail,
	}
}

func (s *Session) recordAudit(entry model.AuditEntry) {
	if s.deps.Audit == nil {
		return
	}

	s.deps.Audit.Record(s.ctx, entry)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close cancels running uploads and open prompts, then tells the session's
// sockets to go away.
func (s *Session) Close() {
	s.cancel()
	s.publish(event.TypeSessionClosed, nil)
}

// Wait blocks until background upload batches have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// tokenContext moves the bearer token of ctx onto parent.
func tokenContext(parent context.Context, ctx context.Context) context.Context {
	return backend.ContextWithToken(parent, backend.TokenFromContext(ctx))
}
