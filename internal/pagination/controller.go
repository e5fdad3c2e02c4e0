// Package pagination walks the server-paginated object listing of a container
// with a stack of continuation tokens.
package pagination

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"evidence-explorer/internal/model"
)

// Lister is the backend list call. An empty token requests the first page.
type Lister interface {
	List(ctx context.Context, container string, token string) (model.ListResult, error)
}

// Controller owns the pagination state of one container view. The token
// stack always holds one entry per page up to the current one, the first
// being "" for page 1. Every list call is tagged with a generation so that a
// response arriving after a newer request started is discarded.
type Controller struct {
	lister Lister

	mu         sync.Mutex
	container  string
	stack      []string
	nextToken  string
	items      []model.RemoteEntry
	generation uint64

	onChange func(model.Page)
}

func NewController(lister Lister) *Controller {
	return &Controller{lister: lister, stack: []string{""}}
}

// OnChange registers a callback invoked after every successful page load.
func (c *Controller) OnChange(fn func(model.Page)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// LoadFirstPage switches to container and loads its first page.
func (c *Controller) LoadFirstPage(ctx context.Context, container string) (model.Page, error) {
	container = strings.TrimSpace(container)
	if container == "" {
		return model.Page{}, model.ErrNoContainer
	}

	c.mu.Lock()
	generation := c.beginLocked()
	c.mu.Unlock()

	return c.load(ctx, generation, container, "", true, func(result model.ListResult) bool {
		c.container = container
		c.stack = []string{""}
		c.nextToken = result.NextToken()
		return true
	})
}

// Next loads the page after the current one. It makes no call and returns
// ErrNoNextPage when the last response carried no continuation token.
func (c *Controller) Next(ctx context.Context) (model.Page, error) {
	c.mu.Lock()
	container, token := c.container, c.nextToken
	if container == "" {
		c.mu.Unlock()
		return model.Page{}, model.ErrNoContainer
	}
	if token == "" {
		c.mu.Unlock()
		return model.Page{}, model.ErrNoNextPage
	}
	generation := c.beginLocked()
	c.mu.Unlock()

	return c.load(ctx, generation, container, token, false, func(result model.ListResult) bool {
		c.stack = append(c.stack, token)
		c.nextToken = result.NextToken()
		return true
	})
}

// Previous reloads the page before the current one. It makes no call and
// returns ErrNoPreviousPage on page 1.
func (c *Controller) Previous(ctx context.Context) (model.Page, error) {
	c.mu.Lock()
	container := c.container
	depth := len(c.stack)
	if container == "" {
		c.mu.Unlock()
		return model.Page{}, model.ErrNoContainer
	}
	if depth <= 1 {
		c.mu.Unlock()
		return model.Page{}, model.ErrNoPreviousPage
	}
	token := c.stack[depth-2]
	generation := c.beginLocked()
	c.mu.Unlock()

	return c.load(ctx, generation, container, token, false, func(result model.ListResult) bool {
		if len(c.stack) != depth {
			return false
		}
		c.stack = c.stack[:depth-1]
		c.nextToken = result.NextToken()
		return true
	})
}

// Refresh re-issues the list call for the current page. The result is
// dropped with ErrSuperseded if the page changed while the call was out.
func (c *Controller) Refresh(ctx context.Context) (model.Page, error) {
	c.mu.Lock()
	container := c.container
	depth := len(c.stack)
	token := c.stack[depth-1]
	if container == "" {
		c.mu.Unlock()
		return model.Page{}, model.ErrNoContainer
	}
	generation := c.beginLocked()
	c.mu.Unlock()

	return c.load(ctx, generation, container, token, false, func(result model.ListResult) bool {
		if len(c.stack) != depth {
			return false
		}
		c.nextToken = result.NextToken()
		return true
	})
}

// Page returns a snapshot of the current page.
func (c *Controller) Page() model.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Container() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.container
}

func (c *Controller) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextToken != ""
}

func (c *Controller) CanPrevious() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack) > 1
}

// beginLocked tags a request. It runs in the same critical section that
// captures the request's token so no commit can slip in between.
func (c *Controller) beginLocked() uint64 {
	c.generation++
	return c.generation
}

// load issues one list call with the lock released and applies commit only if
// no newer request started meanwhile and, unless switching, the active
// container is still the one captured at request time. commit reports false
// when the stack moved since the token was captured. A failed call leaves
// state untouched.
func (c *Controller) load(ctx context.Context, generation uint64, container string, token string, switching bool, commit func(model.ListResult) bool) (model.Page, error) {
	result, err := c.lister.List(ctx, container, token)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		slog.Debug("discarding superseded listing", "container", container, "generation", generation)
		return model.Page{}, model.ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		return model.Page{}, fmt.Errorf("list %s: %w", container, err)
	}
	if !switching && c.container != container {
		c.mu.Unlock()
		return model.Page{}, model.ErrSuperseded
	}

	if !commit(result) {
		c.mu.Unlock()
		slog.Debug("discarding listing for a moved page", "container", container, "generation", generation)
		return model.Page{}, model.ErrSuperseded
	}
	c.items = result.Items
	page := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(page)
	}

	return page, nil
}

func (c *Controller) snapshotLocked() model.Page {
	items := make([]model.RemoteEntry, len(c.items))
	copy(items, c.items)

	return model.Page{
		Container:   c.container,
		Number:      len(c.stack),
		Items:       items,
		HasNext:     c.nextToken != "",
		HasPrevious: len(c.stack) > 1,
	}
}
