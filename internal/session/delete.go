package session

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"evidence-explorer/internal/event"
	"evidence-explorer/internal/model"
	"evidence-explorer/pkg/apierror"
)

// DeleteSelected deletes every checked file concurrently, waits for all calls
// to settle, then refreshes the listing. Failures are reported per path and
// do not stop the other deletes.
func (s *Session) DeleteSelected(ctx context.Context) (model.DeleteResponse, error) {
	s.mu.Lock()
	container := s.container
	paths := s.selection.Selected()
	s.mu.Unlock()

	if container == "" {
		return model.DeleteResponse{}, model.ErrNoContainer
	}
	if len(paths) == 0 {
		return model.DeleteResponse{}, model.ErrInvalidInput
	}

	results := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(max(s.deps.DeleteConcurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = s.deps.Backend.DeleteObject(ctx, container, path)
			return nil
		})
	}
	_ = g.Wait()

	resp := model.DeleteResponse{Deleted: []string{}, Failed: []model.DeleteFailure{}}
	for i, path := range paths {
		err := results[i]
		s.audit("delete", container, path, nil, err)

		if err != nil {
			resp.Failed = append(resp.Failed, model.DeleteFailure{Path: path, Reason: apierror.Message(err)})
			continue
		}
		resp.Deleted = append(resp.Deleted, path)
	}

	if len(resp.Failed) > 0 {
		slog.Warn("bulk delete finished with failures",
			"session_id", s.ID,
			"container", container,
			"deleted", len(resp.Deleted),
			"failed", len(resp.Failed),
		)
	}

	s.publish(event.TypeObjectsDeleted, resp)
	s.refreshAfterMutation(ctx, container)

	return resp, nil
}
