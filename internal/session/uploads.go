package session

import (
	"context"

	"github.com/google/uuid"

	"evidence-explorer/internal/event"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/upload"
)

type taskProgress struct {
	BatchID string               `json:"batch_id"`
	Task    model.UploadTaskView `json:"task"`
}

type batchCompleted struct {
	BatchID   string              `json:"batch_id"`
	Container string              `json:"container"`
	Summary   model.UploadSummary `json:"summary"`
}

// StartUpload queues sources for upload into destination of the active
// container and runs the batch in the background. Batches of one session run
// one after another so that overwrite prompts never interleave.
func (s *Session) StartUpload(ctx context.Context, destination string, sources []upload.Source) (model.UploadAccepted, error) {
	container := s.pager.Container()
	if container == "" {
		return model.UploadAccepted{}, model.ErrNoContainer
	}
	if len(sources) == 0 {
		return model.UploadAccepted{}, model.ErrInvalidInput
	}

	batch, err := upload.NewBatch(uuid.NewString(), container, destination, sources)
	if err != nil {
		return model.UploadAccepted{}, err
	}

	s.mu.Lock()
	s.batches[batch.ID] = batch
	s.mu.Unlock()

	runCtx := tokenContext(s.ctx, ctx)
	engine := upload.NewEngine(s.deps.Backend, s.deps.Transport, s.broker, upload.Hooks{
		OnTaskChange: s.onTaskChange,
		OnComplete: func(batch *upload.Batch, summary model.UploadSummary) {
			s.publish(event.TypeUploadCompleted, batchCompleted{BatchID: batch.ID, Container: batch.Container, Summary: summary})
			s.refreshAfterMutation(runCtx, batch.Container)
		},
	})

	s.wg.Go(func() {
		s.uploadMu.Lock()
		defer s.uploadMu.Unlock()
		engine.Run(runCtx, batch)
	})

	return model.UploadAccepted{BatchID: batch.ID, Tasks: batch.Len()}, nil
}

func (s *Session) onTaskChange(batch *upload.Batch, task model.UploadTaskView) {
	s.touch(timeNow())
	s.publish(event.TypeUploadProgress, taskProgress{BatchID: batch.ID, Task: task})

	if !task.Status.Terminal() {
		return
	}

	entry := s.auditEntry("upload", batch.Container, task.Destination, map[string]any{
		"batch_id":  batch.ID,
		"overwrite": task.Overwrite,
		"attempts":  task.Attempts,
	})
	entry.Status = string(task.Status)
	entry.Error = task.ErrorMessage
	s.recordAudit(entry)
}

// ResolveConflict answers the overwrite prompt of one task.
func (s *Session) ResolveConflict(batchID string, taskIndex int, overwrite bool) error {
	s.mu.Lock()
	_, ok := s.batches[batchID]
	s.mu.Unlock()

	if !ok {
		return model.ErrBatchNotFound
	}

	return s.broker.Resolve(batchID, taskIndex, overwrite)
}

func (s *Session) Batch(batchID string) (model.UploadBatchView, error) {
	s.mu.Lock()
	batch, ok := s.batches[batchID]
	s.mu.Unlock()

	if !ok {
		return model.UploadBatchView{}, model.ErrBatchNotFound
	}

	return batch.View(), nil
}
