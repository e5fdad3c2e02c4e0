package upload

import (
	"errors"
	"sync"

	"evidence-explorer/internal/explorer"
	"evidence-explorer/internal/model"
	"evidence-explorer/internal/util"
)

// Batch is the queue of one upload request. Tasks run in queue order; once
// the batch completes the queue is cleared and only the summary remains.
type Batch struct {
	ID          string
	Container   string
	Destination string

	mu      sync.RWMutex
	tasks   []*Task
	summary *model.UploadSummary
}

// NewBatch queues sources for upload into destination. Every file name is
// cleaned into a single path segment before it is joined to the destination.
func NewBatch(id string, container string, destination string, sources []Source) (*Batch, error) {
	folder := explorer.NormalizeFolder(destination)
	batch := &Batch{ID: id, Container: container, Destination: folder}

	var errs []error
	for _, src := range sources {
		name, err := util.CleanUploadName(src.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		batch.tasks = append(batch.tasks, newTask(len(batch.tasks), name, explorer.JoinPath(folder, name), src))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return batch, nil
}

// Len is the number of queued tasks; zero once the batch is done.
func (b *Batch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

func (b *Batch) Done() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary != nil
}

// Summary is nil until the batch completes.
func (b *Batch) Summary() *model.UploadSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary
}

func (b *Batch) View() model.UploadBatchView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	view := model.UploadBatchView{
		ID:          b.ID,
		Container:   b.Container,
		Destination: b.Destination,
		Done:        b.summary != nil,
		Summary:     b.summary,
	}

	if b.summary != nil {
		view.Tasks = b.summary.Tasks
		return view
	}

	view.Tasks = make([]model.UploadTaskView, 0, len(b.tasks))
	for _, task := range b.tasks {
		view.Tasks = append(view.Tasks, task.View())
	}
	return view
}

// apply runs a transition on task i under the batch lock and returns the
// resulting view.
func (b *Batch) apply(i int, transition func(*Task) error) (model.UploadTaskView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	task := b.tasks[i]
	err := transition(task)
	return task.View(), err
}

func (b *Batch) task(i int) *Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tasks[i]
}

// complete records the summary and clears the queue.
func (b *Batch) complete() model.UploadSummary {
	b.mu.Lock()
	defer b.mu.Unlock()

	summary := model.UploadSummary{Tasks: make([]model.UploadTaskView, 0, len(b.tasks))}
	for _, task := range b.tasks {
		switch task.Status {
		case model.UploadSuccess:
			summary.Succeeded++
		case model.UploadSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Tasks = append(summary.Tasks, task.View())
	}

	b.tasks = nil
	b.summary = &summary
	return summary
}
