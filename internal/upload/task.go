// Package upload runs multi-file uploads against the blob store, resolving
// name conflicts one file at a time through an overwrite prompt.
package upload

import (
	"errors"
	"fmt"

	"evidence-explorer/internal/model"
)

var ErrInvalidTransition = errors.New("invalid upload task transition")

// Outcome is the result of one upload attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeConflict
	OutcomeError
)

// Task is one local file of a batch. Its status only changes through the
// transition methods below:
//
//	pending -> uploading -> success | conflict | error
//	conflict -> pending (overwrite confirmed) | skipped (declined)
type Task struct {
	Index        int
	Name         string
	Destination  string
	Source       Source
	Overwrite    bool
	Status       model.UploadStatus
	ErrorMessage string
	Attempts     int
}

func newTask(index int, name string, destination string, src Source) *Task {
	return &Task{
		Index:       index,
		Name:        name,
		Destination: destination,
		Source:      src,
		Status:      model.UploadPending,
	}
}

// Start marks a pending task as uploading and counts the attempt.
func (t *Task) Start() error {
	if t.Status != model.UploadPending {
		return t.invalid("start")
	}

	t.Status = model.UploadUploading
	t.ErrorMessage = ""
	t.Attempts++
	return nil
}

// Resolve records the outcome of the running attempt.
func (t *Task) Resolve(outcome Outcome, message string) error {
	if t.Status != model.UploadUploading {
		return t.invalid("resolve")
	}

	switch outcome {
	case OutcomeSuccess:
		t.Status = model.UploadSuccess
	case OutcomeConflict:
		t.Status = model.UploadConflict
	default:
		t.Status = model.UploadError
	}
	t.ErrorMessage = message
	return nil
}

// Confirm answers the overwrite prompt of a conflicting task. Confirming
// sends the task back to pending with overwrite set so the same task is
// retried; declining skips it.
func (t *Task) Confirm(overwrite bool) error {
	if t.Status != model.UploadConflict {
		return t.invalid("confirm")
	}

	if overwrite {
		t.Overwrite = true
		t.Status = model.UploadPending
		t.ErrorMessage = ""
		return nil
	}

	t.Status = model.UploadSkipped
	return nil
}

// Fail moves any non-terminal task to error.
func (t *Task) Fail(message string) error {
	if t.Status.Terminal() {
		return t.invalid("fail")
	}

	t.Status = model.UploadError
	t.ErrorMessage = message
	return nil
}

func (t *Task) View() model.UploadTaskView {
	return model.UploadTaskView{
		Index:        t.Index,
		Name:         t.Name,
		Destination:  t.Destination,
		Overwrite:    t.Overwrite,
		Status:       t.Status,
		ErrorMessage: t.ErrorMessage,
		Attempts:     t.Attempts,
	}
}

func (t *Task) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, t.Status)
}
