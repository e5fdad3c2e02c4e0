package upload

import (
	"context"
	"errors"
	"log/slog"

	"evidence-explorer/internal/model"
	"evidence-explorer/pkg/apierror"
)

var errNoUploadURL = errors.New("backend issued no upload URL")

// URLIssuer hands out write SAS URLs for a container.
type URLIssuer interface {
	GenerateUploadURL(ctx context.Context, container string) ([]model.SasUploadInfo, error)
}

// Transport writes one file through a SAS URL. It returns an error with code
// apierror.CodeConflict when the blob exists and overwrite is false.
type Transport interface {
	Upload(ctx context.Context, sas model.SasUploadInfo, src Source, destination string, overwrite bool) error
}

// Confirmer asks the user whether a conflicting file may be overwritten.
type Confirmer interface {
	ConfirmOverwrite(ctx context.Context, prompt model.ConflictPrompt) (bool, error)
}

// Hooks observe a running batch. Both are optional.
type Hooks struct {
	OnTaskChange func(batch *Batch, task model.UploadTaskView)
	OnComplete   func(batch *Batch, summary model.UploadSummary)
}

type Engine struct {
	issuer    URLIssuer
	transport Transport
	confirmer Confirmer
	hooks     Hooks
}

func NewEngine(issuer URLIssuer, transport Transport, confirmer Confirmer, hooks Hooks) *Engine {
	return &Engine{issuer: issuer, transport: transport, confirmer: confirmer, hooks: hooks}
}

// Run uploads the batch strictly in queue order. A conflict prompt for one
// task is answered before the next task starts, and a failed task never stops
// the rest of the batch. When the queue is exhausted the summary is recorded,
// the queue cleared and OnComplete invoked.
func (e *Engine) Run(ctx context.Context, batch *Batch) model.UploadSummary {
	count := batch.Len()

	if count > 0 {
		sas, err := e.uploadURL(ctx, batch.Container)
		if err != nil {
			slog.Error("failed to obtain upload URL", "batch_id", batch.ID, "container", batch.Container, "error", err)
			for i := 0; i < count; i++ {
				e.transition(batch, i, func(t *Task) error { return t.Fail(apierror.Message(err)) })
			}
		} else {
			for i := 0; i < count; i++ {
				e.process(ctx, batch, i, sas)
			}
		}
	}

	summary := batch.complete()
	slog.Info("upload batch completed",
		"batch_id", batch.ID,
		"container", batch.Container,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(batch, summary)
	}

	return summary
}

func (e *Engine) uploadURL(ctx context.Context, container string) (model.SasUploadInfo, error) {
	infos, err := e.issuer.GenerateUploadURL(ctx, container)
	if err != nil {
		return model.SasUploadInfo{}, err
	}
	if len(infos) == 0 || infos[0].SasURL == "" {
		return model.SasUploadInfo{}, errNoUploadURL
	}

	return infos[0], nil
}

// process drives one task until it reaches a terminal status. A confirmed
// overwrite loops back to the same task; a conflict reported while overwrite
// is already set is recorded as an error so the user is prompted at most once.
func (e *Engine) process(ctx context.Context, batch *Batch, i int, sas model.SasUploadInfo) {
	task := batch.task(i)

	for {
		if err := ctx.Err(); err != nil {
			e.transition(batch, i, func(t *Task) error { return t.Fail("upload cancelled") })
			return
		}

		view, ok := e.transition(batch, i, (*Task).Start)
		if !ok {
			return
		}

		err := e.transport.Upload(ctx, sas, task.Source, view.Destination, view.Overwrite)
		switch {
		case err == nil:
			e.transition(batch, i, func(t *Task) error { return t.Resolve(OutcomeSuccess, "") })
			return

		case apierror.HasCode(err, apierror.CodeConflict) && !view.Overwrite:
			message := apierror.Message(err)
			e.transition(batch, i, func(t *Task) error { return t.Resolve(OutcomeConflict, message) })

			confirmed, cerr := e.confirmer.ConfirmOverwrite(ctx, model.ConflictPrompt{
				BatchID:   batch.ID,
				TaskIndex: i,
				Name:      view.Name,
				Message:   message,
			})
			if cerr != nil {
				slog.Warn("overwrite prompt failed", "batch_id", batch.ID, "name", view.Name, "error", cerr)
				e.transition(batch, i, func(t *Task) error { return t.Fail(apierror.Message(cerr)) })
				return
			}

			e.transition(batch, i, func(t *Task) error { return t.Confirm(confirmed) })
			if !confirmed {
				return
			}

		default:
			slog.Warn("upload failed", "batch_id", batch.ID, "destination", view.Destination, "error", err)
			e.transition(batch, i, func(t *Task) error { return t.Resolve(OutcomeError, apierror.Message(err)) })
			return
		}
	}
}

func (e *Engine) transition(batch *Batch, i int, fn func(*Task) error) (model.UploadTaskView, bool) {
	view, err := batch.apply(i, fn)
	if err != nil {
		slog.Error("upload task transition rejected", "batch_id", batch.ID, "task", i, "error", err)
		return view, false
	}

	if e.hooks.OnTaskChange != nil {
		e.hooks.OnTaskChange(batch, view)
	}

	return view, true
}
