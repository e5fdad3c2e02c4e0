package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"evidence-explorer/internal/model"
)

type promptKey struct {
	batchID string
	index   int
}

// Broker is a Confirmer for remote users. Each prompt is published and the
// engine waits until Resolve delivers the answer, the context ends or the
// timeout expires.
type Broker struct {
	publish func(model.ConflictPrompt)
	timeout time.Duration

	mu      sync.Mutex
	pending map[promptKey]chan bool
}

func NewBroker(publish func(model.ConflictPrompt), timeout time.Duration) *Broker {
	return &Broker{
		publish: publish,
		timeout: timeout,
		pending: make(map[promptKey]chan bool),
	}
}

func (b *Broker) ConfirmOverwrite(ctx context.Context, prompt model.ConflictPrompt) (bool, error) {
	key := promptKey{batchID: prompt.BatchID, index: prompt.TaskIndex}
	answer := make(chan bool, 1)

	b.mu.Lock()
	b.pending[key] = answer
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, key)
		b.mu.Unlock()
	}()

	if b.publish != nil {
		b.publish(prompt)
	}

	var expired <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case overwrite := <-answer:
		return overwrite, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-expired:
		return false, fmt.Errorf("no overwrite decision for %s within %s", prompt.Name, b.timeout)
	}
}

// Resolve answers a waiting prompt.
func (b *Broker) Resolve(batchID string, index int, overwrite bool) error {
	b.mu.Lock()
	answer, ok := b.pending[promptKey{batchID: batchID, index: index}]
	if ok {
		delete(b.pending, promptKey{batchID: batchID, index: index})
	}
	b.mu.Unlock()

	if !ok {
		return model.ErrPromptNotFound
	}

	answer <- overwrite
	return nil
}

// Waiting reports whether a prompt for the task is open.
func (b *Broker) Waiting(batchID string, index int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[promptKey{batchID: batchID, index: index}]
	return ok
}
