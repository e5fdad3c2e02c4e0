package upload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/model"
)

func TestBroker(t *testing.T) {
	t.Parallel()

	prompt := model.ConflictPrompt{BatchID: "b1", TaskIndex: 2, Name: "a.pdf", Message: "exists"}

	t.Run("publishes and waits for the answer", func(t *testing.T) {
		published := make(chan model.ConflictPrompt, 1)
		broker := NewBroker(func(p model.ConflictPrompt) { published <- p }, time.Second)

		go func() {
			p := <-published
			assert.NoError(t, broker.Resolve(p.BatchID, p.TaskIndex, true))
		}()

		overwrite, err := broker.ConfirmOverwrite(context.Background(), prompt)
		require.NoError(t, err)
		require.True(t, overwrite)
		require.False(t, broker.Waiting("b1", 2))
	})

	t.Run("unknown prompt cannot be resolved", func(t *testing.T) {
		broker := NewBroker(nil, time.Second)

		require.ErrorIs(t, broker.Resolve("b1", 0, true), model.ErrPromptNotFound)
	})

	t.Run("timeout is an error", func(t *testing.T) {
		broker := NewBroker(nil, 10*time.Millisecond)

		_, err := broker.ConfirmOverwrite(context.Background(), prompt)
		require.Error(t, err)
	})

	t.Run("context cancellation ends the wait", func(t *testing.T) {
		broker := NewBroker(nil, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := broker.ConfirmOverwrite(ctx, prompt)
		require.ErrorIs(t, err, context.Canceled)
	})
}
