package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"evidence-explorer/internal/model"
)

const (
	overwriteAsk    = "ask"
	overwriteAlways = "always"
	overwriteNever  = "never"
)

var errNotInteractive = errors.New("cannot ask for confirmation without a terminal; use --overwrite always|never")

func parseOverwritePolicy(raw string) (string, error) {
	switch raw {
	case overwriteAsk, overwriteAlways, overwriteNever:
		return raw, nil
	default:
		return "", fmt.Errorf("--overwrite must be ask, always or never, got %q", raw)
	}
}

// promptConfirmer answers overwrite prompts from the upload engine according
// to the --overwrite policy, asking on the terminal in ask mode.
type promptConfirmer struct {
	policy      string
	interactive bool
	stdin       io.ReadCloser
	stdout      io.WriteCloser

	// beforePrompt runs ahead of every terminal question, so a progress bar
	// can clear its line.
	beforePrompt func()
}

func (c *promptConfirmer) ConfirmOverwrite(ctx context.Context, prompt model.ConflictPrompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	switch c.policy {
	case overwriteAlways:
		return true, nil
	case overwriteNever:
		return false, nil
	}

	if !c.interactive {
		return false, errNotInteractive
	}
	if c.beforePrompt != nil {
		c.beforePrompt()
	}

	return confirm(fmt.Sprintf("%s already exists. Overwrite", prompt.Name), c.stdin, c.stdout)
}

// confirm asks a yes/no question. Answering no is not an error; Ctrl+C is.
func confirm(label string, stdin io.ReadCloser, stdout io.WriteCloser) (bool, error) {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     stdin,
		Stdout:    stdout,
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
