package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/appneural-ajith/ai-email-assistant/internal/reply"
	"github.com/appneural-ajith/ai-email-assistant/internal/view"
)

// Confirmer shows a draft and asks whether to send it.
type Confirmer struct {
	Out io.Writer
}

// Confirm prints the draft and prompts. Aborting the prompt declines.
func (c Confirmer) Confirm(ctx context.Context, d *reply.Draft) (bool, error) {
	fmt.Fprintln(c.Out, view.Draft(d))

	send := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Send reply to %s?", d.To)).
				Affirmative("Send").
				Negative("Discard").
				Value(&send),
		),
	).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	return send, nil
}
