package agent

import (
	"context"

	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

// SendConnection issues a connection request to a profile. The "add a note"
// control is optional on the target page: failing to find it skips the note
// rather than failing the request. All paths produce a terminal result.
func (a *Agent) SendConnection(ctx context.Context, profileURL, note string) protocol.SendConnectionResult {
	fail := func(err error) protocol.SendConnectionResult {
		return protocol.SendConnectionResult{ProfileURL: profileURL, Success: false, Error: err.Error()}
	}

	if err := a.Page.Navigate(ctx, profileURL); err != nil {
		return fail(err)
	}

	if _, err := page.WaitForElement(ctx, a.Page, a.Selectors.ConnectButton, a.Waits.Input); err != nil {
		return fail(err)
	}
	if err := a.Page.Click(ctx, a.Selectors.ConnectButton); err != nil {
		return fail(err)
	}

	if note != "" {
		if _, err := page.WaitForElement(ctx, a.Page, a.Selectors.AddNoteButton, a.Waits.Note); err == nil {
			if err := a.Page.Click(ctx, a.Selectors.AddNoteButton); err != nil {
				return fail(err)
			}
			if _, err := page.WaitForElement(ctx, a.Page, a.Selectors.NoteInput, a.Waits.Click); err != nil {
				return fail(err)
			}
			if err := a.Page.Focus(ctx, a.Selectors.NoteInput); err != nil {
				return fail(err)
			}
			if err := a.typeText(ctx, a.Selectors.NoteInput, note); err != nil {
				return fail(err)
			}
		}
		// No note control within the window: proceed without one.
	}

	if _, err := page.WaitForElement(ctx, a.Page, a.Selectors.ConfirmButton, a.Waits.Click); err != nil {
		return fail(err)
	}
	if err := a.Page.Click(ctx, a.Selectors.ConfirmButton); err != nil {
		return fail(err)
	}

	return protocol.SendConnectionResult{ProfileURL: profileURL, Success: true}
}
