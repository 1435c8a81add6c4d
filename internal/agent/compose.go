package agent

import (
	"context"
	"strings"
	"time"

	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

// SendMessage runs the staged reply workflow for one conversation: navigate
// to the thread, wait for the input, focus it, type with human cadence, then
// click send. Any stage failure becomes a terminal Success=false result;
// the caller always hears back, never hangs.
func (a *Agent) SendMessage(ctx context.Context, conversationID, text string) protocol.SendMessageResult {
	fail := func(err error) protocol.SendMessageResult {
		return protocol.SendMessageResult{ConversationID: conversationID, Success: false, Error: err.Error()}
	}

	threadURL := a.ThreadURLBase + conversationID
	if !strings.HasPrefix(a.Page.URL(), threadURL) {
		if err := a.Page.Navigate(ctx, threadURL); err != nil {
			return fail(err)
		}
	}

	if _, err := page.WaitForElement(ctx, a.Page, a.Selectors.MessageInput, a.Waits.Input); err != nil {
		return fail(err)
	}
	if err := a.Page.Focus(ctx, a.Selectors.MessageInput); err != nil {
		return fail(err)
	}
	if err := a.typeText(ctx, a.Selectors.MessageInput, text); err != nil {
		return fail(err)
	}

	if _, err := page.WaitForElement(ctx, a.Page, a.Selectors.SendButton, a.Waits.Click); err != nil {
		return fail(err)
	}
	if err := a.Page.Click(ctx, a.Selectors.SendButton); err != nil {
		return fail(err)
	}

	return protocol.SendMessageResult{ConversationID: conversationID, Success: true}
}

// typeText emits one keystroke per rune with a randomized pause between
// keystrokes, mimicking human typing cadence.
func (a *Agent) typeText(ctx context.Context, selector, text string) error {
	for _, r := range text {
		if err := a.Page.TypeKey(ctx, selector, r); err != nil {
			return err
		}
		select {
		case <-time.After(a.TypeDelay()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
