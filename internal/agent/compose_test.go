package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

const threadDoc = `<html><body>
	<div class="msg-form__contenteditable" contenteditable="true"></div>
	<button class="msg-form__send-button">Send</button>
</body></html>`

func TestSendMessageHappyPath(t *testing.T) {
	p := page.NewMemoryPage(`<html><body>inbox</body></html>`)
	p.Routes["https://example.test/messaging/thread/t1"] = threadDoc
	a := newTestAgent(p)

	result := a.SendMessage(context.Background(), "t1", "Hi Sam")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "t1", result.ConversationID)

	assert.Equal(t, a.Selectors.MessageInput, p.Focused)
	assert.Equal(t, "Hi Sam", p.Typed[a.Selectors.MessageInput])
	assert.Contains(t, p.Clicks, a.Selectors.SendButton)
}

func TestSendMessageSkipsNavigationWhenOnThread(t *testing.T) {
	p := page.NewMemoryPage(threadDoc)
	require.NoError(t, p.Navigate(context.Background(), "https://example.test/messaging/thread/t1"))
	p.Routes["https://example.test/messaging/thread/t1"] = threadDoc
	a := newTestAgent(p)

	result := a.SendMessage(context.Background(), "t1", "again")
	require.True(t, result.Success, result.Error)
}

func TestSendMessageInputMissingIsTerminalFailure(t *testing.T) {
	p := page.NewMemoryPage(`<html><body>inbox</body></html>`)
	p.Routes["https://example.test/messaging/thread/t1"] = `<html><body>wall</body></html>`
	a := newTestAgent(p)

	result := a.SendMessage(context.Background(), "t1", "Hi")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "element not found")
	assert.Empty(t, p.Typed)
}

func TestHandlePing(t *testing.T) {
	a := newTestAgent(page.NewMemoryPage(`<html></html>`))

	req := protocol.NewRequest(protocol.ActionPing, nil)
	resp := a.Handle(context.Background(), req)
	assert.Equal(t, protocol.ActionPong, resp.Action)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, protocol.SourceAgent, resp.Source)
}

func TestHandleUnknownAction(t *testing.T) {
	a := newTestAgent(page.NewMemoryPage(`<html></html>`))

	resp := a.Handle(context.Background(), protocol.NewRequest("selfDestruct", nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_ACTION", resp.Error.Code)
}

func TestHandleSendMessageReturnsStructuredResult(t *testing.T) {
	p := page.NewMemoryPage(`<html><body>inbox</body></html>`)
	p.Routes["https://example.test/messaging/thread/t9"] = threadDoc
	a := newTestAgent(p)

	req := protocol.NewRequest(protocol.ActionSendMessage, protocol.SendMessageParams{
		ConversationID: "t9",
		MessageText:    "yo",
	})
	resp := a.Handle(context.Background(), req)
	require.Nil(t, resp.Error)

	var result protocol.SendMessageResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Success)
	assert.Equal(t, "t9", result.ConversationID)
}
