package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Mocks

type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) IsInstalled(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockBridge) CheckSession(ctx context.Context) (protocol.SessionInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(protocol.SessionInfo), args.Error(1)
}

func (m *MockBridge) ExtractConversations(ctx context.Context, batchSize int) (protocol.ExtractResult, error) {
	args := m.Called(ctx, batchSize)
	return args.Get(0).(protocol.ExtractResult), args.Error(1)
}

func (m *MockBridge) SendMessage(ctx context.Context, conversationID, text string) (protocol.SendMessageResult, error) {
	args := m.Called(ctx, conversationID, text)
	return args.Get(0).(protocol.SendMessageResult), args.Error(1)
}

func loggedIn() protocol.SessionInfo {
	name := "Sam Lee"
	return protocol.SessionInfo{IsLoggedIn: true, UserName: &name}
}

func threeRecords() protocol.ExtractResult {
	return protocol.ExtractResult{
		Success: true,
		Conversations: []protocol.ConversationRecord{
			{ConversationID: "c1", SenderFirstName: "Sam", SenderFullName: "Sam Lee"},
			{ConversationID: "c2", SenderFirstName: "Ada", SenderFullName: "Ada Lovelace"},
			{ConversationID: "c3", SenderFirstName: "Unknown", SenderFullName: "Unknown"},
		},
	}
}

// countingDelay records how many inter-job pauses the sender takes.
type countingDelay struct {
	mu    sync.Mutex
	count int
}

func (d *countingDelay) delay() time.Duration {
	d.mu.Lock()
	d.count++
	d.mu.Unlock()
	return time.Millisecond
}

func reviewedCampaign(t *testing.T, bridge *MockBridge, delay *countingDelay) *Campaign {
	t.Helper()
	bridge.On("IsInstalled", mock.Anything).Return(true)
	bridge.On("CheckSession", mock.Anything).Return(loggedIn(), nil)
	bridge.On("ExtractConversations", mock.Anything, 20).Return(threeRecords(), nil)

	c := NewCampaign(bridge, 150, delay.delay)
	_, err := c.Extract(context.Background(), 20)
	require.NoError(t, err)
	return c
}

func TestExtractRequiresInstalledBridge(t *testing.T) {
	bridge := new(MockBridge)
	bridge.On("IsInstalled", mock.Anything).Return(false)

	c := NewCampaign(bridge, 150, nil)
	_, err := c.Extract(context.Background(), 20)
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.Equal(t, StateIdle, c.State())
	bridge.AssertNotCalled(t, "ExtractConversations", mock.Anything, mock.Anything)
}

func TestExtractRequiresSession(t *testing.T) {
	bridge := new(MockBridge)
	bridge.On("IsInstalled", mock.Anything).Return(true)
	bridge.On("CheckSession", mock.Anything).Return(protocol.SessionInfo{IsLoggedIn: false}, nil)

	c := NewCampaign(bridge, 150, nil)
	_, err := c.Extract(context.Background(), 20)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	bridge.AssertNotCalled(t, "ExtractConversations", mock.Anything, mock.Anything)
}

func TestExtractRechecksPreconditionsEachTime(t *testing.T) {
	bridge := new(MockBridge)
	delay := &countingDelay{}
	c := reviewedCampaign(t, bridge, delay)

	// Extract again from reviewing: both guards run again.
	_, err := c.Extract(context.Background(), 20)
	require.NoError(t, err)
	bridge.AssertNumberOfCalls(t, "IsInstalled", 2)
	bridge.AssertNumberOfCalls(t, "CheckSession", 2)
}

func TestPreviewValidation(t *testing.T) {
	bridge := new(MockBridge)
	c := reviewedCampaign(t, bridge, &countingDelay{})

	_, err := c.Preview([]string{"c1"}, "")
	assert.ErrorIs(t, err, ErrEmptyTemplate)
	assert.Equal(t, StateReviewing, c.State())

	_, err = c.Preview(nil, "Hi {first_name}")
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, StateReviewing, c.State())
}

func TestPreviewPersonalizesInSelectionOrder(t *testing.T) {
	bridge := new(MockBridge)
	c := reviewedCampaign(t, bridge, &countingDelay{})

	jobs, err := c.Preview([]string{"c2", "c1"}, "Hi {first_name}")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c2", jobs[0].Conversation.ConversationID)
	assert.Equal(t, "Hi Ada", jobs[0].PersonalizedMessage)
	assert.Equal(t, "Hi Sam", jobs[1].PersonalizedMessage)
	assert.Equal(t, StatePreviewing, c.State())
}

func TestSendSequentialWithInterJobDelays(t *testing.T) {
	bridge := new(MockBridge)
	delay := &countingDelay{}
	c := reviewedCampaign(t, bridge, delay)

	var order []string
	for _, id := range []string{"c1", "c2", "c3"} {
		id := id
		bridge.On("SendMessage", mock.Anything, id, mock.Anything).
			Run(func(args mock.Arguments) { order = append(order, id) }).
			Return(protocol.SendMessageResult{ConversationID: id, Success: true}, nil)
	}

	_, err := c.Preview([]string{"c1", "c2", "c3"}, "Hi {first_name}")
	require.NoError(t, err)

	summary, err := c.Send(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Sent)
	assert.Zero(t, summary.Failed)
	// Exactly n-1 pauses, jobs in selection order.
	assert.Equal(t, 2, delay.count)
	assert.Equal(t, []string{"c1", "c2", "c3"}, order)
	assert.Equal(t, StateIdle, c.State())
}

func TestSendContinuesPastFailures(t *testing.T) {
	bridge := new(MockBridge)
	delay := &countingDelay{}
	c := reviewedCampaign(t, bridge, delay)

	bridge.On("SendMessage", mock.Anything, "c1", mock.Anything).
		Return(protocol.SendMessageResult{ConversationID: "c1", Success: true}, nil)
	bridge.On("SendMessage", mock.Anything, "c2", mock.Anything).
		Return(protocol.SendMessageResult{ConversationID: "c2", Success: false, Error: "send control missing"}, nil)
	bridge.On("SendMessage", mock.Anything, "c3", mock.Anything).
		Return(protocol.SendMessageResult{}, errors.New("bridge call timed out"))

	_, err := c.Preview([]string{"c1", "c2", "c3"}, "Hi {first_name}")
	require.NoError(t, err)

	summary, err := c.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Errors, 2)
}

func TestJobsAreConsumedExactlyOnce(t *testing.T) {
	bridge := new(MockBridge)
	c := reviewedCampaign(t, bridge, &countingDelay{})
	bridge.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).
		Return(protocol.SendMessageResult{Success: true}, nil)

	_, err := c.Preview([]string{"c1"}, "Hi")
	require.NoError(t, err)
	_, err = c.Send(context.Background())
	require.NoError(t, err)

	_, err = c.Send(context.Background())
	assert.ErrorIs(t, err, ErrBadState)
}

func TestFilteredViewRecomputes(t *testing.T) {
	bridge := new(MockBridge)
	c := reviewedCampaign(t, bridge, &countingDelay{})

	c.SetFilters(Filters{Keyword: "ada"})
	got := c.Filtered()
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ConversationID)

	c.SetFilters(Filters{})
	assert.Len(t, c.Filtered(), 3)
}
