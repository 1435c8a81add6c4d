package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestAssignsCorrelationID(t *testing.T) {
	a := NewRequest(ActionPing, nil)
	b := NewRequest(ActionPing, nil)

	assert.Equal(t, SourceClient, a.Source)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResponseActionPairing(t *testing.T) {
	assert.Equal(t, "checkSessionResponse", ResponseAction(ActionCheckSession))
	assert.True(t, IsResponse("checkSessionResponse"))
	assert.False(t, IsResponse(ActionCheckSession))
	assert.False(t, IsResponse("Response"))
}

func TestOKCarriesRequestID(t *testing.T) {
	req := NewRequest(ActionExtract, ExtractParams{BatchSize: 5})
	resp := OK(req, ExtractResult{Success: true})

	assert.Equal(t, SourceAgent, resp.Source)
	assert.Equal(t, "extractConversationsResponse", resp.Action)
	assert.Equal(t, req.ID, resp.ID)
	assert.Nil(t, resp.Error)

	var result ExtractResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Success)
}

func TestFailCarriesStructuredError(t *testing.T) {
	req := NewRequest(ActionSendMessage, nil)
	resp := Fail(req, "NO_AGENT", "no automation agent connected")

	require.NotNil(t, resp.Error)
	assert.Equal(t, "NO_AGENT", resp.Error.Code)
	assert.EqualError(t, resp.Error, "NO_AGENT: no automation agent connected")
}

func TestTimeoutContract(t *testing.T) {
	assert.Equal(t, time.Second, TimeoutFor(ActionPing))
	assert.Equal(t, 10*time.Second, TimeoutFor(ActionCheckSession))
	assert.Equal(t, 10*time.Second, TimeoutFor(ActionGetUserName))
	assert.Equal(t, 30*time.Second, TimeoutFor(ActionExtract))
}

func TestEnvelopeWireFormat(t *testing.T) {
	req := NewRequest(ActionCheckSession, nil)
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, req.Source, decoded.Source)
	assert.Equal(t, req.Action, decoded.Action)
	assert.Equal(t, req.ID, decoded.ID)
}
