package protocol

// SessionInfo is a snapshot of the target page's authentication state.
// Error distinguishes "definitely logged out" from "logged in but the
// display name could not be resolved".
type SessionInfo struct {
	IsLoggedIn bool    `json:"isLoggedIn"`
	UserName   *string `json:"userName"`
	Error      string  `json:"error,omitempty"`
}

// ConversationRecord is one inbox entry extracted from the target page.
// Every field degrades to a default instead of failing extraction.
type ConversationRecord struct {
	ConversationID  string `json:"conversationId"`
	SenderFullName  string `json:"senderFullName"`
	SenderFirstName string `json:"senderFirstName"`
	LastMessage     string `json:"lastMessage"`
	Timestamp       string `json:"timestamp"` // ISO 8601; extraction time when the page provides none
	Company         string `json:"company,omitempty"`
}

type ExtractParams struct {
	BatchSize int `json:"batchSize"`
}

type ExtractResult struct {
	Success       bool                 `json:"success"`
	Conversations []ConversationRecord `json:"conversations"`
	Error         string               `json:"error,omitempty"`
}

type UserNameResult struct {
	UserName *string `json:"userName"`
}

type SendMessageParams struct {
	ConversationID string `json:"conversationId"`
	MessageText    string `json:"messageText"`
}

type SendMessageResult struct {
	ConversationID string `json:"conversationId"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

type SendConnectionParams struct {
	ProfileURL string `json:"profileUrl"`
	Message    string `json:"message,omitempty"`
}

type SendConnectionResult struct {
	ProfileURL string `json:"profileUrl"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}
