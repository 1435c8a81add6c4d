package agent

import "gopkg.in/yaml.v3"

// Selectors locate the target page's controls. Every lookup that feeds a
// record field carries a fallback for markup drift; automation controls
// (inputs, buttons) use a comma group so either variant matches.
type Selectors struct {
	ConversationItem         string `yaml:"conversationItem"`
	ConversationItemFallback string `yaml:"conversationItemFallback"`
	SenderName               string `yaml:"senderName"`
	SenderNameFallback       string `yaml:"senderNameFallback"`
	Preview                  string `yaml:"preview"`
	PreviewFallback          string `yaml:"previewFallback"`
	Timestamp                string `yaml:"timestamp"`
	TimestampFallback        string `yaml:"timestampFallback"`
	ThreadLink               string `yaml:"threadLink"`
	Occupation               string `yaml:"occupation"`
	OccupationFallback       string `yaml:"occupationFallback"`

	LoggedInMarker string `yaml:"loggedInMarker"`
	UserName       string `yaml:"userName"`
	UserNameMenu   string `yaml:"userNameMenu"`

	MessageInput string `yaml:"messageInput"`
	SendButton   string `yaml:"sendButton"`

	ConnectButton string `yaml:"connectButton"`
	AddNoteButton string `yaml:"addNoteButton"`
	NoteInput     string `yaml:"noteInput"`
	ConfirmButton string `yaml:"confirmButton"`
}

// DefaultSelectors matches the target page's current markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ConversationItem:         "li.msg-conversation-listitem",
		ConversationItemFallback: "li.msg-conversations-container__convo-item",
		SenderName:               ".msg-conversation-listitem__participant-names",
		SenderNameFallback:       ".msg-conversation-card__participant-names",
		Preview:                  ".msg-conversation-card__message-snippet",
		PreviewFallback:          ".msg-conversation-listitem__message-snippet",
		Timestamp:                "time.msg-conversation-listitem__time-stamp",
		TimestampFallback:        "time",
		ThreadLink:               "a.msg-conversation-listitem__link",
		Occupation:               ".msg-conversation-card__occupation",
		OccupationFallback:       ".msg-conversation-listitem__occupation",

		LoggedInMarker: ".global-nav__me",
		UserName:       ".global-nav__me-photo",
		UserNameMenu:   ".global-nav__me .t-16",

		MessageInput: "div.msg-form__contenteditable",
		SendButton:   "button.msg-form__send-button",

		ConnectButton: "button.pvs-profile-actions__action--connect, button[aria-label*='Invite']",
		AddNoteButton: "button[aria-label='Add a note']",
		NoteInput:     "textarea#custom-message",
		ConfirmButton: "button[aria-label='Send now'], button[aria-label='Send invitation']",
	}
}

// Override applies per-field selector overrides, keyed by the yaml field
// names. Unknown keys are ignored; empty values leave the default in place.
func (s *Selectors) Override(overrides map[string]string) error {
	if len(overrides) == 0 {
		return nil
	}
	pruned := make(map[string]string, len(overrides))
	for k, v := range overrides {
		if v != "" {
			pruned[k] = v
		}
	}
	data, err := yaml.Marshal(pruned)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, s)
}
