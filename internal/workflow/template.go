package workflow

import (
	"strings"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Placeholder tokens supported in reply templates.
const (
	tokenFirstName = "{first_name}"
	tokenFullName  = "{full_name}"

	// fallbackName replaces a placeholder whose value could not be resolved
	// from the conversation record.
	fallbackName = "there"
)

// Render substitutes template placeholders from a conversation record.
// Unresolvable names degrade to a neutral literal instead of leaking the
// "Unknown" extraction default into an outbound message.
func Render(template string, rec protocol.ConversationRecord) string {
	out := strings.ReplaceAll(template, tokenFirstName, resolveName(rec.SenderFirstName))
	return strings.ReplaceAll(out, tokenFullName, resolveName(rec.SenderFullName))
}

func resolveName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "Unknown" {
		return fallbackName
	}
	return name
}
