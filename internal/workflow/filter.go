package workflow

import (
	"strings"

	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Filters narrows extracted records. Both filters are case-insensitive
// substring matches and compose with logical AND; an empty filter passes
// everything.
type Filters struct {
	Company string
	Keyword string
}

// Apply returns the records matching both filters, preserving order.
func (f Filters) Apply(records []protocol.ConversationRecord) []protocol.ConversationRecord {
	if f.Company == "" && f.Keyword == "" {
		return records
	}
	out := make([]protocol.ConversationRecord, 0, len(records))
	for _, rec := range records {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (f Filters) matches(rec protocol.ConversationRecord) bool {
	if f.Company != "" && !containsFold(rec.Company, f.Company) {
		return false
	}
	if f.Keyword != "" &&
		!containsFold(rec.LastMessage, f.Keyword) &&
		!containsFold(rec.SenderFullName, f.Keyword) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
