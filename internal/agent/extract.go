package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

// Extract pulls up to limit conversation records from the inbox list, in
// document order. Record construction is total: every field degrades to a
// default instead of failing the entry, and one bad entry never fails the
// batch.
func (a *Agent) Extract(ctx context.Context, limit int) protocol.ExtractResult {
	if limit <= 0 || limit > agentBatchCap {
		limit = agentBatchCap
	}

	_, err := page.WaitForElement(ctx, a.Page, a.Selectors.ConversationItem, a.Waits.List)
	if err != nil {
		// Markup drift: retry once with the fallback list selector.
		_, err = page.WaitForElement(ctx, a.Page, a.Selectors.ConversationItemFallback, a.Waits.List)
		if err != nil {
			return protocol.ExtractResult{
				Success: false,
				Error:   fmt.Sprintf("conversation list not found: %v", err),
			}
		}
	}

	// WaitForElement settles on the first match; re-query for the full set.
	list, err := page.Query(ctx, a.Page, a.Selectors.ConversationItem)
	if err != nil {
		return protocol.ExtractResult{Success: false, Error: err.Error()}
	}
	if list == nil {
		list, err = page.Query(ctx, a.Page, a.Selectors.ConversationItemFallback)
		if err != nil || list == nil {
			return protocol.ExtractResult{Success: false, Error: "conversation list disappeared mid-extraction"}
		}
	}

	records := make([]protocol.ConversationRecord, 0, limit)
	list.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}
		records = append(records, a.recordFrom(item, i))
		return true
	})

	return protocol.ExtractResult{Success: true, Conversations: records}
}

// recordFrom builds one record from a list item, never failing: missing
// fields take defaults, and the conversation id falls back to the item's
// position when neither the id attribute nor a thread link is present.
func (a *Agent) recordFrom(item *goquery.Selection, index int) protocol.ConversationRecord {
	rec := protocol.ConversationRecord{
		ConversationID:  fmt.Sprintf("conv_%d", index),
		SenderFullName:  "Unknown",
		SenderFirstName: "Unknown",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}

	if id, ok := item.Attr("data-conversation-id"); ok && id != "" {
		rec.ConversationID = id
	} else if href, ok := item.Find(a.Selectors.ThreadLink).Attr("href"); ok {
		if id := threadIDFromURL(href); id != "" {
			rec.ConversationID = id
		}
	}

	name := textOf(item, a.Selectors.SenderName, a.Selectors.SenderNameFallback)
	if name != "" {
		rec.SenderFullName = name
		rec.SenderFirstName = strings.Fields(name)[0]
	}

	rec.LastMessage = textOf(item, a.Selectors.Preview, a.Selectors.PreviewFallback)
	rec.Company = textOf(item, a.Selectors.Occupation, a.Selectors.OccupationFallback)

	if ts := item.Find(a.Selectors.Timestamp); ts.Length() > 0 {
		if dt, ok := ts.First().Attr("datetime"); ok && dt != "" {
			rec.Timestamp = dt
		} else if t := strings.TrimSpace(ts.First().Text()); t != "" {
			rec.Timestamp = t
		}
	} else if ts := item.Find(a.Selectors.TimestampFallback); ts.Length() > 0 {
		if t := strings.TrimSpace(ts.First().Text()); t != "" {
			rec.Timestamp = t
		}
	}

	return rec
}

// textOf returns the trimmed text of the primary selector, then the
// fallback, then "".
func textOf(item *goquery.Selection, primary, fallback string) string {
	if s := strings.TrimSpace(item.Find(primary).First().Text()); s != "" {
		return s
	}
	return strings.TrimSpace(item.Find(fallback).First().Text())
}

// threadIDFromURL extracts the conversation id from a thread URL like
// /messaging/thread/<id>/.
func threadIDFromURL(href string) string {
	const marker = "/messaging/thread/"
	i := strings.Index(href, marker)
	if i < 0 {
		return ""
	}
	id := href[i+len(marker):]
	return strings.Trim(id, "/")
}
