package agent

import (
	"context"
	"strings"

	"github.com/outsourcely/leadbridge/internal/page"
	"github.com/outsourcely/leadbridge/internal/protocol"
)

// CheckSession reports the target page's authentication state. A missing
// logged-in marker means logged out; a present marker with an unresolvable
// display name is reported as logged in with a diagnostic, so the operator
// is never told to log in when they already are.
func (a *Agent) CheckSession(ctx context.Context) protocol.SessionInfo {
	_, err := page.WaitForElement(ctx, a.Page, a.Selectors.LoggedInMarker, a.Waits.Session)
	if err != nil {
		return protocol.SessionInfo{
			IsLoggedIn: false,
			Error:      "no authenticated session detected",
		}
	}

	if name := a.UserName(ctx); name != nil {
		return protocol.SessionInfo{IsLoggedIn: true, UserName: name}
	}
	return protocol.SessionInfo{
		IsLoggedIn: true,
		Error:      "logged in, but the user name could not be resolved",
	}
}

// UserName resolves the logged-in display name, nil when unresolvable.
// Tries the nav photo's alt text first, then the account menu text.
func (a *Agent) UserName(ctx context.Context) *string {
	if sel, err := page.Query(ctx, a.Page, a.Selectors.UserName); err == nil && sel != nil {
		if alt, ok := sel.First().Attr("alt"); ok {
			if name := strings.TrimSpace(alt); name != "" {
				return &name
			}
		}
	}
	if sel, err := page.Query(ctx, a.Page, a.Selectors.UserNameMenu); err == nil && sel != nil {
		if name := strings.TrimSpace(sel.First().Text()); name != "" {
			return &name
		}
	}
	return nil
}
