package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"Scout/internal/collector"
	"Scout/internal/extractor"
	"Scout/internal/resolver"
)

// Describe turns a query error into one actionable line for the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		rl *collector.RateLimitedError
		me *resolver.MatchError
		fe *collector.FetchError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "Query cancelled."
	case errors.As(err, &rl):
		return fmt.Sprintf("Rate limited: wait %s before the next query.", rl.Wait())
	case errors.As(err, &me):
		if me.Best.Symbol == "" {
			return fmt.Sprintf("No company matches %q. Try the NSE symbol instead.", me.Query)
		}
		return fmt.Sprintf("No confident match for %q; closest is %s (%s) at %.2f. Try the NSE symbol instead.",
			me.Query, me.Best.Name, me.Best.Symbol, me.Score)
	case errors.Is(err, resolver.ErrNoConfidentMatch):
		return "No confident ticker match. Try the NSE symbol instead."
	case errors.Is(err, resolver.ErrCatalogUnavailable):
		return fmt.Sprintf("Symbol catalog unavailable (%v). Check catalog.path.", err)
	case errors.Is(err, collector.ErrMissingCredential):
		return "No upstream crumb available; run /crumb to fetch one and retry."
	case errors.Is(err, collector.ErrSessionBootstrap):
		return fmt.Sprintf("Could not start an upstream session: %v", err)
	case errors.As(err, &fe) && fe.Timeout:
		return fmt.Sprintf("Upstream timed out on %s; try again shortly.", fe.URL)
	case errors.As(err, &fe) && fe.Status != 0:
		return fmt.Sprintf("Upstream returned %d %s for %s.", fe.Status, http.StatusText(fe.Status), fe.URL)
	case errors.As(err, &fe):
		return fmt.Sprintf("Upstream request failed: %v", fe.Err)
	case errors.Is(err, context.DeadlineExceeded):
		return "Query timed out; try again shortly."
	case errors.Is(err, extractor.ErrUnrecognizedPageFormat):
		return fmt.Sprintf("Could not read the upstream page; its layout may have changed (%v).", err)
	case errors.Is(err, extractor.ErrMalformedJSON):
		return fmt.Sprintf("Embedded page data was malformed (%v).", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
