// Package crawler contains the extraction engine: per-platform adapters that
// drive a live portal page through search, pagination and detail fetches, and
// the orchestrator that wraps one crawl in a browser session and a result
// envelope.
package crawler

import (
	"context"
	"time"

	"github.com/civiclens/permit-crawler/browser"
	"github.com/civiclens/permit-crawler/common/models"
)

// Adapter drives one platform's search workflow against a live page.
type Adapter interface {
	Crawl(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) ([]models.Permit, error)
}

// Timeouts bounds every wait in a crawl. Tests shrink these so polls fail
// fast against a fake page.
type Timeouts struct {
	// Element bounds selector-presence and visibility waits.
	Element time.Duration
	// Settle is the fixed post-action delay used where the portals populate
	// the DOM asynchronously after reporting idle.
	Settle time.Duration
	// RetryDelay is the base delay for enrichment retries; it grows linearly
	// per attempt.
	RetryDelay time.Duration
}

// DefaultTimeouts returns the production wait bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Element:    10 * time.Second,
		Settle:     time.Second,
		RetryDelay: time.Second,
	}
}

const (
	// maxSPAPages caps the single-page-app pagination loop. The next-control
	// signal is re-checked every page, but the portal's pagination state has
	// been observed to wedge, so the loop terminates on iteration count too.
	maxSPAPages = 50

	// maxLegacyPages caps the postback portal's page loop. Higher ceiling
	// because these deployments page 10 rows at a time.
	maxLegacyPages = 100

	// filterPanelAttempts is how many times the advanced-filters toggle is
	// re-triggered when the panel fails to mount. Toggle visibility and
	// panel mount are not atomic on the portal.
	filterPanelAttempts = 3

	// enrichAttempts bounds the valuation extraction retry loop on detail
	// pages that populate fields after the initial settle.
	enrichAttempts = 3
)
