package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/civiclens/permit-crawler/archive"
	"github.com/civiclens/permit-crawler/browser"
	"github.com/civiclens/permit-crawler/common/config"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/sites"
)

// SessionFactory opens a browser session for one crawl. Production wires a
// real headless browser; tests substitute a session handing out fake pages.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// Orchestrator runs one crawl per call: it owns the browser lifecycle,
// selects the platform adapter, and folds every outcome into a result
// envelope. Nothing escapes Scrape as an error or a panic.
type Orchestrator struct {
	newSession SessionFactory
	timeouts   Timeouts
	archiver   *archive.Archiver
	seen       SeenChecker
}

// SetArchiver makes crawls snapshot every detail page they enrich.
func (o *Orchestrator) SetArchiver(a *archive.Archiver) {
	o.archiver = a
}

// SetSeenCache makes crawls skip detail enrichment for records processed
// within the dedupe window.
func (o *Orchestrator) SetSeenCache(s SeenChecker) {
	o.seen = s
}

// NewOrchestrator builds an orchestrator launching real browser sessions
// with the given configuration.
func NewOrchestrator(cfg config.BrowserConfig) *Orchestrator {
	timeouts := DefaultTimeouts()
	if cfg.ElementTimeout > 0 {
		timeouts.Element = cfg.ElementTimeout
	}
	if cfg.SettleDelay > 0 {
		timeouts.Settle = cfg.SettleDelay
	}

	return &Orchestrator{
		newSession: func(ctx context.Context) (browser.Session, error) {
			return browser.NewSession(ctx, browser.SessionOptions{
				Headless:       cfg.Headless,
				BinPath:        cfg.BinPath,
				ElementTimeout: cfg.ElementTimeout,
			})
		},
		timeouts: timeouts,
	}
}

// NewOrchestratorWithSessions builds an orchestrator over a custom session
// factory.
func NewOrchestratorWithSessions(factory SessionFactory, timeouts Timeouts) *Orchestrator {
	return &Orchestrator{newSession: factory, timeouts: timeouts}
}

// Scrape crawls one site for the given criteria. Missing dates default to
// today; on sites without date-specific search the requested range is
// applied as a post-filter over the portal's rolling window instead.
func (o *Orchestrator) Scrape(ctx context.Context, site sites.Site, criteria models.SearchCriteria) (result models.CrawlResult) {
	result.ScrapedAt = time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("site", site.ID).Interface("panic", r).Msg("crawl panicked")
			result = models.CrawlResult{
				Success:   false,
				Error:     fmt.Sprintf("crawl panicked: %v", r),
				ScrapedAt: result.ScrapedAt,
			}
		}
	}()

	if criteria.StartDate.IsZero() {
		today := time.Now().Truncate(24 * time.Hour)
		criteria.StartDate = today
		if criteria.EndDate.IsAbsent() {
			criteria.EndDate = mo.Some(today)
		}
	}

	requested := criteria
	if !site.DateSearchSupported {
		// The portal only exposes a rolling recent-history window; crawl it
		// without a range and filter afterwards.
		criteria.StartDate = time.Time{}
		criteria.EndDate = mo.None[time.Time]()
	}

	permits, err := o.runCrawl(ctx, site, criteria)
	if err != nil {
		log.Error().Str("site", site.ID).Err(err).Msg("crawl failed")
		result.Success = false
		result.Error = err.Error()
		return result
	}

	if !site.DateSearchSupported {
		permits = filterByRange(permits, requested)
	}

	log.Info().Str("site", site.ID).Int("permits", len(permits)).Msg("crawl completed")
	result.Permits = permits
	result.Success = true
	return result
}

// runCrawl opens the session and drives the adapter. The session is closed
// on every exit path; a browser process may never outlive its crawl.
func (o *Orchestrator) runCrawl(ctx context.Context, site sites.Site, criteria models.SearchCriteria) ([]models.Permit, error) {
	session, err := o.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Str("site", site.ID).Err(err).Msg("browser session close failed")
		}
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	adapter, err := o.adapterFor(site)
	if err != nil {
		return nil, err
	}
	return adapter.Crawl(ctx, page, criteria)
}

func (o *Orchestrator) adapterFor(site sites.Site) (Adapter, error) {
	enricher := NewEnricher(site, o.timeouts).WithArchiver(o.archiver)
	if o.seen != nil {
		enricher = enricher.WithSeenChecker(o.seen)
	}

	switch site.Platform {
	case sites.PlatformSPA:
		return NewSPAAdapter(site, enricher, o.timeouts), nil
	case sites.PlatformLegacy:
		return NewLegacyAdapter(site, enricher, o.timeouts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, site.Platform)
	}
}

// filterByRange keeps permits whose applied date falls inside the requested
// range. Records with unparseable dates are kept; downstream matches on the
// raw date string and dropping them here would lose data silently.
func filterByRange(permits []models.Permit, criteria models.SearchCriteria) []models.Permit {
	return lo.Filter(permits, func(p models.Permit, _ int) bool {
		if p.AppliedDate.IsZero() {
			return true
		}
		if p.AppliedDate.Before(criteria.StartDate) {
			return false
		}
		if end, ok := criteria.EndDate.Get(); ok && p.AppliedDate.After(end) {
			return false
		}
		return true
	})
}
