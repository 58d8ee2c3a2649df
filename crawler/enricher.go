package crawler

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/samber/mo"

	"github.com/civiclens/permit-crawler/archive"
	"github.com/civiclens/permit-crawler/browser"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/normalize"
	"github.com/civiclens/permit-crawler/sites"
)

// Enrichment carries the fields only present on a record's detail view.
// A zero Enrichment is the "nothing found" result.
type Enrichment struct {
	Valuation    mo.Option[float64]
	ContractorID string
}

// Valuation selector chain, most specific first. The vendor's detail markup
// drifts across deployments; each selector has been seen live somewhere.
var valuationSelectors = []string{
	"span.valuation-amount",
	"td[data-field='valuation']",
	"#permitValuation",
	"div.permit-detail .valuation",
}

var contractorSelectors = []string{
	"div.licensed-professional",
	"#contractorInfo",
	"td[data-field='license']",
}

// detailSectionToggles are the independently collapsible panels on the
// postback portal's detail page. Each is expanded best-effort before the
// page text is read.
var detailSectionToggles = []string{
	"a#lnkExpandPermit",
	"a#lnkExpandValuation",
	"a#lnkExpandContacts",
}

const detailMoreInfoToggle = "a.more-info-toggle"

// licenseTokenRe validates a contractor identifier. Anything outside the
// strict 6 to 8 digit shape is mis-captured label text, not a license.
var licenseTokenRe = regexp.MustCompile(`\b(\d{6,8})\b`)

// SeenChecker reports whether a permit was already processed within the
// dedupe window. store.SeenCache implements it over redis.
type SeenChecker interface {
	Seen(ctx context.Context, p models.Permit) (bool, error)
}

// Enricher opens a record's detail view in an isolated tab and pulls the
// fields the list view does not carry. Everything here is best-effort: a
// failed enrichment yields an empty result, never an error, and the tab is
// closed on every path.
type Enricher struct {
	site     sites.Site
	timeouts Timeouts
	archiver *archive.Archiver
	seen     SeenChecker
}

func NewEnricher(site sites.Site, timeouts Timeouts) *Enricher {
	return &Enricher{site: site, timeouts: timeouts}
}

// WithArchiver makes the enricher snapshot every detail page it opens.
func (e *Enricher) WithArchiver(a *archive.Archiver) *Enricher {
	e.archiver = a
	return e
}

// WithSeenChecker makes the enricher skip records seen within the dedupe
// window. The upsert COALESCEs absent fields, so skipping keeps previously
// stored detail values intact.
func (e *Enricher) WithSeenChecker(s SeenChecker) *Enricher {
	e.seen = s
	return e
}

// Enrich fetches detail fields for one record. The permit's SourceURL must
// already be absolute.
func (e *Enricher) Enrich(ctx context.Context, d browser.Driver, p models.Permit) (result Enrichment) {
	detailURL := p.SourceURL

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("site", e.site.ID).Str("url", detailURL).Interface("panic", r).Msg("detail enrichment panicked, returning empty enrichment")
			result = Enrichment{}
		}
	}()

	if e.seen != nil {
		if seen, err := e.seen.Seen(ctx, p); err == nil && seen {
			log.Debug().Str("site", e.site.ID).Str("permit", p.PermitNumber).Msg("permit seen recently, skipping detail fetch")
			return Enrichment{}
		}
	}

	tab, err := d.OpenTab(ctx, detailURL)
	if err != nil {
		log.Debug().Str("site", e.site.ID).Str("url", detailURL).Err(err).Msg("detail tab open failed")
		return Enrichment{}
	}
	defer tab.Close()

	if e.site.Platform == sites.PlatformSPA {
		browser.WaitFrameworkIdle(ctx, tab)
	} else {
		if err := tab.WaitLoad(ctx); err != nil {
			log.Debug().Str("site", e.site.ID).Err(err).Msg("detail page load wait failed")
		}
		e.expandSections(ctx, tab)
	}
	browser.Settle(ctx, e.timeouts.Settle)

	// The detail view keeps populating after idle is reported, so the whole
	// extraction retries with a growing delay.
	for attempt := 1; attempt <= enrichAttempts; attempt++ {
		if v, ok := e.extractValuation(ctx, tab); ok {
			result.Valuation = mo.Some(v)
			break
		}
		if attempt < enrichAttempts {
			browser.Settle(ctx, time.Duration(attempt)*e.timeouts.RetryDelay)
		}
	}

	if e.site.ContractorInfoAccessible {
		result.ContractorID = e.extractContractor(ctx, tab)
	}

	if e.archiver != nil && e.archiver.Enabled() {
		if html, err := tab.HTML(ctx); err == nil {
			e.archiver.Snapshot(ctx, e.site.ID, p, html)
		}
	}
	return result
}

// expandSections clicks the collapsed detail panels on the postback portal
// so their text is present for the regex passes.
func (e *Enricher) expandSections(ctx context.Context, tab browser.Driver) {
	for _, sel := range detailSectionToggles {
		has, err := tab.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := tab.Click(ctx, sel); err != nil {
			log.Debug().Str("site", e.site.ID).Str("selector", sel).Err(err).Msg("detail section expand failed")
		}
	}
}

// extractValuation runs the layered fallback chain: direct selectors, then a
// label scan over the document, then a whole-page text search.
func (e *Enricher) extractValuation(ctx context.Context, tab browser.Driver) (float64, bool) {
	for _, sel := range valuationSelectors {
		has, err := tab.Has(sel)
		if err != nil || !has {
			continue
		}
		el, err := tab.Element(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if v, ok := normalize.ParseCurrency(text); ok && v > 0 {
			return v, true
		}
	}

	html, err := tab.HTML(ctx)
	if err != nil || html == "" {
		return 0, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	if v, ok := valuationFromLabels(doc); ok {
		return v, true
	}
	return normalize.FindSignedDollarAmount(doc.Text(), "valuation")
}

// valuationFromLabels scans label-like elements for one naming the job
// valuation and reads the amount out of its enclosing container. Labels
// mentioning "total" are fee totals, not valuations.
func valuationFromLabels(doc *goquery.Document) (float64, bool) {
	var value float64
	var found bool

	doc.Find("label, span.field-label, td.label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		if !strings.Contains(text, "valuation") || strings.Contains(text, "total") {
			return true
		}

		parent := s.Parent()
		if v, ok := normalize.FindDollarAmount(parent.Text(), "valuation"); ok && v > 0 {
			value, found = v, true
			return false
		}
		return true
	})

	return value, found
}

// extractContractor expands the collapsed professional panel when present
// and pulls a license token through the selector chain, falling back to a
// page-text scan.
func (e *Enricher) extractContractor(ctx context.Context, tab browser.Driver) string {
	if has, err := tab.Has(detailMoreInfoToggle); err == nil && has {
		if ok, err := tab.EvalBool(ctx, spaTabNavigateScript("moreInfo")); err != nil || !ok {
			if err := tab.Click(ctx, detailMoreInfoToggle); err != nil {
				log.Debug().Str("site", e.site.ID).Err(err).Msg("more-info panel expand failed")
			}
		}
		browser.Settle(ctx, e.timeouts.Settle)
	}

	for _, sel := range contractorSelectors {
		has, err := tab.Has(sel)
		if err != nil || !has {
			continue
		}
		el, err := tab.Element(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if m := licenseTokenRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}

	html, err := tab.HTML(ctx)
	if err != nil {
		return ""
	}
	lower := strings.ToLower(html)
	idx := strings.Index(lower, "license")
	if idx < 0 {
		return ""
	}
	window := html[idx:]
	if len(window) > 300 {
		window = window[:300]
	}
	if m := licenseTokenRe.FindStringSubmatch(window); m != nil {
		return m[1]
	}
	return ""
}

// spaTabNavigateScript drives the framework's tab-navigation service to a
// named detail panel when the service is reachable.
func spaTabNavigateScript(panel string) string {
	return `() => {
	if (!window.angular) return false;
	const injector = window.angular.element(document.body).injector();
	if (!injector || !injector.has('tabNavigation')) return false;
	injector.get('tabNavigation').activate('` + panel + `');
	return true;
}`
}
