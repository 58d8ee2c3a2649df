package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/browser"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/normalize"
	"github.com/civiclens/permit-crawler/sites"
)

const (
	legacyResultsTable = "table.rgMasterTable"
	legacyResultRows   = "tr.rgRow, tr.rgAltRow"
)

// Label text fragments used to discover the date inputs. Field IDs are
// not stable across deployments of this platform; the label/for relationship
// is the only robust handle.
var (
	legacyFromLabels = []string{"applied from", "date from", "start date", "from"}
	legacyToLabels   = []string{"applied to", "date to", "end date", "to"}
)

// Candidate search controls, first match wins. Deployments rename the
// button but one of these has matched everywhere observed.
var legacySearchControls = []string{
	"input#cmdSearch",
	"input[name$='btnSearch']",
	"button#searchButton",
	"input[type='submit'][value='Search']",
	"a#lnkSearch",
}

// LegacyAdapter drives the postback-style server-rendered portal. No client
// framework to wait on; each interaction triggers a full or partial postback
// and the adapter re-reads the page afterwards.
type LegacyAdapter struct {
	site     sites.Site
	enricher *Enricher
	timeouts Timeouts
}

func NewLegacyAdapter(site sites.Site, enricher *Enricher, timeouts Timeouts) *LegacyAdapter {
	return &LegacyAdapter{site: site, enricher: enricher, timeouts: timeouts}
}

func (a *LegacyAdapter) Crawl(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) ([]models.Permit, error) {
	if err := d.Navigate(ctx, a.site.SearchURL()); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := d.WaitLoad(ctx); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if err := a.setDates(ctx, d, criteria); err != nil {
		return nil, err
	}
	if err := a.triggerSearch(ctx, d); err != nil {
		return nil, err
	}

	return a.pageLoop(ctx, d, criteria)
}

// setDates discovers the date inputs by label text and writes portal-format
// dates with native events.
func (a *LegacyAdapter) setDates(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) error {
	if criteria.StartDate.IsZero() {
		return nil
	}

	fromSel, ok := a.findInputByLabel(d, legacyFromLabels)
	if !ok {
		return ErrDateFieldNotFound
	}
	if err := d.SetField(ctx, fromSel, normalize.FormatPortalDate(criteria.StartDate)); err != nil {
		return fmt.Errorf("%w: %v", ErrDateFieldNotFound, err)
	}

	end, hasEnd := criteria.EndDate.Get()
	if !hasEnd {
		return nil
	}
	toSel, ok := a.findInputByLabel(d, legacyToLabels)
	if !ok {
		// The upper bound is optional on this platform; an undiscoverable
		// "to" field degrades to an open-ended search.
		log.Debug().Str("site", a.site.ID).Msg("no end-date input discovered, searching open-ended")
		return nil
	}
	return d.SetField(ctx, toSel, normalize.FormatPortalDate(end))
}

// findInputByLabel scans every label on the page for the first whose text
// contains one of the fragments, and returns an ID selector for the input
// its for attribute names. Fragments are tried in order so that specific
// phrases win over bare "from"/"to".
func (a *LegacyAdapter) findInputByLabel(d browser.Driver, fragments []string) (string, bool) {
	labels, err := d.Elements("label")
	if err != nil || len(labels) == 0 {
		return "", false
	}

	for _, frag := range fragments {
		for _, label := range labels {
			text, err := label.Text()
			if err != nil {
				continue
			}
			if !strings.Contains(strings.ToLower(text), frag) {
				continue
			}
			id, err := label.Attribute("for")
			if err != nil || id == "" {
				continue
			}
			return "#" + id, true
		}
	}
	return "", false
}

func (a *LegacyAdapter) triggerSearch(ctx context.Context, d browser.Driver) error {
	for _, sel := range legacySearchControls {
		has, err := d.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := d.Click(ctx, sel); err != nil {
			return fmt.Errorf("%w: click %s: %v", ErrSearchControlNotFound, sel, err)
		}
		browser.Settle(ctx, a.timeouts.Settle)
		return nil
	}
	return ErrSearchControlNotFound
}

func (a *LegacyAdapter) pageLoop(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) ([]models.Permit, error) {
	var permits []models.Permit

	for page := 1; page <= maxLegacyPages; page++ {
		if !browser.WaitSelector(ctx, d, legacyResultsTable, a.timeouts.Element) {
			// First page: zero results. Later pages: the postback wedged;
			// keep what was harvested.
			break
		}

		remaining := 0
		if criteria.RecordLimit > 0 {
			remaining = criteria.RecordLimit - len(permits)
		}
		rows, err := a.parsePage(ctx, d, remaining)
		if err != nil {
			return permits, nil
		}
		permits = append(permits, rows...)
		if criteria.RecordLimit > 0 && len(permits) >= criteria.RecordLimit {
			return permits, nil
		}

		if !a.advancePage(ctx, d) {
			break
		}
		browser.Settle(ctx, a.timeouts.Settle)
	}

	return permits, nil
}

// parsePage reads the result grid out of the serialized page, returning at
// most limit rows when limit is positive so the record cap also bounds
// detail fetches. The grid rows carry stable structural classes; everything
// else about the markup drifts.
func (a *LegacyAdapter) parsePage(ctx context.Context, d browser.Driver, limit int) ([]models.Permit, error) {
	html, err := d.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var permits []models.Permit
	doc.Find(legacyResultRows).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(permits) >= limit {
			return false
		}
		// Six cells: number, type, status, applied date, address, description.
		// Shorter rows are grouping or summary rows, not records.
		cells := row.Find("td")
		if cells.Length() < 6 {
			return true
		}

		fields := rowFields{
			PermitNumber: strings.TrimSpace(cells.Eq(0).Text()),
			PermitType:   strings.TrimSpace(cells.Eq(1).Text()),
			StatusText:   strings.TrimSpace(cells.Eq(2).Text()),
			AppliedDate:  strings.TrimSpace(cells.Eq(3).Text()),
			Address:      strings.TrimSpace(cells.Eq(4).Text()),
			Description:  strings.TrimSpace(cells.Eq(5).Text()),
		}
		fields.Title = fields.PermitType
		if href, ok := cells.Eq(0).Find("a").Attr("href"); ok {
			fields.DetailLink = href
		}

		// The combined address carries a "City STATE ZIP" suffix on this
		// platform.
		addr := normalize.SplitCityStateZip(fields.Address)

		p, ok := finalize(a.site, fields)
		if !ok {
			return true
		}
		if addr.PostalCode != "" {
			p.PostalCode = addr.PostalCode
		}

		if fields.DetailLink != "" {
			p.SourceURL = resolveDetailURL(a.site, fields.DetailLink)
		}
		if a.site.DetailEnrichment && p.SourceURL != "" {
			enr := a.enricher.Enrich(ctx, d, p)
			p.Valuation = enr.Valuation
			if enr.ContractorID != "" {
				p.ContractorID = enr.ContractorID
			}
		}

		permits = append(permits, p)
		return true
	})

	return permits, nil
}

// advancePage finds the next-page link by anchor text scan; this platform
// has no stable selector for it. No link means the last page.
func (a *LegacyAdapter) advancePage(ctx context.Context, d browser.Driver) bool {
	anchors, err := d.Elements("a")
	if err != nil {
		return false
	}

	for _, anchor := range anchors {
		text, err := anchor.Text()
		if err != nil {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(text))
		if t != "next" && t != "next >" && t != "next page" {
			continue
		}
		if err := anchor.Click(); err != nil {
			log.Debug().Str("site", a.site.ID).Err(err).Msg("next link click failed, ending pagination")
			return false
		}
		return true
	}
	return false
}
