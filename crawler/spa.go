package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/browser"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/normalize"
	"github.com/civiclens/permit-crawler/sites"
)

// Selectors for the single-page-app portal. The vendor ships the same markup
// to every deployment, so these are stable across sites; what varies per
// site lives in sites.Site.
const (
	spaCategorySelect = "select[name='searchModule']"
	spaCategoryOption = "select[name='searchModule'] option"
	spaAdvancedToggle = "a.advanced-search-toggle"
	spaDateFromInput  = "input[name='applicationDateFrom']"
	spaDateToInput    = "input[name='applicationDateTo']"
	spaSearchButton   = "button.search-submit"

	spaResultRow = "table.search-results tbody tr"
	spaNextPage  = "a.pagination-next"

	spaRowNumberLink  = "td.col-record a"
	spaRowType        = "td.col-type"
	spaRowStatus      = "td.col-status"
	spaRowApplied     = "td.col-date"
	spaRowIssued      = "td.col-issued"
	spaRowAddress     = "td.col-address"
	spaRowDescription = "td.col-description"
)

// SPAAdapter drives the Angular-era single-page search portal. The portal
// renders through a digest cycle that does not always observe native DOM
// events, so every state change is applied twice: once through the
// framework's data-binding controller and once as native events.
type SPAAdapter struct {
	site     sites.Site
	enricher *Enricher
	timeouts Timeouts
}

func NewSPAAdapter(site sites.Site, enricher *Enricher, timeouts Timeouts) *SPAAdapter {
	return &SPAAdapter{site: site, enricher: enricher, timeouts: timeouts}
}

func (a *SPAAdapter) Crawl(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) ([]models.Permit, error) {
	if err := d.Navigate(ctx, a.site.SearchURL()); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := d.WaitLoad(ctx); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	browser.WaitFrameworkIdle(ctx, d)

	if err := a.selectCategory(ctx, d); err != nil {
		return nil, err
	}
	if err := a.openDateFilters(ctx, d); err != nil {
		return nil, err
	}
	if err := a.setDates(ctx, d, criteria); err != nil {
		return nil, err
	}
	if err := a.triggerSearch(ctx, d); err != nil {
		return nil, err
	}

	// No rows after the wait means zero results, not a failure.
	if !browser.WaitSelector(ctx, d, spaResultRow, a.timeouts.Element) {
		log.Debug().Str("site", a.site.ID).Msg("no result rows appeared, treating as empty result set")
		return nil, nil
	}

	return a.pageLoop(ctx, d, criteria)
}

// selectCategory finds the record-category option by scanning option text.
// Option ordering is not stable across deployments, so matching by value or
// index is not an option.
func (a *SPAAdapter) selectCategory(ctx context.Context, d browser.Driver) error {
	options, err := d.Elements(spaCategoryOption)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCategoryNotFound, err)
	}

	want := strings.ToLower(a.site.CategoryLabel)
	for _, opt := range options {
		text, err := opt.Text()
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(text), want) {
			continue
		}

		value, err := opt.Attribute("value")
		if err != nil || value == "" {
			value = strings.TrimSpace(text)
		}

		a.applyModel(ctx, d, spaCategorySelect, value)
		if err := d.SetField(ctx, spaCategorySelect, value); err != nil {
			return fmt.Errorf("apply category selection: %w", err)
		}
		browser.WaitFrameworkIdle(ctx, d)
		return nil
	}

	return fmt.Errorf("%w: no option matching %q", ErrCategoryNotFound, a.site.CategoryLabel)
}

// openDateFilters expands the advanced-filters panel holding the date
// inputs. The toggle is conditionally rendered after category selection, and
// its visibility does not guarantee the panel mounts, so the click is
// retried a few times.
func (a *SPAAdapter) openDateFilters(ctx context.Context, d browser.Driver) error {
	if !browser.WaitVisible(ctx, d, spaAdvancedToggle, a.timeouts.Element) {
		return ErrAdvancedToggleNotFound
	}

	for attempt := 1; attempt <= filterPanelAttempts; attempt++ {
		a.evalHandler(ctx, d, "toggleAdvancedSearch")
		if err := d.Click(ctx, spaAdvancedToggle); err != nil {
			log.Debug().Str("site", a.site.ID).Err(err).Msg("advanced toggle click failed")
		}

		if browser.WaitSelector(ctx, d, spaDateFromInput, a.timeouts.Element) {
			return nil
		}
		log.Debug().Str("site", a.site.ID).Int("attempt", attempt).Msg("date filter panel did not mount, retrying toggle")
	}

	return ErrFilterPanelNotFound
}

// setDates writes the date range. The upper bound is only written when the
// caller supplied one; the portal treats a missing upper bound as an
// open-ended search.
func (a *SPAAdapter) setDates(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) error {
	if criteria.StartDate.IsZero() {
		return nil
	}

	from := normalize.FormatPortalDate(criteria.StartDate)
	a.applyModel(ctx, d, spaDateFromInput, from)
	if err := d.SetField(ctx, spaDateFromInput, from); err != nil {
		return fmt.Errorf("%w: %v", ErrDateFieldNotFound, err)
	}

	if end, ok := criteria.EndDate.Get(); ok {
		to := normalize.FormatPortalDate(end)
		a.applyModel(ctx, d, spaDateToInput, to)
		if err := d.SetField(ctx, spaDateToInput, to); err != nil {
			return fmt.Errorf("%w: %v", ErrDateFieldNotFound, err)
		}
	}
	return nil
}

// triggerSearch fires the search through the scope handler when reachable
// and always follows with a native click.
func (a *SPAAdapter) triggerSearch(ctx context.Context, d browser.Driver) error {
	handled := a.evalHandler(ctx, d, "search")
	if err := d.Click(ctx, spaSearchButton); err != nil && !handled {
		return fmt.Errorf("%w: %v", ErrSearchControlNotFound, err)
	}
	browser.WaitFrameworkIdle(ctx, d)
	browser.Settle(ctx, a.timeouts.Settle)
	return nil
}

// pageLoop harvests rows page by page. The next control is re-checked after
// every page, and the loop additionally caps total iterations; pagination is
// the only unbounded point in the whole crawl.
func (a *SPAAdapter) pageLoop(ctx context.Context, d browser.Driver, criteria models.SearchCriteria) ([]models.Permit, error) {
	var permits []models.Permit

	for page := 1; page <= maxSPAPages; page++ {
		rows, err := d.Elements(spaResultRow)
		if err != nil {
			return permits, nil
		}

		for _, row := range rows {
			p, ok := a.parseRow(ctx, d, row)
			if !ok {
				continue
			}
			permits = append(permits, p)

			if criteria.RecordLimit > 0 && len(permits) >= criteria.RecordLimit {
				return permits, nil
			}
		}

		if !a.advancePage(ctx, d) {
			break
		}
		browser.WaitFrameworkIdle(ctx, d)
		browser.Settle(ctx, a.timeouts.Settle)
	}

	return permits, nil
}

// advancePage reports whether a next page was requested. An absent or
// disabled control, or a click that cannot be delivered, all mean the
// results are exhausted; partial results are valid output.
func (a *SPAAdapter) advancePage(ctx context.Context, d browser.Driver) bool {
	has, err := d.Has(spaNextPage)
	if err != nil || !has {
		return false
	}

	next, err := d.Element(spaNextPage)
	if err != nil {
		return false
	}
	class, _ := next.Attribute("class")
	if strings.Contains(class, "disabled") {
		return false
	}

	a.evalHandler(ctx, d, "nextPage")
	if err := next.Click(); err != nil {
		log.Debug().Str("site", a.site.ID).Err(err).Msg("next page click failed, ending pagination")
		return false
	}
	return true
}

func (a *SPAAdapter) parseRow(ctx context.Context, d browser.Driver, row browser.Element) (models.Permit, bool) {
	fields := rowFields{
		PermitNumber: elementText(row, spaRowNumberLink),
		PermitType:   elementText(row, spaRowType),
		StatusText:   elementText(row, spaRowStatus),
		AppliedDate:  elementText(row, spaRowApplied),
		IssuedDate:   elementText(row, spaRowIssued),
		Address:      elementText(row, spaRowAddress),
		Description:  elementText(row, spaRowDescription),
	}
	fields.Title = fields.PermitType

	if link, err := row.Element(spaRowNumberLink); err == nil {
		href, _ := link.Attribute("href")
		fields.DetailLink = href
	}

	p, ok := finalize(a.site, fields)
	if !ok {
		return models.Permit{}, false
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
	return p, true
}

// applyModel sets a value through the framework's data-binding controller.
// Failures are tolerated; the native-event write that always follows is the
// second half of the protocol.
func (a *SPAAdapter) applyModel(ctx context.Context, d browser.Driver, selector, value string) {
	applied, err := d.EvalBool(ctx, spaModelAssignScript(selector, value))
	if err != nil || !applied {
		log.Debug().Str("site", a.site.ID).Str("selector", selector).Msg("model assignment not applied, relying on native events")
	}
}

// evalHandler invokes a named handler on the element's scope, returning
// whether the handler was found and called.
func (a *SPAAdapter) evalHandler(ctx context.Context, d browser.Driver, name string) bool {
	ok, err := d.EvalBool(ctx, spaScopeCallScript(name))
	return err == nil && ok
}

func elementText(parent browser.Element, selector string) string {
	el, err := parent.Element(selector)
	if err != nil {
		return ""
	}
	text, err := el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// spaModelAssignScript writes a value into an input's ngModel controller and
// schedules a digest, so the framework observes the change regardless of
// event delivery.
func spaModelAssignScript(selector, value string) string {
	return fmt.Sprintf(`() => {
	if (!window.angular) return false;
	const el = document.querySelector(%q);
	if (!el) return false;
	const ngEl = window.angular.element(el);
	const model = ngEl.controller('ngModel');
	const scope = ngEl.scope();
	if (!model || !scope) return false;
	model.$setViewValue(%q);
	model.$render();
	scope.$applyAsync();
	return true;
}`, selector, value)
}

// spaScopeCallScript calls a named zero-argument handler on the document
// scope when it exists.
func spaScopeCallScript(name string) string {
	return fmt.Sprintf(`() => {
	if (!window.angular) return false;
	const scope = window.angular.element(document.body).scope();
	if (!scope || typeof scope[%q] !== 'function') return false;
	scope.$apply(() => scope[%q]());
	return true;
}`, name, name)
}
