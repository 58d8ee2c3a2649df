package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"

	"github.com/civiclens/permit-crawler/browser/drivertest"
	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/sites"
)

func testLegacySite() sites.Site {
	return sites.Site{
		ID:                  "oldtown-ca",
		Name:                "Oldtown Permit Search",
		Platform:            sites.PlatformLegacy,
		BaseURL:             "https://permits.oldtown.gov",
		SearchPath:          "/eTRAKiT/Search/permit.aspx",
		CategoryLabel:       "Building",
		City:                "Oldtown",
		State:               "CA",
		DateSearchSupported: true,
	}
}

const legacyResultsHTML = `<html><body>
<table class="rgMasterTable">
<tbody>
<tr class="rgRow">
  <td><a href="PermitDetail.aspx?id=1">BLD24-100</a></td>
  <td>Building</td>
  <td>ISSUED</td>
  <td>01/15/2025</td>
  <td>123 MAIN ST OLDTOWN CA 95014</td>
  <td>Water heater replacement</td>
</tr>
<tr class="rgAltRow">
  <td><a href="PermitDetail.aspx?id=2">BLD24-101</a></td>
  <td>Building</td>
  <td>PENDING</td>
  <td>01/16/2025</td>
  <td>456 OAK AVE OLDTOWN CA 95014</td>
  <td>Re-roof</td>
</tr>
<tr class="rgRow">
  <td></td>
  <td>Building</td>
  <td>ISSUED</td>
  <td>01/16/2025</td>
  <td>789 ELM ST OLDTOWN CA 95014</td>
  <td>Row without a permit number</td>
</tr>
</tbody>
</table>
</body></html>`

// newLegacyPage builds a fake postback search page with labelled date
// inputs, a search button, and one page of grid results.
func newLegacyPage() *drivertest.Page {
	p := drivertest.NewPage()

	p.SetNodes("label",
		&drivertest.Node{TextValue: "Applied From:", Attrs: map[string]string{"for": "ctl00_txtApplyFrom"}},
		&drivertest.Node{TextValue: "Applied To:", Attrs: map[string]string{"for": "ctl00_txtApplyTo"}},
	)
	p.SetNodes("input#cmdSearch", drivertest.TextNode("Search"))
	p.SetNodes(legacyResultsTable, &drivertest.Node{})
	p.SetHTML(legacyResultsHTML)
	return p
}

func TestLegacyCrawlSinglePage(t *testing.T) {
	page := newLegacyPage()

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	adapter := NewLegacyAdapter(testLegacySite(), NewEnricher(testLegacySite(), testTimeouts()), testTimeouts())

	permits, err := adapter.Crawl(context.Background(), page, models.SearchCriteria{
		StartDate: start,
		EndDate:   mo.Some(start.AddDate(0, 0, 1)),
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(permits) != 2 {
		t.Fatalf("got %d permits, want 2 (numberless row dropped)", len(permits))
	}

	first, second := permits[0], permits[1]
	if first.PermitNumber != "BLD24-100" || second.PermitNumber != "BLD24-101" {
		t.Errorf("permit numbers = %q, %q", first.PermitNumber, second.PermitNumber)
	}
	if first.Status != models.StatusIssued {
		t.Errorf("first status = %v, want ISSUED", first.Status)
	}
	if second.Status != models.StatusInReview {
		t.Errorf("second status = %v, want IN_REVIEW", second.Status)
	}
	if first.PostalCode != "95014" {
		t.Errorf("postal code = %q, want 95014", first.PostalCode)
	}
	if first.City != "Oldtown" {
		t.Errorf("city = %q, want from site config", first.City)
	}
	if want := "https://permits.oldtown.gov/eTRAKiT/Search/PermitDetail.aspx?id=1"; first.SourceURL != want {
		t.Errorf("source URL = %q, want %q", first.SourceURL, want)
	}

	fields := page.Fields()
	if fields["#ctl00_txtApplyFrom"] != "01/15/2025" {
		t.Errorf("from field = %q", fields["#ctl00_txtApplyFrom"])
	}
	if fields["#ctl00_txtApplyTo"] != "01/16/2025" {
		t.Errorf("to field = %q", fields["#ctl00_txtApplyTo"])
	}
	if clicked := page.Clicked(); len(clicked) == 0 || clicked[0] != "input#cmdSearch" {
		t.Errorf("clicked = %v, want search control first", clicked)
	}
}

func TestLegacyCrawlDateFieldNotFound(t *testing.T) {
	page := drivertest.NewPage()
	page.SetNodes("label", &drivertest.Node{TextValue: "Permit Number:", Attrs: map[string]string{"for": "txtNumber"}})

	adapter := NewLegacyAdapter(testLegacySite(), nil, testTimeouts())
	_, err := adapter.Crawl(context.Background(), page, models.SearchCriteria{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected an error when no date input is discoverable")
	}
}

func TestLegacyCrawlSearchControlNotFound(t *testing.T) {
	page := drivertest.NewPage()
	page.SetNodes("label", &drivertest.Node{TextValue: "Applied From:", Attrs: map[string]string{"for": "txtFrom"}})

	adapter := NewLegacyAdapter(testLegacySite(), nil, testTimeouts())
	_, err := adapter.Crawl(context.Background(), page, models.SearchCriteria{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected an error when no search control matches")
	}
}

func TestLegacyPaginationByAnchorText(t *testing.T) {
	page := newLegacyPage()

	// A "Next" anchor that serves the same grid twice, then disappears.
	pagesServed := 0
	next := &drivertest.Node{TextValue: "Next"}
	next.OnClick = func() {
		pagesServed++
		if pagesServed >= 2 {
			page.RemoveNodes("a")
		}
	}
	page.SetNodes("a", next)

	adapter := NewLegacyAdapter(testLegacySite(), nil, testTimeouts())
	permits, err := adapter.Crawl(context.Background(), page, models.SearchCriteria{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	// Three passes over the same two-row grid.
	if len(permits) != 6 {
		t.Errorf("got %d permits, want 6 from three pages", len(permits))
	}
}

func TestLegacyZeroResults(t *testing.T) {
	page := drivertest.NewPage()
	page.SetNodes("label", &drivertest.Node{TextValue: "Applied From:", Attrs: map[string]string{"for": "txtFrom"}})
	page.SetNodes("input#cmdSearch", drivertest.TextNode("Search"))

	adapter := NewLegacyAdapter(testLegacySite(), nil, testTimeouts())
	permits, err := adapter.Crawl(context.Background(), page, models.SearchCriteria{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("zero results must not be an error, got %v", err)
	}
	if len(permits) != 0 {
		t.Errorf("got %d permits, want 0", len(permits))
	}
}

func TestLegacyShortRowsSkipped(t *testing.T) {
	page := newLegacyPage()
	// Grouping and summary rows in the grid carry fewer cells than records.
	page.SetHTML(`<html><body>
<table class="rgMasterTable">
<tbody>
<tr class="rgRow"><td colspan="3">Permit Type: Building</td></tr>
<tr class="rgRow">
  <td><a href="PermitDetail.aspx?id=5">BLD24-105</a></td>
  <td>Building</td>
  <td>ISSUED</td>
  <td>01/15/2025</td>
  <td>12 PINE CT OLDTOWN CA 95014</td>
  <td>Panel upgrade</td>
</tr>
<tr class="rgAltRow">
  <td>BLD24-106</td>
  <td>Building</td>
  <td>ISSUED</td>
  <td>01/15/2025</td>
  <td>Truncated row missing description</td>
</tr>
</tbody>
</table>
</body></html>`)

	adapter := NewLegacyAdapter(testLegacySite(), nil, testTimeouts())
	permits, err := adapter.Crawl(context.Background(), page, models.SearchCriteria{
		StartDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if len(permits) != 1 {
		t.Fatalf("got %d permits, want 1 (short rows skipped)", len(permits))
	}
	if permits[0].PermitNumber != "BLD24-105" {
		t.Errorf("permit number = %q, want BLD24-105", permits[0].PermitNumber)
	}
}
