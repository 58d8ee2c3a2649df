package crawler

import (
	"context"
	"strings"
	"testing"

	"github.com/civiclens/permit-crawler/archive"
	"github.com/civiclens/permit-crawler/browser/drivertest"
	"github.com/civiclens/permit-crawler/common/models"
)

func TestEnrichValuationFromSelector(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	tab.SetNodes("span.valuation-amount", drivertest.TextNode("$85,000.00"))
	tab.SetNodes("div.licensed-professional", drivertest.TextNode("State License #1234567 (Active)"))

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/1"] = tab

	site := testSPASite()
	site.DetailEnrichment = true
	site.ContractorInfoAccessible = true

	enr := NewEnricher(site, testTimeouts()).Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-1", SourceURL: "https://x/detail/1"})

	v, ok := enr.Valuation.Get()
	if !ok || v != 85000 {
		t.Errorf("valuation = %v (ok=%v), want 85000", v, ok)
	}
	if enr.ContractorID != "1234567" {
		t.Errorf("contractor = %q, want 1234567", enr.ContractorID)
	}
	if !tab.Closed() {
		t.Error("detail tab left open")
	}
}

func TestEnrichValuationFromLabelScan(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	tab.SetHTML(`<html><body>
		<div><label>Total Fees Valuation</label><span>$99.00</span></div>
		<div><label>Job Valuation</label><span>$42,500.00</span></div>
	</body></html>`)

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/2"] = tab

	enr := NewEnricher(testSPASite(), testTimeouts()).Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-1", SourceURL: "https://x/detail/2"})

	v, ok := enr.Valuation.Get()
	if !ok || v != 42500 {
		t.Errorf("valuation = %v (ok=%v), want 42500 from the non-total label", v, ok)
	}
}

func TestEnrichPageTextFallback(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	tab.SetHTML(`<html><body><p>Estimated valuation of work: $12,000</p></body></html>`)

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/3"] = tab

	enr := NewEnricher(testSPASite(), testTimeouts()).Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-1", SourceURL: "https://x/detail/3"})

	v, ok := enr.Valuation.Get()
	if !ok || v != 12000 {
		t.Errorf("valuation = %v (ok=%v), want 12000 from page text", v, ok)
	}
}

func TestEnrichPanicYieldsEmptyResult(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { panic("framework handle exploded") }

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/4"] = tab

	enr := NewEnricher(testSPASite(), testTimeouts()).Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-1", SourceURL: "https://x/detail/4"})

	if enr.Valuation.IsPresent() || enr.ContractorID != "" {
		t.Errorf("enrichment = %+v, want empty after panic", enr)
	}
	if !tab.Closed() {
		t.Error("detail tab left open after panic")
	}
}

func TestEnrichContractorSkippedWhenInaccessible(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	tab.SetNodes("div.licensed-professional", drivertest.TextNode("License #7654321"))

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/5"] = tab

	site := testSPASite()
	site.ContractorInfoAccessible = false

	enr := NewEnricher(site, testTimeouts()).Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-1", SourceURL: "https://x/detail/5"})
	if enr.ContractorID != "" {
		t.Errorf("contractor = %q, want skipped on an inaccessible site", enr.ContractorID)
	}
}

type captureStorage struct {
	objects []string
}

func (c *captureStorage) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	c.objects = append(c.objects, objectName)
	return objectName, nil
}

func (c *captureStorage) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	return nil, nil
}

func (c *captureStorage) Delete(ctx context.Context, bucket, objectName string) error {
	return nil
}

func TestEnrichSnapshotsDetailPage(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	tab.SetHTML(`<html><body><p>Valuation: $1,000</p></body></html>`)

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/7"] = tab

	storage := &captureStorage{}
	e := NewEnricher(testSPASite(), testTimeouts()).WithArchiver(archive.NewArchiver(storage, "snapshots"))

	e.Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-7", SourceURL: "https://x/detail/7"})
	if len(storage.objects) == 0 {
		t.Fatal("no snapshot written")
	}
	if !strings.Contains(storage.objects[0], "BLD-7") {
		t.Errorf("snapshot key = %q, want permit number in path", storage.objects[0])
	}
}

func TestEnrichRejectsMiscapturedLicense(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	// 4 digits is too short, 10 digits too long; neither is a license.
	tab.SetNodes("div.licensed-professional", drivertest.TextNode("Suite 1024, phone 4085551234567890"))

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/6"] = tab

	site := testSPASite()
	site.ContractorInfoAccessible = true

	enr := NewEnricher(site, testTimeouts()).Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-1", SourceURL: "https://x/detail/6"})
	if enr.ContractorID != "" {
		t.Errorf("contractor = %q, want no token accepted", enr.ContractorID)
	}
}

type stubSeenChecker struct {
	seen    bool
	queried []string
}

func (s *stubSeenChecker) Seen(ctx context.Context, p models.Permit) (bool, error) {
	s.queried = append(s.queried, p.PermitNumber)
	return s.seen, nil
}

func TestEnrichSkipsRecentlySeenPermit(t *testing.T) {
	page := drivertest.NewPage()

	checker := &stubSeenChecker{seen: true}
	e := NewEnricher(testSPASite(), testTimeouts()).WithSeenChecker(checker)

	enr := e.Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-9", SourceURL: "https://x/detail/9"})

	if enr.Valuation.IsPresent() || enr.ContractorID != "" {
		t.Errorf("enrichment = %+v, want empty for a seen permit", enr)
	}
	if len(page.OpenedTabs()) != 0 {
		t.Errorf("opened %d detail tabs for a seen permit, want 0", len(page.OpenedTabs()))
	}
	if len(checker.queried) != 1 || checker.queried[0] != "BLD-9" {
		t.Errorf("seen cache queried with %v, want [BLD-9]", checker.queried)
	}
}

func TestEnrichProceedsForUnseenPermit(t *testing.T) {
	tab := drivertest.NewPage()
	tab.EvalBoolFunc = func(js string) (bool, error) { return true, nil }
	tab.SetNodes("span.valuation-amount", drivertest.TextNode("$5,000"))

	page := drivertest.NewPage()
	page.Tabs["https://x/detail/10"] = tab

	e := NewEnricher(testSPASite(), testTimeouts()).WithSeenChecker(&stubSeenChecker{seen: false})

	enr := e.Enrich(context.Background(), page, models.Permit{PermitNumber: "BLD-10", SourceURL: "https://x/detail/10"})

	v, ok := enr.Valuation.Get()
	if !ok || v != 5000 {
		t.Errorf("valuation = %v (ok=%v), want 5000 for an unseen permit", v, ok)
	}
}
