package crawler

import (
	"testing"

	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/sites"
)

func TestFinalizeIssuedDateOverride(t *testing.T) {
	row := rowFields{
		PermitNumber: "BLD-1",
		StatusText:   "Submitted - Online",
		IssuedDate:   "01/20/2025",
	}

	site := testSPASite()
	site.IssuedDateOverridesStatus = true
	p, ok := finalize(site, row)
	if !ok {
		t.Fatal("record rejected")
	}
	if p.Status != models.StatusIssued {
		t.Errorf("status = %v, want ISSUED when issued date is populated", p.Status)
	}

	// Same row on a site without the override keeps the text-derived status.
	site.IssuedDateOverridesStatus = false
	p, _ = finalize(site, row)
	if p.Status != models.StatusInReview {
		t.Errorf("status = %v, want IN_REVIEW without the override", p.Status)
	}
}

func TestFinalizeDropsIncompleteRecords(t *testing.T) {
	site := testSPASite()

	if _, ok := finalize(site, rowFields{PermitNumber: "  "}); ok {
		t.Error("record without a permit number must be dropped")
	}

	noCity := site
	noCity.City = ""
	if _, ok := finalize(noCity, rowFields{PermitNumber: "BLD-1"}); ok {
		t.Error("record without a jurisdiction city must be dropped")
	}
}

func TestFinalizeKeepsRawDate(t *testing.T) {
	p, ok := finalize(testSPASite(), rowFields{
		PermitNumber: "BLD-1",
		AppliedDate:  " 01/15/2025 ",
	})
	if !ok {
		t.Fatal("record rejected")
	}
	if p.AppliedDateRaw != "01/15/2025" {
		t.Errorf("raw date = %q, want trimmed verbatim text", p.AppliedDateRaw)
	}
	if p.AppliedDate.IsZero() {
		t.Error("parsed date not set")
	}
}

func TestResolveDetailURL(t *testing.T) {
	spa := testSPASite()
	legacy := testLegacySite()

	tests := []struct {
		name string
		site sites.Site
		link string
		want string
	}{
		{"absolute", spa, "https://other.example/p/1", "https://other.example/p/1"},
		{"hash route", spa, "#/permit/1001", "https://permits.testville.gov/portal/#/permit/1001"},
		{"rooted", spa, "/portal/other", "https://permits.testville.gov/portal/other"},
		{"relative with prefix", spa, "permit/1001", "https://permits.testville.gov/portal/#/permit/1001"},
		{"relative against search dir", legacy, "PermitDetail.aspx?id=9", "https://permits.oldtown.gov/eTRAKiT/Search/PermitDetail.aspx?id=9"},
		{"empty", spa, "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveDetailURL(tt.site, tt.link); got != tt.want {
				t.Errorf("resolveDetailURL(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}
