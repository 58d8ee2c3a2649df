package crawler

import (
	"strings"

	"github.com/civiclens/permit-crawler/common/models"
	"github.com/civiclens/permit-crawler/normalize"
	"github.com/civiclens/permit-crawler/sites"
)

// rowFields is the raw text pulled out of one result row before any
// normalization. Both platform adapters fill this shape; finalize turns it
// into a Permit or rejects it.
type rowFields struct {
	PermitNumber string
	Title        string
	Description  string
	Address      string
	PermitType   string
	StatusText   string
	AppliedDate  string
	IssuedDate   string
	DetailLink   string
}

// finalize builds a Permit from raw row fields. Returns ok=false when the
// row lacks a permit number, the one field a record cannot exist without.
func finalize(site sites.Site, row rowFields) (models.Permit, bool) {
	number := strings.TrimSpace(row.PermitNumber)
	if number == "" {
		return models.Permit{}, false
	}

	p := models.Permit{
		PermitNumber: number,
		Title:        strings.TrimSpace(row.Title),
		Description:  strings.TrimSpace(row.Description),
		PermitType:   strings.TrimSpace(row.PermitType),
		City:         site.City,
		State:        site.State,
		Status:       normalize.Status(row.StatusText),
	}

	addr := normalize.ParseAddress(row.Address)
	p.Address = addr.Full
	p.PostalCode = addr.PostalCode

	p.AppliedDateRaw = strings.TrimSpace(row.AppliedDate)
	if d, ok := normalize.ParsePortalDate(p.AppliedDateRaw); ok {
		p.AppliedDate = d
	}

	// A populated issued date is authoritative on portals flagged for it;
	// their status columns are observed to lag behind issuance.
	if site.IssuedDateOverridesStatus && strings.TrimSpace(row.IssuedDate) != "" {
		p.Status = models.StatusIssued
	}

	if !p.Valid() {
		return models.Permit{}, false
	}
	return p, true
}

// resolveDetailURL turns the several relative link forms the portals emit
// into an absolute URL against the site's origin and app path prefix.
func resolveDetailURL(site sites.Site, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	// Hash-route fragments resolve under the app prefix, not the origin root.
	if strings.HasPrefix(link, "#") {
		return site.BaseURL + site.AppPathPrefix + strings.TrimPrefix(link, "#")
	}
	if strings.HasPrefix(link, "/") {
		return site.BaseURL + link
	}
	if site.AppPathPrefix != "" {
		return site.BaseURL + site.AppPathPrefix + "/" + link
	}
	// Bare relative links resolve against the search page's directory.
	dir := site.SearchPath
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i+1]
	}
	return site.BaseURL + dir + link
}
