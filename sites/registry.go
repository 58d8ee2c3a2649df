// Package sites holds the configuration for every municipal permit portal
// the service knows how to crawl, keyed by site ID.
package sites

import (
	"fmt"
	"maps"
	"sort"
	"sync"
)

// Platform identifies which portal vendor a site runs, which in turn picks
// the extraction strategy.
type Platform string

const (
	// PlatformSPA is the Angular single-page search portal.
	PlatformSPA Platform = "spa"
	// PlatformLegacy is the postback-driven ASP.NET portal.
	PlatformLegacy Platform = "legacy"
)

// Site describes one municipal portal deployment. Everything the extraction
// engine needs that varies per city lives here; the engine itself stays
// site-agnostic.
type Site struct {
	ID   string
	Name string

	Platform Platform

	// BaseURL is the portal origin, SearchPath the search page under it.
	// AppPathPrefix is the SPA hash-route prefix used to resolve relative
	// detail links.
	BaseURL       string
	SearchPath    string
	AppPathPrefix string

	// CategoryLabel is the record-type option to select before searching.
	CategoryLabel string

	// City and State name the jurisdiction. They are authoritative for every
	// permit scraped from this site regardless of what the page text says.
	City  string
	State string

	// DetailEnrichment opens each record's detail page for valuation and
	// contractor data. ContractorInfoAccessible gates contractor extraction
	// on portals that hide it behind a login.
	DetailEnrichment         bool
	ContractorInfoAccessible bool

	// DateSearchSupported is false on portals whose date filter is broken;
	// those are crawled without a date range and filtered afterwards.
	DateSearchSupported bool

	// IssuedDateOverridesStatus promotes any record carrying an issued date
	// to ISSUED, for portals whose status column lags behind.
	IssuedDateOverridesStatus bool
}

func (s Site) SearchURL() string {
	return s.BaseURL + s.SearchPath
}

var (
	registry     = make(map[string]Site)
	registryLock sync.RWMutex
)

// Register adds a site to the registry. Duplicate IDs are a programming
// error and panic at init time.
func Register(s Site) {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, ok := registry[s.ID]; ok {
		panic(fmt.Sprintf("sites: duplicate site ID %q", s.ID))
	}
	registry[s.ID] = s
}

// Get returns the site registered under id.
func Get(id string) (Site, bool) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	s, ok := registry[id]
	return s, ok
}

// All returns a copy of the registry keyed by site ID.
func All() map[string]Site {
	registryLock.RLock()
	defer registryLock.RUnlock()

	out := make(map[string]Site, len(registry))
	maps.Copy(out, registry)
	return out
}

// IDs returns every registered site ID in sorted order.
func IDs() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
