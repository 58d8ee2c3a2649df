package models

import (
	"time"

	"github.com/samber/mo"
)

// PermitStatus is the closed set of normalized permit states. Raw portal
// status text is always mapped into one of these before a record leaves the
// extraction engine.
type PermitStatus string

const (
	StatusUnknown  PermitStatus = "UNKNOWN"
	StatusInReview PermitStatus = "IN_REVIEW"
	StatusIssued   PermitStatus = "ISSUED"
	StatusInactive PermitStatus = "INACTIVE"
)

// Permit is a single extracted building-permit record.
type Permit struct {
	// PermitNumber is the portal's natural identifier. Together with City and
	// State it forms the upsert key downstream.
	PermitNumber string `json:"permit_number"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`

	// Address is the raw scraped address string, trimmed but otherwise
	// unmodified. PostalCode is isolated from it when present.
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	// City and State come from site configuration, not from the page.
	City  string `json:"city"`
	State string `json:"state"`

	PermitType string       `json:"permit_type,omitempty"`
	Status     PermitStatus `json:"status"`

	Valuation mo.Option[float64] `json:"valuation,omitempty"`

	AppliedDate time.Time `json:"applied_date,omitempty"`
	// AppliedDateRaw keeps the portal's own date text verbatim. Downstream
	// range queries compare these strings exactly, so it is never reformatted.
	AppliedDateRaw string `json:"applied_date_raw,omitempty"`

	ExpirationDate mo.Option[time.Time] `json:"expiration_date,omitempty"`

	SourceURL    string `json:"source_url,omitempty"`
	ContractorID string `json:"contractor_id,omitempty"`
}

// Valid reports whether the record carries the full natural key. Records
// failing this are dropped, never emitted.
func (p Permit) Valid() bool {
	return p.PermitNumber != "" && p.City != "" && p.State != ""
}

// SearchCriteria describes one date-range search against a portal.
type SearchCriteria struct {
	StartDate time.Time
	// EndDate left absent means the search is open-ended from StartDate; the
	// portals treat a missing upper bound as valid.
	EndDate mo.Option[time.Time]
	// RecordLimit bounds how many records (and therefore detail-page fetches)
	// a crawl will produce. Zero means no limit.
	RecordLimit int
}

// CrawlResult is the envelope every crawl returns. The orchestrator never
// lets an error escape past this shape.
type CrawlResult struct {
	Permits   []Permit  `json:"permits"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// BaseResponse is the standard API response wrapper.
type BaseResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the standard API error shape.
type ErrorResponse struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}
