package messaging

import "time"

// StreamName is the JetStream stream capturing every crawl-request and
// completion subject. It is ensured at broker setup; publishes to an
// uncaptured subject would never be acked.
const StreamName = "PERMITS"

// CrawlSubject returns the NATS subject crawl requests for a site are
// published on.
func CrawlSubject(siteID string) string {
	return "permits.crawl." + siteID
}

// ResultSubject returns the NATS subject crawl completion events are
// published on.
func ResultSubject(siteID string) string {
	return "permits.result." + siteID
}

// StreamSubjects returns the wildcard subjects the stream must cover. Every
// subject CrawlSubject and ResultSubject can produce falls under one of
// these.
func StreamSubjects() []string {
	return []string{"permits.crawl.*", "permits.result.*"}
}

// CrawlRequest asks the crawler owning a site to run one date-range search.
type CrawlRequest struct {
	JobID  string `json:"job_id"`
	SiteID string `json:"site_id"`
	// StartDate and EndDate are calendar dates in YYYY-MM-DD form. Both empty
	// means "today". EndDate empty with StartDate set means open-ended.
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	RecordLimit int    `json:"record_limit,omitempty"`
}

// CrawlCompleted reports the outcome of a crawl run.
type CrawlCompleted struct {
	JobID       string    `json:"job_id"`
	SiteID      string    `json:"site_id"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	PermitCount int       `json:"permit_count"`
	ScrapedAt   time.Time `json:"scraped_at"`
}
