// Package normalize converts raw scraped portal text into structured values.
// Everything here is a pure function; the extraction engine calls these on
// whatever text it managed to pull out of an uncontrolled page.
package normalize

import (
	"strings"

	"github.com/civiclens/permit-crawler/common/models"
)

// exactStatuses are full-string matches, checked before any keyword rules.
// The portals use overlapping vocabulary ("Active - Issued" vs "Active -
// Pending Review" both contain "active"), so specific phrases must win over
// generic ones.
var exactStatuses = map[string]models.PermitStatus{
	"active - issued":          models.StatusIssued,
	"issued":                   models.StatusIssued,
	"finaled":                  models.StatusIssued,
	"active - pending review":  models.StatusInReview,
	"submitted":                models.StatusInReview,
	"submitted - online":       models.StatusInReview,
	"in review":                models.StatusInReview,
	"plan check":               models.StatusInReview,
	"received":                 models.StatusInReview,
	"void":                     models.StatusInactive,
	"expired":                  models.StatusInactive,
	"withdrawn":                models.StatusInactive,
	"closed":                   models.StatusInactive,
	"cancelled":                models.StatusInactive,
	"canceled":                 models.StatusInactive,
}

// keywordStatuses are substring matches, checked in order after the exact
// table. More specific words first.
var keywordStatuses = []struct {
	word   string
	status models.PermitStatus
}{
	{"issued", models.StatusIssued},
	{"finaled", models.StatusIssued},
	{"completed", models.StatusIssued},
	{"expired", models.StatusInactive},
	{"void", models.StatusInactive},
	{"withdrawn", models.StatusInactive},
	{"cancel", models.StatusInactive},
	{"closed", models.StatusInactive},
	{"denied", models.StatusInactive},
	{"pending", models.StatusInReview},
	{"review", models.StatusInReview},
	{"submitted", models.StatusInReview},
	{"applied", models.StatusInReview},
	{"received", models.StatusInReview},
	{"plan check", models.StatusInReview},
}

// Status maps free-text portal status into the closed four-value set. The
// ordering is exact match, then specific keyword, then the generic "active"
// bucket, then UNKNOWN; it must stay that way or overlapping vocabulary
// mis-buckets.
func Status(raw string) models.PermitStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return models.StatusUnknown
	}

	if status, ok := exactStatuses[s]; ok {
		return status
	}

	for _, kw := range keywordStatuses {
		if strings.Contains(s, kw.word) {
			return kw.status
		}
	}

	// An unmapped status that still says "active" is treated as the
	// conservative still-open bucket rather than UNKNOWN.
	if strings.Contains(s, "active") {
		return models.StatusInReview
	}

	return models.StatusUnknown
}
