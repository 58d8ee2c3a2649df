package normalize

import (
	"strings"
	"time"
)

// PortalDateLayout is the MM/DD/YYYY text format both vendor platforms use
// in their date fields.
const PortalDateLayout = "01/02/2006"

// ParsePortalDate parses a portal-format date string. Invalid input yields
// ok=false, never an error or a shifted date.
func ParsePortalDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(PortalDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatPortalDate renders a date in the portals' MM/DD/YYYY text form.
func FormatPortalDate(t time.Time) string {
	return t.Format(PortalDateLayout)
}
