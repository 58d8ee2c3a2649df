package normalize

import (
	"regexp"
	"strings"
)

// Address is a parsed raw address string. Full always keeps the trimmed
// original text; the other fields are best-effort.
type Address struct {
	Full       string
	Street     string
	City       string
	State      string
	PostalCode string
}

var (
	zipRe = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

	// cityStateZipRe splits the "City STATE ZIP" suffix the legacy platform
	// appends to a combined address string. The city capture is the last word
	// before the state code; multi-word city names lose their leading words to
	// the street capture. Jurisdiction comes from site configuration, so only
	// the zip is load-bearing here.
	cityStateZipRe = regexp.MustCompile(`^(.*\S)[\s,]+([A-Za-z.]+)\s+([A-Z]{2})\s+(\d{5})(?:-\d{4})?$`)
)

// ParseAddress isolates a postal code out of a raw address string. The full
// trimmed string is always preserved.
func ParseAddress(raw string) Address {
	full := strings.TrimSpace(raw)
	addr := Address{Full: full}

	if m := zipRe.FindStringSubmatch(full); m != nil {
		addr.PostalCode = m[1]
	}
	return addr
}

// SplitCityStateZip parses the legacy platform's combined address form
// ("123 MAIN ST MOUNTAIN VIEW CA 94040") into street, city, state and zip.
// When the suffix does not match, only Full and any found zip are set.
func SplitCityStateZip(raw string) Address {
	full := strings.TrimSpace(raw)

	if m := cityStateZipRe.FindStringSubmatch(full); m != nil {
		return Address{
			Full:       full,
			Street:     strings.TrimSpace(m[1]),
			City:       strings.TrimSpace(m[2]),
			State:      m[3],
			PostalCode: m[4],
		}
	}

	return ParseAddress(full)
}
