package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dollarAmountRe = regexp.MustCompile(`\$?\s*([\d,]+(?:\.\d{1,2})?)`)
	// signedDollarAmountRe requires the dollar sign. Free page text carries
	// bare numbers (years, record counts) near the keyword that are not
	// amounts.
	signedDollarAmountRe = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{1,2})?)`)
)

// ParseCurrency parses a scraped monetary string ("$125,000.00", "125000")
// into a non-negative amount. Anything unparseable or negative yields
// ok=false.
func ParseCurrency(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// FindDollarAmount scans text for the first amount following the given
// keyword (case-insensitive). The dollar sign is optional, so it fits
// label-scoped containers where the amount is the only number around.
func FindDollarAmount(text, keyword string) (float64, bool) {
	return findAmount(dollarAmountRe, text, keyword)
}

// FindSignedDollarAmount is FindDollarAmount requiring the dollar sign.
// Used for whole-page scans, where a bare number after the keyword is
// usually not an amount.
func FindSignedDollarAmount(text, keyword string) (float64, bool) {
	return findAmount(signedDollarAmountRe, text, keyword)
}

func findAmount(re *regexp.Regexp, text, keyword string) (float64, bool) {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(keyword))
	if idx < 0 {
		return 0, false
	}

	tail := text[idx:]
	// Bound the scan window so an amount far from the keyword isn't picked up.
	if len(tail) > 200 {
		tail = tail[:200]
	}

	m := re.FindStringSubmatch(tail)
	if m == nil {
		return 0, false
	}
	return ParseCurrency(m[1])
}
