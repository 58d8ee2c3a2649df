package crawler

import "errors"

// Fatal setup errors. Any of these aborts the whole crawl; they surface in
// the result envelope, never as a panic.
var (
	// ErrCategoryNotFound is returned when no search-category option matching
	// the configured label exists in the dropdown.
	ErrCategoryNotFound = errors.New("search category option not found")

	// ErrAdvancedToggleNotFound is returned when the advanced-filters toggle
	// never becomes visible.
	ErrAdvancedToggleNotFound = errors.New("advanced filters toggle not found")

	// ErrFilterPanelNotFound is returned when the date-filter panel never
	// mounts after repeated toggle attempts.
	ErrFilterPanelNotFound = errors.New("date filter panel did not appear")

	// ErrDateFieldNotFound is returned when no date input can be discovered
	// on the search form.
	ErrDateFieldNotFound = errors.New("date input field not found")

	// ErrSearchControlNotFound is returned when none of the candidate search
	// controls exist on the page.
	ErrSearchControlNotFound = errors.New("search control not found")

	// ErrUnsupportedPlatform is returned for a site whose platform tag maps
	// to no adapter.
	ErrUnsupportedPlatform = errors.New("unsupported portal platform")
)
