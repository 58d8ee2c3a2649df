package normalize

import (
	"testing"
	"time"
)

func TestParsePortalDate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   time.Time
		wantOk bool
	}{
		{"valid", "06/15/2024", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"padded", "  01/02/2024 ", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"month out of range", "13/40/2024", time.Time{}, false},
		{"wrong layout", "2024-06-15", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"garbage", "n/a", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePortalDate(tt.raw)
			if ok != tt.wantOk {
				t.Fatalf("ParsePortalDate(%q) ok = %v, want %v", tt.raw, ok, tt.wantOk)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParsePortalDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatPortalDateRoundTrip(t *testing.T) {
	d := time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)
	back, ok := ParsePortalDate(FormatPortalDate(d))
	if !ok || !back.Equal(d) {
		t.Errorf("round trip of %v produced %v (ok=%v)", d, back, ok)
	}
}
