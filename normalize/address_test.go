package normalize

import "testing"

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantZip string
	}{
		{"trailing zip", "1067 PAINTBRUSH DR SUNNYVALE CA 94086", "94086"},
		{"zip plus four", "500 CASTRO ST MOUNTAIN VIEW CA 94041-2010", "94041"},
		{"no zip", "500 CASTRO ST", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAddress(tt.raw)
			if got.PostalCode != tt.wantZip {
				t.Errorf("ParseAddress(%q).PostalCode = %q, want %q", tt.raw, got.PostalCode, tt.wantZip)
			}
		})
	}
}

func TestParseAddressKeepsFull(t *testing.T) {
	got := ParseAddress("  1067 PAINTBRUSH DR SUNNYVALE CA 94086  ")
	if got.Full != "1067 PAINTBRUSH DR SUNNYVALE CA 94086" {
		t.Errorf("Full = %q, want trimmed original", got.Full)
	}
}

func TestSplitCityStateZip(t *testing.T) {
	got := SplitCityStateZip("123 MAIN ST SUNNYVALE CA 94086")
	if got.Street != "123 MAIN ST" {
		t.Errorf("Street = %q, want %q", got.Street, "123 MAIN ST")
	}
	if got.City != "SUNNYVALE" {
		t.Errorf("City = %q, want %q", got.City, "SUNNYVALE")
	}
	if got.State != "CA" {
		t.Errorf("State = %q, want %q", got.State, "CA")
	}
	if got.PostalCode != "94086" {
		t.Errorf("PostalCode = %q, want %q", got.PostalCode, "94086")
	}
}

func TestSplitCityStateZipFallback(t *testing.T) {
	got := SplitCityStateZip("APN 123-45-678 no suffix 94086 here")
	if got.State != "" || got.City != "" {
		t.Errorf("unexpected split on non-matching form: %+v", got)
	}
	if got.PostalCode != "94086" {
		t.Errorf("PostalCode = %q, want %q", got.PostalCode, "94086")
	}
}
