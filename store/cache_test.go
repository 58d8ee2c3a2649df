package store

import (
	"testing"

	"github.com/civiclens/permit-crawler/common/models"
)

func TestSeenKey(t *testing.T) {
	tests := []struct {
		name   string
		permit models.Permit
		want   string
	}{
		{
			name: "full jurisdiction",
			permit: models.Permit{
				PermitNumber: "BLD2025-0001",
				City:         "Sunnyvale",
				State:        "CA",
			},
			want: "permit-seen:CA:Sunnyvale:BLD2025-0001",
		},
		{
			name: "same number different city",
			permit: models.Permit{
				PermitNumber: "BLD2025-0001",
				City:         "Campbell",
				State:        "CA",
			},
			want: "permit-seen:CA:Campbell:BLD2025-0001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seenKey(tt.permit); got != tt.want {
				t.Errorf("seenKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
