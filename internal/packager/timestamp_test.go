// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"testing"
	"time"
)

func TestParseOutputTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "x", want: time.Time{}},
		{in: "1704067200", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2024-01-01T00:00:00Z", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2024-01-01T02:00:00+02:00", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "10", wantErr: true},
		{in: "not-a-date", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOutputTimestamp(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimestamp) {
					t.Fatalf("ParseOutputTimestamp(%q) error = %v, want ErrInvalidTimestamp", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutputTimestamp(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseOutputTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
