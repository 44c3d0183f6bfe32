package results

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestScale(t *testing.T) {
	tests := []struct {
		part, whole string
		want        string
	}{
		{"25", "100", "25"},
		{"1", "4", "25"},
		{"150", "100", "100"},
		{"-5", "100", "0"},
		{"10", "0", "0"},
		{"10", "-20", "0"},
		{"0", "50", "0"},
		{"50", "50", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.part+"/"+tt.whole, func(t *testing.T) {
			got := Scale(decimal.RequireFromString(tt.part), decimal.RequireFromString(tt.whole))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Scale(%s, %s) = %s, want %s", tt.part, tt.whole, got, tt.want)
			}
		})
	}
}
