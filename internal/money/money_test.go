// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{"thousands and cents", "$1,234.50", 1234.50, true},
		{"plain", "$215", 215, true},
		{"embedded in text", "Delta 1623 · round trip $389 per person", 389, true},
		{"space after sign", "from $ 412", 412, true},
		{"lower bound inclusive", "$50", 50, true},
		{"upper bound inclusive", "$2,000", 2000, true},
		{"below bound", "$12", 0, false},
		{"above bound", "$45,000", 0, false},
		{"just above bound", "$2,000.01", 0, false},
		{"no currency sign", "1623 miles", 0, false},
		{"empty", "", 0, false},
		{"only the first match counts", "$12 fee, fare $300", 0, false},
		{"first match in bound wins", "$300 or $12", 300, true},
		{"single-digit fraction is ignored", "$199.5", 199, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("$215"))
	assert.True(t, Contains("from $1234"))
	assert.False(t, Contains("$5"))
	assert.False(t, Contains("215 USD"))
}
