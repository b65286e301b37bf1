package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `BRK\.B`, EscapeMarkdownV2("BRK.B"))
	assert.Equal(t, `reached\!`, EscapeMarkdownV2("reached!"))
	assert.Equal(t, `a\\b`, EscapeMarkdownV2(`a\b`))
	assert.Equal(t, "AAPL", EscapeMarkdownV2("AAPL"))
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price  float64
		escape bool
		want   string
	}{
		{price: 2450.75, want: "2,451"},
		{price: 151.256, want: "151.26"},
		{price: 151.256, escape: true, want: `151\.26`},
		{price: 0.5, want: "0.500000"},
		{price: 0.000001, want: "0.00000100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.price, tt.escape))
	}
}

func TestFormatTarget(t *testing.T) {
	assert.Equal(t, "150", FormatTarget(150))
	assert.Equal(t, "150.5", FormatTarget(150.5))
	assert.Equal(t, "0.0000001", FormatTarget(0.0000001))
	assert.Equal(t, "0.00000123", FormatTarget(0.00000123))
	assert.Equal(t, "1234567.89", FormatTarget(1234567.89))
}
