package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericToKobo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"whole naira", "1500", 150000},
		{"naira and kobo", "1500.50", 150050},
		{"kobo only", "0.99", 99},
		{"zero", "0", 0},
		{"zero with decimals", "0.00", 0},
		{"bundle price", "1200.00", 120000},
		{"commission", "300.00", 30000},
		{"rounds half up", "99.999", 10000},
		{"rounds down", "99.994", 9999},
		{"surrounding whitespace", "  50.25  ", 5025},
		{"negative adjustment", "-10.50", -1050},
		{"single decimal place", "5.5", 550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numericToKobo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericToKobo_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "₦1500.00", "10.5.5"} {
		t.Run("input "+input, func(t *testing.T) {
			_, err := numericToKobo(input)
			assert.Error(t, err)
		})
	}
}

func TestKoboToNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{"whole naira", 150000, "1500.00"},
		{"naira and kobo", 150050, "1500.50"},
		{"kobo only", 99, "0.99"},
		{"zero", 0, "0.00"},
		{"single kobo", 1, "0.01"},
		{"ten kobo", 10, "0.10"},
		{"negative adjustment", -1050, "-10.50"},
		{"negative kobo", -99, "-0.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, koboToNumeric(tt.input))
		})
	}
}

// Whatever goes into a NUMERIC column must come back out as the same kobo
// amount, or order totals and reseller balances drift.
func TestKoboRoundTrip(t *testing.T) {
	for _, kobo := range []int64{0, 1, 10, 99, 100, 150000, 340000, 999999999999, -100, -340000} {
		s := koboToNumeric(kobo)
		back, err := numericToKobo(s)
		require.NoError(t, err)
		assert.Equal(t, kobo, back, "via %s", s)
	}
}
