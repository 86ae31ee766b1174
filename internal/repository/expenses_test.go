package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{name: "whole", amount: "120", want: 12000},
		{name: "cents", amount: "12.34", want: 1234},
		{name: "rounds half cent", amount: "0.005", want: 1},
		{name: "zero", amount: "0", want: 0},
		{name: "max int64 cents", amount: "92233720368547758.07", want: 9223372036854775807},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toCents(decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, fromCents(got).Equal(decimal.RequireFromString(tt.amount).Round(2)))
		})
	}
}

func TestToCents_OutOfRange(t *testing.T) {
	for _, amount := range []string{"1e20", "100000000000000000", "92233720368547758.08", "-1e20"} {
		t.Run(amount, func(t *testing.T) {
			_, err := toCents(decimal.RequireFromString(amount))
			require.ErrorIs(t, err, ErrAmountOutOfRange)
		})
	}
}
