package money_test

import (
	"testing"

	"github.com/motorlot/taxengine/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyRate(t *testing.T) {
	tests := []struct {
		name string
		base string
		rate string
		want string
	}{
		{name: "exact product", base: "42500", rate: "0.0775", want: "3293.75"},
		{name: "standard rate", base: "28000", rate: "0.0635", want: "1778.00"},
		{name: "fraction below half cent drops", base: "100.07", rate: "0.05", want: "5.00"},
		{name: "rounds down under half cent", base: "99.90", rate: "0.075", want: "7.49"},
		{name: "zero base", base: "0", rate: "0.0635", want: "0.00"},
		{name: "zero rate", base: "31000", rate: "0", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.ApplyRate(decimal.RequireFromString(tt.base), decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestApplyRateRoundsHalfUp(t *testing.T) {
	// 333.30 * 0.075 = 24.9975 -> 25.00, and 66.66 * 0.0075 = 0.49995 -> 0.50
	assert.Equal(t, "25.00", money.ApplyRate(decimal.RequireFromString("333.30"), decimal.RequireFromString("0.075")).StringFixed(2))
	assert.Equal(t, "0.50", money.ApplyRate(decimal.RequireFromString("66.66"), decimal.RequireFromString("0.0075")).StringFixed(2))
}

func TestClampZero(t *testing.T) {
	assert.True(t, money.ClampZero(decimal.RequireFromString("-12.50")).IsZero())
	assert.Equal(t, "12.50", money.ClampZero(decimal.RequireFromString("12.50")).StringFixed(2))
	assert.True(t, money.ClampZero(decimal.Zero).IsZero())
}

func TestMin(t *testing.T) {
	a := decimal.RequireFromString("10")
	b := decimal.RequireFromString("20")
	assert.True(t, money.Min(a, b).Equal(a))
	assert.True(t, money.Min(b, a).Equal(a))
	assert.True(t, money.Min(a, a).Equal(a))
}

func TestRatio(t *testing.T) {
	assert.True(t, money.Ratio(decimal.RequireFromString("5"), decimal.Zero).IsZero())
	got := money.Ratio(decimal.RequireFromString("3293.75"), decimal.RequireFromString("42500"))
	assert.Equal(t, "0.0775", got.String())
}
