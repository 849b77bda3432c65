package policy_test

import (
	"testing"

	"github.com/motorlot/taxengine/constants"
	"github.com/motorlot/taxengine/policy"
	"github.com/motorlot/taxengine/testutil"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestTradeInCredit(t *testing.T) {
	tests := []struct {
		name    string
		rule    business.TradeInPolicy
		base    string
		tradeIn string
		want    string
	}{
		{
			name:    "none yields zero",
			rule:    business.TradeInPolicy{Kind: business.TradeInNone},
			base:    "30000",
			tradeIn: "10000",
			want:    "0",
		},
		{
			name:    "full credit",
			rule:    business.TradeInPolicy{Kind: business.TradeInFull},
			base:    "30000",
			tradeIn: "10000",
			want:    "10000",
		},
		{
			name:    "full credit capped at base",
			rule:    business.TradeInPolicy{Kind: business.TradeInFull},
			base:    "8000",
			tradeIn: "10000",
			want:    "8000",
		},
		{
			name:    "capped policy under cap",
			rule:    business.TradeInPolicy{Kind: business.TradeInCapped, Cap: dec("10000")},
			base:    "30000",
			tradeIn: "6000",
			want:    "6000",
		},
		{
			name:    "capped policy over cap",
			rule:    business.TradeInPolicy{Kind: business.TradeInCapped, Cap: dec("10000")},
			base:    "30000",
			tradeIn: "15000",
			want:    "10000",
		},
		{
			name:    "percent policy",
			rule:    business.TradeInPolicy{Kind: business.TradeInPercent, Percent: dec("0.50")},
			base:    "30000",
			tradeIn: "10000",
			want:    "5000",
		},
		{
			name:    "negative trade-in clamped",
			rule:    business.TradeInPolicy{Kind: business.TradeInFull},
			base:    "30000",
			tradeIn: "-500",
			want:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.TradeInCredit(tt.rule, dec(tt.base), dec(tt.tradeIn))
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestTradeInCreditUnhandledKind(t *testing.T) {
	_, err := policy.TradeInCredit(business.TradeInPolicy{Kind: "SLIDING_SCALE"}, dec("1000"), dec("100"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, policy.ErrUnhandledPolicy))
}

func TestIsRebateTaxable(t *testing.T) {
	rs := testutil.StateOnlyRuleSet("CT", "0.0635")
	rs.DealerRebateTaxable = business.BoolPolicy{Value: false, Confidence: business.ConfidenceConservativeDefault}

	mfr, err := policy.IsRebateTaxable(rs, constants.RebateManufacturer)
	require.NoError(t, err)
	assert.True(t, mfr.Value)

	dealer, err := policy.IsRebateTaxable(rs, constants.RebateDealer)
	require.NoError(t, err)
	assert.False(t, dealer.Value)
	assert.Equal(t, business.ConfidenceConservativeDefault, dealer.Confidence)

	_, err = policy.IsRebateTaxable(rs, "LOYALTY")
	assert.True(t, errors.Is(err, policy.ErrUnhandledPolicy))
}

func TestIsFeeTaxable(t *testing.T) {
	rs := testutil.StateOnlyRuleSet("CT", "0.0635")
	rs.FeeTaxability = map[string]bool{"DOC": true, "TITLE": false}
	rs.DefaultFeeTaxable = false

	assert.True(t, policy.IsFeeTaxable(rs, "DOC"))
	assert.False(t, policy.IsFeeTaxable(rs, "TITLE"))
	// Unknown codes fall back to the jurisdiction default.
	assert.False(t, policy.IsFeeTaxable(rs, "SHOP_SUPPLIES"))

	rs.DefaultFeeTaxable = true
	assert.True(t, policy.IsFeeTaxable(rs, "SHOP_SUPPLIES"))
}

func TestIsProductTaxable(t *testing.T) {
	rs := testutil.StateOnlyRuleSet("CT", "0.0635")
	rs.ServiceContractTaxable = true
	rs.GAPTaxable = business.BoolPolicy{Value: false, Confidence: business.ConfidenceConservativeDefault}
	rs.AccessoriesTaxable = true

	sc, err := policy.IsProductTaxable(rs, constants.ProductServiceContract)
	require.NoError(t, err)
	assert.True(t, sc.Value)

	gap, err := policy.IsProductTaxable(rs, constants.ProductGAP)
	require.NoError(t, err)
	assert.False(t, gap.Value)
	assert.Equal(t, business.ConfidenceConservativeDefault, gap.Confidence)

	acc, err := policy.IsProductTaxable(rs, constants.ProductAccessories)
	require.NoError(t, err)
	assert.True(t, acc.Value)

	_, err = policy.IsProductTaxable(rs, "TIRE_WARRANTY")
	assert.True(t, errors.Is(err, policy.ErrUnhandledPolicy))
}

func TestProductRate(t *testing.T) {
	rs := testutil.StateOnlyRuleSet("VA", "0.0415")
	fallback := dec("0.0415")

	rate, err := policy.ProductRate(rs, constants.ProductServiceContract, fallback)
	require.NoError(t, err)
	assert.True(t, rate.Equal(fallback))

	own := dec("0.053")
	rs.ServiceContractRate = &own
	rate, err = policy.ProductRate(rs, constants.ProductServiceContract, fallback)
	require.NoError(t, err)
	assert.True(t, rate.Equal(own))
}

func TestIsNegativeEquityTaxable(t *testing.T) {
	rs := testutil.StateOnlyRuleSet("CT", "0.0635")
	rs.NegativeEquityTaxable = business.BoolPolicy{Value: true, Confidence: business.ConfidenceConservativeDefault}
	pol := policy.IsNegativeEquityTaxable(rs)
	assert.True(t, pol.Value)
	assert.Equal(t, business.ConfidenceConservativeDefault, pol.Confidence)
}
