package calc_test

import (
	"testing"

	"github.com/motorlot/taxengine/calc"
	"github.com/motorlot/taxengine/logger"
	"github.com/motorlot/taxengine/types/business"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestComputeCreditBehaviors(t *testing.T) {
	tests := []struct {
		name          string
		config        business.Reciprocity
		homePaid      string
		ownTax        string
		stateOnly     string
		proof         bool
		wantCredit    string
		wantExcess    string
		wantRemaining string
		wantWarnings  int
	}{
		{
			name: "full credit with excess discarded",
			config: business.Reciprocity{
				Enabled: true, Scope: business.ScopeBoth,
				HomeStateBehavior: business.HomeStateCreditFull, CapAtOwnTax: true,
			},
			homePaid: "2400", ownTax: "1905", stateOnly: "1905",
			wantCredit: "1905", wantExcess: "495", wantRemaining: "0",
			wantWarnings: 1,
		},
		{
			name: "full credit below own tax",
			config: business.Reciprocity{
				Enabled: true, Scope: business.ScopeBoth,
				HomeStateBehavior: business.HomeStateCreditFull, CapAtOwnTax: true,
			},
			homePaid: "1200", ownTax: "1905", stateOnly: "1905",
			wantCredit: "1200", wantExcess: "0", wantRemaining: "705",
		},
		{
			name: "credit capped at state-only portion",
			config: business.Reciprocity{
				Enabled: true, Scope: business.ScopeBoth,
				HomeStateBehavior: business.HomeStateCreditUpToStateRate, CapAtOwnTax: true,
			},
			homePaid: "2400", ownTax: "2100", stateOnly: "1600",
			wantCredit: "1600", wantExcess: "800", wantRemaining: "500",
			wantWarnings: 1,
		},
		{
			name: "behavior NONE yields no credit",
			config: business.Reciprocity{
				Enabled: true, Scope: business.ScopeBoth,
				HomeStateBehavior: business.HomeStateNone,
			},
			homePaid: "2400", ownTax: "1905", stateOnly: "1905",
			wantCredit: "0", wantExcess: "2400", wantRemaining: "1905",
		},
		{
			name: "home-state-only arithmetic matches full credit",
			config: business.Reciprocity{
				Enabled: true, Scope: business.ScopeBoth,
				HomeStateBehavior: business.HomeStateOnly,
			},
			homePaid: "1000", ownTax: "1905", stateOnly: "1905",
			wantCredit: "1000", wantExcess: "0", wantRemaining: "905",
		},
		{
			name: "disabled reciprocity warns and credits nothing",
			config: business.Reciprocity{
				Enabled: false, Scope: business.ScopeBoth,
				HomeStateBehavior: business.HomeStateCreditFull,
			},
			homePaid: "2400", ownTax: "1905", stateOnly: "1905",
			wantCredit: "0", wantExcess: "2400", wantRemaining: "1905",
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings, err := calc.ComputeCredit(calc.ReciprocityInput{
				Config:           tt.config,
				HomeJurisdiction: "MA",
				HomeTaxPaid:      dec(tt.homePaid),
				OwnTax:           dec(tt.ownTax),
				StateOnlyTax:     dec(tt.stateOnly),
				DealType:         business.DealTypeRetail,
				ProofProvided:    tt.proof,
			})
			require.NoError(t, err)

			assert.True(t, got.CreditApplied.Equal(dec(tt.wantCredit)), "credit: got %s want %s", got.CreditApplied, tt.wantCredit)
			assert.True(t, got.ExcessDiscarded.Equal(dec(tt.wantExcess)), "excess: got %s want %s", got.ExcessDiscarded, tt.wantExcess)
			assert.True(t, got.RemainingOwed.Equal(dec(tt.wantRemaining)), "remaining: got %s want %s", got.RemainingOwed, tt.wantRemaining)
			assert.Len(t, warnings, tt.wantWarnings)
			assert.Equal(t, "MA", got.HomeJurisdiction)
		})
	}
}

func TestComputeCreditProofRequired(t *testing.T) {
	cfg := business.Reciprocity{
		Enabled: true, Scope: business.ScopeBoth,
		HomeStateBehavior: business.HomeStateCreditFull,
		ProofRequired:     true,
	}

	got, warnings, err := calc.ComputeCredit(calc.ReciprocityInput{
		Config:       cfg,
		HomeTaxPaid:  dec("2400"),
		OwnTax:       dec("1905"),
		StateOnlyTax: dec("1905"),
		DealType:     business.DealTypeRetail,
	})
	require.NoError(t, err)
	assert.True(t, got.CreditApplied.IsZero())
	assert.True(t, got.RemainingOwed.Equal(dec("1905")))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "proof of tax paid")

	got, _, err = calc.ComputeCredit(calc.ReciprocityInput{
		Config:        cfg,
		HomeTaxPaid:   dec("2400"),
		OwnTax:        dec("1905"),
		StateOnlyTax:  dec("1905"),
		DealType:      business.DealTypeRetail,
		ProofProvided: true,
	})
	require.NoError(t, err)
	assert.True(t, got.CreditApplied.Equal(dec("1905")))
}

func TestComputeCreditScope(t *testing.T) {
	cfg := business.Reciprocity{
		Enabled: true, Scope: business.ScopeRetailOnly,
		HomeStateBehavior: business.HomeStateCreditFull,
	}

	got, warnings, err := calc.ComputeCredit(calc.ReciprocityInput{
		Config:       cfg,
		HomeTaxPaid:  dec("500"),
		OwnTax:       dec("900"),
		StateOnlyTax: dec("900"),
		DealType:     business.DealTypeLease,
	})
	require.NoError(t, err)
	assert.True(t, got.CreditApplied.IsZero())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "scope")

	got, _, err = calc.ComputeCredit(calc.ReciprocityInput{
		Config:       cfg,
		HomeTaxPaid:  dec("500"),
		OwnTax:       dec("900"),
		StateOnlyTax: dec("900"),
		DealType:     business.DealTypeRetail,
	})
	require.NoError(t, err)
	assert.True(t, got.CreditApplied.Equal(dec("500")))
}

func TestComputeCreditUnhandledBehavior(t *testing.T) {
	_, _, err := calc.ComputeCredit(calc.ReciprocityInput{
		Config: business.Reciprocity{
			Enabled: true, Scope: business.ScopeBoth,
			HomeStateBehavior: "REFUND_EXCESS",
		},
		HomeTaxPaid:  dec("100"),
		OwnTax:       dec("200"),
		StateOnlyTax: dec("200"),
		DealType:     business.DealTypeRetail,
	})
	assert.Error(t, err)
}

func TestComputeCreditCapIsStructural(t *testing.T) {
	// The credit never exceeds the tax owed here even when the authored rule
	// set does not spell out an own-tax cap; the excess is discarded.
	got, _, err := calc.ComputeCredit(calc.ReciprocityInput{
		Config: business.Reciprocity{
			Enabled: true, Scope: business.ScopeBoth,
			HomeStateBehavior: business.HomeStateCreditFull,
			CapAtOwnTax:       false,
		},
		HomeJurisdiction: "MA",
		HomeTaxPaid:      dec("2400"),
		OwnTax:           dec("1905"),
		StateOnlyTax:     dec("1905"),
		DealType:         business.DealTypeRetail,
	})
	require.NoError(t, err)
	assert.True(t, got.CreditApplied.Equal(dec("1905")))
	assert.True(t, got.ExcessDiscarded.Equal(dec("495")))
	assert.True(t, got.RemainingOwed.IsZero())
}

func TestComputeCreditNegativeHomePaidClamped(t *testing.T) {
	got, _, err := calc.ComputeCredit(calc.ReciprocityInput{
		Config: business.Reciprocity{
			Enabled: true, Scope: business.ScopeBoth,
			HomeStateBehavior: business.HomeStateCreditFull,
		},
		HomeTaxPaid:  dec("-50"),
		OwnTax:       dec("200"),
		StateOnlyTax: dec("200"),
		DealType:     business.DealTypeRetail,
	})
	require.NoError(t, err)
	assert.True(t, got.HomeTaxPaid.IsZero())
	assert.True(t, got.CreditApplied.IsZero())
	assert.True(t, got.RemainingOwed.Equal(dec("200")))
}
