package calc

import (
	"fmt"

	"github.com/motorlot/taxengine/money"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ReciprocityInput carries everything the credit computation needs. OwnTax is
// the registering jurisdiction's full computed tax; StateOnlyTax is its
// non-local portion, the sub-cap for CREDIT_UP_TO_STATE_RATE.
type ReciprocityInput struct {
	Config           business.Reciprocity
	HomeJurisdiction string
	HomeTaxPaid      decimal.Decimal
	OwnTax           decimal.Decimal
	StateOnlyTax     decimal.Decimal
	DealType         business.DealType
	ProofProvided    bool
}

// ComputeCredit computes the credit owed against home-jurisdiction tax
// already paid. Missing proof and out-of-scope deals yield a zero credit with
// a warning, never an error: the dealer still needs a usable number. The
// credit never exceeds OwnTax; whatever home tax remains uncredited is
// reported as discarded, not silently dropped.
func ComputeCredit(in ReciprocityInput) (business.ReciprocityResult, []string, error) {
	res := business.ReciprocityResult{
		HomeJurisdiction: in.HomeJurisdiction,
		HomeTaxPaid:      money.ClampZero(in.HomeTaxPaid),
	}
	var warnings []string

	credit := decimal.Zero
	switch {
	case !in.Config.Enabled:
		warnings = append(warnings, "reciprocity is not recognized by this jurisdiction; no credit for tax paid elsewhere")
	case !scopePermits(in.Config.Scope, in.DealType):
		warnings = append(warnings, fmt.Sprintf("reciprocity scope %s does not cover %s deals; no credit applied", in.Config.Scope, in.DealType))
	case in.Config.ProofRequired && !in.ProofProvided:
		warnings = append(warnings, "proof of tax paid to home jurisdiction not provided; credit withheld pending documentation")
	default:
		var err error
		credit, err = creditForBehavior(in)
		if err != nil {
			return business.ReciprocityResult{}, nil, err
		}
	}

	credit = money.Min(money.ClampZero(credit), money.ClampZero(in.OwnTax))
	res.CreditApplied = credit
	res.ExcessDiscarded = money.ClampZero(res.HomeTaxPaid.Sub(credit))
	res.RemainingOwed = money.ClampZero(in.OwnTax.Sub(credit))

	if res.ExcessDiscarded.IsPositive() && credit.IsPositive() {
		warnings = append(warnings, fmt.Sprintf(
			"home-jurisdiction tax paid exceeds tax owed here; excess %s is discarded, not refunded or carried forward",
			res.ExcessDiscarded.StringFixed(2)))
	}

	return res, warnings, nil
}

func creditForBehavior(in ReciprocityInput) (decimal.Decimal, error) {
	raw := money.Min(money.ClampZero(in.HomeTaxPaid), money.ClampZero(in.OwnTax))
	switch in.Config.HomeStateBehavior {
	case business.HomeStateNone:
		return decimal.Zero, nil
	case business.HomeStateCreditUpToStateRate:
		return money.Min(raw, money.ClampZero(in.StateOnlyTax)), nil
	case business.HomeStateCreditFull:
		return raw, nil
	case business.HomeStateOnly:
		// Eligibility was gated by scope; arithmetic matches CREDIT_FULL.
		return raw, nil
	default:
		return decimal.Zero, errors.Errorf("unhandled home state behavior %q", in.Config.HomeStateBehavior)
	}
}

func scopePermits(scope business.ReciprocityScope, dealType business.DealType) bool {
	switch scope {
	case business.ScopeRetailOnly:
		return dealType == business.DealTypeRetail
	case business.ScopeLeaseOnly:
		return dealType == business.DealTypeLease
	case business.ScopeBoth:
		return true
	}
	return false
}
