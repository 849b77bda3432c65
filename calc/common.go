package calc

import (
	"fmt"

	"github.com/motorlot/taxengine/logger"
	"github.com/motorlot/taxengine/types/business"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func engineLogger() *zap.Logger {
	if logger.Log != nil {
		return logger.Log
	}
	return zap.NewNop()
}

func newResult(in business.TaxInput, rs *business.JurisdictionRuleSet) *business.TaxResult {
	return &business.TaxResult{
		Jurisdiction: rs.Jurisdiction,
		RulesVersion: rs.Version,
		Implemented:  rs.Implemented,
		Scheme:       rs.Scheme,
		DealType:     in.DealType,
		Breakdown:    []business.TaxLine{},
	}
}

// resolveRates returns the rate components, honoring a caller-supplied
// override (e.g., a county rate resolved upstream from the buyer's address).
func resolveRates(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) (state, local, district decimal.Decimal) {
	if in.Rates != nil {
		res.Note("caller-supplied rate components used instead of catalog rates")
		return in.Rates.StateRate, in.Rates.LocalRate, in.Rates.DistrictRate
	}
	return rs.Rates.StateRate, rs.Rates.LocalRate, rs.Rates.DistrictRate
}

// noteConfidence surfaces rule fields sourced from conservative defaults
// rather than official guidance, once per field per result.
func noteConfidence(res *business.TaxResult, pol business.BoolPolicy, field string) {
	if pol.Confidence != business.ConfidenceConservativeDefault {
		return
	}
	msg := fmt.Sprintf("%s is a conservative default; no official guidance found", field)
	for _, n := range res.Notes {
		if n == msg {
			return
		}
	}
	res.Note(msg)
}

// maybeApplyReciprocity runs the reciprocity credit when the input supplies a
// home jurisdiction and an amount paid there, and returns the total tax after
// the credit. Without reciprocity inputs it returns ownTax unchanged.
func maybeApplyReciprocity(res *business.TaxResult, in business.TaxInput, rs *business.JurisdictionRuleSet, ownTax, stateOnlyTax decimal.Decimal) (decimal.Decimal, error) {
	if in.HomeJurisdiction == "" || !in.HomeTaxPaid.IsPositive() {
		return ownTax, nil
	}

	sub, warnings, err := ComputeCredit(ReciprocityInput{
		Config:           rs.Reciprocity,
		HomeJurisdiction: in.HomeJurisdiction,
		HomeTaxPaid:      in.HomeTaxPaid,
		OwnTax:           ownTax,
		StateOnlyTax:     stateOnlyTax,
		DealType:         in.DealType,
		ProofProvided:    in.ProofOfTaxPaid,
	})
	if err != nil {
		return decimal.Zero, err
	}

	res.Reciprocity = &sub
	for _, w := range warnings {
		res.Warn(w)
	}
	if sub.CreditApplied.IsPositive() {
		res.Note(fmt.Sprintf("reciprocity credit of %s applied for tax paid to %s",
			sub.CreditApplied.StringFixed(2), in.HomeJurisdiction))
	}
	return sub.RemainingOwed, nil
}
