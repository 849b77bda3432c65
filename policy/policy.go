// Package policy contains the pure interpreter functions that give the
// declarative rule-set fields their computational meaning. Every interpreter
// switches over all declared variants of its policy enum; the default arm
// returns an unhandled-variant error instead of guessing, so introducing a
// new variant fails loudly in every test that touches the interpreter.
package policy

import (
	"github.com/motorlot/taxengine/constants"
	"github.com/motorlot/taxengine/money"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrUnhandledPolicy reports a policy enum variant no interpreter covers.
var ErrUnhandledPolicy = errors.New("unhandled policy variant")

// TradeInCredit computes the trade-in credit against a pre-credit taxable
// base. The credit never exceeds the base and never goes negative, whatever
// the policy shape says.
func TradeInCredit(rule business.TradeInPolicy, base, tradeIn decimal.Decimal) (decimal.Decimal, error) {
	tradeIn = money.ClampZero(tradeIn)
	base = money.ClampZero(base)

	var credit decimal.Decimal
	switch rule.Kind {
	case business.TradeInNone:
		credit = decimal.Zero
	case business.TradeInFull:
		credit = tradeIn
	case business.TradeInCapped:
		credit = money.Min(tradeIn, money.ClampZero(rule.Cap))
	case business.TradeInPercent:
		credit = tradeIn.Mul(rule.Percent)
	default:
		return decimal.Zero, errors.Wrapf(ErrUnhandledPolicy, "trade-in policy %q", rule.Kind)
	}

	return money.Min(money.ClampZero(credit), base), nil
}

// IsRebateTaxable classifies a rebate kind under the rule set. A taxable
// rebate does not reduce the taxable base; a non-taxable one does.
func IsRebateTaxable(rs *business.JurisdictionRuleSet, rebateKind string) (business.BoolPolicy, error) {
	switch rebateKind {
	case constants.RebateManufacturer:
		return business.BoolPolicy{
			Value:      rs.ManufacturerRebateTaxable,
			Confidence: business.ConfidenceAuthoritative,
		}, nil
	case constants.RebateDealer:
		return rs.DealerRebateTaxable, nil
	default:
		return business.BoolPolicy{}, errors.Wrapf(ErrUnhandledPolicy, "rebate kind %q", rebateKind)
	}
}

// IsFeeTaxable classifies an itemized fee by code. Fee codes are an open set:
// codes absent from the table fall back to the jurisdiction default.
func IsFeeTaxable(rs *business.JurisdictionRuleSet, feeCode string) bool {
	if taxable, ok := rs.FeeTaxability[feeCode]; ok {
		return taxable
	}
	return rs.DefaultFeeTaxable
}

// IsProductTaxable classifies a backend product kind. Service contract, GAP
// and accessories are each independently classified.
func IsProductTaxable(rs *business.JurisdictionRuleSet, productKind string) (business.BoolPolicy, error) {
	switch productKind {
	case constants.ProductServiceContract:
		return business.BoolPolicy{
			Value:      rs.ServiceContractTaxable,
			Confidence: business.ConfidenceAuthoritative,
		}, nil
	case constants.ProductGAP:
		return rs.GAPTaxable, nil
	case constants.ProductAccessories:
		return business.BoolPolicy{
			Value:      rs.AccessoriesTaxable,
			Confidence: business.ConfidenceAuthoritative,
		}, nil
	default:
		return business.BoolPolicy{}, errors.Wrapf(ErrUnhandledPolicy, "product kind %q", productKind)
	}
}

// IsNegativeEquityTaxable reports whether rolled-in negative equity joins the
// taxable base.
func IsNegativeEquityTaxable(rs *business.JurisdictionRuleSet) business.BoolPolicy {
	return rs.NegativeEquityTaxable
}

// ProductRate returns the rate a backend product is taxed at: its own
// configured fixed rate when the rule set carries one, otherwise fallback
// (normally the vehicle's combined rate).
func ProductRate(rs *business.JurisdictionRuleSet, productKind string, fallback decimal.Decimal) (decimal.Decimal, error) {
	switch productKind {
	case constants.ProductServiceContract:
		if rs.ServiceContractRate != nil {
			return *rs.ServiceContractRate, nil
		}
		return fallback, nil
	case constants.ProductGAP:
		if rs.GAPRate != nil {
			return *rs.GAPRate, nil
		}
		return fallback, nil
	case constants.ProductAccessories:
		return fallback, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnhandledPolicy, "product kind %q", productKind)
	}
}
