package calc

import (
	"fmt"
	"strings"

	"github.com/motorlot/taxengine/money"
	"github.com/motorlot/taxengine/policy"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Special-scheme calculators. Each is a complete alternate pathway selected
// by the rule set's vehicle tax scheme, not a modification of the retail
// calculator.

// TAVTCalculator computes a one-time title-transfer tax that replaces the
// standard sales tax. Trade-in and rebate policy come from the scheme's own
// configuration, independent of the retail rules.
type TAVTCalculator struct {
	logger *zap.Logger
}

// NewTAVTCalculator creates a new TAVT calculator
func NewTAVTCalculator() *TAVTCalculator {
	return &TAVTCalculator{logger: engineLogger()}
}

func (c *TAVTCalculator) Calculate(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	if rs.TAVT == nil {
		return nil, errors.Errorf("jurisdiction %s has scheme %s but no TAVT configuration", rs.Jurisdiction, rs.Scheme)
	}
	if !in.VehiclePrice.IsPositive() {
		return nil, errors.Wrap(ErrMissingRequiredField, "vehicle_price")
	}

	res := newResult(in, rs)
	res.Note("one-time title ad valorem tax applies at title transfer in place of sales tax")

	base := in.VehiclePrice
	if in.ManufacturerRebate.IsPositive() && !rs.TAVT.ManufacturerRebateTaxable {
		base = base.Sub(in.ManufacturerRebate)
	}
	if in.DealerRebate.IsPositive() {
		if !rs.TAVT.DealerRebateTaxable.Value {
			base = base.Sub(in.DealerRebate)
		}
		noteConfidence(res, rs.TAVT.DealerRebateTaxable, "dealer rebate taxability under TAVT")
	}
	base = money.ClampZero(base)

	credit, err := policy.TradeInCredit(rs.TAVT.TradeIn, base, in.TradeInValue)
	if err != nil {
		return nil, err
	}
	if credit.IsPositive() {
		res.Note(fmt.Sprintf("trade-in credit of %s applied against the title tax base", credit.StringFixed(2)))
	}
	taxable := money.ClampZero(base.Sub(credit))

	tax := money.ApplyRate(taxable, rs.TAVT.Rate)
	res.TaxableAmount = taxable
	res.AddLine(business.TaxLine{
		Label: "Title ad valorem tax", Component: business.ComponentState,
		TaxableAmount: taxable, Rate: rs.TAVT.Rate, TaxAmount: tax,
	})
	res.StateTax = tax

	total, err := maybeApplyReciprocity(res, in, rs, tax, tax)
	if err != nil {
		return nil, err
	}
	res.TotalTax = money.ClampZero(total)
	res.EffectiveRate = money.Ratio(res.TotalTax, res.TaxableAmount)

	c.logger.Debug("TAVT computed",
		zap.String("jurisdiction", rs.Jurisdiction),
		zap.String("total_tax", res.TotalTax.String()))
	return res, nil
}

// HUTCalculator computes a use tax tied to a fixed collection window
// anchored at the transaction date. Out-of-window inputs are flagged, never
// silently ignored.
type HUTCalculator struct {
	logger *zap.Logger
}

// NewHUTCalculator creates a new HUT calculator
func NewHUTCalculator() *HUTCalculator {
	return &HUTCalculator{logger: engineLogger()}
}

func (c *HUTCalculator) Calculate(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	if rs.HUT == nil {
		return nil, errors.Errorf("jurisdiction %s has scheme %s but no HUT configuration", rs.Jurisdiction, rs.Scheme)
	}
	if !in.VehiclePrice.IsPositive() {
		return nil, errors.Wrap(ErrMissingRequiredField, "vehicle_price")
	}

	res := newResult(in, rs)

	anchor := in.TransactionDate
	if anchor.IsZero() {
		anchor = in.AsOf
	}
	windowEnd := anchor.AddDate(0, 0, rs.HUT.WindowDays)
	res.Note(fmt.Sprintf("highway use tax collection window: %s through %s (%d days)",
		anchor.Format("2006-01-02"), windowEnd.Format("2006-01-02"), rs.HUT.WindowDays))
	switch {
	case in.AsOf.Before(anchor):
		res.Warn("as-of date precedes the transaction date; collection window has not opened")
	case in.AsOf.After(windowEnd):
		res.Warn(fmt.Sprintf("as-of date is outside the %d-day collection window (ended %s); late penalties may apply",
			rs.HUT.WindowDays, windowEnd.Format("2006-01-02")))
	}

	base := in.VehiclePrice
	if in.ManufacturerRebate.IsPositive() && !rs.ManufacturerRebateTaxable {
		base = base.Sub(in.ManufacturerRebate)
	}
	if in.DealerRebate.IsPositive() && !rs.DealerRebateTaxable.Value {
		base = base.Sub(in.DealerRebate)
	}
	base = money.ClampZero(base)

	credit, err := policy.TradeInCredit(rs.TradeIn, base, in.TradeInValue)
	if err != nil {
		return nil, err
	}
	taxable := money.ClampZero(base.Sub(credit))
	tax := money.ApplyRate(taxable, rs.HUT.Rate)

	if rs.HUT.MaxTax != nil && tax.GreaterThan(*rs.HUT.MaxTax) {
		res.Note(fmt.Sprintf("highway use tax capped at %s", rs.HUT.MaxTax.StringFixed(2)))
		tax = *rs.HUT.MaxTax
	}

	res.TaxableAmount = taxable
	res.AddLine(business.TaxLine{
		Label: "Highway use tax", Component: business.ComponentState,
		TaxableAmount: taxable, Rate: rs.HUT.Rate, TaxAmount: tax,
	})
	res.StateTax = tax

	total, err := maybeApplyReciprocity(res, in, rs, tax, tax)
	if err != nil {
		return nil, err
	}
	res.TotalTax = money.ClampZero(total)
	res.EffectiveRate = money.Ratio(res.TotalTax, res.TaxableAmount)

	c.logger.Debug("HUT computed",
		zap.String("jurisdiction", rs.Jurisdiction),
		zap.String("total_tax", res.TotalTax.String()))
	return res, nil
}

// PrivilegeCalculator computes a vehicle-class progressive tax. The rate
// bracket is derived from body type and price; a missing or unknown
// classification is a hard error, never a defaulted bracket.
type PrivilegeCalculator struct {
	logger *zap.Logger
}

// NewPrivilegeCalculator creates a new privilege-tax calculator
func NewPrivilegeCalculator() *PrivilegeCalculator {
	return &PrivilegeCalculator{logger: engineLogger()}
}

func (c *PrivilegeCalculator) Calculate(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	if rs.Privilege == nil {
		return nil, errors.Errorf("jurisdiction %s has scheme %s but no privilege configuration", rs.Jurisdiction, rs.Scheme)
	}
	if !in.VehiclePrice.IsPositive() {
		return nil, errors.Wrap(ErrMissingRequiredField, "vehicle_price")
	}

	bracket, err := classify(rs.Privilege, in.BodyType, in.VehiclePrice)
	if err != nil {
		return nil, err
	}

	res := newResult(in, rs)
	res.Note(fmt.Sprintf("vehicle classified as %q; privilege rate %s", bracket.Class, bracket.Rate.String()))

	base := money.ClampZero(in.VehiclePrice)
	credit, err := policy.TradeInCredit(rs.TradeIn, base, in.TradeInValue)
	if err != nil {
		return nil, err
	}
	taxable := money.ClampZero(base.Sub(credit))
	tax := money.ApplyRate(taxable, bracket.Rate)

	res.TaxableAmount = taxable
	res.AddLine(business.TaxLine{
		Label: fmt.Sprintf("Vehicle privilege tax (%s)", bracket.Class), Component: business.ComponentState,
		TaxableAmount: taxable, Rate: bracket.Rate, TaxAmount: tax,
	})
	res.StateTax = tax

	total, err := maybeApplyReciprocity(res, in, rs, tax, tax)
	if err != nil {
		return nil, err
	}
	res.TotalTax = money.ClampZero(total)
	res.EffectiveRate = money.Ratio(res.TotalTax, res.TaxableAmount)

	c.logger.Debug("privilege tax computed",
		zap.String("jurisdiction", rs.Jurisdiction),
		zap.String("class", bracket.Class),
		zap.String("total_tax", res.TotalTax.String()))
	return res, nil
}

// classify picks the bracket for the body type whose minimum price is the
// highest one at or below the vehicle price.
func classify(rules *business.PrivilegeRules, bodyType string, price decimal.Decimal) (business.PrivilegeBracket, error) {
	class := strings.ToLower(strings.TrimSpace(bodyType))
	if class == "" {
		return business.PrivilegeBracket{}, errors.Wrap(ErrMissingClassification, "body_type")
	}

	var best *business.PrivilegeBracket
	known := false
	for i := range rules.Brackets {
		b := rules.Brackets[i]
		if b.Class != class {
			continue
		}
		known = true
		if b.MinPrice.GreaterThan(price) {
			continue
		}
		if best == nil || b.MinPrice.GreaterThan(best.MinPrice) {
			best = &rules.Brackets[i]
		}
	}
	if best == nil {
		if !known {
			return business.PrivilegeBracket{}, errors.Wrapf(ErrMissingClassification, "no bracket for vehicle class %q", class)
		}
		return business.PrivilegeBracket{}, errors.Wrapf(ErrMissingClassification, "no bracket for class %q at price %s", class, price.StringFixed(2))
	}
	return *best, nil
}
