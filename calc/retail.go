package calc

import (
	"fmt"
	"strings"

	"github.com/motorlot/taxengine/constants"
	"github.com/motorlot/taxengine/money"
	"github.com/motorlot/taxengine/policy"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RetailCalculator computes tax on a generic retail vehicle sale: base
// assembly, rate-threshold evaluation, trade-in credit, rate application and
// reciprocity. Special-scheme jurisdictions never reach this path.
type RetailCalculator struct {
	logger *zap.Logger
}

// NewRetailCalculator creates a new retail calculator
func NewRetailCalculator() *RetailCalculator {
	return &RetailCalculator{logger: engineLogger()}
}

// Calculate computes the retail tax result for the input under the resolved
// rule set.
func (c *RetailCalculator) Calculate(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	if !in.VehiclePrice.IsPositive() {
		return nil, errors.Wrap(ErrMissingRequiredField, "vehicle_price")
	}

	res := newResult(in, rs)

	stateRate, localRate, districtRate := resolveRates(in, rs, res)

	// (1) Pre-credit base: price, taxable fees, taxable add-ons, minus
	// base-reducing rebates.
	base := in.VehiclePrice
	taxableFees := c.addFees(in, rs, res)
	base = base.Add(taxableFees)
	base = base.Add(c.addProducts(in, rs, res))
	base = base.Sub(c.rebateReduction(in, rs, res))
	base = base.Add(c.addNegativeEquity(in, rs, res))
	preCreditBase := money.ClampZero(base)

	// (3) Trade-in credit, floored at zero against the pre-credit base.
	credit, err := policy.TradeInCredit(rs.TradeIn, preCreditBase, in.TradeInValue)
	if err != nil {
		return nil, err
	}
	if credit.IsPositive() {
		res.Note(fmt.Sprintf("trade-in credit of %s applied (%s policy)", credit.StringFixed(2), rs.TradeIn.Kind))
	} else if in.TradeInValue.IsPositive() && rs.TradeIn.Kind == business.TradeInNone {
		res.Note("jurisdiction allows no trade-in credit; trade-in value does not reduce the taxable base")
	}
	taxable := money.ClampZero(preCreditBase.Sub(credit))

	// (2) Threshold evaluation happens on the basis the rule set fixes,
	// never on an assumed one.
	stateRate = c.applyThreshold(rs, res, preCreditBase, taxable, taxableFees, stateRate)

	res.TaxableAmount = taxable

	// (5) Rate application, each component its own breakdown line.
	stateTax := money.ApplyRate(taxable, stateRate)
	res.AddLine(business.TaxLine{
		Label: "State tax", Component: business.ComponentState,
		TaxableAmount: taxable, Rate: stateRate, TaxAmount: stateTax,
	})
	localTax := decimal.Zero
	if localRate.IsPositive() {
		localTax = money.ApplyRate(taxable, localRate)
		res.AddLine(business.TaxLine{
			Label: "Local tax", Component: business.ComponentLocal,
			TaxableAmount: taxable, Rate: localRate, TaxAmount: localTax,
		})
	}
	districtTax := decimal.Zero
	if districtRate.IsPositive() {
		districtTax = money.ApplyRate(taxable, districtRate)
		res.AddLine(business.TaxLine{
			Label: "Special district tax", Component: business.ComponentDistrict,
			TaxableAmount: taxable, Rate: districtRate, TaxAmount: districtTax,
		})
	}

	// (7) Backend products carrying their own configured rate are taxed as
	// separate lines, not folded into the vehicle base.
	productTax, err := c.fixedRateProductLines(in, rs, res)
	if err != nil {
		return nil, err
	}

	res.StateTax = stateTax
	res.LocalTax = localTax.Add(districtTax)
	ownTax := stateTax.Add(localTax).Add(districtTax).Add(productTax)

	// (6) Reciprocity credit for tax already paid to the buyer's home
	// jurisdiction.
	total, err := maybeApplyReciprocity(res, in, rs, ownTax, stateTax)
	if err != nil {
		return nil, err
	}

	res.TotalTax = money.ClampZero(total)
	res.EffectiveRate = money.Ratio(res.TotalTax, res.TaxableAmount)

	c.logger.Debug("retail tax computed",
		zap.String("jurisdiction", rs.Jurisdiction),
		zap.String("taxable", res.TaxableAmount.String()),
		zap.String("total_tax", res.TotalTax.String()))

	return res, nil
}

// addFees sums the taxable itemized fees (doc fee included) into the base.
func (c *RetailCalculator) addFees(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) decimal.Decimal {
	fees := make([]business.Fee, 0, len(in.Fees)+1)
	if in.DocFee.IsPositive() {
		fees = append(fees, business.Fee{Code: constants.FeeCodeDoc, Amount: in.DocFee, Description: "Documentation fee"})
	}
	fees = append(fees, in.Fees...)

	taxable := decimal.Zero
	var skipped []string
	for _, fee := range fees {
		if !fee.Amount.IsPositive() {
			continue
		}
		if policy.IsFeeTaxable(rs, fee.Code) {
			taxable = taxable.Add(fee.Amount)
		} else {
			skipped = append(skipped, fee.Code)
		}
	}
	if len(skipped) > 0 {
		res.Note(fmt.Sprintf("fees excluded from taxable base: %s", strings.Join(skipped, ", ")))
	}
	return taxable
}

// addProducts folds taxable backend products into the vehicle base, except
// products carrying their own configured rate, which are taxed separately.
func (c *RetailCalculator) addProducts(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) decimal.Decimal {
	total := decimal.Zero

	if in.Accessories.IsPositive() {
		if rs.AccessoriesTaxable {
			total = total.Add(in.Accessories)
		} else {
			res.Note("accessories are not taxable in this jurisdiction")
		}
	}
	if in.ServiceContract.IsPositive() && rs.ServiceContractRate == nil {
		if rs.ServiceContractTaxable {
			total = total.Add(in.ServiceContract)
		} else {
			res.Note("service contract is not taxable in this jurisdiction")
		}
	}
	if in.GAP.IsPositive() && rs.GAPRate == nil {
		if rs.GAPTaxable.Value {
			total = total.Add(in.GAP)
			noteConfidence(res, rs.GAPTaxable, "GAP taxability")
		} else {
			res.Note("GAP coverage is not taxable in this jurisdiction")
			noteConfidence(res, rs.GAPTaxable, "GAP taxability")
		}
	}
	return total
}

// rebateReduction returns how much the rebates reduce the taxable base.
// Taxable rebates reduce nothing; non-taxable ones come off the base.
func (c *RetailCalculator) rebateReduction(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) decimal.Decimal {
	reduction := decimal.Zero

	if in.ManufacturerRebate.IsPositive() {
		if rs.ManufacturerRebateTaxable {
			res.Note("manufacturer rebate does not reduce the taxable base in this jurisdiction")
		} else {
			reduction = reduction.Add(in.ManufacturerRebate)
		}
	}
	if in.DealerRebate.IsPositive() {
		if rs.DealerRebateTaxable.Value {
			res.Note("dealer rebate/discount does not reduce the taxable base in this jurisdiction")
		} else {
			reduction = reduction.Add(in.DealerRebate)
		}
		noteConfidence(res, rs.DealerRebateTaxable, "dealer rebate taxability")
	}
	return reduction
}

func (c *RetailCalculator) addNegativeEquity(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) decimal.Decimal {
	ne := in.NegativeEquity()
	if !ne.IsPositive() {
		return decimal.Zero
	}
	pol := policy.IsNegativeEquityTaxable(rs)
	noteConfidence(res, pol, "negative equity taxability")
	if pol.Value {
		res.Note(fmt.Sprintf("rolled-in negative equity of %s added to the taxable base", ne.StringFixed(2)))
		return ne
	}
	res.Note("rolled-in negative equity is excluded from the taxable base")
	return decimal.Zero
}

// applyThreshold evaluates any rate-determining threshold exactly on the
// basis the rule specifies and emits the rate-trap and fee-crossing warnings.
func (c *RetailCalculator) applyThreshold(rs *business.JurisdictionRuleSet, res *business.TaxResult, preCreditBase, postCreditBase, taxableFees, stateRate decimal.Decimal) decimal.Decimal {
	th := rs.Rates.Threshold
	if th == nil {
		return stateRate
	}

	basisAmount := preCreditBase
	if th.Basis == business.ThresholdPostTradeIn {
		basisAmount = postCreditBase
	}
	if basisAmount.LessThan(th.Amount) {
		return stateRate
	}

	res.Note(fmt.Sprintf("rate threshold of %s met (%s basis); %s state rate applies",
		th.Amount.StringFixed(2), th.Basis, th.AboveStateRate.String()))

	if th.Basis == business.ThresholdPreTradeIn && postCreditBase.LessThan(th.Amount) {
		res.Warn(fmt.Sprintf(
			"rate trap: threshold is evaluated before trade-in credit, so the %s rate applies even though the post-credit base %s falls below %s",
			th.AboveStateRate.String(), postCreditBase.StringFixed(2), th.Amount.StringFixed(2)))
	}
	if taxableFees.IsPositive() && basisAmount.Sub(taxableFees).LessThan(th.Amount) {
		res.Warn("rate threshold crossed due to taxable fees (e.g., documentation fee); without them the lower rate would apply")
	}

	return th.AboveStateRate
}

// fixedRateProductLines taxes backend products at their own configured rate.
func (c *RetailCalculator) fixedRateProductLines(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) (decimal.Decimal, error) {
	total := decimal.Zero

	type fixedProduct struct {
		kind   string
		label  string
		amount decimal.Decimal
	}
	products := []fixedProduct{
		{constants.ProductServiceContract, "Service contract tax", in.ServiceContract},
		{constants.ProductGAP, "GAP coverage tax", in.GAP},
	}
	for _, p := range products {
		if !p.amount.IsPositive() {
			continue
		}
		taxablePol, err := policy.IsProductTaxable(rs, p.kind)
		if err != nil {
			return decimal.Zero, err
		}
		if !taxablePol.Value {
			continue
		}
		rate, err := policy.ProductRate(rs, p.kind, decimal.Zero)
		if err != nil {
			return decimal.Zero, err
		}
		if rate.IsZero() {
			// Taxed at the vehicle rate; already part of the base.
			continue
		}
		tax := money.ApplyRate(p.amount, rate)
		res.AddLine(business.TaxLine{
			Label: p.label, Component: business.ComponentProduct,
			TaxableAmount: p.amount, Rate: rate, TaxAmount: tax,
		})
		res.Note(fmt.Sprintf("%s taxed at its own configured rate %s rather than the vehicle rate", p.label, rate.String()))
		total = total.Add(tax)
	}
	return total, nil
}
