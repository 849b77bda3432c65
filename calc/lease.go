package calc

import (
	"fmt"

	"github.com/motorlot/taxengine/constants"
	"github.com/motorlot/taxengine/money"
	"github.com/motorlot/taxengine/policy"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LeaseCalculator computes lease tax under the jurisdiction's configured
// method. The method is selected once per call; the five methods are
// mutually exclusive pathways.
type LeaseCalculator struct {
	logger *zap.Logger
}

// NewLeaseCalculator creates a new lease calculator
func NewLeaseCalculator() *LeaseCalculator {
	return &LeaseCalculator{logger: engineLogger()}
}

// Calculate computes the lease tax result for the input under the resolved
// rule set.
func (c *LeaseCalculator) Calculate(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	if in.Lease == nil {
		return nil, errors.Wrap(ErrMissingRequiredField, "lease terms")
	}
	lease := *in.Lease

	res := newResult(in, rs)
	res.Note(fmt.Sprintf("lease taxed under the %s method", rs.Lease.Method))
	if rs.Lease.SpecialScheme != "" {
		res.Note(fmt.Sprintf("jurisdiction-specific lease scheme: %s", rs.Lease.SpecialScheme))
	}

	rate, stateShareRate := c.leaseRates(in, rs, res)

	taxableMonthly, err := c.taxableBackendMonthly(lease, rs, res)
	if err != nil {
		return nil, err
	}

	var total, taxableBase decimal.Decimal
	switch rs.Lease.Method {
	case business.LeaseMonthly:
		total, taxableBase, err = c.paymentStream(lease, rs, res, rate, taxableMonthly, false)
	case business.LeaseFullUpfront:
		total, taxableBase, err = c.fullUpfront(lease, rs, res, rate, taxableMonthly)
	case business.LeaseHybrid:
		total, taxableBase, err = c.paymentStream(lease, rs, res, rate, taxableMonthly, true)
	case business.LeaseNetCapCost:
		total, taxableBase, err = c.netCapCost(lease, rs, res, rate, decimal.NewFromInt(1))
	case business.LeaseReducedBase:
		res.Note(fmt.Sprintf("reduced taxable base: factor %s applied to net capitalized cost", rs.Lease.ReducedBaseFactor.String()))
		total, taxableBase, err = c.netCapCost(lease, rs, res, rate, rs.Lease.ReducedBaseFactor)
	default:
		return nil, errors.Errorf("unhandled lease method %q", rs.Lease.Method)
	}
	if err != nil {
		return nil, err
	}

	res.TaxableAmount = taxableBase

	// Component split is reporting only; the lease stream is taxed at a
	// single rate.
	stateTax := total
	if rate.IsPositive() && stateShareRate.LessThan(rate) {
		stateTax = money.RoundCents(total.Mul(stateShareRate).Div(rate))
	}
	res.StateTax = stateTax
	res.LocalTax = money.ClampZero(total.Sub(stateTax))

	afterCredit, err := maybeApplyReciprocity(res, in, rs, total, stateTax)
	if err != nil {
		return nil, err
	}
	res.TotalTax = money.ClampZero(afterCredit)
	res.EffectiveRate = money.Ratio(res.TotalTax, res.TaxableAmount)

	c.logger.Debug("lease tax computed",
		zap.String("jurisdiction", rs.Jurisdiction),
		zap.String("method", string(rs.Lease.Method)),
		zap.String("total_tax", res.TotalTax.String()))
	return res, nil
}

// leaseRates returns the rate lease streams are taxed at and the state-only
// share of it (for reciprocity sub-caps and component reporting).
func (c *LeaseCalculator) leaseRates(in business.TaxInput, rs *business.JurisdictionRuleSet, res *business.TaxResult) (rate, stateShare decimal.Decimal) {
	state, local, district := resolveRates(in, rs, res)
	if rs.Lease.Rate != nil {
		res.Note(fmt.Sprintf("lease streams taxed at the jurisdiction's lease rate %s", rs.Lease.Rate.String()))
		return *rs.Lease.Rate, *rs.Lease.Rate
	}
	return state.Add(local).Add(district), state
}

// taxableBackendMonthly classifies the amortized backend products against
// the same product policy as retail and returns the monthly amount that
// joins the taxable payment.
func (c *LeaseCalculator) taxableBackendMonthly(lease business.LeaseTerms, rs *business.JurisdictionRuleSet, res *business.TaxResult) (decimal.Decimal, error) {
	taxable := decimal.Zero

	type backend struct {
		kind    string
		label   string
		monthly decimal.Decimal
	}
	for _, b := range []backend{
		{constants.ProductServiceContract, "service contract", lease.ServiceContractMonthly},
		{constants.ProductGAP, "GAP coverage", lease.GAPMonthly},
	} {
		if !b.monthly.IsPositive() {
			continue
		}
		pol, err := policy.IsProductTaxable(rs, b.kind)
		if err != nil {
			return decimal.Zero, err
		}
		noteConfidence(res, pol, b.label+" taxability")
		if pol.Value {
			taxable = taxable.Add(b.monthly)
		} else {
			res.Note(fmt.Sprintf("amortized %s excluded from the taxable payment", b.label))
		}
	}
	return taxable, nil
}

// taxedReductions returns the portion of cap-cost reductions taxed upfront.
// Cash and trade-in reductions are separately policy-controlled; the
// calculator reads the flags, never assumes.
func (c *LeaseCalculator) taxedReductions(lease business.LeaseTerms, rs *business.JurisdictionRuleSet, res *business.TaxResult) decimal.Decimal {
	taxed := decimal.Zero
	if lease.CashCapReduction.IsPositive() {
		noteConfidence(res, rs.Lease.CapReductionTaxable, "cap-cost reduction taxability")
		if rs.Lease.CapReductionTaxable.Value {
			taxed = taxed.Add(lease.CashCapReduction)
		} else {
			res.Note("cash cap-cost reduction is not taxed in this jurisdiction")
		}
	}
	if lease.TradeInCapReduction.IsPositive() {
		noteConfidence(res, rs.Lease.TradeInReductionTaxable, "trade-in cap-cost reduction taxability")
		if rs.Lease.TradeInReductionTaxable.Value {
			res.Note("trade-in cap-cost reduction is taxed like a cash reduction here")
			taxed = taxed.Add(lease.TradeInCapReduction)
		} else {
			res.Note("trade-in cap-cost reduction is not taxed in this jurisdiction")
		}
	}
	return taxed
}

// paymentStream implements MONTHLY and, with taxUpfrontReductions, HYBRID:
// each periodic payment is taxed as made; HYBRID additionally taxes the
// cap-cost reduction at inception.
func (c *LeaseCalculator) paymentStream(lease business.LeaseTerms, rs *business.JurisdictionRuleSet, res *business.TaxResult, rate, taxableMonthly decimal.Decimal, hybrid bool) (decimal.Decimal, decimal.Decimal, error) {
	if !lease.BasePayment.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrMissingRequiredField, "lease base_payment")
	}
	if lease.PaymentCount < 1 {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrMissingRequiredField, "lease payment_count")
	}

	upfrontBase := c.taxedReductions(lease, rs, res)
	upfrontTax := decimal.Zero
	if upfrontBase.IsPositive() {
		upfrontTax = money.ApplyRate(upfrontBase, rate)
		res.AddLine(business.TaxLine{
			Label: "Cap-cost reduction tax (due at inception)", Component: business.ComponentUpfront,
			TaxableAmount: upfrontBase, Rate: rate, TaxAmount: upfrontTax,
		})
	}

	monthlyTaxable := lease.BasePayment.Add(taxableMonthly)
	perPaymentTax := money.ApplyRate(monthlyTaxable, rate)
	res.AddLine(business.TaxLine{
		Label: "Monthly payment tax (per payment)", Component: business.ComponentMonthly,
		TaxableAmount: monthlyTaxable, Rate: rate, TaxAmount: perPaymentTax,
	})

	n := decimal.NewFromInt(int64(lease.PaymentCount))
	streamTax := perPaymentTax.Mul(n)
	res.AddLine(business.TaxLine{
		Label: fmt.Sprintf("Payment stream tax (%d payments)", lease.PaymentCount), Component: business.ComponentMonthly,
		TaxableAmount: monthlyTaxable.Mul(n), Rate: rate, TaxAmount: streamTax,
	})

	if hybrid {
		res.Note("hybrid method: cap-cost reduction taxed upfront, each payment taxed as made")
	}

	total := upfrontTax.Add(streamTax)
	taxableBase := upfrontBase.Add(monthlyTaxable.Mul(n))
	return total, taxableBase, nil
}

// fullUpfront taxes the cap-cost reduction plus the entire payment schedule
// at inception; nothing further is due per payment.
func (c *LeaseCalculator) fullUpfront(lease business.LeaseTerms, rs *business.JurisdictionRuleSet, res *business.TaxResult, rate, taxableMonthly decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !lease.BasePayment.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrMissingRequiredField, "lease base_payment")
	}
	if lease.PaymentCount < 1 {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrMissingRequiredField, "lease payment_count")
	}

	n := decimal.NewFromInt(int64(lease.PaymentCount))
	base := c.taxedReductions(lease, rs, res).
		Add(lease.BasePayment.Add(taxableMonthly).Mul(n))
	tax := money.ApplyRate(base, rate)
	res.AddLine(business.TaxLine{
		Label: fmt.Sprintf("Lease tax due at inception (%d payments)", lease.PaymentCount), Component: business.ComponentUpfront,
		TaxableAmount: base, Rate: rate, TaxAmount: tax,
	})
	res.Note("entire lease tax is due at inception; no per-payment tax follows")
	return tax, base, nil
}

// netCapCost taxes the net capitalized cost after all reductions, scaled by
// factor (1 for NET_CAP_COST, the jurisdiction factor for REDUCED_BASE).
func (c *LeaseCalculator) netCapCost(lease business.LeaseTerms, rs *business.JurisdictionRuleSet, res *business.TaxResult, rate, factor decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !lease.GrossCapCost.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrMissingRequiredField, "lease gross_cap_cost")
	}

	net := money.ClampZero(lease.GrossCapCost.
		Sub(lease.CashCapReduction).
		Sub(lease.TradeInCapReduction))
	if lease.TradeInCapReduction.IsPositive() {
		res.Note("trade-in applied as cap-cost reduction lowers the taxable net capitalized cost")
	}
	base := net.Mul(factor)
	tax := money.ApplyRate(base, rate)
	res.AddLine(business.TaxLine{
		Label: "Capitalized cost tax", Component: business.ComponentUpfront,
		TaxableAmount: base, Rate: rate, TaxAmount: tax,
	})
	return tax, base, nil
}
