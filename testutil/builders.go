// Package testutil provides deal and rule-set fixtures shared across
// package tests. Amount arguments are decimal strings so test values read
// exactly as they would on a buyer's order.
package testutil

import (
	"time"

	"github.com/motorlot/taxengine/types/business"
	"github.com/shopspring/decimal"
)

// FixedAsOf is the deterministic as-of date tests use unless they override it.
var FixedAsOf = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

// DealBuilder assembles a TaxInput fluently.
type DealBuilder struct {
	in business.TaxInput
}

// NewRetailDeal starts a retail deal in the given jurisdiction.
func NewRetailDeal(jurisdiction string) *DealBuilder {
	return &DealBuilder{in: business.TaxInput{
		Jurisdiction: jurisdiction,
		AsOf:         FixedAsOf,
		DealType:     business.DealTypeRetail,
	}}
}

// NewLeaseDeal starts a lease deal in the given jurisdiction.
func NewLeaseDeal(jurisdiction string) *DealBuilder {
	return &DealBuilder{in: business.TaxInput{
		Jurisdiction: jurisdiction,
		AsOf:         FixedAsOf,
		DealType:     business.DealTypeLease,
		Lease:        &business.LeaseTerms{},
	}}
}

func (b *DealBuilder) AsOf(ts time.Time) *DealBuilder {
	b.in.AsOf = ts
	return b
}

func (b *DealBuilder) Price(v string) *DealBuilder {
	b.in.VehiclePrice = dec(v)
	return b
}

func (b *DealBuilder) TradeIn(v string) *DealBuilder {
	b.in.TradeInValue = dec(v)
	return b
}

func (b *DealBuilder) TradeInPayoff(v string) *DealBuilder {
	b.in.TradeInPayoff = dec(v)
	return b
}

func (b *DealBuilder) ManufacturerRebate(v string) *DealBuilder {
	b.in.ManufacturerRebate = dec(v)
	return b
}

func (b *DealBuilder) DealerRebate(v string) *DealBuilder {
	b.in.DealerRebate = dec(v)
	return b
}

func (b *DealBuilder) DocFee(v string) *DealBuilder {
	b.in.DocFee = dec(v)
	return b
}

func (b *DealBuilder) Accessories(v string) *DealBuilder {
	b.in.Accessories = dec(v)
	return b
}

func (b *DealBuilder) ServiceContract(v string) *DealBuilder {
	b.in.ServiceContract = dec(v)
	return b
}

func (b *DealBuilder) GAP(v string) *DealBuilder {
	b.in.GAP = dec(v)
	return b
}

func (b *DealBuilder) Fee(code, v string) *DealBuilder {
	b.in.Fees = append(b.in.Fees, business.Fee{Code: code, Amount: dec(v)})
	return b
}

func (b *DealBuilder) BodyType(bodyType string) *DealBuilder {
	b.in.BodyType = bodyType
	return b
}

func (b *DealBuilder) TransactionDate(ts time.Time) *DealBuilder {
	b.in.TransactionDate = ts
	return b
}

// HomeTax supplies reciprocity inputs: home jurisdiction, tax paid, proof.
func (b *DealBuilder) HomeTax(jurisdiction, paid string, proof bool) *DealBuilder {
	b.in.HomeJurisdiction = jurisdiction
	b.in.HomeTaxPaid = dec(paid)
	b.in.ProofOfTaxPaid = proof
	return b
}

func (b *DealBuilder) Rates(state, local, district string) *DealBuilder {
	b.in.Rates = &business.RateOverride{
		StateRate:    dec(state),
		LocalRate:    dec(local),
		DistrictRate: dec(district),
	}
	return b
}

func (b *DealBuilder) GrossCapCost(v string) *DealBuilder {
	b.in.Lease.GrossCapCost = dec(v)
	return b
}

func (b *DealBuilder) CashCapReduction(v string) *DealBuilder {
	b.in.Lease.CashCapReduction = dec(v)
	return b
}

func (b *DealBuilder) TradeInCapReduction(v string) *DealBuilder {
	b.in.Lease.TradeInCapReduction = dec(v)
	return b
}

func (b *DealBuilder) Payment(v string, count int) *DealBuilder {
	b.in.Lease.BasePayment = dec(v)
	b.in.Lease.PaymentCount = count
	return b
}

func (b *DealBuilder) ServiceContractMonthly(v string) *DealBuilder {
	b.in.Lease.ServiceContractMonthly = dec(v)
	return b
}

func (b *DealBuilder) GAPMonthly(v string) *DealBuilder {
	b.in.Lease.GAPMonthly = dec(v)
	return b
}

// Build returns the assembled input.
func (b *DealBuilder) Build() business.TaxInput {
	return b.in
}

// StateOnlyRuleSet builds a minimal authored rule set: one flat state rate,
// full trade-in, taxable rebates, taxable doc fee. Tests mutate the result
// for the policy under test.
func StateOnlyRuleSet(code, stateRate string) *business.JurisdictionRuleSet {
	return &business.JurisdictionRuleSet{
		Jurisdiction:  code,
		Name:          code,
		Version:       1,
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Implemented:   true,
		Scheme:        business.SchemeStateOnly,
		Rates:         business.RateSchedule{StateRate: dec(stateRate)},
		TradeIn:       business.TradeInPolicy{Kind: business.TradeInFull},

		ManufacturerRebateTaxable: true,
		DealerRebateTaxable:       authoritative(true),

		FeeTaxability:     map[string]bool{"DOC": true},
		DefaultFeeTaxable: false,

		AccessoriesTaxable:     true,
		ServiceContractTaxable: true,
		GAPTaxable:             authoritative(false),
		NegativeEquityTaxable:  authoritative(true),

		Lease: business.LeaseRules{
			Method:                  business.LeaseMonthly,
			CapReductionTaxable:     authoritative(true),
			TradeInReductionTaxable: authoritative(false),
		},
		Reciprocity: business.Reciprocity{Enabled: false, Scope: business.ScopeBoth, HomeStateBehavior: business.HomeStateNone},
	}
}

// CTStyleRuleSet builds the luxury-threshold configuration used by the
// rate-trap scenarios: 6.35% standard, 7.75% at or above $50,000 evaluated
// before trade-in credit.
func CTStyleRuleSet() *business.JurisdictionRuleSet {
	rs := StateOnlyRuleSet("CT", "0.0635")
	rs.Rates.Threshold = &business.RateThreshold{
		Amount:         dec("50000"),
		AboveStateRate: dec("0.0775"),
		Basis:          business.ThresholdPreTradeIn,
	}
	rs.Reciprocity = business.Reciprocity{
		Enabled:           true,
		Scope:             business.ScopeBoth,
		HomeStateBehavior: business.HomeStateCreditUpToStateRate,
		ProofRequired:     true,
		CapAtOwnTax:       true,
	}
	return rs
}

func authoritative(v bool) business.BoolPolicy {
	return business.BoolPolicy{Value: v, Confidence: business.ConfidenceAuthoritative}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
