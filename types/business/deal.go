package business

import (
	"time"

	"github.com/shopspring/decimal"
)

// DealType distinguishes a retail sale from a lease.
type DealType string

const (
	DealTypeRetail DealType = "RETAIL"
	DealTypeLease  DealType = "LEASE"
)

// Fee is a single itemized charge on a deal, tagged with a fee code so the
// jurisdiction's fee-taxability table can classify it.
type Fee struct {
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// RateOverride carries explicit jurisdiction rate components supplied by the
// caller when rates are not looked up from the catalog (e.g., a county-level
// local rate resolved upstream from the buyer's address).
type RateOverride struct {
	StateRate    decimal.Decimal `json:"state_rate"`
	LocalRate    decimal.Decimal `json:"local_rate"`
	DistrictRate decimal.Decimal `json:"district_rate"`
}

// LeaseTerms holds the lease-specific portion of a deal. Backend products
// amortized into the payment are supplied as monthly amounts separate from
// the base payment; the calculator classifies each per the jurisdiction's
// product-taxability policy.
type LeaseTerms struct {
	GrossCapCost           decimal.Decimal `json:"gross_cap_cost"`
	CashCapReduction       decimal.Decimal `json:"cash_cap_reduction"`
	TradeInCapReduction    decimal.Decimal `json:"trade_in_cap_reduction"`
	BasePayment            decimal.Decimal `json:"base_payment"`
	PaymentCount           int             `json:"payment_count"`
	ServiceContractMonthly decimal.Decimal `json:"service_contract_monthly"`
	GAPMonthly             decimal.Decimal `json:"gap_monthly"`
}

// TaxInput is the immutable description of one transaction. It is constructed
// by the caller, passed by value, and never retained by the engine.
type TaxInput struct {
	Jurisdiction string    `json:"jurisdiction"`
	AsOf         time.Time `json:"as_of"`
	DealType     DealType  `json:"deal_type"`

	VehiclePrice       decimal.Decimal `json:"vehicle_price"`
	TradeInValue       decimal.Decimal `json:"trade_in_value"`
	TradeInPayoff      decimal.Decimal `json:"trade_in_payoff"`
	ManufacturerRebate decimal.Decimal `json:"manufacturer_rebate"`
	DealerRebate       decimal.Decimal `json:"dealer_rebate"`
	DocFee             decimal.Decimal `json:"doc_fee"`
	Accessories        decimal.Decimal `json:"accessories"`
	ServiceContract    decimal.Decimal `json:"service_contract"`
	GAP                decimal.Decimal `json:"gap"`
	Fees               []Fee           `json:"fees,omitempty"`

	// TransactionDate anchors time-windowed schemes (HUT). Zero value falls
	// back to AsOf.
	TransactionDate time.Time `json:"transaction_date,omitempty"`
	// BodyType feeds vehicle-class classification for progressive schemes.
	BodyType string `json:"body_type,omitempty"`

	Lease *LeaseTerms `json:"lease,omitempty"`

	// Reciprocity inputs: where the buyer already paid tax, and how much.
	HomeJurisdiction string          `json:"home_jurisdiction,omitempty"`
	HomeTaxPaid      decimal.Decimal `json:"home_tax_paid"`
	ProofOfTaxPaid   bool            `json:"proof_of_tax_paid"`

	Rates *RateOverride `json:"rates,omitempty"`
}

// NegativeEquity returns the amount by which the trade-in payoff exceeds the
// trade-in value, or zero.
func (in TaxInput) NegativeEquity() decimal.Decimal {
	ne := in.TradeInPayoff.Sub(in.TradeInValue)
	if ne.IsNegative() {
		return decimal.Zero
	}
	return ne
}
