package business

import (
	"github.com/shopspring/decimal"
)

// Tax line components
const (
	ComponentState    = "state"
	ComponentLocal    = "local"
	ComponentDistrict = "district"
	ComponentProduct  = "product"
	ComponentUpfront  = "upfront"
	ComponentMonthly  = "monthly"
)

// TaxLine is one row of the itemized breakdown.
type TaxLine struct {
	Label         string          `json:"label"`
	Component     string          `json:"component"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	Rate          decimal.Decimal `json:"rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// ReciprocityResult reports the interstate credit applied against the
// jurisdiction's own tax. ExcessDiscarded is the portion of home-state tax
// paid beyond the credit actually granted; it is never refunded or carried
// forward, and is reported here rather than silently dropped.
type ReciprocityResult struct {
	HomeJurisdiction string          `json:"home_jurisdiction"`
	HomeTaxPaid      decimal.Decimal `json:"home_tax_paid"`
	CreditApplied    decimal.Decimal `json:"credit_applied"`
	ExcessDiscarded  decimal.Decimal `json:"excess_discarded"`
	RemainingOwed    decimal.Decimal `json:"remaining_owed"`
}

// TaxResult is the complete output of one calculation. It is a pure function
// of (TaxInput, JurisdictionRuleSet): no clock reads, no identifiers minted
// inside the engine, so identical inputs produce identical results.
type TaxResult struct {
	Jurisdiction string           `json:"jurisdiction"`
	RulesVersion int              `json:"rules_version"`
	Implemented  bool             `json:"implemented"`
	Scheme       VehicleTaxScheme `json:"scheme"`
	DealType     DealType         `json:"deal_type"`

	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	Breakdown     []TaxLine       `json:"breakdown"`
	StateTax      decimal.Decimal `json:"state_tax"`
	LocalTax      decimal.Decimal `json:"local_tax"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	// EffectiveRate is TotalTax divided by TaxableAmount, zero when the
	// taxable amount is zero.
	EffectiveRate decimal.Decimal `json:"effective_rate"`

	Notes    []string `json:"notes,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	Reciprocity *ReciprocityResult `json:"reciprocity,omitempty"`
}

// AddLine appends a breakdown row.
func (r *TaxResult) AddLine(line TaxLine) {
	r.Breakdown = append(r.Breakdown, line)
}

// Note appends a policy-explanation note.
func (r *TaxResult) Note(msg string) {
	r.Notes = append(r.Notes, msg)
}

// Warn appends a warning for human review. Warnings never fail a calculation.
func (r *TaxResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
