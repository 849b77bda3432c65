package business

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeInPolicyKind enumerates the shapes a trade-in credit can take.
type TradeInPolicyKind string

const (
	TradeInNone    TradeInPolicyKind = "NONE"
	TradeInFull    TradeInPolicyKind = "FULL"
	TradeInCapped  TradeInPolicyKind = "CAPPED"
	TradeInPercent TradeInPolicyKind = "PERCENT"
)

// TradeInPolicy describes how much of the trade-in value offsets the taxable
// base. Cap applies to CAPPED, Percent to PERCENT; both are zero otherwise.
type TradeInPolicy struct {
	Kind    TradeInPolicyKind `json:"kind"`
	Cap     decimal.Decimal   `json:"cap,omitempty"`
	Percent decimal.Decimal   `json:"percent,omitempty"`
}

// ThresholdBasis controls whether a rate-determining threshold is evaluated
// before or after trade-in credit.
type ThresholdBasis string

const (
	ThresholdPreTradeIn  ThresholdBasis = "PRE_TRADE_IN"
	ThresholdPostTradeIn ThresholdBasis = "POST_TRADE_IN"
)

// VehicleTaxScheme selects the structural tax pathway for a jurisdiction.
type VehicleTaxScheme string

const (
	SchemeStateOnly      VehicleTaxScheme = "STATE_ONLY"
	SchemeStatePlusLocal VehicleTaxScheme = "STATE_PLUS_LOCAL"
	SchemeTAVT           VehicleTaxScheme = "SPECIAL_TAVT"
	SchemeHUT            VehicleTaxScheme = "SPECIAL_HUT"
	SchemePrivilege      VehicleTaxScheme = "SPECIAL_PRIVILEGE"
)

// LeaseMethod enumerates the five mutually exclusive lease-taxation methods.
type LeaseMethod string

const (
	LeaseMonthly     LeaseMethod = "MONTHLY"
	LeaseFullUpfront LeaseMethod = "FULL_UPFRONT"
	LeaseHybrid      LeaseMethod = "HYBRID"
	LeaseNetCapCost  LeaseMethod = "NET_CAP_COST"
	LeaseReducedBase LeaseMethod = "REDUCED_BASE"
)

// ReciprocityScope limits which deal types a reciprocity credit covers.
type ReciprocityScope string

const (
	ScopeRetailOnly ReciprocityScope = "RETAIL_ONLY"
	ScopeLeaseOnly  ReciprocityScope = "LEASE_ONLY"
	ScopeBoth       ReciprocityScope = "BOTH"
)

// HomeStateBehavior selects how tax paid to another jurisdiction is credited.
type HomeStateBehavior string

const (
	HomeStateNone                HomeStateBehavior = "NONE"
	HomeStateCreditUpToStateRate HomeStateBehavior = "CREDIT_UP_TO_STATE_RATE"
	HomeStateCreditFull          HomeStateBehavior = "CREDIT_FULL"
	HomeStateOnly                HomeStateBehavior = "HOME_STATE_ONLY"
)

// Confidence tags a rule field as sourced from official guidance or as a
// conservative best-guess default. Conservative-default fields surface a note
// on every result that relies on them.
type Confidence string

const (
	ConfidenceAuthoritative       Confidence = "authoritative"
	ConfidenceConservativeDefault Confidence = "conservative-default"
)

// BoolPolicy is a taxability flag paired with its sourcing confidence.
type BoolPolicy struct {
	Value      bool       `json:"value"`
	Confidence Confidence `json:"confidence"`
}

// RateThreshold is a price threshold that switches the state rate (e.g., a
// luxury rate above a dollar amount). Basis fixes which base the threshold is
// evaluated against; this is the root of the "rate trap".
type RateThreshold struct {
	Amount         decimal.Decimal `json:"amount"`
	AboveStateRate decimal.Decimal `json:"above_state_rate"`
	Basis          ThresholdBasis  `json:"basis"`
}

// RateSchedule holds the jurisdiction's rate components.
type RateSchedule struct {
	StateRate    decimal.Decimal `json:"state_rate"`
	LocalRate    decimal.Decimal `json:"local_rate"`
	DistrictRate decimal.Decimal `json:"district_rate"`
	Threshold    *RateThreshold  `json:"threshold,omitempty"`
}

// LeaseRules configures lease taxation for a jurisdiction.
type LeaseRules struct {
	Method LeaseMethod `json:"method"`
	// SpecialScheme tags jurisdiction-specific lease handling for audit.
	SpecialScheme string `json:"special_scheme,omitempty"`
	// CapReductionTaxable: whether cash cap-cost reductions are taxed upfront.
	CapReductionTaxable BoolPolicy `json:"cap_reduction_taxable"`
	// TradeInReductionTaxable: whether a trade-in applied as cap-cost
	// reduction is taxed like a cash reduction.
	TradeInReductionTaxable BoolPolicy `json:"trade_in_reduction_taxable"`
	// ReducedBaseFactor applies only to REDUCED_BASE.
	ReducedBaseFactor decimal.Decimal `json:"reduced_base_factor,omitempty"`
	// Rate overrides the vehicle combined rate for lease streams when set.
	Rate *decimal.Decimal `json:"rate,omitempty"`
}

// Reciprocity configures interstate credit for tax already paid elsewhere.
type Reciprocity struct {
	Enabled           bool              `json:"enabled"`
	Scope             ReciprocityScope  `json:"scope"`
	HomeStateBehavior HomeStateBehavior `json:"home_state_behavior"`
	ProofRequired     bool              `json:"proof_required"`
	// CapAtOwnTax records the authored statute language. The cap itself is
	// structural: a credit can never exceed the tax owed here, and the excess
	// is discarded, regardless of this flag.
	CapAtOwnTax bool `json:"cap_at_own_tax"`
}

// TAVTRules configures a one-time title-transfer tax. Trade-in and rebate
// policy are configured independently of the retail rules.
type TAVTRules struct {
	Rate                      decimal.Decimal `json:"rate"`
	TradeIn                   TradeInPolicy   `json:"trade_in"`
	ManufacturerRebateTaxable bool            `json:"manufacturer_rebate_taxable"`
	DealerRebateTaxable       BoolPolicy      `json:"dealer_rebate_taxable"`
}

// HUTRules configures a time-windowed use tax.
type HUTRules struct {
	Rate       decimal.Decimal  `json:"rate"`
	WindowDays int              `json:"window_days"`
	MaxTax     *decimal.Decimal `json:"max_tax,omitempty"`
}

// PrivilegeBracket is one rate bracket of a vehicle-class progressive tax.
// A bracket matches when the vehicle class equals Class and the price is at
// least MinPrice; the highest matching MinPrice wins.
type PrivilegeBracket struct {
	Class    string          `json:"class"`
	MinPrice decimal.Decimal `json:"min_price"`
	Rate     decimal.Decimal `json:"rate"`
}

// PrivilegeRules configures a vehicle-class progressive tax.
type PrivilegeRules struct {
	Brackets []PrivilegeBracket `json:"brackets"`
}

// JurisdictionRuleSet is one effective-dated, versioned rule record for a
// jurisdiction. Rule sets are authored offline as declarative data; the
// policy interpreters are the only place their meaning is computed.
type JurisdictionRuleSet struct {
	Jurisdiction  string     `json:"jurisdiction"`
	Name          string     `json:"name"`
	Version       int        `json:"version"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	// Implemented distinguishes an authored rule set from a conservative stub.
	Implemented bool     `json:"implemented"`
	Citations   []string `json:"citations,omitempty"`

	Scheme  VehicleTaxScheme `json:"scheme"`
	Rates   RateSchedule     `json:"rates"`
	TradeIn TradeInPolicy    `json:"trade_in"`

	ManufacturerRebateTaxable bool       `json:"manufacturer_rebate_taxable"`
	DealerRebateTaxable       BoolPolicy `json:"dealer_rebate_taxable"`

	FeeTaxability     map[string]bool `json:"fee_taxability,omitempty"`
	DefaultFeeTaxable bool            `json:"default_fee_taxable"`

	AccessoriesTaxable     bool             `json:"accessories_taxable"`
	ServiceContractTaxable bool             `json:"service_contract_taxable"`
	ServiceContractRate    *decimal.Decimal `json:"service_contract_rate,omitempty"`
	GAPTaxable             BoolPolicy       `json:"gap_taxable"`
	GAPRate                *decimal.Decimal `json:"gap_rate,omitempty"`

	NegativeEquityTaxable BoolPolicy `json:"negative_equity_taxable"`

	Lease       LeaseRules      `json:"lease"`
	TAVT        *TAVTRules      `json:"tavt,omitempty"`
	HUT         *HUTRules       `json:"hut,omitempty"`
	Privilege   *PrivilegeRules `json:"privilege,omitempty"`
	Reciprocity Reciprocity     `json:"reciprocity"`
}

// ActiveOn reports whether the rule set's effective range contains ts.
func (rs *JurisdictionRuleSet) ActiveOn(ts time.Time) bool {
	if ts.Before(rs.EffectiveFrom) {
		return false
	}
	if rs.EffectiveTo != nil && ts.After(*rs.EffectiveTo) {
		return false
	}
	return true
}

// CombinedRate is the sum of all rate components at the standard state rate.
func (rs *JurisdictionRuleSet) CombinedRate() decimal.Decimal {
	return rs.Rates.StateRate.Add(rs.Rates.LocalRate).Add(rs.Rates.DistrictRate)
}
