package registry

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// NewRegistryFromEmbedded builds the registry from the catalog shipped with
// the binary.
func NewRegistryFromEmbedded() (*Registry, error) {
	sets, err := loadFS(catalogFS, "catalog")
	if err != nil {
		return nil, err
	}
	return NewRegistry(sets)
}

// NewRegistryFromDir builds the registry from an external catalog directory
// of YAML documents in the same format as the embedded catalog.
func NewRegistryFromDir(dir string) (*Registry, error) {
	sets, err := loadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	return NewRegistry(sets)
}

func loadFS(fsys fs.FS, root string) ([]*business.JurisdictionRuleSet, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, errors.Wrap(err, "reading catalog directory")
	}

	var sets []*business.JurisdictionRuleSet
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", entry.Name())
		}
		parsed, err := ParseCatalogDocument(data)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", entry.Name())
		}
		sets = append(sets, parsed...)
	}
	return sets, nil
}

// Catalog document DTOs. Rule sets are authored as YAML; monetary rates are
// quoted strings so they decode through decimal parsing, never floats.

type catalogDoc struct {
	Jurisdiction string           `yaml:"jurisdiction"`
	Name         string           `yaml:"name"`
	Versions     []ruleVersionDoc `yaml:"versions"`

	// A stub document instead carries a code list plus shared defaults.
	StubJurisdictions []string        `yaml:"stub_jurisdictions"`
	StubDefaults      stubDefaultsDoc `yaml:"stub_defaults"`
}

type stubDefaultsDoc struct {
	StateRate string `yaml:"state_rate"`
}

type ruleVersionDoc struct {
	Version       int      `yaml:"version"`
	EffectiveFrom string   `yaml:"effective_from"`
	EffectiveTo   string   `yaml:"effective_to"`
	Implemented   bool     `yaml:"implemented"`
	Citations     []string `yaml:"citations"`
	Scheme        string   `yaml:"scheme"`

	Rates          ratesDoc       `yaml:"rates"`
	TradeIn        tradeInDoc     `yaml:"trade_in"`
	Rebates        rebatesDoc     `yaml:"rebates"`
	Fees           feesDoc        `yaml:"fees"`
	Products       productsDoc    `yaml:"products"`
	NegativeEquity boolPolicyDoc  `yaml:"negative_equity"`
	Lease          leaseDoc       `yaml:"lease"`
	TAVT           *tavtDoc       `yaml:"tavt"`
	HUT            *hutDoc        `yaml:"hut"`
	Privilege      *privilegeDoc  `yaml:"privilege"`
	Reciprocity    reciprocityDoc `yaml:"reciprocity"`
}

type ratesDoc struct {
	State     string        `yaml:"state"`
	Local     string        `yaml:"local"`
	District  string        `yaml:"district"`
	Threshold *thresholdDoc `yaml:"threshold"`
}

type thresholdDoc struct {
	Amount         string `yaml:"amount"`
	AboveStateRate string `yaml:"above_state_rate"`
	Basis          string `yaml:"basis"`
}

type tradeInDoc struct {
	Kind    string `yaml:"kind"`
	Cap     string `yaml:"cap"`
	Percent string `yaml:"percent"`
}

type rebatesDoc struct {
	ManufacturerTaxable bool          `yaml:"manufacturer_taxable"`
	DealerTaxable       boolPolicyDoc `yaml:"dealer_taxable"`
}

type feesDoc struct {
	DefaultTaxable bool            `yaml:"default_taxable"`
	Taxability     map[string]bool `yaml:"taxability"`
}

type productsDoc struct {
	AccessoriesTaxable     bool          `yaml:"accessories_taxable"`
	ServiceContractTaxable bool          `yaml:"service_contract_taxable"`
	ServiceContractRate    string        `yaml:"service_contract_rate"`
	GAP                    boolPolicyDoc `yaml:"gap"`
	GAPRate                string        `yaml:"gap_rate"`
}

type boolPolicyDoc struct {
	Value      bool   `yaml:"value"`
	Confidence string `yaml:"confidence"`
}

type leaseDoc struct {
	Method                  string        `yaml:"method"`
	SpecialScheme           string        `yaml:"special_scheme"`
	CapReductionTaxable     boolPolicyDoc `yaml:"cap_reduction_taxable"`
	TradeInReductionTaxable boolPolicyDoc `yaml:"trade_in_reduction_taxable"`
	ReducedBaseFactor       string        `yaml:"reduced_base_factor"`
	Rate                    string        `yaml:"rate"`
}

type tavtDoc struct {
	Rate                string        `yaml:"rate"`
	TradeIn             tradeInDoc    `yaml:"trade_in"`
	ManufacturerTaxable bool          `yaml:"manufacturer_taxable"`
	DealerTaxable       boolPolicyDoc `yaml:"dealer_taxable"`
}

type hutDoc struct {
	Rate       string `yaml:"rate"`
	WindowDays int    `yaml:"window_days"`
	MaxTax     string `yaml:"max_tax"`
}

type privilegeDoc struct {
	Brackets []privilegeBracketDoc `yaml:"brackets"`
}

type privilegeBracketDoc struct {
	Class    string `yaml:"class"`
	MinPrice string `yaml:"min_price"`
	Rate     string `yaml:"rate"`
}

type reciprocityDoc struct {
	Enabled           bool   `yaml:"enabled"`
	Scope             string `yaml:"scope"`
	HomeStateBehavior string `yaml:"home_state_behavior"`
	ProofRequired     bool   `yaml:"proof_required"`
	CapAtOwnTax       bool   `yaml:"cap_at_own_tax"`
}

// ParseCatalogDocument parses one YAML catalog document into rule sets. A
// document is either a jurisdiction record with versions or a stub list.
func ParseCatalogDocument(data []byte) ([]*business.JurisdictionRuleSet, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshaling catalog document")
	}

	if len(doc.StubJurisdictions) > 0 {
		return buildStubs(doc)
	}

	if doc.Jurisdiction == "" {
		return nil, errors.New("catalog document missing jurisdiction code")
	}
	if len(doc.Versions) == 0 {
		return nil, errors.Errorf("jurisdiction %s has no versions", doc.Jurisdiction)
	}

	sets := make([]*business.JurisdictionRuleSet, 0, len(doc.Versions))
	for _, v := range doc.Versions {
		rs, err := buildRuleSet(doc.Jurisdiction, doc.Name, v)
		if err != nil {
			return nil, errors.Wrapf(err, "jurisdiction %s version %d", doc.Jurisdiction, v.Version)
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

func buildStubs(doc catalogDoc) ([]*business.JurisdictionRuleSet, error) {
	stateRate, err := parseRate(doc.StubDefaults.StateRate, "stub state_rate")
	if err != nil {
		return nil, err
	}
	sets := make([]*business.JurisdictionRuleSet, 0, len(doc.StubJurisdictions))
	for _, code := range doc.StubJurisdictions {
		sets = append(sets, NewStubRuleSet(code, stateRate))
	}
	return sets, nil
}

// NewStubRuleSet builds the conservative default rule set for a jurisdiction
// without authored data: full trade-in credit, all rebates taxable, all fees
// and products taxable, generic state-only scheme. Every judgment field is
// tagged conservative-default.
func NewStubRuleSet(code string, stateRate decimal.Decimal) *business.JurisdictionRuleSet {
	conservative := business.BoolPolicy{Value: true, Confidence: business.ConfidenceConservativeDefault}
	return &business.JurisdictionRuleSet{
		Jurisdiction:  code,
		Name:          code,
		Version:       1,
		EffectiveFrom: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Implemented:   false,
		Scheme:        business.SchemeStateOnly,
		Rates:         business.RateSchedule{StateRate: stateRate},
		TradeIn:       business.TradeInPolicy{Kind: business.TradeInFull},

		ManufacturerRebateTaxable: true,
		DealerRebateTaxable:       conservative,

		DefaultFeeTaxable:      true,
		AccessoriesTaxable:     true,
		ServiceContractTaxable: true,
		GAPTaxable:             conservative,
		NegativeEquityTaxable:  conservative,

		Lease: business.LeaseRules{
			Method:                  business.LeaseMonthly,
			CapReductionTaxable:     conservative,
			TradeInReductionTaxable: conservative,
		},
		Reciprocity: business.Reciprocity{Enabled: false},
	}
}

func buildRuleSet(code, name string, v ruleVersionDoc) (*business.JurisdictionRuleSet, error) {
	effectiveFrom, err := parseDate(v.EffectiveFrom, "effective_from")
	if err != nil {
		return nil, err
	}
	var effectiveTo *time.Time
	if v.EffectiveTo != "" {
		to, err := parseDate(v.EffectiveTo, "effective_to")
		if err != nil {
			return nil, err
		}
		effectiveTo = &to
	}

	scheme, err := parseScheme(v.Scheme)
	if err != nil {
		return nil, err
	}
	rates, err := buildRates(v.Rates)
	if err != nil {
		return nil, err
	}
	tradeIn, err := buildTradeIn(v.TradeIn)
	if err != nil {
		return nil, err
	}
	lease, err := buildLease(v.Lease)
	if err != nil {
		return nil, err
	}
	rec, err := buildReciprocity(v.Reciprocity)
	if err != nil {
		return nil, err
	}

	scRate, err := parseOptRate(v.Products.ServiceContractRate, "service_contract_rate")
	if err != nil {
		return nil, err
	}
	gapRate, err := parseOptRate(v.Products.GAPRate, "gap_rate")
	if err != nil {
		return nil, err
	}

	rs := &business.JurisdictionRuleSet{
		Jurisdiction:  code,
		Name:          name,
		Version:       v.Version,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Implemented:   v.Implemented,
		Citations:     v.Citations,
		Scheme:        scheme,
		Rates:         rates,
		TradeIn:       tradeIn,

		ManufacturerRebateTaxable: v.Rebates.ManufacturerTaxable,
		DealerRebateTaxable:       buildBoolPolicy(v.Rebates.DealerTaxable),

		FeeTaxability:     v.Fees.Taxability,
		DefaultFeeTaxable: v.Fees.DefaultTaxable,

		AccessoriesTaxable:     v.Products.AccessoriesTaxable,
		ServiceContractTaxable: v.Products.ServiceContractTaxable,
		ServiceContractRate:    scRate,
		GAPTaxable:             buildBoolPolicy(v.Products.GAP),
		GAPRate:                gapRate,

		NegativeEquityTaxable: buildBoolPolicy(v.NegativeEquity),

		Lease:       lease,
		Reciprocity: rec,
	}

	if v.TAVT != nil {
		tavt, err := buildTAVT(*v.TAVT)
		if err != nil {
			return nil, err
		}
		rs.TAVT = tavt
	}
	if v.HUT != nil {
		hut, err := buildHUT(*v.HUT)
		if err != nil {
			return nil, err
		}
		rs.HUT = hut
	}
	if v.Privilege != nil {
		priv, err := buildPrivilege(*v.Privilege)
		if err != nil {
			return nil, err
		}
		rs.Privilege = priv
	}

	return rs, validateSchemeConfig(rs)
}

// validateSchemeConfig requires scheme-specific blocks to be present for the
// schemes that need them. Caught at load so calculators never see a rule set
// missing its own configuration.
func validateSchemeConfig(rs *business.JurisdictionRuleSet) error {
	switch rs.Scheme {
	case business.SchemeTAVT:
		if rs.TAVT == nil {
			return errors.New("SPECIAL_TAVT scheme requires a tavt block")
		}
	case business.SchemeHUT:
		if rs.HUT == nil {
			return errors.New("SPECIAL_HUT scheme requires a hut block")
		}
		if rs.HUT.WindowDays <= 0 {
			return errors.New("hut window_days must be positive")
		}
	case business.SchemePrivilege:
		if rs.Privilege == nil || len(rs.Privilege.Brackets) == 0 {
			return errors.New("SPECIAL_PRIVILEGE scheme requires privilege brackets")
		}
	case business.SchemeStateOnly, business.SchemeStatePlusLocal:
		if rs.Rates.StateRate.IsNegative() {
			return errors.New("state rate must be non-negative")
		}
	}
	return nil
}

func parseScheme(s string) (business.VehicleTaxScheme, error) {
	scheme := business.VehicleTaxScheme(s)
	switch scheme {
	case business.SchemeStateOnly, business.SchemeStatePlusLocal,
		business.SchemeTAVT, business.SchemeHUT, business.SchemePrivilege:
		return scheme, nil
	default:
		return "", errors.Errorf("invalid vehicle tax scheme %q", s)
	}
}

func buildRates(doc ratesDoc) (business.RateSchedule, error) {
	state, err := parseRate(doc.State, "rates.state")
	if err != nil {
		return business.RateSchedule{}, err
	}
	local, err := parseRate(doc.Local, "rates.local")
	if err != nil {
		return business.RateSchedule{}, err
	}
	district, err := parseRate(doc.District, "rates.district")
	if err != nil {
		return business.RateSchedule{}, err
	}
	rates := business.RateSchedule{StateRate: state, LocalRate: local, DistrictRate: district}

	if doc.Threshold != nil {
		amount, err := parseRate(doc.Threshold.Amount, "threshold.amount")
		if err != nil {
			return business.RateSchedule{}, err
		}
		above, err := parseRate(doc.Threshold.AboveStateRate, "threshold.above_state_rate")
		if err != nil {
			return business.RateSchedule{}, err
		}
		basis := business.ThresholdBasis(doc.Threshold.Basis)
		if basis != business.ThresholdPreTradeIn && basis != business.ThresholdPostTradeIn {
			return business.RateSchedule{}, errors.Errorf("invalid threshold basis %q", doc.Threshold.Basis)
		}
		rates.Threshold = &business.RateThreshold{Amount: amount, AboveStateRate: above, Basis: basis}
	}
	return rates, nil
}

func buildTradeIn(doc tradeInDoc) (business.TradeInPolicy, error) {
	kind := business.TradeInPolicyKind(doc.Kind)
	switch kind {
	case business.TradeInNone, business.TradeInFull, business.TradeInCapped, business.TradeInPercent:
	default:
		return business.TradeInPolicy{}, errors.Errorf("invalid trade-in kind %q", doc.Kind)
	}
	policy := business.TradeInPolicy{Kind: kind}
	if kind == business.TradeInCapped {
		cap, err := parseRate(doc.Cap, "trade_in.cap")
		if err != nil {
			return business.TradeInPolicy{}, err
		}
		policy.Cap = cap
	}
	if kind == business.TradeInPercent {
		pct, err := parseRate(doc.Percent, "trade_in.percent")
		if err != nil {
			return business.TradeInPolicy{}, err
		}
		policy.Percent = pct
	}
	return policy, nil
}

func buildLease(doc leaseDoc) (business.LeaseRules, error) {
	method := business.LeaseMethod(doc.Method)
	switch method {
	case business.LeaseMonthly, business.LeaseFullUpfront, business.LeaseHybrid,
		business.LeaseNetCapCost, business.LeaseReducedBase:
	default:
		return business.LeaseRules{}, errors.Errorf("invalid lease method %q", doc.Method)
	}

	rules := business.LeaseRules{
		Method:                  method,
		SpecialScheme:           doc.SpecialScheme,
		CapReductionTaxable:     buildBoolPolicy(doc.CapReductionTaxable),
		TradeInReductionTaxable: buildBoolPolicy(doc.TradeInReductionTaxable),
	}

	if method == business.LeaseReducedBase {
		factor, err := parseRate(doc.ReducedBaseFactor, "lease.reduced_base_factor")
		if err != nil {
			return business.LeaseRules{}, err
		}
		if factor.IsZero() {
			return business.LeaseRules{}, errors.New("REDUCED_BASE lease method requires reduced_base_factor")
		}
		rules.ReducedBaseFactor = factor
	}

	rate, err := parseOptRate(doc.Rate, "lease.rate")
	if err != nil {
		return business.LeaseRules{}, err
	}
	rules.Rate = rate
	return rules, nil
}

func buildReciprocity(doc reciprocityDoc) (business.Reciprocity, error) {
	rec := business.Reciprocity{
		Enabled:       doc.Enabled,
		ProofRequired: doc.ProofRequired,
		CapAtOwnTax:   doc.CapAtOwnTax,
	}
	if !doc.Enabled {
		rec.Scope = business.ScopeBoth
		rec.HomeStateBehavior = business.HomeStateNone
		return rec, nil
	}

	scope := business.ReciprocityScope(doc.Scope)
	switch scope {
	case business.ScopeRetailOnly, business.ScopeLeaseOnly, business.ScopeBoth:
	default:
		return business.Reciprocity{}, errors.Errorf("invalid reciprocity scope %q", doc.Scope)
	}
	behavior := business.HomeStateBehavior(doc.HomeStateBehavior)
	switch behavior {
	case business.HomeStateNone, business.HomeStateCreditUpToStateRate,
		business.HomeStateCreditFull, business.HomeStateOnly:
	default:
		return business.Reciprocity{}, errors.Errorf("invalid home state behavior %q", doc.HomeStateBehavior)
	}
	rec.Scope = scope
	rec.HomeStateBehavior = behavior
	return rec, nil
}

func buildTAVT(doc tavtDoc) (*business.TAVTRules, error) {
	rate, err := parseRate(doc.Rate, "tavt.rate")
	if err != nil {
		return nil, err
	}
	tradeIn, err := buildTradeIn(doc.TradeIn)
	if err != nil {
		return nil, err
	}
	return &business.TAVTRules{
		Rate:                      rate,
		TradeIn:                   tradeIn,
		ManufacturerRebateTaxable: doc.ManufacturerTaxable,
		DealerRebateTaxable:       buildBoolPolicy(doc.DealerTaxable),
	}, nil
}

func buildHUT(doc hutDoc) (*business.HUTRules, error) {
	rate, err := parseRate(doc.Rate, "hut.rate")
	if err != nil {
		return nil, err
	}
	maxTax, err := parseOptRate(doc.MaxTax, "hut.max_tax")
	if err != nil {
		return nil, err
	}
	return &business.HUTRules{Rate: rate, WindowDays: doc.WindowDays, MaxTax: maxTax}, nil
}

func buildPrivilege(doc privilegeDoc) (*business.PrivilegeRules, error) {
	brackets := make([]business.PrivilegeBracket, 0, len(doc.Brackets))
	for _, b := range doc.Brackets {
		if b.Class == "" {
			return nil, errors.New("privilege bracket missing class")
		}
		minPrice, err := parseRate(b.MinPrice, "privilege.min_price")
		if err != nil {
			return nil, err
		}
		rate, err := parseRate(b.Rate, "privilege.rate")
		if err != nil {
			return nil, err
		}
		brackets = append(brackets, business.PrivilegeBracket{Class: b.Class, MinPrice: minPrice, Rate: rate})
	}
	return &business.PrivilegeRules{Brackets: brackets}, nil
}

func buildBoolPolicy(doc boolPolicyDoc) business.BoolPolicy {
	confidence := business.Confidence(doc.Confidence)
	if confidence == "" {
		confidence = business.ConfidenceAuthoritative
	}
	return business.BoolPolicy{Value: doc.Value, Confidence: confidence}
}

func parseRate(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parsing %s %q", field, s)
	}
	return d, nil
}

func parseOptRate(s, field string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseRate(s, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDate(s, field string) (time.Time, error) {
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing %s %q", field, s)
	}
	return ts, nil
}
