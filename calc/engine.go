package calc

import (
	"time"

	"github.com/motorlot/taxengine/registry"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Engine is the public entry point: it resolves the rule set for the deal's
// jurisdiction and as-of date and dispatches to the retail, lease or
// special-scheme calculator. Stateless; safe for concurrent use.
type Engine struct {
	registry  *registry.Registry
	retail    *RetailCalculator
	lease     *LeaseCalculator
	tavt      *TAVTCalculator
	hut       *HUTCalculator
	privilege *PrivilegeCalculator
	logger    *zap.Logger
}

// NewEngine creates an engine over a loaded, validated registry.
func NewEngine(reg *registry.Registry) *Engine {
	return &Engine{
		registry:  reg,
		retail:    NewRetailCalculator(),
		lease:     NewLeaseCalculator(),
		tavt:      NewTAVTCalculator(),
		hut:       NewHUTCalculator(),
		privilege: NewPrivilegeCalculator(),
		logger:    engineLogger(),
	}
}

// Calculate resolves the rule set and computes the tax result. An omitted
// as-of date defaults to now at this boundary only; the calculators
// themselves never read the clock.
func (e *Engine) Calculate(in business.TaxInput) (*business.TaxResult, error) {
	if in.Jurisdiction == "" {
		return nil, errors.Wrap(ErrMissingRequiredField, "jurisdiction")
	}
	if in.AsOf.IsZero() {
		in.AsOf = time.Now().UTC()
	}

	rs, err := e.registry.Resolve(in.Jurisdiction, in.AsOf)
	if err != nil {
		return nil, err
	}

	res, err := e.CalculateWithRuleSet(in, rs)
	if err != nil {
		return nil, err
	}

	if !rs.Implemented {
		res.Warn("jurisdiction served by conservative default rules (no authored rule set); review before quoting")
	}

	e.logger.Info("tax calculated",
		zap.String("jurisdiction", rs.Jurisdiction),
		zap.Int("rules_version", rs.Version),
		zap.String("deal_type", string(in.DealType)),
		zap.String("scheme", string(rs.Scheme)),
		zap.Bool("implemented", rs.Implemented),
		zap.String("total_tax", res.TotalTax.String()),
		zap.Int("warnings", len(res.Warnings)))

	return res, nil
}

// CalculateWithRuleSet computes the result against an already-resolved rule
// set. Pure: identical inputs always produce identical results.
func (e *Engine) CalculateWithRuleSet(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	switch in.DealType {
	case business.DealTypeLease:
		return e.lease.Calculate(in, rs)
	case business.DealTypeRetail:
		return e.dispatchRetail(in, rs)
	case "":
		return nil, errors.Wrap(ErrMissingRequiredField, "deal_type")
	default:
		return nil, errors.Errorf("unknown deal type %q", in.DealType)
	}
}

// dispatchRetail selects the generic retail path or the jurisdiction's
// special scheme.
func (e *Engine) dispatchRetail(in business.TaxInput, rs *business.JurisdictionRuleSet) (*business.TaxResult, error) {
	switch rs.Scheme {
	case business.SchemeStateOnly, business.SchemeStatePlusLocal:
		return e.retail.Calculate(in, rs)
	case business.SchemeTAVT:
		return e.tavt.Calculate(in, rs)
	case business.SchemeHUT:
		return e.hut.Calculate(in, rs)
	case business.SchemePrivilege:
		return e.privilege.Calculate(in, rs)
	default:
		return nil, errors.Errorf("unhandled vehicle tax scheme %q", rs.Scheme)
	}
}

// Registry exposes the engine's rule catalog for implementation queries.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
