package registry_test

import (
	"testing"
	"time"

	"github.com/motorlot/taxengine/logger"
	"github.com/motorlot/taxengine/registry"
	"github.com/motorlot/taxengine/testutil"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEmbeddedCatalogLoads(t *testing.T) {
	reg, err := registry.NewRegistryFromEmbedded()
	require.NoError(t, err)

	implemented := reg.ListImplemented()
	assert.Contains(t, implemented, "CT")
	assert.Contains(t, implemented, "GA")
	assert.Contains(t, implemented, "OR")

	stubs := reg.ListStubs()
	assert.Contains(t, stubs, "WY")
	assert.Contains(t, stubs, "OH")
	assert.NotContains(t, stubs, "CT")

	assert.True(t, reg.IsImplemented("CT"))
	assert.False(t, reg.IsImplemented("WY"))
	assert.False(t, reg.IsImplemented("ZZ"))
}

func TestResolveVersionByDate(t *testing.T) {
	reg, err := registry.NewRegistryFromEmbedded()
	require.NoError(t, err)

	tests := []struct {
		name        string
		code        string
		asOf        time.Time
		wantVersion int
	}{
		{name: "CT historical luxury rate", code: "CT", asOf: date(2014, 1, 1), wantVersion: 1},
		{name: "CT current", code: "CT", asOf: date(2024, 6, 15), wantVersion: 2},
		{name: "IL during trade-in cap", code: "IL", asOf: date(2021, 6, 1), wantVersion: 1},
		{name: "IL after cap repeal", code: "IL", asOf: date(2023, 1, 1), wantVersion: 2},
		{name: "GA original TAVT rate", code: "GA", asOf: date(2015, 3, 1), wantVersion: 1},
		{name: "GA reduced TAVT rate", code: "GA", asOf: date(2024, 6, 15), wantVersion: 2},
		{name: "case-insensitive code", code: "ct", asOf: date(2024, 6, 15), wantVersion: 2},
		{name: "date before all versions returns earliest", code: "CT", asOf: date(1990, 1, 1), wantVersion: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := reg.Resolve(tt.code, tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, rs.Version)
		})
	}
}

func TestResolveGapBetweenVersions(t *testing.T) {
	// MI v1 ends 2023-12-31 and v2 starts 2024-01-01; a date inside v1's
	// range resolves to v1, a date after v2's start to v2.
	reg, err := registry.NewRegistryFromEmbedded()
	require.NoError(t, err)

	rs, err := reg.Resolve("MI", date(2022, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Version)
	assert.Equal(t, "9000", rs.TradeIn.Cap.String())

	rs, err = reg.Resolve("MI", date(2025, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Version)
	assert.Equal(t, "10000", rs.TradeIn.Cap.String())
}

func TestResolveUnknownJurisdiction(t *testing.T) {
	reg, err := registry.NewRegistryFromEmbedded()
	require.NoError(t, err)

	_, err = reg.Resolve("ZZ", date(2024, 6, 15))
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrUnknownJurisdiction))
}

func TestOverlappingVersionsFailLoad(t *testing.T) {
	to := date(2023, 12, 31)

	a := testutil.StateOnlyRuleSet("XX", "0.05")
	a.Version = 1
	a.EffectiveFrom = date(2020, 1, 1)
	a.EffectiveTo = &to

	b := testutil.StateOnlyRuleSet("XX", "0.06")
	b.Version = 2
	b.EffectiveFrom = date(2023, 6, 1) // overlaps version 1

	_, err := registry.NewRegistry([]*business.JurisdictionRuleSet{a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrRuleSetLoadConflict))
}

func TestOpenEndedVersionFollowedByLaterStartFailsLoad(t *testing.T) {
	a := testutil.StateOnlyRuleSet("XX", "0.05")
	a.Version = 1
	a.EffectiveFrom = date(2020, 1, 1) // open-ended

	b := testutil.StateOnlyRuleSet("XX", "0.06")
	b.Version = 2
	b.EffectiveFrom = date(2022, 1, 1)

	_, err := registry.NewRegistry([]*business.JurisdictionRuleSet{a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrRuleSetLoadConflict))
}

func TestParseCatalogDocument(t *testing.T) {
	doc := []byte(`
jurisdiction: XX
name: Example
versions:
  - version: 1
    effective_from: 2020-01-01
    implemented: true
    scheme: STATE_ONLY
    rates:
      state: "0.05"
    trade_in:
      kind: CAPPED
      cap: "7500"
    rebates:
      manufacturer_taxable: true
      dealer_taxable:
        value: true
        confidence: conservative-default
    fees:
      default_taxable: true
    products:
      accessories_taxable: true
      service_contract_taxable: true
      gap:
        value: false
    negative_equity:
      value: true
      confidence: conservative-default
    lease:
      method: MONTHLY
      cap_reduction_taxable:
        value: true
    reciprocity:
      enabled: false
`)

	sets, err := registry.ParseCatalogDocument(doc)
	require.NoError(t, err)
	require.Len(t, sets, 1)

	rs := sets[0]
	assert.Equal(t, "XX", rs.Jurisdiction)
	assert.Equal(t, business.TradeInCapped, rs.TradeIn.Kind)
	assert.Equal(t, "7500", rs.TradeIn.Cap.String())
	assert.Equal(t, business.ConfidenceConservativeDefault, rs.DealerRebateTaxable.Confidence)
	// Unstated confidence defaults to authoritative.
	assert.Equal(t, business.ConfidenceAuthoritative, rs.GAPTaxable.Confidence)
	assert.Equal(t, business.ConfidenceAuthoritative, rs.Lease.CapReductionTaxable.Confidence)
}

func TestParseCatalogDocumentRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing jurisdiction",
			doc: `
name: Nowhere
versions:
  - version: 1
    effective_from: 2020-01-01
    scheme: STATE_ONLY
    trade_in: {kind: FULL}
    lease: {method: MONTHLY}
`,
		},
		{
			name: "invalid scheme",
			doc: `
jurisdiction: XX
versions:
  - version: 1
    effective_from: 2020-01-01
    scheme: FLAT_FEE
    trade_in: {kind: FULL}
    lease: {method: MONTHLY}
`,
		},
		{
			name: "invalid trade-in kind",
			doc: `
jurisdiction: XX
versions:
  - version: 1
    effective_from: 2020-01-01
    scheme: STATE_ONLY
    trade_in: {kind: PARTIAL}
    lease: {method: MONTHLY}
`,
		},
		{
			name: "HUT scheme without hut block",
			doc: `
jurisdiction: XX
versions:
  - version: 1
    effective_from: 2020-01-01
    scheme: SPECIAL_HUT
    trade_in: {kind: FULL}
    lease: {method: MONTHLY}
`,
		},
		{
			name: "reduced base lease without factor",
			doc: `
jurisdiction: XX
versions:
  - version: 1
    effective_from: 2020-01-01
    scheme: STATE_ONLY
    trade_in: {kind: FULL}
    lease: {method: REDUCED_BASE}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.ParseCatalogDocument([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestStubRuleSetConservativeDefaults(t *testing.T) {
	reg, err := registry.NewRegistryFromEmbedded()
	require.NoError(t, err)

	rs, err := reg.Resolve("WY", date(2024, 6, 15))
	require.NoError(t, err)

	assert.False(t, rs.Implemented)
	assert.Equal(t, business.SchemeStateOnly, rs.Scheme)
	assert.Equal(t, business.TradeInFull, rs.TradeIn.Kind)
	assert.True(t, rs.ManufacturerRebateTaxable)
	assert.True(t, rs.DealerRebateTaxable.Value)
	assert.Equal(t, business.ConfidenceConservativeDefault, rs.DealerRebateTaxable.Confidence)
	assert.True(t, rs.DefaultFeeTaxable)
}
