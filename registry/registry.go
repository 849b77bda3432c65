// Package registry holds the read-only, versioned jurisdiction rule catalog.
// The catalog is fully constructed and validated before the first calculation
// call; after that it is never mutated, so any number of callers may resolve
// rule sets concurrently without locks.
package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/motorlot/taxengine/logger"
	"github.com/motorlot/taxengine/types/business"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrUnknownJurisdiction means the code has no catalog entry at all, not
	// even a stub. Callers must not proceed.
	ErrUnknownJurisdiction = errors.New("unknown jurisdiction")
	// ErrRuleSetLoadConflict means two rule-set versions for one jurisdiction
	// have overlapping effective ranges. Fatal at load, never at call time.
	ErrRuleSetLoadConflict = errors.New("rule set load conflict")
)

// Registry resolves jurisdiction rule sets by code and as-of date.
type Registry struct {
	byCode map[string][]*business.JurisdictionRuleSet
	logger *zap.Logger
}

// NewRegistry validates and indexes the given rule sets. Versions for each
// jurisdiction are ordered by effective start; overlapping or duplicate
// effective ranges fail the load.
func NewRegistry(sets []*business.JurisdictionRuleSet) (*Registry, error) {
	log := logger.Log
	if log == nil {
		log = zap.NewNop()
	}

	byCode := make(map[string][]*business.JurisdictionRuleSet)
	for _, rs := range sets {
		code := normalizeCode(rs.Jurisdiction)
		if code == "" {
			return nil, errors.Wrap(ErrRuleSetLoadConflict, "rule set with empty jurisdiction code")
		}
		byCode[code] = append(byCode[code], rs)
	}

	implemented := 0
	stubs := 0
	for code, versions := range byCode {
		sort.Slice(versions, func(i, j int) bool {
			return versions[i].EffectiveFrom.Before(versions[j].EffectiveFrom)
		})
		if err := checkOverlap(code, versions); err != nil {
			return nil, err
		}
		if versions[len(versions)-1].Implemented {
			implemented++
		} else {
			stubs++
		}
	}

	log.Info("jurisdiction rule catalog loaded",
		zap.Int("jurisdictions", len(byCode)),
		zap.Int("implemented", implemented),
		zap.Int("stubs", stubs))

	return &Registry{byCode: byCode, logger: log}, nil
}

// checkOverlap requires each jurisdiction's versions to form non-overlapping
// effective ranges, with at most one open-ended range which must be the last.
func checkOverlap(code string, versions []*business.JurisdictionRuleSet) error {
	for i := 0; i < len(versions)-1; i++ {
		cur, next := versions[i], versions[i+1]
		if cur.EffectiveFrom.Equal(next.EffectiveFrom) {
			return errors.Wrapf(ErrRuleSetLoadConflict,
				"%s: versions %d and %d share effective start %s",
				code, cur.Version, next.Version, cur.EffectiveFrom.Format("2006-01-02"))
		}
		if cur.EffectiveTo == nil {
			return errors.Wrapf(ErrRuleSetLoadConflict,
				"%s: version %d is open-ended but version %d starts later",
				code, cur.Version, next.Version)
		}
		if !next.EffectiveFrom.After(*cur.EffectiveTo) {
			return errors.Wrapf(ErrRuleSetLoadConflict,
				"%s: version %d effective range overlaps version %d",
				code, cur.Version, next.Version)
		}
	}
	return nil
}

// Resolve returns the rule set active for the jurisdiction on asOf. The code
// is case-insensitive. If no version's range contains asOf, the most recent
// version starting on or before asOf wins; if asOf precedes every version,
// the earliest version is returned (oldest known policy, the conservative
// choice for historical recomputation).
func (r *Registry) Resolve(code string, asOf time.Time) (*business.JurisdictionRuleSet, error) {
	versions, ok := r.byCode[normalizeCode(code)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJurisdiction, "%q", code)
	}

	for _, rs := range versions {
		if rs.ActiveOn(asOf) {
			return rs, nil
		}
	}

	var best *business.JurisdictionRuleSet
	for _, rs := range versions {
		if !rs.EffectiveFrom.After(asOf) {
			best = rs
		}
	}
	if best != nil {
		return best, nil
	}
	return versions[0], nil
}

// IsImplemented reports whether the jurisdiction's current rule set is
// authored rather than a conservative stub. Unknown codes report false.
func (r *Registry) IsImplemented(code string) bool {
	versions, ok := r.byCode[normalizeCode(code)]
	if !ok {
		return false
	}
	return versions[len(versions)-1].Implemented
}

// ListImplemented returns the sorted codes with an authored rule set.
func (r *Registry) ListImplemented() []string {
	return r.listWhere(true)
}

// ListStubs returns the sorted codes served by conservative defaults.
func (r *Registry) ListStubs() []string {
	return r.listWhere(false)
}

func (r *Registry) listWhere(implemented bool) []string {
	codes := make([]string, 0, len(r.byCode))
	for code, versions := range r.byCode {
		if versions[len(versions)-1].Implemented == implemented {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
