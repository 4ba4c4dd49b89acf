// Package pack implements the content pack registry: built-in presets,
// custom pack resolution, and validation of role distributions and
// linking rules.
package pack

import (
	"fmt"
	"sort"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// Built-in preset identifiers.
const (
	PresetQuickSEO     = "quick-seo"
	PresetTrafficBoost = "traffic-boost"
	PresetBuyerIntent  = "buyer-intent"
)

var presets = map[string]model.ContentPack{
	PresetQuickSEO: {
		ID:           PresetQuickSEO,
		Name:         "Quick SEO",
		AllowedRoles: []model.Role{model.RolePillar, model.RoleSupport, model.RoleGeneral},
		Distribution: []model.RoleShare{
			{Role: model.RolePillar, Percent: 10},
			{Role: model.RoleSupport, Percent: 50},
			{Role: model.RoleGeneral, Percent: 40},
		},
		LinkingRules: []model.LinkingRule{
			{FromRole: model.RoleSupport, ToRoles: []model.Role{model.RolePillar}, AnchorPattern: model.AnchorSemantic, Priority: 1},
			{FromRole: model.RoleGeneral, ToRoles: []model.Role{model.RoleSupport, model.RolePillar}, AnchorPattern: model.AnchorPartial, Priority: 1},
			{FromRole: model.RolePillar, ToRoles: []model.Role{model.RoleSupport}, AnchorPattern: model.AnchorExact, Priority: 1},
		},
	},
	PresetTrafficBoost: {
		ID:           PresetTrafficBoost,
		Name:         "Traffic Boost",
		AllowedRoles: []model.Role{model.RolePillar, model.RoleSupport, model.RoleListicle, model.RoleGeneral},
		Distribution: []model.RoleShare{
			{Role: model.RolePillar, Percent: 5},
			{Role: model.RoleSupport, Percent: 35},
			{Role: model.RoleListicle, Percent: 30},
			{Role: model.RoleGeneral, Percent: 30},
		},
		LinkingRules: []model.LinkingRule{
			{FromRole: model.RoleListicle, ToRoles: []model.Role{model.RoleSupport}, AnchorPattern: model.AnchorList, Priority: 1},
			{FromRole: model.RoleListicle, ToRoles: []model.Role{model.RolePillar}, AnchorPattern: model.AnchorSemantic, Priority: 2},
			{FromRole: model.RoleSupport, ToRoles: []model.Role{model.RolePillar}, AnchorPattern: model.AnchorSemantic, Priority: 1},
			{FromRole: model.RoleGeneral, ToRoles: []model.Role{model.RoleListicle, model.RoleSupport}, AnchorPattern: model.AnchorPartial, Priority: 1},
		},
	},
	PresetBuyerIntent: {
		ID:           PresetBuyerIntent,
		Name:         "Buyer Intent",
		AllowedRoles: []model.Role{model.RolePillar, model.RoleCommercial, model.RoleSupport},
		Distribution: []model.RoleShare{
			{Role: model.RolePillar, Percent: 10},
			{Role: model.RoleCommercial, Percent: 60},
			{Role: model.RoleSupport, Percent: 30},
		},
		LinkingRules: []model.LinkingRule{
			{FromRole: model.RoleSupport, ToRoles: []model.Role{model.RoleCommercial}, AnchorPattern: model.AnchorAction, Priority: 1},
			{FromRole: model.RoleSupport, ToRoles: []model.Role{model.RolePillar}, AnchorPattern: model.AnchorSemantic, Priority: 2},
			{FromRole: model.RoleCommercial, ToRoles: []model.Role{model.RolePillar}, AnchorPattern: model.AnchorSemantic, Priority: 1},
		},
	},
}

// ValidationError describes why a content pack was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid content pack: " + e.Reason
}

// PresetIDs returns the identifiers of all built-in packs, sorted.
func PresetIDs() []string {
	ids := make([]string, 0, len(presets))
	for id := range presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the built-in pack with the given ID. The returned pack
// is a deep copy so callers cannot mutate registry state.
func Resolve(id string) (*model.ContentPack, error) {
	p, ok := presets[id]
	if !ok {
		return nil, fmt.Errorf("unknown content pack %q", id)
	}
	cp := clone(&p)
	return cp, nil
}

// ResolveCustom validates a user-authored pack and returns a copy of it.
func ResolveCustom(p *model.ContentPack) (*model.ContentPack, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	return clone(p), nil
}

// Validate checks a pack's internal consistency. Percentages must sum to
// exactly 100 (no re-normalization), every referenced role must be
// allowed and known to the engine, and rules must be well-formed.
func Validate(p *model.ContentPack) error {
	if len(p.AllowedRoles) == 0 {
		return &ValidationError{Reason: "no allowed roles"}
	}

	allowed := make(map[model.Role]bool, len(p.AllowedRoles))
	for _, r := range p.AllowedRoles {
		if !model.KnownRole(r) {
			return &ValidationError{Reason: fmt.Sprintf("role %q has no generation support", r)}
		}
		allowed[r] = true
	}

	if len(p.Distribution) == 0 {
		return &ValidationError{Reason: "empty role distribution"}
	}
	sum := 0
	for _, share := range p.Distribution {
		if !allowed[share.Role] {
			return &ValidationError{Reason: fmt.Sprintf("distribution role %q is not in allowed roles", share.Role)}
		}
		if share.Percent < 0 {
			return &ValidationError{Reason: fmt.Sprintf("negative percentage for role %q", share.Role)}
		}
		sum += share.Percent
	}
	if sum != 100 {
		return &ValidationError{Reason: fmt.Sprintf("role distribution sums to %d, want 100", sum)}
	}

	for i, rule := range p.LinkingRules {
		if !allowed[rule.FromRole] {
			return &ValidationError{Reason: fmt.Sprintf("rule %d: from role %q is not in allowed roles", i, rule.FromRole)}
		}
		if len(rule.ToRoles) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("rule %d: no target roles", i)}
		}
		for _, to := range rule.ToRoles {
			if !allowed[to] {
				return &ValidationError{Reason: fmt.Sprintf("rule %d: target role %q is not in allowed roles", i, to)}
			}
		}
		if !model.KnownAnchorPattern(rule.AnchorPattern) {
			return &ValidationError{Reason: fmt.Sprintf("rule %d: unknown anchor pattern %q", i, rule.AnchorPattern)}
		}
	}

	return nil
}

func clone(p *model.ContentPack) *model.ContentPack {
	cp := *p
	cp.AllowedRoles = append([]model.Role(nil), p.AllowedRoles...)
	cp.Distribution = append([]model.RoleShare(nil), p.Distribution...)
	cp.LinkingRules = make([]model.LinkingRule, len(p.LinkingRules))
	for i, r := range p.LinkingRules {
		r.ToRoles = append([]model.Role(nil), r.ToRoles...)
		cp.LinkingRules[i] = r
	}
	return &cp
}
