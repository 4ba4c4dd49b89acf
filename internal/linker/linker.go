// Package linker implements the internal link resolver: given a stub
// about to be generated, it selects link targets among already-completed
// stubs per the pack's linking rules and renders anchor text.
package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// Resolve returns the internal links to inject into the given stub's
// content. It is a pure function of the pillar's article set at call
// time: only completed stubs are eligible targets, which also rules out
// link cycles by construction. An empty result is not an error.
func Resolve(stub *model.PillarArticle, articles []model.PillarArticle, p *model.ContentPack) []model.InternalLink {
	rules := rulesForRole(p.LinkingRules, stub.Role)

	for _, rule := range rules {
		links := applyRule(stub, articles, rule)
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

// rulesForRole filters rules by fromRole and orders them by ascending
// priority. The sort is stable so equal priorities keep pack order.
func rulesForRole(rules []model.LinkingRule, role model.Role) []model.LinkingRule {
	var matched []model.LinkingRule
	for _, r := range rules {
		if r.FromRole == role {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})
	return matched
}

// applyRule selects at most one target per toRole, preferring stubs in
// the same cluster before falling back to the whole pillar.
func applyRule(stub *model.PillarArticle, articles []model.PillarArticle, rule model.LinkingRule) []model.InternalLink {
	var links []model.InternalLink
	for _, toRole := range rule.ToRoles {
		target := pickTarget(stub, articles, toRole)
		if target == nil {
			continue
		}
		links = append(links, model.InternalLink{
			TargetID: target.ID,
			Anchor:   RenderAnchor(rule.AnchorPattern, target),
		})
	}
	return links
}

func pickTarget(stub *model.PillarArticle, articles []model.PillarArticle, role model.Role) *model.PillarArticle {
	if stub.ClusterID != nil {
		if t := pickCandidate(stub, articles, role, stub.ClusterID); t != nil {
			return t
		}
	}
	return pickCandidate(stub, articles, role, nil)
}

// pickCandidate returns the completed stub of the given role with the
// lowest sort order, optionally restricted to one cluster. Deterministic
// ordering keeps regeneration reproducible.
func pickCandidate(stub *model.PillarArticle, articles []model.PillarArticle, role model.Role, clusterID *int64) *model.PillarArticle {
	var best *model.PillarArticle
	for i := range articles {
		a := &articles[i]
		if a.ID == stub.ID || a.Status != model.ArticleCompleted || a.Role != role {
			continue
		}
		if clusterID != nil && (a.ClusterID == nil || *a.ClusterID != *clusterID) {
			continue
		}
		if best == nil || a.SortOrder < best.SortOrder {
			best = a
		}
	}
	return best
}

// RenderAnchor renders anchor text for a target according to the given
// pattern. Output is a pure function of the pattern and target metadata,
// so identical inputs always yield identical anchors across retries.
func RenderAnchor(pattern model.AnchorPattern, target *model.PillarArticle) string {
	kw := strings.ToLower(target.PrimaryKeyword())
	switch pattern {
	case model.AnchorExact:
		return kw
	case model.AnchorPartial:
		words := strings.Fields(kw)
		if len(words) > 1 {
			return strings.Join(words[:len(words)-1], " ")
		}
		return kw + " tips"
	case model.AnchorSemantic:
		return fmt.Sprintf("our guide to %s", kw)
	case model.AnchorAction:
		return fmt.Sprintf("explore %s today", kw)
	case model.AnchorList:
		return fmt.Sprintf("see our %s picks", kw)
	}
	return kw
}
