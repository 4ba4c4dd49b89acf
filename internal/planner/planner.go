// Package planner expands a topic into clusters and article stubs
// according to a content pack's role distribution.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/itwrites/BlogViraliy-sub004/internal/generator"
	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/internal/notify"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

// Article count bounds for a single pillar.
const (
	MinArticles = 10
	MaxArticles = 500
)

// Cluster count bounds produced by planning.
const (
	minClusters = 3
	maxClusters = 8
)

// Planner turns a draft pillar into a mapped one.
type Planner struct {
	store    storage.Storage
	gen      generator.Generator
	notifier notify.Notifier
	log      *slog.Logger
}

// New creates a Planner.
func New(store storage.Storage, gen generator.Generator, notifier notify.Notifier, log *slog.Logger) *Planner {
	return &Planner{store: store, gen: gen, notifier: notifier, log: log}
}

// Plan walks the pillar draft→mapping→mapped. Cluster proposal is
// delegated to the AI capability; its failure leaves the pillar failed
// with nothing committed. The planning output (clusters, stubs, status
// transition) is stored atomically.
func (pl *Planner) Plan(ctx context.Context, pillar *model.Pillar, seedKeywords []string, pk *model.ContentPack) error {
	if pillar.TargetArticleCount < MinArticles || pillar.TargetArticleCount > MaxArticles {
		return fmt.Errorf("target article count %d out of range [%d, %d]",
			pillar.TargetArticleCount, MinArticles, MaxArticles)
	}

	if err := pl.store.UpdatePillarStatus(ctx, pillar.ID, model.PillarMapping); err != nil {
		return fmt.Errorf("mark mapping: %w", err)
	}
	pillar.Status = model.PillarMapping

	proposals, err := pl.gen.ProposeClusters(ctx, pillar.Name, seedKeywords)
	if err != nil {
		pl.fail(ctx, pillar, err)
		return fmt.Errorf("propose clusters: %w", err)
	}
	proposals, err = normalizeProposals(proposals)
	if err != nil {
		pl.fail(ctx, pillar, err)
		return err
	}

	clusters, articles, err := pl.buildPlan(ctx, pillar, seedKeywords, pk, proposals)
	if err != nil {
		pl.fail(ctx, pillar, err)
		return err
	}

	if err := pl.store.CommitPlan(ctx, pillar.ID, clusters, articles); err != nil {
		pl.fail(ctx, pillar, err)
		return fmt.Errorf("commit plan: %w", err)
	}
	pillar.Status = model.PillarMapped

	pl.log.Info("pillar mapped", "pillar_id", pillar.ID,
		"clusters", len(clusters), "articles", len(articles))
	return nil
}

func (pl *Planner) fail(ctx context.Context, pillar *model.Pillar, cause error) {
	if err := pl.store.UpdatePillarStatus(ctx, pillar.ID, model.PillarFailed); err != nil {
		pl.log.Error("mark pillar failed", "pillar_id", pillar.ID, "error", err)
		return
	}
	pillar.Status = model.PillarFailed
	pl.notifier.PillarFailed(pillar, cause.Error())
}

// normalizeProposals clamps the cluster set into [3, 8]: extras are
// merged into the last kept cluster, too few is a planning failure.
func normalizeProposals(proposals []generator.ClusterProposal) ([]generator.ClusterProposal, error) {
	if len(proposals) < minClusters {
		return nil, fmt.Errorf("planning produced %d clusters, need at least %d", len(proposals), minClusters)
	}
	if len(proposals) > maxClusters {
		last := &proposals[maxClusters-1]
		for _, extra := range proposals[maxClusters:] {
			last.Weight += extra.Weight
		}
		proposals = proposals[:maxClusters]
	}
	for i := range proposals {
		if proposals[i].Weight <= 0 {
			proposals[i].Weight = 1
		}
	}
	return proposals, nil
}

func (pl *Planner) buildPlan(
	ctx context.Context,
	pillar *model.Pillar,
	seedKeywords []string,
	pk *model.ContentPack,
	proposals []generator.ClusterProposal,
) ([]model.Cluster, []model.PillarArticle, error) {
	total := pillar.TargetArticleCount

	// One stub is reserved for the pillar-level hub; the rest are spread
	// across clusters proportionally to the proposed weights.
	weights := make([]float64, len(proposals))
	for i, p := range proposals {
		weights[i] = p.Weight
	}
	perCluster := apportion(weights, total-1)

	clusters := make([]model.Cluster, len(proposals))
	for i, p := range proposals {
		clusters[i] = model.Cluster{
			Name:         p.Name,
			Description:  p.Description,
			SortOrder:    i,
			ArticleCount: perCluster[i],
		}
	}

	roleCounts := allocateRoles(pk.Distribution, total)

	slugs := newSlugSet(pl.store, pillar.SiteID)
	var articles []model.PillarArticle

	hubTitle := fmt.Sprintf("%s: The Complete Guide", titleCase(pillar.Name))
	hubSlug, err := slugs.reserve(ctx, Slugify(hubTitle))
	if err != nil {
		return nil, nil, err
	}
	hubRole := takeRole(roleCounts, pk.Distribution, model.RolePillar)
	articles = append(articles, model.PillarArticle{
		Title:       hubTitle,
		Slug:        hubSlug,
		Keywords:    keywordsFor(pillar.Name, seedKeywords, 0),
		ArticleType: model.TypePillar,
		Role:        hubRole,
		SortOrder:   0,
	})

	sortOrder := 1
	kwIdx := 1
	for ci := range clusters {
		for n := 0; n < perCluster[ci]; n++ {
			role := nextRole(roleCounts, pk.Distribution)
			kw := seedKeyword(pillar.Name, seedKeywords, kwIdx)
			title := stubTitle(clusters[ci].Name, kw, n)
			slug, err := slugs.reserve(ctx, Slugify(title))
			if err != nil {
				return nil, nil, err
			}

			articleType := model.TypeSubtopic
			if n == 0 {
				articleType = model.TypeCategory
			}

			clusterRef := int64(clusters[ci].SortOrder)
			articles = append(articles, model.PillarArticle{
				ClusterID:   &clusterRef,
				Title:       title,
				Slug:        slug,
				Keywords:    keywordsFor(pillar.Name, seedKeywords, kwIdx),
				ArticleType: articleType,
				Role:        role,
				SortOrder:   sortOrder,
			})
			sortOrder++
			kwIdx++
		}
	}

	return clusters, articles, nil
}

// apportion splits total into len(weights) integer parts proportional to
// the weights, assigning leftovers to the largest remainders so the
// parts always sum exactly to total.
func apportion(weights []float64, total int) []int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	parts := make([]int, len(weights))
	remainders := make([]float64, len(weights))
	used := 0
	for i, w := range weights {
		exact := float64(total) * w / sum
		parts[i] = int(exact)
		remainders[i] = exact - float64(parts[i])
		used += parts[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := 0; used < total; i++ {
		parts[order[i%len(order)]]++
		used++
	}
	return parts
}

// allocateRoles converts the percentage distribution into absolute role
// counts reconciling exactly to total.
func allocateRoles(dist []model.RoleShare, total int) map[model.Role]int {
	weights := make([]float64, len(dist))
	for i, share := range dist {
		weights[i] = float64(share.Percent)
	}
	parts := apportion(weights, total)
	counts := make(map[model.Role]int, len(dist))
	for i, share := range dist {
		counts[share.Role] += parts[i]
	}
	return counts
}

// takeRole consumes one slot of the preferred role, falling back to the
// first role in distribution order that still has slots.
func takeRole(counts map[model.Role]int, dist []model.RoleShare, preferred model.Role) model.Role {
	if counts[preferred] > 0 {
		counts[preferred]--
		return preferred
	}
	return nextRole(counts, dist)
}

func nextRole(counts map[model.Role]int, dist []model.RoleShare) model.Role {
	for _, share := range dist {
		if counts[share.Role] > 0 {
			counts[share.Role]--
			return share.Role
		}
	}
	// Counts exhausted; only possible if callers over-draw, but never
	// leave a stub roleless.
	return dist[0].Role
}

func seedKeyword(topic string, keywords []string, i int) string {
	if len(keywords) == 0 {
		return topic
	}
	return keywords[i%len(keywords)]
}

func keywordsFor(topic string, keywords []string, i int) []string {
	kw := seedKeyword(topic, keywords, i)
	if kw == topic {
		return []string{topic}
	}
	return []string{kw, topic}
}

func stubTitle(clusterName, keyword string, n int) string {
	if n == 0 {
		return fmt.Sprintf("%s: What You Need to Know", titleCase(clusterName))
	}
	return fmt.Sprintf("%s for %s", titleCase(keyword), titleCase(clusterName))
}
