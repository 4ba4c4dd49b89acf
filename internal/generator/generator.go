// Package generator wraps the AI text-generation capability behind an
// interface so planning, scheduling, and ingestion never talk to a
// model provider directly.
package generator

import (
	"context"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// ClusterProposal is one semantic grouping returned by topic planning.
// Weight is the cluster's expected share of articles, relative to its
// siblings.
type ClusterProposal struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// ArticleRequest carries everything needed to generate one article.
type ArticleRequest struct {
	Title        string
	Keywords     []string
	Role         model.Role
	PillarName   string
	ClusterName  string
	MasterPrompt string
	Links        []model.InternalLink
}

// RewriteRequest carries an external item to be rewritten.
type RewriteRequest struct {
	Title        string
	Content      string
	Role         model.Role
	MasterPrompt string
	Links        []model.InternalLink
}

// Generator is the opaque AI capability: prompts in, text out. Calls
// may fail transiently and are never assumed deterministic.
type Generator interface {
	ProposeClusters(ctx context.Context, topic string, keywords []string) ([]ClusterProposal, error)
	GenerateArticle(ctx context.Context, req ArticleRequest) (string, error)
	RewriteArticle(ctx context.Context, req RewriteRequest) (string, error)
}
