// Package model defines the domain types used across the application.
package model

import "time"

// Role classifies an article's function within a topical-authority campaign.
type Role string

// Roles known to the generation engine. Every role carried by a content
// pack must be one of these so a prompt template exists for it.
const (
	RolePillar     Role = "pillar"
	RoleSupport    Role = "support"
	RoleGeneral    Role = "general"
	RoleCommercial Role = "commercial"
	RoleListicle   Role = "listicle"
)

// AnchorPattern selects the strategy for rendering internal link anchor text.
type AnchorPattern string

// Supported anchor patterns.
const (
	AnchorExact    AnchorPattern = "exact"
	AnchorPartial  AnchorPattern = "partial"
	AnchorSemantic AnchorPattern = "semantic"
	AnchorAction   AnchorPattern = "action"
	AnchorList     AnchorPattern = "list"
)

// RoleShare is one entry of a pack's role distribution.
type RoleShare struct {
	Role    Role
	Percent int
}

// LinkingRule directs internal links from articles of one role to
// articles of a set of target roles. Lower priority wins.
type LinkingRule struct {
	FromRole      Role
	ToRoles       []Role
	AnchorPattern AnchorPattern
	Priority      int
}

// ContentPack is a named rule set governing planning and linking.
type ContentPack struct {
	ID           string
	Name         string
	AllowedRoles []Role
	Distribution []RoleShare
	LinkingRules []LinkingRule
}

// PillarStatus is the lifecycle state of a Pillar.
type PillarStatus string

// Pillar lifecycle states.
const (
	PillarDraft      PillarStatus = "draft"
	PillarMapping    PillarStatus = "mapping"
	PillarMapped     PillarStatus = "mapped"
	PillarGenerating PillarStatus = "generating"
	PillarCompleted  PillarStatus = "completed"
	PillarPaused     PillarStatus = "paused"
	PillarFailed     PillarStatus = "failed"
)

// Pillar is a top-level topic entity driving a generation campaign.
// Version backs the optimistic single-writer check on counter updates.
type Pillar struct {
	ID                 int64        `json:"id"`
	SiteID             int64        `json:"site_id"`
	Name               string       `json:"name"`
	Status             PillarStatus `json:"status"`
	PackID             string       `json:"pack_id"`
	TargetArticleCount int          `json:"target_article_count"`
	GeneratedCount     int          `json:"generated_count"`
	FailedCount        int          `json:"failed_count"`
	PublishSchedule    string       `json:"publish_schedule"`
	NextPublishAt      *time.Time   `json:"next_publish_at,omitempty"`
	MasterPrompt       string       `json:"master_prompt,omitempty"`
	Version            int64        `json:"-"`
	CreatedAt          time.Time    `json:"created_at"`
}

// Cluster is a thematic grouping of articles under a Pillar.
type Cluster struct {
	ID             int64  `json:"id"`
	PillarID       int64  `json:"pillar_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	SortOrder      int    `json:"sort_order"`
	ArticleCount   int    `json:"article_count"`
	GeneratedCount int    `json:"generated_count"`
}

// ArticleType distinguishes the hub article from cluster-level articles.
type ArticleType string

// Article types.
const (
	TypePillar   ArticleType = "pillar"
	TypeCategory ArticleType = "category"
	TypeSubtopic ArticleType = "subtopic"
)

// ArticleStatus is the lifecycle state of a planned article stub.
type ArticleStatus string

// Article stub states.
const (
	ArticlePending    ArticleStatus = "pending"
	ArticleGenerating ArticleStatus = "generating"
	ArticleCompleted  ArticleStatus = "completed"
	ArticleFailed     ArticleStatus = "failed"
	ArticleSkipped    ArticleStatus = "skipped"
)

// InternalLink records one resolved outbound link from a stub.
type InternalLink struct {
	TargetID int64  `json:"target_id"`
	Anchor   string `json:"anchor"`
}

// PillarArticle is a planning stub for a not-yet-generated article.
// ClusterID is nil for the pillar-level hub article. PostID is set
// exactly when Status is completed.
type PillarArticle struct {
	ID            int64          `json:"id"`
	PillarID      int64          `json:"pillar_id"`
	ClusterID     *int64         `json:"cluster_id,omitempty"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Keywords      []string       `json:"keywords"`
	ArticleType   ArticleType    `json:"article_type"`
	Role          Role           `json:"role"`
	Status        ArticleStatus  `json:"status"`
	SortOrder     int            `json:"sort_order"`
	PostID        *int64         `json:"post_id,omitempty"`
	InternalLinks []InternalLink `json:"internal_links,omitempty"`
	RetryCount    int            `json:"retry_count"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// PrimaryKeyword returns the stub's first keyword, falling back to its title.
func (a *PillarArticle) PrimaryKeyword() string {
	if len(a.Keywords) > 0 {
		return a.Keywords[0]
	}
	return a.Title
}

// PostSource identifies how a post came to exist.
type PostSource string

// Post sources.
const (
	SourceManual           PostSource = "manual"
	SourceAI               PostSource = "ai"
	SourceAIBulk           PostSource = "ai-bulk"
	SourceTopicalAuthority PostSource = "topical-authority"
	SourceRSS              PostSource = "rss"
)

// Post is a published piece of content. SourceURL is set for RSS-origin
// posts and serves as the per-site dedup key.
type Post struct {
	ID        int64      `json:"id"`
	SiteID    int64      `json:"site_id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags,omitempty"`
	Source    PostSource `json:"source"`
	SourceURL *string    `json:"source_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// BatchStatus is the lifecycle state of a keyword batch.
type BatchStatus string

// Batch states.
const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchCancelled  BatchStatus = "cancelled"
	BatchFailed     BatchStatus = "failed"
)

// KeywordBatch aggregates a bulk keyword submission.
type KeywordBatch struct {
	ID             string      `json:"id"`
	SiteID         int64       `json:"site_id"`
	Status         BatchStatus `json:"status"`
	TotalKeywords  int         `json:"total_keywords"`
	ProcessedCount int         `json:"processed_count"`
	SuccessCount   int         `json:"success_count"`
	FailedCount    int         `json:"failed_count"`
	PromptOverride string      `json:"prompt_override,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// JobStatus is the lifecycle state of a single keyword job.
type JobStatus string

// Job states.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// KeywordJob is one keyword within a batch, producing at most one Post.
type KeywordJob struct {
	ID      int64     `json:"id"`
	BatchID string    `json:"batch_id"`
	Keyword string    `json:"keyword"`
	Status  JobStatus `json:"status"`
	PostID  *int64    `json:"post_id,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// RssConfig enables periodic feed ingestion for a site. PillarID, when
// set, routes rewrites through that pillar's role-specific prompt and
// link resolution.
type RssConfig struct {
	ID              int64      `json:"id"`
	SiteID          int64      `json:"site_id"`
	Enabled         bool       `json:"enabled"`
	Schedule        string     `json:"schedule"`
	FeedURLs        []string   `json:"feed_urls"`
	ArticlesToFetch int        `json:"articles_to_fetch"`
	PillarID        *int64     `json:"pillar_id,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
