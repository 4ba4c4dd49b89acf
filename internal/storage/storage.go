// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// Sentinel errors returned by Storage implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an optimistic version check fails,
	// meaning another writer advanced the record first.
	ErrConflict = errors.New("version conflict")
	// ErrDuplicateSlug is returned when a slug is already taken within a site.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrDuplicateSource is returned when a post with the same source URL
	// already exists within a site.
	ErrDuplicateSource = errors.New("duplicate source url")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreatePillar(ctx context.Context, p *model.Pillar) error
	GetPillar(ctx context.Context, id int64) (*model.Pillar, error)
	ListPillars(ctx context.Context, siteID int64, limit, offset int) ([]model.Pillar, int, error)
	ListDuePillars(ctx context.Context, now time.Time) ([]model.Pillar, error)
	// UpdatePillarStatus sets the status and bumps the version, so any
	// concurrent version-checked write observes the change and conflicts.
	UpdatePillarStatus(ctx context.Context, id int64, status model.PillarStatus) error
	// AdvancePillar persists the pillar's status, counters, and schedule
	// under an optimistic version check. ErrConflict means another writer
	// won the race and nothing was changed.
	AdvancePillar(ctx context.Context, p *model.Pillar) error
	DeletePillar(ctx context.Context, id int64) error

	// CommitPlan atomically stores the planning output for a pillar:
	// clusters, stubs, and the transition to mapped. All or nothing.
	CommitPlan(ctx context.Context, pillarID int64, clusters []model.Cluster, articles []model.PillarArticle) error
	ListClusters(ctx context.Context, pillarID int64) ([]model.Cluster, error)
	ListArticles(ctx context.Context, pillarID int64) ([]model.PillarArticle, error)
	ListArticlesPage(ctx context.Context, pillarID int64, limit, offset int) ([]model.PillarArticle, int, error)
	GetArticle(ctx context.Context, id int64) (*model.PillarArticle, error)
	UpdateArticle(ctx context.Context, a *model.PillarArticle) error
	NextPendingArticle(ctx context.Context, pillarID int64) (*model.PillarArticle, error)
	CountPendingArticles(ctx context.Context, pillarID int64) (int, error)
	SlugExists(ctx context.Context, siteID int64, slug string) (bool, error)
	// CompleteArticle atomically creates the post, marks the stub
	// completed, and advances the pillar's counters with a version check.
	CompleteArticle(ctx context.Context, a *model.PillarArticle, post *model.Post, p *model.Pillar) error

	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	ListPosts(ctx context.Context, siteID int64, limit, offset int) ([]model.Post, int, error)
	// FindPostBySourceURL is the RSS dedup probe; ErrNotFound means the
	// item has not been ingested for this site.
	FindPostBySourceURL(ctx context.Context, siteID int64, url string) (*model.Post, error)

	CreateBatch(ctx context.Context, b *model.KeywordBatch, jobs []model.KeywordJob) error
	GetBatch(ctx context.Context, id string) (*model.KeywordBatch, error)
	ListBatchJobs(ctx context.Context, batchID string) ([]model.KeywordJob, error)
	// ClaimNextJob atomically picks the oldest queued job of a
	// non-cancelled batch and marks it processing.
	ClaimNextJob(ctx context.Context) (*model.KeywordJob, error)
	// FinishJob records a job outcome and updates the batch counters in
	// one transaction. A non-nil postID means success. When the batch's
	// processed count reaches its total, the batch is completed.
	FinishJob(ctx context.Context, jobID int64, postID *int64, jobErr string) error
	// CancelBatch stops dispatch: queued jobs become cancelled, in-flight
	// jobs are left to finish, completedAt is stamped immediately.
	CancelBatch(ctx context.Context, id string) error

	CreateRssConfig(ctx context.Context, c *model.RssConfig) error
	GetRssConfig(ctx context.Context, id int64) (*model.RssConfig, error)
	ListDueRssConfigs(ctx context.Context, now time.Time) ([]model.RssConfig, error)
	UpdateRssConfigRun(ctx context.Context, id int64, lastRun, nextRun time.Time) error

	Close() error
}
