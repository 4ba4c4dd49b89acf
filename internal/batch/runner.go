// Package batch implements the bulk keyword job queue: one batch per
// submission, one cancellable job per keyword, processed by a bounded
// worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itwrites/BlogViraliy-sub004/internal/generator"
	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/internal/notify"
	"github.com/itwrites/BlogViraliy-sub004/internal/planner"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

// MaxKeywords bounds a single submission.
const MaxKeywords = 200

// Runner processes queued keyword jobs with a bounded worker pool.
type Runner struct {
	store    storage.Storage
	gen      generator.Generator
	notifier notify.Notifier
	log      *slog.Logger
	workers  int
	poll     time.Duration
}

// New creates a Runner with the given pool size.
func New(store storage.Storage, gen generator.Generator, notifier notify.Notifier, workers int, log *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 2
	}
	return &Runner{
		store:    store,
		gen:      gen,
		notifier: notifier,
		log:      log,
		workers:  workers,
		poll:     2 * time.Second,
	}
}

// SetPollInterval overrides the idle poll interval (useful for testing).
func (r *Runner) SetPollInterval(d time.Duration) {
	r.poll = d
}

// Submit creates a batch and its queued jobs. Keywords are processed
// asynchronously by Run.
func (r *Runner) Submit(ctx context.Context, siteID int64, keywords []string, promptOverride string) (*model.KeywordBatch, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no keywords")
	}
	if len(keywords) > MaxKeywords {
		return nil, fmt.Errorf("too many keywords: %d, max %d", len(keywords), MaxKeywords)
	}

	b := &model.KeywordBatch{
		ID:             uuid.NewString(),
		SiteID:         siteID,
		Status:         model.BatchPending,
		TotalKeywords:  len(keywords),
		PromptOverride: promptOverride,
	}
	jobs := make([]model.KeywordJob, len(keywords))
	for i, kw := range keywords {
		jobs[i] = model.KeywordJob{Keyword: kw}
	}

	if err := r.store.CreateBatch(ctx, b, jobs); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	r.log.Info("batch submitted", "batch_id", b.ID, "keywords", len(keywords))
	return b, nil
}

// Cancel stops dispatch of a batch's queued jobs. In-flight jobs finish.
func (r *Runner) Cancel(ctx context.Context, batchID string) error {
	if err := r.store.CancelBatch(ctx, batchID); err != nil {
		return fmt.Errorf("cancel batch: %w", err)
	}
	r.log.Info("batch cancelled", "batch_id", batchID)
	return nil
}

// Run starts the worker pool, blocking until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}
	wg.Wait()
}

func (r *Runner) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := r.store.ClaimNextJob(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.poll):
			}
			continue
		}
		if err != nil {
			r.log.Error("claim job", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.poll):
			}
			continue
		}
		r.processJob(ctx, job)
	}
}

// ProcessAvailable drains the queue synchronously (useful for testing).
func (r *Runner) ProcessAvailable(ctx context.Context) {
	for {
		job, err := r.store.ClaimNextJob(ctx)
		if err != nil {
			return
		}
		r.processJob(ctx, job)
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.KeywordJob) {
	batch, err := r.store.GetBatch(ctx, job.BatchID)
	if err != nil {
		r.log.Error("load batch", "batch_id", job.BatchID, "error", err)
		return
	}

	content, genErr := r.gen.GenerateArticle(ctx, generator.ArticleRequest{
		Title:        planner.TitleFor(job.Keyword),
		Keywords:     []string{job.Keyword},
		Role:         model.RoleGeneral,
		MasterPrompt: batch.PromptOverride,
	})

	var postID *int64
	errMsg := ""
	if genErr != nil {
		errMsg = genErr.Error()
	} else {
		post := &model.Post{
			SiteID:  batch.SiteID,
			Title:   planner.TitleFor(job.Keyword),
			Slug:    planner.Slugify(job.Keyword),
			Content: content,
			Tags:    []string{job.Keyword},
			Source:  model.SourceAIBulk,
		}
		if err := r.createWithUniqueSlug(ctx, post); err != nil {
			errMsg = err.Error()
		} else {
			postID = &post.ID
		}
	}

	if err := r.store.FinishJob(ctx, job.ID, postID, errMsg); err != nil {
		r.log.Error("finish job", "job_id", job.ID, "error", err)
		return
	}

	if errMsg != "" {
		r.log.Warn("job failed", "job_id", job.ID, "keyword", job.Keyword, "error", errMsg)
	} else {
		r.log.Info("job completed", "job_id", job.ID, "keyword", job.Keyword)
	}

	r.maybeNotifyDone(ctx, job.BatchID)
}

func (r *Runner) maybeNotifyDone(ctx context.Context, batchID string) {
	b, err := r.store.GetBatch(ctx, batchID)
	if err != nil {
		return
	}
	if b.Status == model.BatchCompleted && b.ProcessedCount == b.TotalKeywords {
		r.notifier.BatchFinished(b)
	}
}

func (r *Runner) createWithUniqueSlug(ctx context.Context, post *model.Post) error {
	base := post.Slug
	for n := 2; ; n++ {
		err := r.store.CreatePost(ctx, post)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrDuplicateSlug) {
			return err
		}
		post.Slug = fmt.Sprintf("%s-%d", base, n)
	}
}
