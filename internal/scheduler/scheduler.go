// Package scheduler drives article generation: each tick advances at
// most one pending stub per due pillar, paced by the pillar's publish
// schedule.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/itwrites/BlogViraliy-sub004/internal/generator"
	"github.com/itwrites/BlogViraliy-sub004/internal/linker"
	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/internal/notify"
	"github.com/itwrites/BlogViraliy-sub004/internal/pack"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

const (
	// maxRetries bounds generation attempts per stub before it is failed.
	maxRetries = 3
	// maxConcurrentPillars bounds how many pillars one tick advances in parallel.
	maxConcurrentPillars = 4
)

// PackResolver resolves a pillar's pack ID into a content pack.
type PackResolver func(id string) (*model.ContentPack, error)

// Scheduler periodically advances due pillars.
type Scheduler struct {
	store    storage.Storage
	gen      generator.Generator
	notifier notify.Notifier
	resolve  PackResolver
	log      *slog.Logger
	now      func() time.Time
	tick     time.Duration
}

// New creates a Scheduler with the built-in pack registry and wall clock.
func New(store storage.Storage, gen generator.Generator, notifier notify.Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		gen:      gen,
		notifier: notifier,
		resolve:  pack.Resolve,
		log:      log,
		now:      time.Now,
		tick:     1 * time.Minute,
	}
}

// SetTickInterval overrides the default 1-minute tick interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetClock overrides the clock (useful for testing).
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// SetPackResolver overrides the pack resolver (useful for testing).
func (s *Scheduler) SetPackResolver(r PackResolver) {
	s.resolve = r
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick advances every due pillar by at most one stub. Pillars are
// processed concurrently; mutations to any single pillar stay on one
// goroutine, and the storage version check catches outside writers.
func (s *Scheduler) Tick(ctx context.Context) {
	pillars, err := s.store.ListDuePillars(ctx, s.now())
	if err != nil {
		s.log.Error("list due pillars", "error", err)
		return
	}

	sem := make(chan struct{}, maxConcurrentPillars)
	var wg sync.WaitGroup
	for i := range pillars {
		if ctx.Err() != nil {
			break
		}
		p := pillars[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.advancePillar(ctx, &p)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) advancePillar(ctx context.Context, p *model.Pillar) {
	stub, err := s.store.NextPendingArticle(ctx, p.ID)
	if errors.Is(err, storage.ErrNotFound) {
		s.finishPillar(ctx, p)
		return
	}
	if err != nil {
		s.log.Error("next pending article", "pillar_id", p.ID, "error", err)
		return
	}

	stub.Status = model.ArticleGenerating
	if err := s.store.UpdateArticle(ctx, stub); err != nil {
		s.log.Error("mark generating", "article_id", stub.ID, "error", err)
		return
	}

	content, links, genErr := s.generate(ctx, p, stub)
	if genErr != nil {
		s.handleFailure(ctx, p, stub, genErr)
		return
	}

	pending, err := s.store.CountPendingArticles(ctx, p.ID)
	if err != nil {
		s.log.Error("count pending", "pillar_id", p.ID, "error", err)
		pending = -1
	}

	p.GeneratedCount++
	p.Status = model.PillarGenerating
	s.scheduleNext(p)
	// The stub counts itself while still in generating state.
	done := pending == 1
	if done {
		p.Status = model.PillarCompleted
		p.NextPublishAt = nil
	}

	stub.InternalLinks = links
	post := &model.Post{
		SiteID:  p.SiteID,
		Title:   stub.Title,
		Slug:    stub.Slug,
		Content: content,
		Tags:    stub.Keywords,
		Source:  model.SourceTopicalAuthority,
	}
	if err := s.store.CompleteArticle(ctx, stub, post, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.log.Warn("pillar advanced elsewhere, skipping", "pillar_id", p.ID)
			s.requeueStub(ctx, stub.ID)
			return
		}
		s.log.Error("complete article", "article_id", stub.ID, "error", err)
		return
	}

	s.log.Info("article generated", "pillar_id", p.ID, "article_id", stub.ID,
		"post_id", post.ID, "generated", p.GeneratedCount)

	if done {
		s.notifier.PillarCompleted(p)
	}
}

// requeueStub returns a stub to the queue after a lost pillar race.
// The stub is re-read first: if the winning writer already completed
// it, resetting it would clear its post and publish it twice.
func (s *Scheduler) requeueStub(ctx context.Context, id int64) {
	fresh, err := s.store.GetArticle(ctx, id)
	if err != nil {
		s.log.Error("reload stub", "article_id", id, "error", err)
		return
	}
	if fresh.Status != model.ArticleGenerating {
		return
	}
	fresh.Status = model.ArticlePending
	if err := s.store.UpdateArticle(ctx, fresh); err != nil {
		s.log.Error("requeue stub", "article_id", id, "error", err)
	}
}

// generate resolves internal links and invokes the AI capability.
func (s *Scheduler) generate(ctx context.Context, p *model.Pillar, stub *model.PillarArticle) (string, []model.InternalLink, error) {
	pk, err := s.resolve(p.PackID)
	if err != nil {
		return "", nil, err
	}

	articles, err := s.store.ListArticles(ctx, p.ID)
	if err != nil {
		return "", nil, err
	}
	links := linker.Resolve(stub, articles, pk)

	clusterName := ""
	if stub.ClusterID != nil {
		clusters, err := s.store.ListClusters(ctx, p.ID)
		if err != nil {
			return "", nil, err
		}
		for _, c := range clusters {
			if c.ID == *stub.ClusterID {
				clusterName = c.Name
				break
			}
		}
	}

	content, err := s.gen.GenerateArticle(ctx, generator.ArticleRequest{
		Title:        stub.Title,
		Keywords:     stub.Keywords,
		Role:         stub.Role,
		PillarName:   p.Name,
		ClusterName:  clusterName,
		MasterPrompt: p.MasterPrompt,
		Links:        links,
	})
	if err != nil {
		return "", nil, err
	}
	return content, links, nil
}

// handleFailure requeues the stub below the retry ceiling and fails it
// at the ceiling. A single failed stub never fails the pillar.
func (s *Scheduler) handleFailure(ctx context.Context, p *model.Pillar, stub *model.PillarArticle, genErr error) {
	stub.RetryCount++
	stub.Error = genErr.Error()

	if stub.RetryCount < maxRetries {
		stub.Status = model.ArticlePending
		if err := s.store.UpdateArticle(ctx, stub); err != nil {
			s.log.Error("requeue stub", "article_id", stub.ID, "error", err)
		}
		s.log.Warn("generation failed, will retry", "article_id", stub.ID,
			"retry", stub.RetryCount, "error", genErr)
		return
	}

	stub.Status = model.ArticleFailed
	if err := s.store.UpdateArticle(ctx, stub); err != nil {
		s.log.Error("fail stub", "article_id", stub.ID, "error", err)
		return
	}

	p.FailedCount++
	p.Status = model.PillarGenerating
	s.scheduleNext(p)
	if err := s.store.AdvancePillar(ctx, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.log.Warn("pillar advanced elsewhere, skipping", "pillar_id", p.ID)
			return
		}
		s.log.Error("advance pillar", "pillar_id", p.ID, "error", err)
		return
	}
	s.log.Error("article failed permanently", "pillar_id", p.ID,
		"article_id", stub.ID, "error", genErr)
}

// finishPillar completes a pillar with no pending stubs left. Stubs
// still generating in another instance keep it open.
func (s *Scheduler) finishPillar(ctx context.Context, p *model.Pillar) {
	pending, err := s.store.CountPendingArticles(ctx, p.ID)
	if err != nil {
		s.log.Error("count pending", "pillar_id", p.ID, "error", err)
		return
	}
	if pending > 0 {
		return
	}

	p.Status = model.PillarCompleted
	p.NextPublishAt = nil
	if err := s.store.AdvancePillar(ctx, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return
		}
		s.log.Error("complete pillar", "pillar_id", p.ID, "error", err)
		return
	}
	s.log.Info("pillar completed", "pillar_id", p.ID,
		"generated", p.GeneratedCount, "failed", p.FailedCount)
	s.notifier.PillarCompleted(p)
}

// scheduleNext computes the pillar's next publish time from its schedule.
func (s *Scheduler) scheduleNext(p *model.Pillar) {
	interval, err := ParseSchedule(p.PublishSchedule)
	if err != nil {
		s.log.Warn("bad publish schedule, defaulting to daily",
			"pillar_id", p.ID, "schedule", p.PublishSchedule)
		interval = 24 * time.Hour
	}
	if interval == 0 {
		p.NextPublishAt = nil
		return
	}
	next := s.now().UTC().Add(interval)
	p.NextPublishAt = &next
}
