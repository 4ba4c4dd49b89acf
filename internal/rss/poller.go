package rss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"

	"github.com/itwrites/BlogViraliy-sub004/internal/generator"
	"github.com/itwrites/BlogViraliy-sub004/internal/linker"
	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/internal/pack"
	"github.com/itwrites/BlogViraliy-sub004/internal/planner"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

// PackResolver resolves a pillar's pack ID into a content pack.
type PackResolver func(id string) (*model.ContentPack, error)

// Poller periodically ingests configured feeds.
type Poller struct {
	store      storage.Storage
	fetcher    *Fetcher
	gen        generator.Generator
	resolve    PackResolver
	log        *slog.Logger
	now        func() time.Time
	tick       time.Duration
	cronParser cron.Parser
}

// New creates a Poller with the default HTTP client.
func New(store storage.Storage, gen generator.Generator, log *slog.Logger) *Poller {
	return NewWithFetcher(store, NewFetcher(http.DefaultClient), gen, log)
}

// NewWithFetcher creates a Poller with a custom fetcher (useful for testing).
func NewWithFetcher(store storage.Storage, f *Fetcher, gen generator.Generator, log *slog.Logger) *Poller {
	return &Poller{
		store:   store,
		fetcher: f,
		gen:     gen,
		resolve: pack.Resolve,
		log:     log,
		now:     time.Now,
		tick:    1 * time.Minute,
		cronParser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (p *Poller) SetTickInterval(d time.Duration) {
	p.tick = d
}

// SetClock overrides the clock (useful for testing).
func (p *Poller) SetClock(now func() time.Time) {
	p.now = now
}

// SetPackResolver overrides the pack resolver (useful for testing).
func (p *Poller) SetPackResolver(r PackResolver) {
	p.resolve = r
}

// Run starts the polling loop, blocking until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Tick(ctx)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick processes every due config. A failure in one config or feed is
// isolated to that config/feed for this cycle.
func (p *Poller) Tick(ctx context.Context) {
	configs, err := p.store.ListDueRssConfigs(ctx, p.now())
	if err != nil {
		p.log.Error("list due rss configs", "error", err)
		return
	}

	for i := range configs {
		if ctx.Err() != nil {
			return
		}
		p.processConfig(ctx, &configs[i])
	}
}

func (p *Poller) processConfig(ctx context.Context, cfg *model.RssConfig) {
	p.log.Debug("polling feeds", "config_id", cfg.ID, "site_id", cfg.SiteID)

	for _, url := range cfg.FeedURLs {
		if ctx.Err() != nil {
			return
		}
		if err := p.processFeed(ctx, cfg, url); err != nil {
			p.log.Error("process feed", "config_id", cfg.ID, "url", url, "error", err)
		}
	}

	p.scheduleNextRun(ctx, cfg)
}

func (p *Poller) processFeed(ctx context.Context, cfg *model.RssConfig, url string) error {
	feed, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	items := feed.Items
	if cfg.ArticlesToFetch > 0 && len(items) > cfg.ArticlesToFetch {
		items = items[:cfg.ArticlesToFetch]
	}

	created := 0
	for _, item := range items {
		ok, err := p.ingestItem(ctx, cfg, item)
		if err != nil {
			p.log.Error("ingest item", "config_id", cfg.ID, "link", item.Link, "error", err)
			continue
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		p.log.Info("ingested feed items", "config_id", cfg.ID, "url", url, "count", created)
	}
	return nil
}

// ingestItem creates a post for a feed item unless its canonical link
// was already ingested for the site. Returns true when a post was made.
func (p *Poller) ingestItem(ctx context.Context, cfg *model.RssConfig, item *gofeed.Item) (bool, error) {
	link := CanonicalLink(item)
	if link == "" {
		return false, fmt.Errorf("item %q has no link", item.Title)
	}

	_, err := p.store.FindPostBySourceURL(ctx, cfg.SiteID, link)
	if err == nil {
		return false, nil // already ingested
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("dedup probe: %w", err)
	}

	req := generator.RewriteRequest{
		Title:   item.Title,
		Content: itemContent(item),
	}
	if cfg.PillarID != nil {
		req.Role, req.MasterPrompt, req.Links, err = p.pillarContext(ctx, *cfg.PillarID, item.Title)
		if err != nil {
			return false, err
		}
	}

	content, err := p.gen.RewriteArticle(ctx, req)
	if err != nil {
		return false, fmt.Errorf("rewrite: %w", err)
	}

	post := &model.Post{
		SiteID:    cfg.SiteID,
		Title:     item.Title,
		Content:   content,
		Tags:      item.Categories,
		Source:    model.SourceRSS,
		SourceURL: &link,
	}
	if err := p.createWithUniqueSlug(ctx, post); err != nil {
		// Lost a race with another writer ingesting the same item
		// between the probe and the insert.
		if errors.Is(err, storage.ErrDuplicateSource) {
			return false, nil
		}
		return false, fmt.Errorf("create post: %w", err)
	}
	return true, nil
}

// pillarContext derives the rewrite role, prompt, and internal links
// from the linked pillar.
func (p *Poller) pillarContext(ctx context.Context, pillarID int64, title string) (model.Role, string, []model.InternalLink, error) {
	pillar, err := p.store.GetPillar(ctx, pillarID)
	if err != nil {
		return "", "", nil, fmt.Errorf("load pillar: %w", err)
	}
	pk, err := p.resolve(pillar.PackID)
	if err != nil {
		return "", "", nil, fmt.Errorf("resolve pack: %w", err)
	}

	role := pk.AllowedRoles[0]
	for _, r := range pk.AllowedRoles {
		if r == model.RoleGeneral {
			role = r
			break
		}
	}

	articles, err := p.store.ListArticles(ctx, pillar.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("list articles: %w", err)
	}
	ghost := &model.PillarArticle{Title: title, Role: role}
	links := linker.Resolve(ghost, articles, pk)

	return role, pillar.MasterPrompt, links, nil
}

// createWithUniqueSlug retries slug collisions with numeric suffixes.
func (p *Poller) createWithUniqueSlug(ctx context.Context, post *model.Post) error {
	base := planner.Slugify(post.Title)
	post.Slug = base
	for n := 2; ; n++ {
		err := p.store.CreatePost(ctx, post)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrDuplicateSlug) {
			return err
		}
		post.Slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (p *Poller) scheduleNextRun(ctx context.Context, cfg *model.RssConfig) {
	now := p.now().UTC()
	next := now.Add(time.Hour)
	if sched, err := p.cronParser.Parse(cfg.Schedule); err != nil {
		p.log.Warn("bad rss schedule, defaulting to hourly",
			"config_id", cfg.ID, "schedule", cfg.Schedule)
	} else {
		next = sched.Next(now)
	}

	if err := p.store.UpdateRssConfigRun(ctx, cfg.ID, now, next); err != nil {
		p.log.Error("update rss run", "config_id", cfg.ID, "error", err)
	}
}

func itemContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
