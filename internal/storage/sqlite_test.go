package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

var ignorePillarTS = cmpopts.IgnoreFields(model.Pillar{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v int64) *int64 { return &v }

func newPillar(t *testing.T, s *SQLite, status model.PillarStatus) *model.Pillar {
	t.Helper()
	p := &model.Pillar{
		SiteID:             1,
		Name:               "dog training",
		Status:             status,
		PackID:             "quick-seo",
		TargetArticleCount: 10,
		PublishSchedule:    "1_per_day",
	}
	if err := s.CreatePillar(context.Background(), p); err != nil {
		t.Fatalf("create pillar: %v", err)
	}
	return p
}

func TestPillarCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarDraft)
	if p.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	got, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(p, got, ignorePillarTS); diff != "" {
		t.Errorf("GetPillar mismatch (-want +got):\n%s", diff)
	}

	if err := s.UpdatePillarStatus(ctx, p.ID, model.PillarPaused); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err = s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.PillarPaused {
		t.Errorf("status = %s, want paused", got.Status)
	}

	if err := s.DeletePillar(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPillar(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete, err = %v, want ErrNotFound", err)
	}
}

func TestListPillarsPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for i := 0; i < 5; i++ {
		newPillar(t, s, model.PillarDraft)
	}

	page, total, err := s.ListPillars(ctx, 1, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}

	other, total, err := s.ListPillars(ctx, 99, 10, 0)
	if err != nil {
		t.Fatalf("list other site: %v", err)
	}
	if total != 0 || len(other) != 0 {
		t.Errorf("other site got %d/%d pillars, want none", len(other), total)
	}
}

func TestListDuePillars(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	due := newPillar(t, s, model.PillarMapped)
	_ = newPillar(t, s, model.PillarDraft)
	_ = newPillar(t, s, model.PillarPaused)

	future := now.Add(time.Hour)
	notYet := newPillar(t, s, model.PillarGenerating)
	notYet.NextPublishAt = &future
	if err := s.AdvancePillar(ctx, notYet); err != nil {
		t.Fatalf("advance: %v", err)
	}

	past := now.Add(-time.Hour)
	ready := newPillar(t, s, model.PillarGenerating)
	ready.NextPublishAt = &past
	if err := s.AdvancePillar(ctx, ready); err != nil {
		t.Fatalf("advance: %v", err)
	}

	got, err := s.ListDuePillars(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}

	var ids []int64
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	want := []int64{due.ID, ready.ID}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("due pillar IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvancePillarVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarGenerating)

	stale, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	p.GeneratedCount = 1
	if err := s.AdvancePillar(ctx, p); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if p.Version != 1 {
		t.Errorf("version = %d, want 1", p.Version)
	}

	stale.GeneratedCount = 7
	if err := s.AdvancePillar(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale advance err = %v, want ErrConflict", err)
	}

	got, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GeneratedCount != 1 {
		t.Errorf("generated count = %d, the losing writer must change nothing", got.GeneratedCount)
	}
}

func TestPauseInvalidatesInFlightAdvance(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarGenerating)

	// A writer holding the pre-pause version must lose its advance.
	if err := s.UpdatePillarStatus(ctx, p.ID, model.PillarPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}

	p.GeneratedCount = 1
	p.Status = model.PillarGenerating
	if err := s.AdvancePillar(ctx, p); !errors.Is(err, ErrConflict) {
		t.Fatalf("advance after pause err = %v, want ErrConflict", err)
	}

	got, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.PillarPaused {
		t.Errorf("status = %s, the pause must stick", got.Status)
	}
	if got.GeneratedCount != 0 {
		t.Errorf("generated count = %d, want 0", got.GeneratedCount)
	}
}

func TestCommitPlan(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarMapping)

	clusters := []model.Cluster{
		{Name: "Basics", SortOrder: 0, ArticleCount: 2},
		{Name: "Advanced", SortOrder: 1, ArticleCount: 1},
	}
	articles := []model.PillarArticle{
		{Title: "Hub", Slug: "hub", Keywords: []string{"dog training"}, ArticleType: model.TypePillar, Role: model.RolePillar, SortOrder: 0},
		{ClusterID: ptr(0), Title: "A", Slug: "a", Keywords: []string{"a"}, ArticleType: model.TypeCategory, Role: model.RoleSupport, SortOrder: 1},
		{ClusterID: ptr(0), Title: "B", Slug: "b", Keywords: []string{"b"}, ArticleType: model.TypeSubtopic, Role: model.RoleGeneral, SortOrder: 2},
		{ClusterID: ptr(1), Title: "C", Slug: "c", Keywords: []string{"c"}, ArticleType: model.TypeCategory, Role: model.RoleSupport, SortOrder: 3},
	}

	if err := s.CommitPlan(ctx, p.ID, clusters, articles); err != nil {
		t.Fatalf("commit plan: %v", err)
	}

	gotClusters, err := s.ListClusters(ctx, p.ID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(gotClusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(gotClusters))
	}

	gotArticles, err := s.ListArticles(ctx, p.ID)
	if err != nil {
		t.Fatalf("list articles: %v", err)
	}
	if len(gotArticles) != 4 {
		t.Fatalf("articles = %d, want 4", len(gotArticles))
	}
	if gotArticles[0].ClusterID != nil {
		t.Error("hub article must have no cluster")
	}
	// Sort-order references were rebound to real cluster IDs.
	if got, want := *gotArticles[1].ClusterID, gotClusters[0].ID; got != want {
		t.Errorf("article A cluster = %d, want %d", got, want)
	}
	if got, want := *gotArticles[3].ClusterID, gotClusters[1].ID; got != want {
		t.Errorf("article C cluster = %d, want %d", got, want)
	}
	for _, a := range gotArticles {
		if a.Status != model.ArticlePending {
			t.Errorf("article %q status = %s, want pending", a.Title, a.Status)
		}
	}

	gotPillar, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get pillar: %v", err)
	}
	if gotPillar.Status != model.PillarMapped {
		t.Errorf("pillar status = %s, want mapped", gotPillar.Status)
	}
}

func TestNextPendingArticleOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarMapped)
	articles := []model.PillarArticle{
		{Title: "Second", Slug: "second", ArticleType: model.TypeSubtopic, Role: model.RoleGeneral, SortOrder: 2},
		{Title: "First", Slug: "first", ArticleType: model.TypePillar, Role: model.RolePillar, SortOrder: 0},
	}
	if err := s.CommitPlan(ctx, p.ID, nil, articles); err != nil {
		t.Fatalf("commit plan: %v", err)
	}

	next, err := s.NextPendingArticle(ctx, p.ID)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if next.Title != "First" {
		t.Errorf("next = %q, want First", next.Title)
	}

	next.Status = model.ArticleCompleted
	if err := s.UpdateArticle(ctx, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	next, err = s.NextPendingArticle(ctx, p.ID)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if next.Title != "Second" {
		t.Errorf("next = %q, want Second", next.Title)
	}

	next.Status = model.ArticleFailed
	if err := s.UpdateArticle(ctx, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.NextPendingArticle(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("exhausted queue err = %v, want ErrNotFound", err)
	}
}

func TestCompleteArticle(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarMapped)
	clusters := []model.Cluster{{Name: "Basics", SortOrder: 0, ArticleCount: 1}}
	articles := []model.PillarArticle{
		{ClusterID: ptr(0), Title: "A", Slug: "a", Keywords: []string{"a"}, ArticleType: model.TypeCategory, Role: model.RoleSupport, SortOrder: 1},
	}
	if err := s.CommitPlan(ctx, p.ID, clusters, articles); err != nil {
		t.Fatalf("commit plan: %v", err)
	}

	stub := &articles[0]
	stub.InternalLinks = []model.InternalLink{{TargetID: 42, Anchor: "our guide to a"}}

	p, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("reload pillar: %v", err)
	}
	p.Status = model.PillarGenerating
	p.GeneratedCount = 1

	post := &model.Post{
		SiteID:  p.SiteID,
		Title:   "A",
		Slug:    "a",
		Content: "body",
		Tags:    []string{"a"},
		Source:  model.SourceTopicalAuthority,
	}
	if err := s.CompleteArticle(ctx, stub, post, p); err != nil {
		t.Fatalf("complete article: %v", err)
	}
	if post.ID == 0 {
		t.Fatal("expected post ID")
	}

	gotStub, err := s.GetArticle(ctx, stub.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if gotStub.Status != model.ArticleCompleted {
		t.Errorf("stub status = %s, want completed", gotStub.Status)
	}
	if gotStub.PostID == nil || *gotStub.PostID != post.ID {
		t.Errorf("stub post_id = %v, want %d", gotStub.PostID, post.ID)
	}
	if diff := cmp.Diff(stub.InternalLinks, gotStub.InternalLinks); diff != "" {
		t.Errorf("internal links mismatch (-want +got):\n%s", diff)
	}

	gotClusters, err := s.ListClusters(ctx, p.ID)
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if gotClusters[0].GeneratedCount != 1 {
		t.Errorf("cluster generated = %d, want 1", gotClusters[0].GeneratedCount)
	}

	gotPillar, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get pillar: %v", err)
	}
	if gotPillar.GeneratedCount != 1 || gotPillar.Status != model.PillarGenerating {
		t.Errorf("pillar = %s/%d, want generating/1", gotPillar.Status, gotPillar.GeneratedCount)
	}
}

func TestCompleteArticleConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarMapped)
	articles := []model.PillarArticle{
		{Title: "A", Slug: "a", Keywords: []string{"a"}, ArticleType: model.TypeSubtopic, Role: model.RoleGeneral, SortOrder: 1},
	}
	if err := s.CommitPlan(ctx, p.ID, nil, articles); err != nil {
		t.Fatalf("commit plan: %v", err)
	}

	stale, err := s.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	stale.Version-- // simulate another writer having advanced first

	post := &model.Post{SiteID: p.SiteID, Title: "A", Slug: "a", Content: "body", Source: model.SourceTopicalAuthority}
	err = s.CompleteArticle(ctx, &articles[0], post, stale)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Nothing from the transaction may survive the conflict.
	if _, _, err := s.ListPosts(ctx, p.SiteID, 10, 0); err != nil {
		t.Fatalf("list posts: %v", err)
	}
	posts, total, _ := s.ListPosts(ctx, p.SiteID, 10, 0)
	if total != 0 || len(posts) != 0 {
		t.Errorf("posts persisted despite conflict: %d", total)
	}
	gotStub, err := s.GetArticle(ctx, articles[0].ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if gotStub.Status != model.ArticlePending {
		t.Errorf("stub status = %s, want pending", gotStub.Status)
	}
}

func TestSlugExists(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	p := newPillar(t, s, model.PillarMapped)
	articles := []model.PillarArticle{
		{Title: "A", Slug: "planned-slug", ArticleType: model.TypeSubtopic, Role: model.RoleGeneral, SortOrder: 1},
	}
	if err := s.CommitPlan(ctx, p.ID, nil, articles); err != nil {
		t.Fatalf("commit plan: %v", err)
	}
	if err := s.CreatePost(ctx, &model.Post{SiteID: 1, Title: "P", Slug: "post-slug", Content: "x", Source: model.SourceManual}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	tests := []struct {
		siteID int64
		slug   string
		want   bool
	}{
		{1, "planned-slug", true},
		{1, "post-slug", true},
		{1, "free-slug", false},
		{2, "planned-slug", false},
		{2, "post-slug", false},
	}
	for _, tt := range tests {
		got, err := s.SlugExists(ctx, tt.siteID, tt.slug)
		if err != nil {
			t.Fatalf("slug exists: %v", err)
		}
		if got != tt.want {
			t.Errorf("SlugExists(%d, %q) = %v, want %v", tt.siteID, tt.slug, got, tt.want)
		}
	}
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	post := &model.Post{SiteID: 1, Title: "T", Slug: "taken", Content: "x", Source: model.SourceManual}
	if err := s.CreatePost(ctx, post); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &model.Post{SiteID: 1, Title: "T2", Slug: "taken", Content: "y", Source: model.SourceManual}
	if err := s.CreatePost(ctx, dup); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("err = %v, want ErrDuplicateSlug", err)
	}

	// The same slug is fine on another site.
	other := &model.Post{SiteID: 2, Title: "T3", Slug: "taken", Content: "z", Source: model.SourceManual}
	if err := s.CreatePost(ctx, other); err != nil {
		t.Fatalf("create on other site: %v", err)
	}
}

func TestCreatePostDuplicateSourceURL(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	url := "https://dogcare.example.com/leash-pulling"

	post := &model.Post{SiteID: 1, Title: "T", Slug: "first", Content: "x", Source: model.SourceRSS, SourceURL: &url}
	if err := s.CreatePost(ctx, post); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A fresh slug does not mask the source URL collision.
	dup := &model.Post{SiteID: 1, Title: "T2", Slug: "second", Content: "y", Source: model.SourceRSS, SourceURL: &url}
	if err := s.CreatePost(ctx, dup); !errors.Is(err, ErrDuplicateSource) {
		t.Fatalf("err = %v, want ErrDuplicateSource", err)
	}

	other := &model.Post{SiteID: 2, Title: "T3", Slug: "third", Content: "z", Source: model.SourceRSS, SourceURL: &url}
	if err := s.CreatePost(ctx, other); err != nil {
		t.Fatalf("create on other site: %v", err)
	}
}

func TestFindPostBySourceURL(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	url := "https://example.com/item-1"
	post := &model.Post{SiteID: 1, Title: "T", Slug: "t", Content: "x", Source: model.SourceRSS, SourceURL: &url}
	if err := s.CreatePost(ctx, post); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.FindPostBySourceURL(ctx, 1, url)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != post.ID {
		t.Errorf("found post %d, want %d", got.ID, post.ID)
	}

	if _, err := s.FindPostBySourceURL(ctx, 2, url); !errors.Is(err, ErrNotFound) {
		t.Errorf("other site err = %v, want ErrNotFound", err)
	}
	if _, err := s.FindPostBySourceURL(ctx, 1, "https://example.com/other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other url err = %v, want ErrNotFound", err)
	}
}

func newBatch(t *testing.T, s *SQLite, keywords ...string) *model.KeywordBatch {
	t.Helper()
	b := &model.KeywordBatch{
		ID:            "batch-" + keywords[0],
		SiteID:        1,
		Status:        model.BatchPending,
		TotalKeywords: len(keywords),
	}
	jobs := make([]model.KeywordJob, len(keywords))
	for i, kw := range keywords {
		jobs[i] = model.KeywordJob{Keyword: kw}
	}
	if err := s.CreateBatch(context.Background(), b, jobs); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return b
}

func TestClaimAndFinishJobs(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	b := newBatch(t, s, "alpha", "beta", "gamma")

	first, err := s.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first.Keyword != "alpha" {
		t.Errorf("claimed %q, want alpha", first.Keyword)
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.Status != model.BatchProcessing {
		t.Errorf("batch status = %s, want processing after first claim", got.Status)
	}

	if err := s.FinishJob(ctx, first.ID, ptr(101), ""); err != nil {
		t.Fatalf("finish: %v", err)
	}

	second, err := s.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.FinishJob(ctx, second.ID, nil, "model refused"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err = s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.ProcessedCount != 2 || got.SuccessCount != 1 || got.FailedCount != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1",
			got.ProcessedCount, got.SuccessCount, got.FailedCount)
	}
	if got.Status != model.BatchProcessing {
		t.Errorf("batch status = %s, still one job left", got.Status)
	}

	third, err := s.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.FinishJob(ctx, third.ID, ptr(102), ""); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err = s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.Status != model.BatchCompleted {
		t.Errorf("batch status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completed batch must carry a completion timestamp")
	}

	if _, err := s.ClaimNextJob(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty queue err = %v, want ErrNotFound", err)
	}
}

func TestCancelBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	b := newBatch(t, s, "one", "two", "three")

	inflight, err := s.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := s.CancelBatch(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.Status != model.BatchCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("cancelled batch must carry a completion timestamp")
	}

	jobs, err := s.ListBatchJobs(ctx, b.ID)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	for _, j := range jobs {
		switch j.ID {
		case inflight.ID:
			if j.Status != model.JobProcessing {
				t.Errorf("in-flight job status = %s, must be left to finish", j.Status)
			}
		default:
			if j.Status != model.JobCancelled {
				t.Errorf("job %q status = %s, want cancelled", j.Keyword, j.Status)
			}
		}
	}

	// Cancelled batches dispatch nothing further.
	if _, err := s.ClaimNextJob(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("claim after cancel err = %v, want ErrNotFound", err)
	}

	// The in-flight job still lands and bumps counters.
	if err := s.FinishJob(ctx, inflight.ID, ptr(5), ""); err != nil {
		t.Fatalf("finish in-flight: %v", err)
	}
	got, err = s.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.Status != model.BatchCancelled {
		t.Errorf("status = %s, cancellation is terminal", got.Status)
	}
	if got.ProcessedCount != 1 || got.SuccessCount != 1 {
		t.Errorf("counters = %d/%d, want 1/1", got.ProcessedCount, got.SuccessCount)
	}

	if err := s.CancelBatch(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double cancel err = %v, want ErrNotFound", err)
	}
}

func TestRssConfigLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cfg := &model.RssConfig{
		SiteID:          1,
		Enabled:         true,
		Schedule:        "@hourly",
		FeedURLs:        []string{"https://example.com/rss"},
		ArticlesToFetch: 5,
	}
	if err := s.CreateRssConfig(ctx, cfg); err != nil {
		t.Fatalf("create: %v", err)
	}

	disabled := &model.RssConfig{SiteID: 1, Schedule: "@hourly", FeedURLs: []string{"https://example.com/off"}}
	if err := s.CreateRssConfig(ctx, disabled); err != nil {
		t.Fatalf("create disabled: %v", err)
	}

	due, err := s.ListDueRssConfigs(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != cfg.ID {
		t.Fatalf("due = %v, want just config %d", due, cfg.ID)
	}

	if err := s.UpdateRssConfigRun(ctx, cfg.ID, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("update run: %v", err)
	}
	due, err = s.ListDueRssConfigs(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("config still due after scheduling next run: %v", due)
	}

	got, err := s.GetRssConfig(ctx, cfg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(now) {
		t.Errorf("last run = %v, want %v", got.LastRunAt, now)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(now.Add(time.Hour)) {
		t.Errorf("next run = %v, want %v", got.NextRunAt, now.Add(time.Hour))
	}
}
