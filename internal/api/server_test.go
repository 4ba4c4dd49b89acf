package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/itwrites/BlogViraliy-sub004/internal/batch"
	"github.com/itwrites/BlogViraliy-sub004/internal/generator"
	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/internal/notify"
	"github.com/itwrites/BlogViraliy-sub004/internal/planner"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

type stubGen struct{}

func (stubGen) ProposeClusters(context.Context, string, []string) ([]generator.ClusterProposal, error) {
	return []generator.ClusterProposal{
		{Name: "One", Weight: 1}, {Name: "Two", Weight: 1}, {Name: "Three", Weight: 1},
	}, nil
}

func (stubGen) GenerateArticle(context.Context, generator.ArticleRequest) (string, error) {
	return "body", nil
}

func (stubGen) RewriteArticle(context.Context, generator.RewriteRequest) (string, error) {
	return "", errors.New("not used")
}

var testKeys = map[string][]string{
	"reader-key": {ScopePostsRead, ScopePillarsRead},
	"admin-key":  {ScopePostsRead, ScopePillarsRead, ScopePillarsManage},
}

func newTestServer(t *testing.T) (*Server, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pl := planner.New(store, stubGen{}, notify.Noop{}, log)
	br := batch.New(store, stubGen{}, notify.Noop{}, 1, log)
	return New(store, pl, br, testKeys, log), store
}

func do(t *testing.T, r *gin.Engine, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	tests := []struct {
		name string
		key  string
		path string
		want int
	}{
		{"missing key", "", "/api/v1/posts?site_id=1", http.StatusUnauthorized},
		{"unknown key", "nope", "/api/v1/posts?site_id=1", http.StatusUnauthorized},
		{"valid key", "reader-key", "/api/v1/posts?site_id=1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, tt.path, tt.key, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestScopeEnforcement(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	// Readers cannot manage.
	w := do(t, r, http.MethodPost, "/api/v1/packs/validate", "reader-key", `{}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("reader on manage endpoint = %d, want 403", w.Code)
	}

	// Admins can.
	body := `{
		"allowed_roles": ["pillar", "support"],
		"distribution": [
			{"role": "pillar", "percent": 40},
			{"role": "support", "percent": 60}
		]
	}`
	w = do(t, r, http.MethodPost, "/api/v1/packs/validate", "admin-key", body)
	if w.Code != http.StatusOK {
		t.Errorf("admin validate = %d, want 200: %s", w.Code, w.Body)
	}
}

func TestValidatePackRejectsBadDistribution(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{
		"allowed_roles": ["pillar", "support"],
		"distribution": [
			{"role": "pillar", "percent": 40},
			{"role": "support", "percent": 50}
		]
	}`
	w := do(t, s.Router(), http.MethodPost, "/api/v1/packs/validate", "admin-key", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422: %s", w.Code, w.Body)
	}
}

func TestListPostsPagination(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		post := &model.Post{
			SiteID: 1, Title: "T", Slug: "slug-" + string(rune('a'+i)),
			Content: "x", Source: model.SourceManual,
		}
		if err := store.CreatePost(ctx, post); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	w := do(t, s.Router(), http.MethodGet, "/api/v1/posts?site_id=1&page=2&per_page=2", "reader-key", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var resp struct {
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		Page    int               `json:"page"`
		PerPage int               `json:"per_page"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 5 || resp.Page != 2 || resp.PerPage != 2 || len(resp.Data) != 2 {
		t.Errorf("envelope = total %d page %d per_page %d items %d, want 5/2/2/2",
			resp.Total, resp.Page, resp.PerPage, len(resp.Data))
	}
}

func TestListPostsRequiresSiteID(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/api/v1/posts", "reader-key", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/api/v1/posts?site_id=1", "reader-key", "")

	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
	for _, h := range []string{"X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s header", h)
		}
	}
}

func TestRateLimitExhaustion(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	var last int
	for i := 0; i < defaultRateBurst+5; i++ {
		w := do(t, r, http.MethodGet, "/api/v1/posts?site_id=1", "reader-key", "")
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}

	// Another key has its own bucket.
	w := do(t, r, http.MethodGet, "/api/v1/posts?site_id=1", "admin-key", "")
	if w.Code != http.StatusOK {
		t.Errorf("other key status = %d, want 200", w.Code)
	}
}

func TestGetPillarNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/api/v1/pillars/9999", "reader-key", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreatePillarValidation(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			"missing fields",
			`{"site_id": 1}`,
			http.StatusBadRequest,
		},
		{
			"target below minimum",
			`{"site_id": 1, "name": "x", "pack_id": "quick-seo", "target_article_count": 5}`,
			http.StatusBadRequest,
		},
		{
			"unknown pack",
			`{"site_id": 1, "name": "x", "pack_id": "nope", "target_article_count": 10}`,
			http.StatusBadRequest,
		},
		{
			"valid",
			`{"site_id": 1, "name": "dog training", "pack_id": "quick-seo", "target_article_count": 10}`,
			http.StatusAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/pillars", "admin-key", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestPauseResumeFlow(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	r := s.Router()

	p := &model.Pillar{
		SiteID: 1, Name: "x", Status: model.PillarGenerating,
		PackID: "quick-seo", TargetArticleCount: 10,
	}
	if err := store.CreatePillar(ctx, p); err != nil {
		t.Fatalf("create pillar: %v", err)
	}
	base := "/api/v1/pillars/" + strconv.FormatInt(p.ID, 10)

	if w := do(t, r, http.MethodPost, base+"/resume", "admin-key", ""); w.Code != http.StatusConflict {
		t.Errorf("resume active pillar = %d, want 409", w.Code)
	}
	if w := do(t, r, http.MethodPost, base+"/pause", "admin-key", ""); w.Code != http.StatusOK {
		t.Errorf("pause = %d, want 200", w.Code)
	}
	if w := do(t, r, http.MethodPost, base+"/pause", "admin-key", ""); w.Code != http.StatusConflict {
		t.Errorf("double pause = %d, want 409", w.Code)
	}
	if w := do(t, r, http.MethodPost, base+"/resume", "admin-key", ""); w.Code != http.StatusOK {
		t.Errorf("resume = %d, want 200", w.Code)
	}

	got, err := store.GetPillar(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(model.PillarGenerating, got.Status); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestSkipArticle(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	r := s.Router()

	p := &model.Pillar{
		SiteID: 1, Name: "x", Status: model.PillarMapped,
		PackID: "quick-seo", TargetArticleCount: 10,
	}
	if err := store.CreatePillar(ctx, p); err != nil {
		t.Fatalf("create pillar: %v", err)
	}
	articles := []model.PillarArticle{
		{Title: "Hub", Slug: "hub", ArticleType: model.TypePillar, Role: model.RolePillar, SortOrder: 0},
		{Title: "Leaf", Slug: "leaf", ArticleType: model.TypeSubtopic, Role: model.RoleSupport, SortOrder: 1},
	}
	if err := store.CommitPlan(ctx, p.ID, nil, articles); err != nil {
		t.Fatalf("commit plan: %v", err)
	}

	pillarPath := "/api/v1/pillars/" + strconv.FormatInt(p.ID, 10)
	skipPath := pillarPath + "/articles/" + strconv.FormatInt(articles[1].ID, 10) + "/skip"

	if w := do(t, r, http.MethodPost, skipPath, "reader-key", ""); w.Code != http.StatusForbidden {
		t.Errorf("reader skip = %d, want 403", w.Code)
	}
	if w := do(t, r, http.MethodPost, skipPath, "admin-key", ""); w.Code != http.StatusOK {
		t.Fatalf("skip = %d: %s", w.Code, w.Body)
	}

	got, err := store.GetArticle(ctx, articles[1].ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if got.Status != model.ArticleSkipped {
		t.Errorf("article status = %s, want skipped", got.Status)
	}

	// Skipped stubs no longer await generation.
	pending, err := store.CountPendingArticles(ctx, p.ID)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}

	// Only pending stubs can be skipped.
	if w := do(t, r, http.MethodPost, skipPath, "admin-key", ""); w.Code != http.StatusConflict {
		t.Errorf("double skip = %d, want 409", w.Code)
	}

	// The stub must belong to the addressed pillar.
	wrongPath := "/api/v1/pillars/9999/articles/" + strconv.FormatInt(articles[0].ID, 10) + "/skip"
	if w := do(t, r, http.MethodPost, wrongPath, "admin-key", ""); w.Code != http.StatusNotFound {
		t.Errorf("skip under wrong pillar = %d, want 404", w.Code)
	}
}

func TestBatchEndpoints(t *testing.T) {
	s, store := newTestServer(t)
	r := s.Router()

	w := do(t, r, http.MethodPost, "/api/v1/batches", "admin-key",
		`{"site_id": 1, "keywords": ["dog beds", "cat toys"]}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit = %d: %s", w.Code, w.Body)
	}
	var b model.KeywordBatch
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = do(t, r, http.MethodGet, "/api/v1/batches/"+b.ID, "reader-key", "")
	if w.Code != http.StatusOK {
		t.Errorf("get batch = %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/v1/batches/"+b.ID+"/cancel", "admin-key", "")
	if w.Code != http.StatusOK {
		t.Errorf("cancel = %d: %s", w.Code, w.Body)
	}

	got, err := store.GetBatch(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.BatchCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

