// Package api exposes the read API and admin passthrough over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itwrites/BlogViraliy-sub004/internal/batch"
	"github.com/itwrites/BlogViraliy-sub004/internal/planner"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

// Permission scopes attached to API keys.
const (
	ScopePostsRead     = "posts_read"
	ScopePillarsRead   = "pillars_read"
	ScopePillarsManage = "pillars_manage"
)

// Server wires the HTTP surface to the engine's services.
type Server struct {
	store    storage.Storage
	planner  *planner.Planner
	batches  *batch.Runner
	keys     map[string][]string
	limiters *keyLimiters
	log      *slog.Logger
}

// New creates a Server. keys maps API keys to their permission scopes.
func New(store storage.Storage, pl *planner.Planner, br *batch.Runner, keys map[string][]string, log *slog.Logger) *Server {
	return &Server{
		store:    store,
		planner:  pl,
		batches:  br,
		keys:     keys,
		limiters: newKeyLimiters(defaultRateLimit, defaultRateBurst),
		log:      log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(s.authMiddleware(), s.rateLimitMiddleware())

	v1.GET("/posts", s.requireScope(ScopePostsRead), s.listPosts)
	v1.GET("/pillars", s.requireScope(ScopePillarsRead), s.listPillars)
	v1.GET("/pillars/:id", s.requireScope(ScopePillarsRead), s.getPillar)
	v1.GET("/pillars/:id/articles", s.requireScope(ScopePillarsRead), s.listPillarArticles)

	manage := v1.Group("", s.requireScope(ScopePillarsManage))
	manage.POST("/pillars", s.createPillar)
	manage.POST("/pillars/:id/pause", s.pausePillar)
	manage.POST("/pillars/:id/resume", s.resumePillar)
	manage.POST("/pillars/:id/articles/:aid/skip", s.skipArticle)
	manage.DELETE("/pillars/:id", s.deletePillar)
	manage.POST("/packs/validate", s.validatePack)
	manage.POST("/batches", s.submitBatch)
	manage.POST("/batches/:id/cancel", s.cancelBatch)
	manage.POST("/rss-configs", s.createRssConfig)

	v1.GET("/batches/:id", s.requireScope(ScopePillarsRead), s.getBatch)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
