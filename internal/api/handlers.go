package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/internal/pack"
	"github.com/itwrites/BlogViraliy-sub004/internal/planner"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func pagination(c *gin.Context) (limit, offset, page int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return perPage, (page - 1) * perPage, page
}

func pagedResponse(c *gin.Context, items any, total, page, perPage int) {
	c.JSON(http.StatusOK, gin.H{
		"data":     items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func siteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("site_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site_id is required"})
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (s *Server) storeError(c *gin.Context, err error, what string) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	s.log.Error("api storage error", "what", what, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) listPosts(c *gin.Context) {
	site, ok := siteID(c)
	if !ok {
		return
	}
	limit, offset, page := pagination(c)
	posts, total, err := s.store.ListPosts(c.Request.Context(), site, limit, offset)
	if err != nil {
		s.storeError(c, err, "posts")
		return
	}
	pagedResponse(c, posts, total, page, limit)
}

func (s *Server) listPillars(c *gin.Context) {
	site, ok := siteID(c)
	if !ok {
		return
	}
	limit, offset, page := pagination(c)
	pillars, total, err := s.store.ListPillars(c.Request.Context(), site, limit, offset)
	if err != nil {
		s.storeError(c, err, "pillars")
		return
	}
	pagedResponse(c, pillars, total, page, limit)
}

func (s *Server) getPillar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.store.GetPillar(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "pillar")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) listPillarArticles(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, offset, page := pagination(c)
	articles, total, err := s.store.ListArticlesPage(c.Request.Context(), id, limit, offset)
	if err != nil {
		s.storeError(c, err, "articles")
		return
	}
	pagedResponse(c, articles, total, page, limit)
}

type createPillarRequest struct {
	SiteID             int64    `json:"site_id" binding:"required"`
	Name               string   `json:"name" binding:"required"`
	PackID             string   `json:"pack_id" binding:"required"`
	TargetArticleCount int      `json:"target_article_count" binding:"required"`
	PublishSchedule    string   `json:"publish_schedule"`
	MasterPrompt       string   `json:"master_prompt"`
	SeedKeywords       []string `json:"seed_keywords"`
}

// createPillar stores the pillar and kicks off planning in the
// background; the response carries the draft immediately.
func (s *Server) createPillar(c *gin.Context) {
	var req createPillarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TargetArticleCount < planner.MinArticles || req.TargetArticleCount > planner.MaxArticles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_article_count out of range"})
		return
	}

	pk, err := pack.Resolve(req.PackID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.PublishSchedule == "" {
		req.PublishSchedule = "1_per_day"
	}
	p := &model.Pillar{
		SiteID:             req.SiteID,
		Name:               req.Name,
		Status:             model.PillarDraft,
		PackID:             req.PackID,
		TargetArticleCount: req.TargetArticleCount,
		PublishSchedule:    req.PublishSchedule,
		MasterPrompt:       req.MasterPrompt,
	}
	if err := s.store.CreatePillar(c.Request.Context(), p); err != nil {
		s.storeError(c, err, "pillar")
		return
	}

	go func() {
		if err := s.planner.Plan(context.Background(), p, req.SeedKeywords, pk); err != nil {
			s.log.Error("plan pillar", "pillar_id", p.ID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, p)
}

func (s *Server) pausePillar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.store.GetPillar(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "pillar")
		return
	}
	if p.Status != model.PillarMapped && p.Status != model.PillarGenerating {
		c.JSON(http.StatusConflict, gin.H{"error": "pillar is not active"})
		return
	}
	if err := s.store.UpdatePillarStatus(c.Request.Context(), id, model.PillarPaused); err != nil {
		s.storeError(c, err, "pillar")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.PillarPaused})
}

func (s *Server) resumePillar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.store.GetPillar(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "pillar")
		return
	}
	if p.Status != model.PillarPaused {
		c.JSON(http.StatusConflict, gin.H{"error": "pillar is not paused"})
		return
	}
	if err := s.store.UpdatePillarStatus(c.Request.Context(), id, model.PillarGenerating); err != nil {
		s.storeError(c, err, "pillar")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.PillarGenerating})
}

// skipArticle manually excludes a pending stub from generation. Skipped
// stubs no longer count toward pillar completion.
func (s *Server) skipArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	articleID, err := strconv.ParseInt(c.Param("aid"), 10, 64)
	if err != nil || articleID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	a, err := s.store.GetArticle(c.Request.Context(), articleID)
	if err != nil {
		s.storeError(c, err, "article")
		return
	}
	if a.PillarID != id {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if a.Status != model.ArticlePending {
		c.JSON(http.StatusConflict, gin.H{"error": "article is not pending"})
		return
	}

	a.Status = model.ArticleSkipped
	if err := s.store.UpdateArticle(c.Request.Context(), a); err != nil {
		s.storeError(c, err, "article")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deletePillar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeletePillar(c.Request.Context(), id); err != nil {
		s.storeError(c, err, "pillar")
		return
	}
	c.Status(http.StatusNoContent)
}

type validatePackRequest struct {
	AllowedRoles []model.Role `json:"allowed_roles"`
	Distribution []struct {
		Role    model.Role `json:"role"`
		Percent int        `json:"percent"`
	} `json:"distribution"`
	LinkingRules []struct {
		FromRole      model.Role          `json:"from_role"`
		ToRoles       []model.Role        `json:"to_roles"`
		AnchorPattern model.AnchorPattern `json:"anchor_pattern"`
		Priority      int                 `json:"priority"`
	} `json:"linking_rules"`
}

func (s *Server) validatePack(c *gin.Context) {
	var req validatePackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &model.ContentPack{AllowedRoles: req.AllowedRoles}
	for _, d := range req.Distribution {
		p.Distribution = append(p.Distribution, model.RoleShare{Role: d.Role, Percent: d.Percent})
	}
	for _, r := range req.LinkingRules {
		p.LinkingRules = append(p.LinkingRules, model.LinkingRule{
			FromRole:      r.FromRole,
			ToRoles:       r.ToRoles,
			AnchorPattern: r.AnchorPattern,
			Priority:      r.Priority,
		})
	}

	if err := pack.Validate(p); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

type submitBatchRequest struct {
	SiteID         int64    `json:"site_id" binding:"required"`
	Keywords       []string `json:"keywords" binding:"required"`
	PromptOverride string   `json:"prompt_override"`
}

func (s *Server) submitBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := s.batches.Submit(c.Request.Context(), req.SiteID, req.Keywords, req.PromptOverride)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, b)
}

func (s *Server) getBatch(c *gin.Context) {
	id := c.Param("id")
	b, err := s.store.GetBatch(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "batch")
		return
	}
	jobs, err := s.store.ListBatchJobs(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "batch jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch": b, "jobs": jobs})
}

func (s *Server) cancelBatch(c *gin.Context) {
	id := c.Param("id")
	if err := s.batches.Cancel(c.Request.Context(), id); err != nil {
		s.storeError(c, err, "batch")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.BatchCancelled})
}

type createRssConfigRequest struct {
	SiteID          int64    `json:"site_id" binding:"required"`
	Schedule        string   `json:"schedule"`
	FeedURLs        []string `json:"feed_urls" binding:"required"`
	ArticlesToFetch int      `json:"articles_to_fetch"`
	PillarID        *int64   `json:"pillar_id"`
}

func (s *Server) createRssConfig(c *gin.Context) {
	var req createRssConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Schedule == "" {
		req.Schedule = "@hourly"
	}
	if req.ArticlesToFetch <= 0 {
		req.ArticlesToFetch = 5
	}
	cfg := &model.RssConfig{
		SiteID:          req.SiteID,
		Enabled:         true,
		Schedule:        req.Schedule,
		FeedURLs:        req.FeedURLs,
		ArticlesToFetch: req.ArticlesToFetch,
		PillarID:        req.PillarID,
	}
	if err := s.store.CreateRssConfig(c.Request.Context(), cfg); err != nil {
		s.storeError(c, err, "rss config")
		return
	}
	c.JSON(http.StatusCreated, cfg)
}
