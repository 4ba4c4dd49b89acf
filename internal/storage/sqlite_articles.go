package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// CommitPlan atomically stores clusters and article stubs for a pillar
// and transitions it to mapped. On any error nothing is committed.
func (s *SQLite) CommitPlan(ctx context.Context, pillarID int64, clusters []model.Cluster, articles []model.PillarArticle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	clusterIDs := make(map[int]int64, len(clusters))
	for i := range clusters {
		c := &clusters[i]
		c.PillarID = pillarID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO clusters (pillar_id, name, description, sort_order, article_count, generated_count)
			 VALUES (?, ?, ?, ?, ?, 0)`,
			c.PillarID, c.Name, c.Description, c.SortOrder, c.ArticleCount,
		)
		if err != nil {
			return fmt.Errorf("insert cluster: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		c.ID = id
		clusterIDs[c.SortOrder] = id
	}

	now := time.Now().UTC().Format(timeLayout)
	for i := range articles {
		a := &articles[i]
		a.PillarID = pillarID
		// Planner references clusters by sort order; rebind to real IDs.
		if a.ClusterID != nil {
			id, ok := clusterIDs[int(*a.ClusterID)]
			if !ok {
				return fmt.Errorf("article %q references unknown cluster %d", a.Title, *a.ClusterID)
			}
			a.ClusterID = &id
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO pillar_articles (pillar_id, cluster_id, title, slug, keywords,
			                              article_type, role, status, sort_order,
			                              internal_links, retry_count, error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '[]', 0, '', ?)`,
			a.PillarID, a.ClusterID, a.Title, a.Slug, jsonEncode(a.Keywords),
			string(a.ArticleType), string(a.Role), string(model.ArticlePending), a.SortOrder, now,
		)
		if err != nil {
			return fmt.Errorf("insert article: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		a.ID = id
		a.Status = model.ArticlePending
		a.CreatedAt, _ = time.Parse(timeLayout, now)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE pillars SET status = ? WHERE id = ?`, string(model.PillarMapped), pillarID); err != nil {
		return fmt.Errorf("mark pillar mapped: %w", err)
	}

	return tx.Commit()
}

// ListClusters returns all clusters of a pillar in sort order.
func (s *SQLite) ListClusters(ctx context.Context, pillarID int64) ([]model.Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pillar_id, name, description, sort_order, article_count, generated_count
		 FROM clusters WHERE pillar_id = ? ORDER BY sort_order`, pillarID,
	)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clusters []model.Cluster
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(&c.ID, &c.PillarID, &c.Name, &c.Description,
			&c.SortOrder, &c.ArticleCount, &c.GeneratedCount); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

const articleColumns = `id, pillar_id, cluster_id, title, slug, keywords, article_type,
	role, status, sort_order, post_id, internal_links, retry_count, error, created_at`

// ListArticles returns every stub of a pillar in sort order.
func (s *SQLite) ListArticles(ctx context.Context, pillarID int64) ([]model.PillarArticle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM pillar_articles WHERE pillar_id = ? ORDER BY sort_order, id`,
		pillarID,
	)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}

// ListArticlesPage returns one page of a pillar's stubs plus the total count.
func (s *SQLite) ListArticlesPage(ctx context.Context, pillarID int64, limit, offset int) ([]model.PillarArticle, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pillar_articles WHERE pillar_id = ?`, pillarID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM pillar_articles
		 WHERE pillar_id = ? ORDER BY sort_order, id LIMIT ? OFFSET ?`,
		pillarID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows)
	return articles, total, err
}

// GetArticle returns a single stub by its ID.
func (s *SQLite) GetArticle(ctx context.Context, id int64) (*model.PillarArticle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM pillar_articles WHERE id = ?`, id)
	return scanArticle(row)
}

// UpdateArticle persists changes to an existing stub.
func (s *SQLite) UpdateArticle(ctx context.Context, a *model.PillarArticle) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pillar_articles
		 SET title = ?, slug = ?, keywords = ?, status = ?, post_id = ?,
		     internal_links = ?, retry_count = ?, error = ?
		 WHERE id = ?`,
		a.Title, a.Slug, jsonEncode(a.Keywords), string(a.Status), a.PostID,
		jsonEncode(a.InternalLinks), a.RetryCount, a.Error, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	return requireRow(res)
}

// NextPendingArticle returns the pending stub with the lowest sort order,
// or ErrNotFound when the pillar has none left.
func (s *SQLite) NextPendingArticle(ctx context.Context, pillarID int64) (*model.PillarArticle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM pillar_articles
		 WHERE pillar_id = ? AND status = 'pending'
		 ORDER BY sort_order, id LIMIT 1`, pillarID)
	return scanArticle(row)
}

// CountPendingArticles counts the stubs still awaiting generation.
func (s *SQLite) CountPendingArticles(ctx context.Context, pillarID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pillar_articles WHERE pillar_id = ? AND status IN ('pending', 'generating')`,
		pillarID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// SlugExists checks whether a slug is already taken within a site, by
// either a post or a planned stub.
func (s *SQLite) SlugExists(ctx context.Context, siteID int64, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM posts WHERE site_id = ? AND slug = ?)
		      + (SELECT COUNT(*) FROM pillar_articles a
		         JOIN pillars p ON p.id = a.pillar_id
		         WHERE p.site_id = ? AND a.slug = ?)`,
		siteID, slug, siteID, slug,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// CompleteArticle atomically creates the post, marks the stub completed,
// and advances the pillar under a version check. On ErrConflict nothing
// is persisted.
func (s *SQLite) CompleteArticle(ctx context.Context, a *model.PillarArticle, post *model.Post, p *model.Pillar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (site_id, title, slug, content, tags, source, source_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.SiteID, post.Title, post.Slug, post.Content, jsonEncode(post.Tags),
		string(post.Source), post.SourceURL, now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	postID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE pillar_articles
		 SET status = ?, post_id = ?, internal_links = ?, error = ''
		 WHERE id = ?`,
		string(model.ArticleCompleted), postID, jsonEncode(a.InternalLinks), a.ID,
	); err != nil {
		return fmt.Errorf("complete article: %w", err)
	}

	if a.ClusterID != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE clusters SET generated_count = generated_count + 1 WHERE id = ?`,
			*a.ClusterID,
		); err != nil {
			return fmt.Errorf("bump cluster count: %w", err)
		}
	}

	advanced, err := tx.ExecContext(ctx,
		`UPDATE pillars
		 SET status = ?, generated_count = ?, failed_count = ?,
		     next_publish_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		string(p.Status), p.GeneratedCount, p.FailedCount,
		formatNullableTime(p.NextPublishAt), p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("advance pillar: %w", err)
	}
	n, err := advanced.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	post.ID = postID
	post.CreatedAt, _ = time.Parse(timeLayout, now)
	a.PostID = &postID
	a.Status = model.ArticleCompleted
	p.Version++
	return nil
}

func scanArticle(row scannable) (*model.PillarArticle, error) {
	var a model.PillarArticle
	var clusterID, postID sql.NullInt64
	var keywords, articleType, role, status, links, created string
	err := row.Scan(&a.ID, &a.PillarID, &clusterID, &a.Title, &a.Slug, &keywords,
		&articleType, &role, &status, &a.SortOrder, &postID, &links,
		&a.RetryCount, &a.Error, &created)
	if err != nil {
		return nil, notFoundOr(err, "scan article")
	}
	if clusterID.Valid {
		a.ClusterID = &clusterID.Int64
	}
	if postID.Valid {
		a.PostID = &postID.Int64
	}
	a.Keywords = jsonDecodeStrings(keywords)
	a.ArticleType = model.ArticleType(articleType)
	a.Role = model.Role(role)
	a.Status = model.ArticleStatus(status)
	_ = json.Unmarshal([]byte(links), &a.InternalLinks)
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]model.PillarArticle, error) {
	var articles []model.PillarArticle
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}
