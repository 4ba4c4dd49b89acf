package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

const postColumns = `id, site_id, title, slug, content, tags, source, source_url, created_at`

// CreatePost inserts a new post and populates its ID and CreatedAt.
// A slug collision within the site yields ErrDuplicateSlug, a source
// URL collision ErrDuplicateSource.
func (s *SQLite) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (site_id, title, slug, content, tags, source, source_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.SiteID, post.Title, post.Slug, post.Content, jsonEncode(post.Tags),
		string(post.Source), post.SourceURL, now,
	)
	if err != nil {
		// The driver names the violated columns, e.g.
		// "UNIQUE constraint failed: posts.site_id, posts.source_url".
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if strings.Contains(err.Error(), "source_url") {
				return ErrDuplicateSource
			}
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	post.ID = id
	post.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetPost returns a single post by its ID.
func (s *SQLite) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// ListPosts returns one page of a site's posts plus the total count,
// newest first.
func (s *SQLite) ListPosts(ctx context.Context, siteID int64, limit, offset int) ([]model.Post, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE site_id = ?`, siteID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE site_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		siteID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	return posts, total, rows.Err()
}

// FindPostBySourceURL looks up a post by its dedup key.
func (s *SQLite) FindPostBySourceURL(ctx context.Context, siteID int64, url string) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE site_id = ? AND source_url = ?`,
		siteID, url)
	return scanPost(row)
}

func scanPost(row scannable) (*model.Post, error) {
	var p model.Post
	var tags, source, created string
	var sourceURL sql.NullString
	err := row.Scan(&p.ID, &p.SiteID, &p.Title, &p.Slug, &p.Content, &tags,
		&source, &sourceURL, &created)
	if err != nil {
		return nil, notFoundOr(err, "scan post")
	}
	p.Tags = jsonDecodeStrings(tags)
	p.Source = model.PostSource(source)
	if sourceURL.Valid {
		p.SourceURL = &sourceURL.String
	}
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}
