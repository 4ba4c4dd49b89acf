package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

const rssColumns = `id, site_id, enabled, schedule, feed_urls, articles_to_fetch,
	pillar_id, last_run_at, next_run_at, created_at`

// CreateRssConfig inserts a new RSS automation config.
func (s *SQLite) CreateRssConfig(ctx context.Context, c *model.RssConfig) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rss_configs (site_id, enabled, schedule, feed_urls,
		                          articles_to_fetch, pillar_id, last_run_at,
		                          next_run_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SiteID, boolToInt(c.Enabled), c.Schedule, jsonEncode(c.FeedURLs),
		c.ArticlesToFetch, c.PillarID, formatNullableTime(c.LastRunAt),
		formatNullableTime(c.NextRunAt), now,
	)
	if err != nil {
		return fmt.Errorf("insert rss config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetRssConfig returns a single RSS config by its ID.
func (s *SQLite) GetRssConfig(ctx context.Context, id int64) (*model.RssConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rssColumns+` FROM rss_configs WHERE id = ?`, id)
	return scanRssConfig(row)
}

// ListDueRssConfigs returns enabled configs whose next run is due.
func (s *SQLite) ListDueRssConfigs(ctx context.Context, now time.Time) ([]model.RssConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rssColumns+` FROM rss_configs
		 WHERE enabled = 1 AND (next_run_at IS NULL OR next_run_at <= ?)
		 ORDER BY id`,
		now.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due rss configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []model.RssConfig
	for rows.Next() {
		c, err := scanRssConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// UpdateRssConfigRun records a completed polling cycle.
func (s *SQLite) UpdateRssConfigRun(ctx context.Context, id int64, lastRun, nextRun time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rss_configs SET last_run_at = ?, next_run_at = ? WHERE id = ?`,
		lastRun.UTC().Format(timeLayout), nextRun.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("update rss config run: %w", err)
	}
	return requireRow(res)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanRssConfig(row scannable) (*model.RssConfig, error) {
	var c model.RssConfig
	var enabled int
	var feedURLs, created string
	var pillarID sql.NullInt64
	var lastRun, nextRun sql.NullString
	err := row.Scan(&c.ID, &c.SiteID, &enabled, &c.Schedule, &feedURLs,
		&c.ArticlesToFetch, &pillarID, &lastRun, &nextRun, &created)
	if err != nil {
		return nil, notFoundOr(err, "scan rss config")
	}
	c.Enabled = enabled == 1
	c.FeedURLs = jsonDecodeStrings(feedURLs)
	if pillarID.Valid {
		c.PillarID = &pillarID.Int64
	}
	c.LastRunAt = parseNullableTime(lastRun)
	c.NextRunAt = parseNullableTime(nextRun)
	c.CreatedAt, _ = time.Parse(timeLayout, created)
	return &c, nil
}
