package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
	"github.com/itwrites/BlogViraliy-sub004/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreatePillar inserts a new pillar and populates its ID and CreatedAt.
func (s *SQLite) CreatePillar(ctx context.Context, p *model.Pillar) error {
	now := time.Now().UTC().Format(timeLayout)
	if p.Status == "" {
		p.Status = model.PillarDraft
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pillars (site_id, name, status, pack_id, target_article_count,
		                      generated_count, failed_count, publish_schedule,
		                      next_publish_at, master_prompt, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		p.SiteID, p.Name, string(p.Status), p.PackID, p.TargetArticleCount,
		p.GeneratedCount, p.FailedCount, p.PublishSchedule,
		formatNullableTime(p.NextPublishAt), p.MasterPrompt, now,
	)
	if err != nil {
		return fmt.Errorf("insert pillar: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const pillarColumns = `id, site_id, name, status, pack_id, target_article_count,
	generated_count, failed_count, publish_schedule, next_publish_at,
	master_prompt, version, created_at`

// GetPillar returns a single pillar by its ID.
func (s *SQLite) GetPillar(ctx context.Context, id int64) (*model.Pillar, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pillarColumns+` FROM pillars WHERE id = ?`, id)
	return scanPillar(row)
}

// ListPillars returns one page of a site's pillars plus the total count.
func (s *SQLite) ListPillars(ctx context.Context, siteID int64, limit, offset int) ([]model.Pillar, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pillars WHERE site_id = ?`, siteID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pillars: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pillarColumns+` FROM pillars WHERE site_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		siteID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query pillars: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pillars, err := scanPillars(rows)
	return pillars, total, err
}

// ListDuePillars returns pillars eligible for a scheduler advance: in
// mapped or generating state with no future publish time pending.
func (s *SQLite) ListDuePillars(ctx context.Context, now time.Time) ([]model.Pillar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pillarColumns+` FROM pillars
		 WHERE status IN ('mapped', 'generating')
		   AND (next_publish_at IS NULL OR next_publish_at <= ?)
		 ORDER BY id`,
		now.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due pillars: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanPillars(rows)
}

// UpdatePillarStatus sets a pillar's status without touching counters.
// The version bump invalidates any in-flight optimistic write, so a
// pause lands even while the scheduler is mid-generation.
func (s *SQLite) UpdatePillarStatus(ctx context.Context, id int64, status model.PillarStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pillars SET status = ?, version = version + 1 WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update pillar status: %w", err)
	}
	return requireRow(res)
}

// AdvancePillar persists status, counters, and schedule under an
// optimistic version check.
func (s *SQLite) AdvancePillar(ctx context.Context, p *model.Pillar) error {
	res, err := s.db.ExecContext(ctx,
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
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	p.Version++
	return nil
}

// DeletePillar removes a pillar with its clusters and article stubs.
func (s *SQLite) DeletePillar(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pillar_articles WHERE pillar_id = ?`, id); err != nil {
		return fmt.Errorf("delete pillar articles: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE pillar_id = ?`, id); err != nil {
		return fmt.Errorf("delete clusters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pillars WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pillar: %w", err)
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatNullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func jsonDecodeStrings(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func notFoundOr(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPillar(row scannable) (*model.Pillar, error) {
	var p model.Pillar
	var status, created string
	var nextPublish sql.NullString
	err := row.Scan(&p.ID, &p.SiteID, &p.Name, &status, &p.PackID, &p.TargetArticleCount,
		&p.GeneratedCount, &p.FailedCount, &p.PublishSchedule, &nextPublish,
		&p.MasterPrompt, &p.Version, &created)
	if err != nil {
		return nil, notFoundOr(err, "scan pillar")
	}
	p.Status = model.PillarStatus(status)
	p.NextPublishAt = parseNullableTime(nextPublish)
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}

func scanPillars(rows *sql.Rows) ([]model.Pillar, error) {
	var pillars []model.Pillar
	for rows.Next() {
		p, err := scanPillar(rows)
		if err != nil {
			return nil, err
		}
		pillars = append(pillars, *p)
	}
	return pillars, rows.Err()
}
