package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// CreateBatch inserts a batch and its jobs in one transaction.
func (s *SQLite) CreateBatch(ctx context.Context, b *model.KeywordBatch, jobs []model.KeywordJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	if b.Status == "" {
		b.Status = model.BatchPending
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO keyword_batches (id, site_id, status, total_keywords,
		                              processed_count, success_count, failed_count,
		                              prompt_override, created_at)
		 VALUES (?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		b.ID, b.SiteID, string(b.Status), b.TotalKeywords, b.PromptOverride, now,
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for i := range jobs {
		j := &jobs[i]
		j.BatchID = b.ID
		j.Status = model.JobQueued
		res, err := tx.ExecContext(ctx,
			`INSERT INTO keyword_jobs (batch_id, keyword, status) VALUES (?, ?, 'queued')`,
			j.BatchID, j.Keyword,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		j.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	b.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

const batchColumns = `id, site_id, status, total_keywords, processed_count,
	success_count, failed_count, prompt_override, created_at, completed_at`

// GetBatch returns a single batch by its ID.
func (s *SQLite) GetBatch(ctx context.Context, id string) (*model.KeywordBatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM keyword_batches WHERE id = ?`, id)
	return scanBatch(row)
}

// ListBatchJobs returns all jobs of a batch in creation order.
func (s *SQLite) ListBatchJobs(ctx context.Context, batchID string) ([]model.KeywordJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, keyword, status, post_id, error
		 FROM keyword_jobs WHERE batch_id = ? ORDER BY id`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.KeywordJob
	for rows.Next() {
		var j model.KeywordJob
		var status string
		var postID sql.NullInt64
		if err := rows.Scan(&j.ID, &j.BatchID, &j.Keyword, &status, &postID, &j.Error); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Status = model.JobStatus(status)
		if postID.Valid {
			j.PostID = &postID.Int64
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimNextJob atomically picks the oldest queued job whose batch is
// still dispatchable and marks it processing. The batch itself moves to
// processing on its first claimed job.
func (s *SQLite) ClaimNextJob(ctx context.Context) (*model.KeywordJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var j model.KeywordJob
	err = tx.QueryRowContext(ctx,
		`SELECT j.id, j.batch_id, j.keyword
		 FROM keyword_jobs j
		 JOIN keyword_batches b ON b.id = j.batch_id
		 WHERE j.status = 'queued' AND b.status IN ('pending', 'processing')
		 ORDER BY j.id LIMIT 1`,
	).Scan(&j.ID, &j.BatchID, &j.Keyword)
	if err != nil {
		return nil, notFoundOr(err, "select queued job")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE keyword_jobs SET status = 'processing' WHERE id = ?`, j.ID); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE keyword_batches SET status = 'processing' WHERE id = ? AND status = 'pending'`,
		j.BatchID); err != nil {
		return nil, fmt.Errorf("mark batch processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	j.Status = model.JobProcessing
	return &j, nil
}

// FinishJob records a job outcome and bumps the batch counters in one
// transaction. Jobs finish out of order, so the counter updates are
// single statements against the current row values.
func (s *SQLite) FinishJob(ctx context.Context, jobID int64, postID *int64, jobErr string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var batchID string
	if err := tx.QueryRowContext(ctx,
		`SELECT batch_id FROM keyword_jobs WHERE id = ?`, jobID).Scan(&batchID); err != nil {
		return notFoundOr(err, "find job")
	}

	status := model.JobCompleted
	if postID == nil {
		status = model.JobFailed
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE keyword_jobs SET status = ?, post_id = ?, error = ? WHERE id = ?`,
		string(status), postID, jobErr, jobID,
	); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	successDelta, failedDelta := 1, 0
	if postID == nil {
		successDelta, failedDelta = 0, 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE keyword_batches
		 SET processed_count = processed_count + 1,
		     success_count = success_count + ?,
		     failed_count = failed_count + ?
		 WHERE id = ?`,
		successDelta, failedDelta, batchID,
	); err != nil {
		return fmt.Errorf("bump batch counters: %w", err)
	}

	// Stamp completion when the last job lands, unless the batch was
	// cancelled (cancellation stamps its own completedAt).
	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`UPDATE keyword_batches
		 SET status = 'completed', completed_at = ?
		 WHERE id = ? AND status = 'processing' AND processed_count >= total_keywords`,
		now, batchID,
	); err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}

	return tx.Commit()
}

// CancelBatch stops dispatch of queued jobs and stamps completion.
// In-flight jobs are untouched and allowed to finish.
func (s *SQLite) CancelBatch(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	res, err := tx.ExecContext(ctx,
		`UPDATE keyword_batches SET status = 'cancelled', completed_at = ?
		 WHERE id = ? AND status IN ('pending', 'processing')`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("cancel batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE keyword_jobs SET status = 'cancelled' WHERE batch_id = ? AND status = 'queued'`,
		id,
	); err != nil {
		return fmt.Errorf("cancel queued jobs: %w", err)
	}

	return tx.Commit()
}

func scanBatch(row scannable) (*model.KeywordBatch, error) {
	var b model.KeywordBatch
	var status, created string
	var completed sql.NullString
	err := row.Scan(&b.ID, &b.SiteID, &status, &b.TotalKeywords, &b.ProcessedCount,
		&b.SuccessCount, &b.FailedCount, &b.PromptOverride, &created, &completed)
	if err != nil {
		return nil, notFoundOr(err, "scan batch")
	}
	b.Status = model.BatchStatus(status)
	b.CreatedAt, _ = time.Parse(timeLayout, created)
	b.CompletedAt = parseNullableTime(completed)
	return &b, nil
}
