package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/jobalert/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用した求人リポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// ListRecent は新着順の求人一覧を返す。categoryが空の場合は全カテゴリを対象とする。
func (r *PostgresJobRepo) ListRecent(ctx context.Context, category string, limit int) ([]*model.Job, error) {
	query := `SELECT id, title, company, description, category, url, source, created_at
		FROM jobs`
	args := []interface{}{}

	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job := &model.Job{}
		if err := rows.Scan(
			&job.ID, &job.Title, &job.Company, &job.Description,
			&job.Category, &job.URL, &job.Source, &job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// Count は求人の総数を返す。
func (r *PostgresJobRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM jobs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// CountCreatedSince は指定時刻以降に作成された求人数を返す。
func (r *PostgresJobRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM jobs WHERE created_at >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent jobs: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
