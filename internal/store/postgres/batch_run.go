package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/planboard/internal/domain"
)

const maxBatchRunList = 100

type BatchRunRepo struct {
	pool *pgxpool.Pool
}

func NewBatchRunRepo(pool *pgxpool.Pool) *BatchRunRepo {
	return &BatchRunRepo{pool: pool}
}

func (r *BatchRunRepo) Create(ctx context.Context, run *domain.BatchRun) error {
	results, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("batchRunRepo.Create: marshal results: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO batch_runs (id, tenant_id, project_id, operation, requested_by, succeeded, failed, results, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.TenantID, run.ProjectID, run.Operation, run.RequestedBy,
		run.Succeeded, run.Failed, results, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("batchRunRepo.Create: %w", err)
	}

	return nil
}

func (r *BatchRunRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.BatchRun, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, project_id, operation, requested_by, succeeded, failed, results, started_at, finished_at
		 FROM batch_runs WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)

	run, err := scanBatchRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("batchRunRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("batchRunRepo.GetByID: %w", err)
	}

	return run, nil
}

// ListByProject returns the most recent runs first. limit is clamped to
// [1, 100].
func (r *BatchRunRepo) ListByProject(ctx context.Context, tenantID, projectID uuid.UUID, limit int) ([]*domain.BatchRun, error) {
	if limit <= 0 || limit > maxBatchRunList {
		limit = maxBatchRunList
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, project_id, operation, requested_by, succeeded, failed, results, started_at, finished_at
		 FROM batch_runs WHERE tenant_id = $1 AND project_id = $2
		 ORDER BY finished_at DESC
		 LIMIT $3`,
		tenantID, projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("batchRunRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BatchRun
	for rows.Next() {
		run, err := scanBatchRun(rows)
		if err != nil {
			return nil, fmt.Errorf("batchRunRepo.ListByProject: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batchRunRepo.ListByProject: rows: %w", err)
	}

	return runs, nil
}

func scanBatchRun(row pgx.Row) (*domain.BatchRun, error) {
	var run domain.BatchRun
	var results []byte

	if err := row.Scan(
		&run.ID, &run.TenantID, &run.ProjectID, &run.Operation, &run.RequestedBy,
		&run.Succeeded, &run.Failed, &results, &run.StartedAt, &run.FinishedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &run.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}

	return &run, nil
}
