package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"option-scout/models"
	"option-scout/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateScreenRun persists a new screening run record
func (r *Repository) CreateScreenRun(ctx context.Context, run *models.ScreenRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "screen_runs")

	tradeJSON, err := json.Marshal(run.Trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade parameters: %w", err)
	}

	rowErrorsJSON, err := json.Marshal(run.RowErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal row errors: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO screen_runs (id, run_at, source, trade, rows_total, rows_scored, row_errors, duration_ms, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, run.ID, run.RunAt, run.Source, tradeJSON, run.RowsTotal, run.RowsScored, rowErrorsJSON, run.DurationMs, run.Status, run.Error, run.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "screen_runs")
		return fmt.Errorf("failed to create screen run: %w", err)
	}

	return nil
}

// UpdateScreenRun updates an existing screening run (completion or failure)
func (r *Repository) UpdateScreenRun(ctx context.Context, run *models.ScreenRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "screen_runs")

	rowErrorsJSON, err := json.Marshal(run.RowErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal row errors: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		UPDATE screen_runs
		SET rows_total = $2, rows_scored = $3, row_errors = $4, duration_ms = $5, status = $6, error = $7
		WHERE id = $1
	`, run.ID, run.RowsTotal, run.RowsScored, rowErrorsJSON, run.DurationMs, run.Status, run.Error)

	if err != nil {
		metrics.RecordDBError("update", "screen_runs")
		return fmt.Errorf("failed to update screen run: %w", err)
	}

	return nil
}

// GetScreenRun returns a screening run by ID, or nil if not found
func (r *Repository) GetScreenRun(ctx context.Context, id uuid.UUID) (*models.ScreenRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "screen_runs")

	run, err := scanScreenRun(r.db.QueryRow(ctx, `
		SELECT id, run_at, source, trade, rows_total, rows_scored, row_errors, duration_ms, status, error, created_at
		FROM screen_runs
		WHERE id = $1
	`, id))

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "screen_runs")
		return nil, fmt.Errorf("failed to get screen run: %w", err)
	}

	return run, nil
}

// GetLatestScreenRun returns the most recent screening run, or nil if none exist
func (r *Repository) GetLatestScreenRun(ctx context.Context) (*models.ScreenRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "screen_runs")

	run, err := scanScreenRun(r.db.QueryRow(ctx, `
		SELECT id, run_at, source, trade, rows_total, rows_scored, row_errors, duration_ms, status, error, created_at
		FROM screen_runs
		ORDER BY run_at DESC
		LIMIT 1
	`))

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "screen_runs")
		return nil, fmt.Errorf("failed to get latest screen run: %w", err)
	}

	return run, nil
}

// GetScreenRunHistory returns recent screening runs, newest first
func (r *Repository) GetScreenRunHistory(ctx context.Context, limit int) ([]models.ScreenRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "screen_runs")

	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, run_at, source, trade, rows_total, rows_scored, row_errors, duration_ms, status, error, created_at
		FROM screen_runs
		ORDER BY run_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		metrics.RecordDBError("select", "screen_runs")
		return nil, fmt.Errorf("failed to get screen run history: %w", err)
	}
	defer rows.Close()

	var runs []models.ScreenRun
	for rows.Next() {
		run, err := scanScreenRun(rows)
		if err != nil {
			metrics.RecordDBError("select", "screen_runs")
			return nil, fmt.Errorf("failed to scan screen run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, nil
}

// PruneScreenRuns deletes all but the most recent keep runs and returns
// the number removed. Called from the maintenance schedule alongside
// cache cleanup.
func (r *Repository) PruneScreenRuns(ctx context.Context, keep int) (int64, error) {
	if err := r.checkDB(); err != nil {
		return 0, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "screen_runs")

	if keep <= 0 {
		keep = 100
	}

	result, err := r.db.Exec(ctx, `
		DELETE FROM screen_runs
		WHERE id NOT IN (
			SELECT id FROM screen_runs ORDER BY run_at DESC LIMIT $1
		)
	`, keep)

	if err != nil {
		metrics.RecordDBError("delete", "screen_runs")
		return 0, fmt.Errorf("failed to prune screen runs: %w", err)
	}

	return result.RowsAffected(), nil
}

// scanScreenRun reads one screen_runs row from either a pgx.Row or pgx.Rows
func scanScreenRun(row pgx.Row) (*models.ScreenRun, error) {
	var run models.ScreenRun
	var tradeJSON, rowErrorsJSON []byte

	err := row.Scan(&run.ID, &run.RunAt, &run.Source, &tradeJSON, &run.RowsTotal, &run.RowsScored,
		&rowErrorsJSON, &run.DurationMs, &run.Status, &run.Error, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tradeJSON, &run.Trade); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade parameters: %w", err)
	}

	if err := json.Unmarshal(rowErrorsJSON, &run.RowErrors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row errors: %w", err)
	}

	return &run, nil
}
