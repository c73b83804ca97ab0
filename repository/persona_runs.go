package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"hedge-machine/models"
	"hedge-machine/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordPersonaRun inserts a finished stage execution record.
func (r *Repository) RecordPersonaRun(ctx context.Context, run *models.PersonaRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "persona_runs")

	outputData, _ := json.Marshal(run.OutputData)

	_, err := r.db.Exec(ctx, `
		INSERT INTO persona_runs (id, persona, ticker, status, output_data, error_message, duration_ms, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.Persona, run.Ticker, run.Status, outputData, run.ErrorMessage, run.DurationMs, run.StartedAt, run.CompletedAt)

	if err != nil {
		metrics.RecordDBError("insert", "persona_runs")
		return fmt.Errorf("failed to record persona run: %w", err)
	}

	return nil
}

// GetPersonaRun returns a single stage execution by ID, or nil when absent.
func (r *Repository) GetPersonaRun(ctx context.Context, id uuid.UUID) (*models.PersonaRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "persona_runs")

	row := r.db.QueryRow(ctx, `
		SELECT id, persona, ticker, status, output_data, error_message, duration_ms, started_at, completed_at
		FROM persona_runs WHERE id = $1
	`, id)

	run, err := scanPersonaRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "persona_runs")
		return nil, fmt.Errorf("failed to query persona run: %w", err)
	}

	return run, nil
}

// GetPersonaRuns returns stage executions, optionally filtered by persona,
// newest first.
func (r *Repository) GetPersonaRuns(ctx context.Context, persona string, limit int) ([]models.PersonaRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "persona_runs")

	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if persona == "" {
		rows, err = r.db.Query(ctx, `
			SELECT id, persona, ticker, status, output_data, error_message, duration_ms, started_at, completed_at
			FROM persona_runs
			ORDER BY started_at DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, persona, ticker, status, output_data, error_message, duration_ms, started_at, completed_at
			FROM persona_runs
			WHERE persona = $1
			ORDER BY started_at DESC
			LIMIT $2
		`, persona, limit)
	}

	if err != nil {
		metrics.RecordDBError("select", "persona_runs")
		return nil, fmt.Errorf("failed to query persona runs: %w", err)
	}
	defer rows.Close()

	return collectPersonaRuns(rows)
}

// GetRecentRunsForTicker returns recent stage executions for one ticker.
func (r *Repository) GetRecentRunsForTicker(ctx context.Context, ticker string, limit int) ([]models.PersonaRun, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "persona_runs")

	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, persona, ticker, status, output_data, error_message, duration_ms, started_at, completed_at
		FROM persona_runs
		WHERE ticker = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, ticker, limit)
	if err != nil {
		metrics.RecordDBError("select", "persona_runs")
		return nil, fmt.Errorf("failed to query persona runs: %w", err)
	}
	defer rows.Close()

	return collectPersonaRuns(rows)
}

func scanPersonaRun(row pgx.Row) (*models.PersonaRun, error) {
	var run models.PersonaRun
	var outputData []byte
	var errorMessage *string
	var durationMs *int

	err := row.Scan(&run.ID, &run.Persona, &run.Ticker, &run.Status, &outputData, &errorMessage, &durationMs, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}

	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}
	if durationMs != nil {
		run.DurationMs = *durationMs
	}
	if outputData != nil {
		json.Unmarshal(outputData, &run.OutputData)
	}

	return &run, nil
}

func collectPersonaRuns(rows pgx.Rows) ([]models.PersonaRun, error) {
	var runs []models.PersonaRun
	for rows.Next() {
		run, err := scanPersonaRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, nil
}
