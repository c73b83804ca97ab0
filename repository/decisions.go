package repository

import (
	"context"
	"fmt"

	"hedge-machine/models"
	"hedge-machine/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordDecision inserts a terminal-stage decision.
func (r *Repository) RecordDecision(ctx context.Context, decision *models.Decision) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "decisions")

	_, err := r.db.Exec(ctx, `
		INSERT INTO decisions (id, ticker, action, quantity, confidence, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, decision.ID, decision.Ticker, decision.Action, decision.Quantity, decision.Confidence, decision.Reasoning, decision.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "decisions")
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return nil
}

// GetDecision returns a single decision by ID, or nil when absent.
func (r *Repository) GetDecision(ctx context.Context, id uuid.UUID) (*models.Decision, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "decisions")

	var decision models.Decision
	err := r.db.QueryRow(ctx, `
		SELECT id, ticker, action, quantity, confidence, reasoning, created_at
		FROM decisions WHERE id = $1
	`, id).Scan(&decision.ID, &decision.Ticker, &decision.Action, &decision.Quantity, &decision.Confidence, &decision.Reasoning, &decision.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "decisions")
		return nil, fmt.Errorf("failed to query decision: %w", err)
	}

	return &decision, nil
}

// GetDecisions returns recent decisions, newest first.
func (r *Repository) GetDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "decisions")

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, action, quantity, confidence, reasoning, created_at
		FROM decisions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		metrics.RecordDBError("select", "decisions")
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	return collectDecisions(rows)
}

// GetDecisionsByTicker returns recent decisions for one ticker.
func (r *Repository) GetDecisionsByTicker(ctx context.Context, ticker string, limit int) ([]models.Decision, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "decisions")

	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, ticker, action, quantity, confidence, reasoning, created_at
		FROM decisions
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ticker, limit)
	if err != nil {
		metrics.RecordDBError("select", "decisions")
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	return collectDecisions(rows)
}

func collectDecisions(rows pgx.Rows) ([]models.Decision, error) {
	var decisions []models.Decision
	for rows.Next() {
		var decision models.Decision
		err := rows.Scan(&decision.ID, &decision.Ticker, &decision.Action, &decision.Quantity, &decision.Confidence, &decision.Reasoning, &decision.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}
