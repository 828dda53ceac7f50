package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/trendlab/internal/backtest"
	"github.com/yourusername/trendlab/internal/database"
)

const errScanResult = "failed to scan backtest result: %w"

// StoredResult is one persisted walk-forward evaluation summary row.
type StoredResult struct {
	ID               uuid.UUID
	StrategyID       uuid.UUID
	Strategy         string
	Symbol           string
	RunDate          time.Time
	StartDate        time.Time
	EndDate          time.Time
	SharpeRatio      float64
	TotalReturn      float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	WinRate          float64
	ProfitFactor     float64
	TotalCosts       float64
	TradeCount       int
	CreatedAt        time.Time
}

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// SaveMetrics inserts an evaluation summary and returns the new row ID.
func (r *PostgresResultRepository) SaveMetrics(ctx context.Context, symbol string, metrics *backtest.Metrics) (uuid.UUID, error) {
	if metrics == nil {
		return uuid.Nil, fmt.Errorf("nil metrics")
	}

	query := `
		INSERT INTO backtest_results (
			id, strategy_id, strategy, symbol, run_date, start_date, end_date,
			sharpe_ratio, total_return, annualized_return, max_drawdown,
			win_rate, profit_factor, total_costs, trade_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`

	id := uuid.New()
	_, err := r.db.GetPool().Exec(ctx, query,
		id, metrics.StrategyID, metrics.Strategy, symbol, time.Now().UTC(),
		metrics.StartDate, metrics.EndDate,
		metrics.SharpeRatio, metrics.TotalReturn, metrics.AnnualizedReturn, metrics.MaxDrawdown,
		metrics.WinRate, metrics.ProfitFactor, metrics.TotalCosts, metrics.TradeCount,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save backtest result: %w", err)
	}
	return id, nil
}

// GetByStrategyID retrieves all stored results for a strategy, newest first.
func (r *PostgresResultRepository) GetByStrategyID(ctx context.Context, strategyID uuid.UUID) ([]*StoredResult, error) {
	query := selectResultColumns + ` WHERE strategy_id = $1 ORDER BY run_date DESC`
	rows, err := r.db.GetPool().Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// GetLatest retrieves the most recent stored results.
func (r *PostgresResultRepository) GetLatest(ctx context.Context, limit int) ([]*StoredResult, error) {
	query := selectResultColumns + ` ORDER BY run_date DESC LIMIT $1`
	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

const selectResultColumns = `
	SELECT id, strategy_id, strategy, symbol, run_date, start_date, end_date,
		sharpe_ratio, total_return, annualized_return, max_drawdown,
		win_rate, profit_factor, total_costs, trade_count, created_at
	FROM backtest_results`

func scanResults(rows pgx.Rows) ([]*StoredResult, error) {
	var results []*StoredResult
	for rows.Next() {
		result := &StoredResult{}
		if err := rows.Scan(
			&result.ID, &result.StrategyID, &result.Strategy, &result.Symbol,
			&result.RunDate, &result.StartDate, &result.EndDate,
			&result.SharpeRatio, &result.TotalReturn, &result.AnnualizedReturn, &result.MaxDrawdown,
			&result.WinRate, &result.ProfitFactor, &result.TotalCosts, &result.TradeCount,
			&result.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanResult, err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
