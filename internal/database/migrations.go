package database

import (
	"context"
	"fmt"
)

// schema holds the DDL for the candle and result tables. Statements are
// idempotent so EnsureSchema can run at every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		symbol      TEXT        NOT NULL,
		timeframe   TEXT        NOT NULL,
		open_time   TIMESTAMPTZ NOT NULL,
		open        NUMERIC     NOT NULL,
		high        NUMERIC     NOT NULL,
		low         NUMERIC     NOT NULL,
		close       NUMERIC     NOT NULL,
		volume      NUMERIC     NOT NULL,
		PRIMARY KEY (symbol, timeframe, open_time)
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_results (
		id                UUID        PRIMARY KEY,
		strategy_id       UUID        NOT NULL,
		strategy          TEXT        NOT NULL,
		symbol            TEXT        NOT NULL,
		run_date          TIMESTAMPTZ NOT NULL,
		start_date        TIMESTAMPTZ NOT NULL,
		end_date          TIMESTAMPTZ NOT NULL,
		sharpe_ratio      DOUBLE PRECISION NOT NULL,
		total_return      DOUBLE PRECISION NOT NULL,
		annualized_return DOUBLE PRECISION NOT NULL,
		max_drawdown      DOUBLE PRECISION NOT NULL,
		win_rate          DOUBLE PRECISION NOT NULL,
		profit_factor     DOUBLE PRECISION NOT NULL,
		total_costs       DOUBLE PRECISION NOT NULL,
		trade_count       INTEGER     NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_results_strategy_id
		ON backtest_results (strategy_id, run_date DESC)`,
}

// EnsureSchema creates the tables the repositories depend on.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
