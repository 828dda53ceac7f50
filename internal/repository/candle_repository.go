package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/trendlab/internal/database"
	"github.com/yourusername/trendlab/internal/marketdata"
)

const errScanCandle = "failed to scan candle: %w"

// PostgresCandleRepository implements CandleRepository for PostgreSQL
type PostgresCandleRepository struct {
	db *database.DB
}

// NewPostgresCandleRepository creates a new candle repository
func NewPostgresCandleRepository(db *database.DB) CandleRepository {
	return &PostgresCandleRepository{db: db}
}

// UpsertCandles inserts candles, overwriting any existing bar at the same
// open time. Returns the number of rows written.
func (r *PostgresCandleRepository) UpsertCandles(ctx context.Context, symbol, timeframe string, candles []marketdata.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, open_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(query, symbol, timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range candles {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("failed to upsert candle: %w", err)
		}
		written++
	}
	return written, nil
}

// GetCandles retrieves the most recent candles in chronological order.
func (r *PostgresCandleRepository) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Candle, error) {
	query := `
		SELECT open_time, open, high, low, close, volume
		FROM (
			SELECT open_time, open, high, low, close, volume
			FROM candles
			WHERE symbol = $1 AND timeframe = $2
			ORDER BY open_time DESC
			LIMIT $3
		) recent
		ORDER BY open_time ASC
	`
	rows, err := r.db.GetPool().Query(ctx, query, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []marketdata.Candle
	for rows.Next() {
		var c marketdata.Candle
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf(errScanCandle, err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// GetLatestOpenTime returns the newest stored bar time for a pair, or
// found=false when no bars exist.
func (r *PostgresCandleRepository) GetLatestOpenTime(ctx context.Context, symbol, timeframe string) (time.Time, bool, error) {
	query := `
		SELECT open_time FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY open_time DESC LIMIT 1
	`
	var openTime time.Time
	err := r.db.GetPool().QueryRow(ctx, query, symbol, timeframe).Scan(&openTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest open time: %w", err)
	}
	return openTime, true, nil
}
