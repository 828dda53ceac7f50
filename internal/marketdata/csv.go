package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// CSVPath returns the on-disk location for a symbol/timeframe pair, e.g.
// BTC_USDT_1d.csv.
func CSVPath(dir, symbol, timeframe string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", FileSymbol(symbol), timeframe))
}

// SaveCSV writes candles to path, creating parent directories as needed.
func SaveCSV(path string, candles []Candle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range candles {
		record := []string{
			c.OpenTime.UTC().Format(csvTimeLayout),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			c.Volume.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadCSV reads candles previously written by SaveCSV.
func LoadCSV(path string) ([]Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrNoCandles, path)
	}

	candles := make([]Candle, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(csvHeader) {
			return nil, fmt.Errorf("malformed row in %s: %v", path, record)
		}
		candle, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("malformed row in %s: %w", path, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseCSVRecord(record []string) (Candle, error) {
	stamp, err := parseCSVTime(record[0])
	if err != nil {
		return Candle{}, err
	}

	fields := make([]decimal.Decimal, 5)
	for i := 0; i < 5; i++ {
		value, err := decimal.NewFromString(record[i+1])
		if err != nil {
			return Candle{}, err
		}
		fields[i] = value
	}

	return Candle{
		OpenTime: stamp,
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

func parseCSVTime(raw string) (time.Time, error) {
	if stamp, err := time.Parse(csvTimeLayout, raw); err == nil {
		return stamp.UTC(), nil
	}
	stamp, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return stamp.UTC(), nil
}
