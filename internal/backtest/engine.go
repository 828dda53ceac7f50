package backtest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/trendlab/internal/forecast"
	"github.com/yourusername/trendlab/internal/metrics"
	"github.com/yourusername/trendlab/internal/series"
	"github.com/yourusername/trendlab/internal/sizing"
)

// Engine runs walk-forward backtests for one forecast source and one sizer.
// It holds no cross-call state; Run is a pure function of its arguments and
// the configured parameters, so one engine may serve concurrent runs.
type Engine struct {
	signal forecast.Source
	sizer  sizing.Sizer
	config Config
	logger *logrus.Logger
}

// NewEngine creates a walk-forward engine.
func NewEngine(cfg Config, signal forecast.Source, sizer sizing.Sizer, logger *logrus.Logger) (*Engine, error) {
	if signal == nil {
		return nil, fmt.Errorf("forecast source is required")
	}
	if sizer == nil {
		return nil, fmt.Errorf("sizer is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{signal: signal, sizer: sizer, config: cfg, logger: logger}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Logger returns the engine logger.
func (e *Engine) Logger() *logrus.Logger {
	return e.logger
}

// Run walks the price history with a cursor starting at TrainWindow and
// advancing by TestWindow while cursor <= len(prices) - TestWindow. Each step
// trains on prices[cursor-TrainWindow:cursor], tests on
// prices[cursor:cursor+TestWindow], and nets a one-period execution lag and
// transaction costs. Windows are evaluated concurrently and reassembled in
// window-start order. A history too short for even one window yields an empty
// result, not an error.
func (e *Engine) Run(ctx context.Context, prices *series.Series) (*Result, error) {
	if err := e.config.ValidateFor(prices.Len()); err != nil {
		return nil, err
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	var starts []int
	for i := e.config.TrainWindow; i <= prices.Len()-e.config.TestWindow; i += e.config.TestWindow {
		starts = append(starts, i)
	}
	e.logger.WithFields(logrus.Fields{
		"strategy": e.signal.Name(),
		"history":  prices.Len(),
		"windows":  len(starts),
	}).Info("Starting walk-forward run")

	if len(starts) == 0 {
		return assembleResult(e.signal.Name(), nil), nil
	}

	outputs := make([]windowOutput, len(starts))
	sem := make(chan struct{}, e.config.parallelism())
	var wg sync.WaitGroup
	for k, start := range starts {
		wg.Add(1)
		go func(k, start int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outputs[k] = e.evaluateWindow(prices, start)
		}(k, start)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return assembleResult(e.signal.Name(), outputs), nil
}

// evaluateWindow computes the valid out-of-sample observations for the test
// window starting at cursor. Degeneracies inside the window (unscalable
// signal, missing volatility) yield missing data for this window only; they
// never abort the run.
func (e *Engine) evaluateWindow(prices *series.Series, cursor int) windowOutput {
	train := prices.Slice(cursor-e.config.TrainWindow, cursor)
	test := prices.Slice(cursor, cursor+e.config.TestWindow)

	fc, err := e.signal.Generate(test, train)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"strategy": e.signal.Name(),
			"cursor":   cursor,
		}).WithError(err).Warn("Skipping window: forecast unavailable")
		metrics.WindowsSkippedTotal.Inc()
		return windowOutput{}
	}
	metrics.ForecastsGeneratedTotal.Inc()

	positions, err := e.sizer.Size(fc, test, e.config.Capital)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"strategy": e.signal.Name(),
			"cursor":   cursor,
		}).WithError(err).Warn("Skipping window: sizing failed")
		metrics.WindowsSkippedTotal.Inc()
		return windowOutput{}
	}

	testReturns := test.PctChange()

	var out windowOutput
	for t := 0; t < test.Len(); t++ {
		netReturn, cost := e.netReturn(positions, testReturns, t)
		if !validStamp(fc.Value(t), positions.Value(t), netReturn) {
			continue
		}
		out.times = append(out.times, test.Time(t))
		out.forecasts = append(out.forecasts, fc.Value(t))
		out.positions = append(out.positions, positions.Value(t))
		out.returns = append(out.returns, netReturn)
		out.costs = append(out.costs, cost)
	}
	return out
}

// netReturn applies the one-period execution lag and nets transaction costs.
// Both the strategy return and the cost are fractions of capital: the lagged
// dollar position times the price change, and the absolute dollar position
// change times the cost rate, each divided by capital.
func (e *Engine) netReturn(positions, testReturns *series.Series, t int) (float64, float64) {
	if t == 0 {
		return math.NaN(), math.NaN()
	}
	lagged := positions.Value(t - 1)
	ret := testReturns.Value(t)
	if math.IsNaN(lagged) || math.IsNaN(ret) {
		return math.NaN(), math.NaN()
	}
	strategyReturn := lagged * ret / e.config.Capital

	change := positions.Value(t) - lagged
	if math.IsNaN(change) {
		return math.NaN(), math.NaN()
	}
	cost := math.Abs(change) * e.config.TransactionCost / e.config.Capital
	return strategyReturn - cost, cost
}

func validatePrices(prices *series.Series) error {
	for i := 0; i < prices.Len(); i++ {
		v := prices.Value(i)
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %v at index %d", ErrInvalidPrices, v, i)
		}
	}
	return nil
}
