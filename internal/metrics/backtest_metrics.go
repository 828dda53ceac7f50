package metrics

// RecordStrategyMetrics publishes the headline numbers of one completed
// walk-forward evaluation.
func RecordStrategyMetrics(strategyID, strategyName string, sharpeRatio, maxDrawdown float64) {
	StrategySharpeRatio.WithLabelValues(strategyID, strategyName).Set(sharpeRatio)
	StrategyMaxDrawdown.WithLabelValues(strategyID, strategyName).Set(maxDrawdown)
}

// RecordDiversification publishes the diversification multiplier computed for
// the current variation set.
func RecordDiversification(fdm float64) {
	DiversificationMultiplier.Set(fdm)
}
