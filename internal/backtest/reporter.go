package backtest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats metrics for terminal output.
func GenerateConsoleReport(m *Metrics) string {
	var builder strings.Builder
	builder.WriteString("Walk-Forward Report\n")
	builder.WriteString("===================\n")
	if m == nil {
		builder.WriteString("No metrics: return series is empty or has zero variance\n")
		return builder.String()
	}
	builder.WriteString(fmt.Sprintf("Strategy: %s\n", m.Strategy))
	builder.WriteString(fmt.Sprintf("Period: %s to %s\n", m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", m.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturn*100))
	builder.WriteString(fmt.Sprintf("Annualized Return: %.2f%%\n", m.AnnualizedReturn*100))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdown*100))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", m.WinRate*100))
	builder.WriteString(fmt.Sprintf("Profit Factor: %s\n", formatProfitFactor(m.ProfitFactor)))
	builder.WriteString(fmt.Sprintf("Total Costs: %.4f%%\n", m.TotalCosts*100))
	builder.WriteString(fmt.Sprintf("Periods: %d\n", m.TradeCount))
	return builder.String()
}

// GenerateCSVExport writes key metrics for spreadsheets.
func GenerateCSVExport(m *Metrics, outputPath string) error {
	if m == nil {
		return fmt.Errorf("no metrics to export")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	csv := "metric,value\n" +
		fmt.Sprintf("strategy,%s\n", m.Strategy) +
		fmt.Sprintf("sharpe_ratio,%.4f\n", m.SharpeRatio) +
		fmt.Sprintf("total_return,%.4f\n", m.TotalReturn) +
		fmt.Sprintf("annualized_return,%.4f\n", m.AnnualizedReturn) +
		fmt.Sprintf("max_drawdown,%.4f\n", m.MaxDrawdown) +
		fmt.Sprintf("win_rate,%.4f\n", m.WinRate) +
		fmt.Sprintf("profit_factor,%s\n", formatProfitFactor(m.ProfitFactor)) +
		fmt.Sprintf("total_costs,%.6f\n", m.TotalCosts) +
		fmt.Sprintf("trade_count,%d\n", m.TradeCount)
	return os.WriteFile(outputPath, []byte(csv), 0o644)
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
