package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-exec-engine/internal/executor"
	"github.com/ducminhle1904/crypto-exec-engine/internal/risk"
)

// ConsoleReporter renders risk reports and execution summaries as terminal
// tables.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintRiskReport renders the full risk report.
func (r *ConsoleReporter) PrintRiskReport(report *risk.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RISK REPORT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Capital", fmt.Sprintf("$%.2f", report.CapitalMetrics.InitialCapital)},
		{"💰 Current Capital", fmt.Sprintf("$%.2f", report.CapitalMetrics.CurrentCapital)},
		{"📈 Total PnL", fmt.Sprintf("$%.2f (%.2f%%)", report.CapitalMetrics.TotalPnL, report.CapitalMetrics.PnLPercentage)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"⚖️ Risk Level", report.RiskSettings.RiskLevel},
		{"⚖️ Risk Per Trade", fmt.Sprintf("%.2f%%", report.RiskSettings.RiskPerTrade*100)},
		{"⚖️ Max Portfolio Risk", fmt.Sprintf("%.2f%%", report.RiskSettings.MaxPortfolioRisk*100)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📊 Portfolio Value", fmt.Sprintf("$%.2f", report.PortfolioMetrics.TotalValue)},
		{"📊 VaR (95%)", fmt.Sprintf("$%.2f", report.PortfolioMetrics.VaR95)},
		{"📊 CVaR (95%)", fmt.Sprintf("$%.2f", report.PortfolioMetrics.CVaR95)},
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", report.PortfolioMetrics.SharpeRatio)},
		{"📊 Sortino Ratio", fmt.Sprintf("%.2f", report.PortfolioMetrics.SortinoRatio)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", report.PortfolioMetrics.MaxDrawdown)},
		{"📉 Current Drawdown", fmt.Sprintf("%.2f%%", report.PortfolioMetrics.CurrentDrawdown)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{assessmentIcon(report.RiskAssessment.WarningLevel) + " Assessment", report.RiskAssessment.Assessment},
		{"💡 Recommended Action", report.RiskAssessment.RecommendedAction},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 45, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	if len(report.Positions) > 0 {
		r.printPositions(report)
	}
}

func (r *ConsoleReporter) printPositions(report *risk.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("OPEN POSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Size", "Value", "Unrealized PnL", "Stop Loss", "Take Profit", "R:R", "VaR"})

	for sym, pos := range report.Positions {
		t.AppendRow(table.Row{
			sym,
			fmt.Sprintf("%.4f", pos.Size),
			fmt.Sprintf("$%.2f", pos.Value),
			fmt.Sprintf("$%.2f", pos.UnrealizedPnL),
			fmt.Sprintf("$%.2f", pos.StopLoss),
			fmt.Sprintf("$%.2f", pos.TakeProfit),
			fmt.Sprintf("%.2f", pos.RiskReward),
			fmt.Sprintf("$%.2f", pos.VaR),
		})
	}

	t.Render()
	fmt.Println()
}

// PrintExecutionSummary renders per-venue order statistics.
func (r *ConsoleReporter) PrintExecutionSummary(summaries ...executor.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("EXECUTION SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Exchange", "Orders", "Active", "Filled", "Volume", "Commission"})

	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Exchange,
			s.TotalOrders,
			s.ActiveOrders,
			s.FilledOrders,
			"$" + s.TotalVolume.StringFixed(2),
			"$" + s.TotalCommission.StringFixed(4),
		})
	}

	t.Render()
	fmt.Println()
}

func assessmentIcon(warningLevel string) string {
	switch warningLevel {
	case "red":
		return "🔴"
	case "yellow":
		return "🟡"
	default:
		return "🟢"
	}
}
