package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
	"github.com/ducminhle1904/crypto-exec-engine/internal/risk"
)

// ExcelReporter writes order history and risk reports to an Excel workbook.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteWorkbook writes orders and the risk report to the given path.
func (r *ExcelReporter) WriteWorkbook(orders []*order.Order, report *risk.Report, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const ordersSheet = "Orders"
	const riskSheet = "Risk Report"

	fx.SetSheetName(fx.GetSheetName(0), ordersSheet)
	fx.NewSheet(riskSheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	if err := r.writeOrdersSheet(fx, ordersSheet, orders, headerStyle); err != nil {
		return err
	}
	if err := r.writeRiskSheet(fx, riskSheet, report, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeOrdersSheet(fx *excelize.File, sheet string, orders []*order.Order, headerStyle int) error {
	headers := []string{"Order ID", "Symbol", "Side", "Type", "Status", "Amount", "Filled", "Avg Price", "Commission", "Created", "Updated"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
	}
	endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	fx.SetCellStyle(sheet, "A1", endCell, headerStyle)

	for row, o := range orders {
		values := []interface{}{
			o.ID,
			o.Symbol,
			string(o.Side),
			string(o.Type),
			string(o.Status),
			o.Amount.InexactFloat64(),
			o.FilledAmount.InexactFloat64(),
			o.AveragePrice.InexactFloat64(),
			o.Commission.InexactFloat64(),
			o.CreatedAt.Format("2006-01-02 15:04:05"),
			o.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 28)
	fx.SetColWidth(sheet, "B", "K", 14)
	return nil
}

func (r *ExcelReporter) writeRiskSheet(fx *excelize.File, sheet string, report *risk.Report, headerStyle int) error {
	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", headerStyle)

	rows := [][2]interface{}{
		{"Generated At", report.Timestamp.Format("2006-01-02 15:04:05")},
		{"Initial Capital", report.CapitalMetrics.InitialCapital},
		{"Current Capital", report.CapitalMetrics.CurrentCapital},
		{"Total PnL", report.CapitalMetrics.TotalPnL},
		{"PnL %", report.CapitalMetrics.PnLPercentage},
		{"Risk Level", report.RiskSettings.RiskLevel},
		{"Risk Per Trade", report.RiskSettings.RiskPerTrade},
		{"Max Portfolio Risk", report.RiskSettings.MaxPortfolioRisk},
		{"Portfolio Value", report.PortfolioMetrics.TotalValue},
		{"VaR 95%", report.PortfolioMetrics.VaR95},
		{"CVaR 95%", report.PortfolioMetrics.CVaR95},
		{"Sharpe Ratio", report.PortfolioMetrics.SharpeRatio},
		{"Sortino Ratio", report.PortfolioMetrics.SortinoRatio},
		{"Max Drawdown %", report.PortfolioMetrics.MaxDrawdown},
		{"Current Drawdown %", report.PortfolioMetrics.CurrentDrawdown},
		{"Risk Score", report.RiskAssessment.RiskScore},
		{"Assessment", report.RiskAssessment.Assessment},
		{"Recommended Action", report.RiskAssessment.RecommendedAction},
	}

	for i, pair := range rows {
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), pair[0])
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), pair[1])
	}

	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 24)
	return nil
}
