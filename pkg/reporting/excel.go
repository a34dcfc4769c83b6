package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/quantbridge/mt5-bridge/internal/execution"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// ExcelReporter writes a session workbook with a trades sheet and a
// summary sheet.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	price    int
	currency int
}

// WriteSessionReport writes all closed trades and the session summary
// to an xlsx file at path, creating parent directories as needed.
func (r *ExcelReporter) WriteSessionReport(trades []*types.TradeRecord, stats execution.Statistics, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, trades, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, stats, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
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
		return styles, err
	}

	styles.price, err = fx.NewStyle(&excelize.Style{
		NumFmt: 2,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []*types.TradeRecord, styles excelStyles) error {
	headers := []string{
		"Ticket", "Symbol", "Action", "Strategy", "Volume",
		"Entry", "Exit", "Stop Loss", "Take Profit",
		"Profit", "Profit %", "Opened", "Closed",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", endHeader, styles.header); err != nil {
		return err
	}

	for i, trade := range trades {
		row := i + 2
		values := []interface{}{
			trade.Ticket,
			trade.Symbol,
			string(trade.Action),
			string(trade.Strategy),
			trade.Volume,
			trade.EntryPrice,
			trade.ExitPrice,
			trade.StopLoss,
			trade.TakeProfit,
			trade.Profit,
			trade.ProfitPercent / 100,
			trade.ExecutedAt.Format("2006-01-02 15:04:05"),
			trade.ClosedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	if len(trades) > 0 {
		start, _ := excelize.CoordinatesToCellName(6, 2)
		end, _ := excelize.CoordinatesToCellName(9, len(trades)+1)
		if err := fx.SetCellStyle(sheet, start, end, styles.price); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "M", 14)
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, stats execution.Statistics, styles excelStyles) error {
	rows := []struct {
		label string
		value interface{}
	}{
		{"Total Trades", stats.TotalTrades},
		{"Winning Trades", stats.WinningTrades},
		{"Losing Trades", stats.LosingTrades},
		{"Win Rate %", stats.WinRate},
		{"Total Profit", stats.TotalProfit},
		{"Average Win", stats.AverageWin},
		{"Average Loss", stats.AverageLoss},
		{"Profit Factor", stats.ProfitFactor},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+2)
		valueCell := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "B", 18)
}
