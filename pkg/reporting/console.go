// Package reporting renders trade activity for humans: console tables
// during a session and Excel workbooks on demand.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantbridge/mt5-bridge/internal/execution"
	"github.com/quantbridge/mt5-bridge/internal/risk"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// ConsoleReporter prints session tables to an output stream.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo writes to the given stream.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// PrintStartup renders the session configuration banner.
func (r *ConsoleReporter) PrintStartup(brokerName string, symbols []string, timeframe string, pollInterval string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("BRIDGE INITIALIZATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏪 Broker", brokerName},
		{"📊 Symbols", fmt.Sprintf("%v", symbols)},
		{"⏰ Timeframe", timeframe},
		{"🔄 Poll Interval", pollInterval},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintOpenTrades renders the currently open trades.
func (r *ConsoleReporter) PrintOpenTrades(trades []*types.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("OPEN TRADES")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Ticket", "Symbol", "Action", "Volume", "Entry", "SL", "TP", "Strategy"})
	for _, trade := range trades {
		t.AppendRow(table.Row{
			trade.Ticket,
			trade.Symbol,
			trade.Action,
			fmt.Sprintf("%.2f", trade.Volume),
			fmt.Sprintf("%.5f", trade.EntryPrice),
			fmt.Sprintf("%.5f", trade.StopLoss),
			fmt.Sprintf("%.5f", trade.TakeProfit),
			trade.Strategy,
		})
	}
	if len(trades) == 0 {
		t.AppendRow(table.Row{"", "no open trades", "", "", "", "", "", ""})
	}

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintClosedTrades renders the completed trades with their results.
func (r *ConsoleReporter) PrintClosedTrades(trades []*types.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("CLOSED TRADES")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Ticket", "Symbol", "Action", "Volume", "Entry", "Exit", "Profit", "Profit %"})
	for _, trade := range trades {
		t.AppendRow(table.Row{
			trade.Ticket,
			trade.Symbol,
			trade.Action,
			fmt.Sprintf("%.2f", trade.Volume),
			fmt.Sprintf("%.5f", trade.EntryPrice),
			fmt.Sprintf("%.5f", trade.ExitPrice),
			fmt.Sprintf("%.2f", trade.Profit),
			fmt.Sprintf("%.2f%%", trade.ProfitPercent),
		})
	}
	if len(trades) == 0 {
		t.AppendRow(table.Row{"", "no closed trades", "", "", "", "", "", ""})
	}

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintStatistics renders the session performance summary.
func (r *ConsoleReporter) PrintStatistics(stats execution.Statistics) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("SESSION RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", stats.TotalTrades},
		{"✅ Winning Trades", stats.WinningTrades},
		{"❌ Losing Trades", stats.LosingTrades},
		{"📈 Win Rate", fmt.Sprintf("%.1f%%", stats.WinRate)},
		{"💰 Total Profit", fmt.Sprintf("%.2f", stats.TotalProfit)},
		{"📊 Average Win", fmt.Sprintf("%.2f", stats.AverageWin)},
		{"📉 Average Loss", fmt.Sprintf("%.2f", stats.AverageLoss)},
		{"💹 Profit Factor", fmt.Sprintf("%.2f", stats.ProfitFactor)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 15, WidthMax: 25, Align: text.AlignRight},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintRiskMetrics renders the risk counters against their limits.
func (r *ConsoleReporter) PrintRiskMetrics(m risk.Metrics) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("RISK STATUS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔢 Daily Trades", m.DailyTrades},
		{"📉 Daily Loss", fmt.Sprintf("%.2f (%.2f%% of %.2f%%)", m.DailyLoss, m.DailyLossPercent, m.DailyLossLimit)},
		{"📐 Drawdown", fmt.Sprintf("%.2f%% (max %.2f%%)", m.Drawdown, m.MaxDrawdown)},
		{"💵 Free Margin", fmt.Sprintf("%.2f", m.FreeMargin)},
		{"⚖️ Margin Level", fmt.Sprintf("%.2f%%", m.MarginLevel)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 15, WidthMax: 30, Align: text.AlignRight},
	})

	t.Render()
	fmt.Fprintln(r.out)
}
