package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// Logger is a file logger for a trading session. One file per day per
// session, entries timestamped and levelled.
type Logger struct {
	timeframe string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logDir    string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a file logger for the session. The file lands in
// logDir (created if missing) named bridge_<timeframe>_<date>.log.
func NewLogger(logDir, timeframe string) (*Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("bridge_%s_%s.log", timeframe, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		timeframe: timeframe,
		logFile:   file,
		logger:    log.New(file, "", 0),
		logDir:    logDir,
	}
	l.writeSessionHeader()
	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 TRADING SESSION STARTED
================================================================================
Timeframe: %s
Started: %s
================================================================================
`, l.timeframe, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level.
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogSignal logs a generated signal with its indicator context.
func (l *Logger) LogSignal(sig *types.Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf(`
[%s] [STATUS] ==================== SIGNAL ====================
📊 Strategy: %s | Symbol: %s
🎯 Action: %s | Confidence: %.2f%%
💰 Entry: %.5f | TP: %.5f | SL: %.5f
=========================================================`,
		timestamp, sig.Strategy, sig.Symbol, sig.Action, sig.Confidence*100,
		sig.EntryPrice, sig.TakeProfit, sig.StopLoss)

	l.logger.Println(entry)
}

// LogTradeExecution logs a filled order.
func (l *Logger) LogTradeExecution(trade *types.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf(`
[%s] [TRADE] ==================== %s EXECUTED ====================
✅ Ticket: %d
📦 Volume: %.2f lots %s
💰 Entry: %.5f | TP: %.5f | SL: %.5f
📊 Strategy: %s (%.2f%%)
=============================================================`,
		timestamp, trade.Action, trade.Ticket, trade.Volume, trade.Symbol,
		trade.EntryPrice, trade.TakeProfit, trade.StopLoss,
		trade.Strategy, trade.Confidence*100)

	l.logger.Println(entry)
}

// LogTradeClose logs a completed trade with its result.
func (l *Logger) LogTradeClose(trade *types.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf(`
[%s] [TRADE] ==================== TRADE CLOSED ====================
🎯 Ticket: %d | %s %s
🚪 Entry: %.5f | Exit: %.5f
💹 Profit: %.2f (%.2f%%)
==============================================================`,
		timestamp, trade.Ticket, trade.Action, trade.Symbol,
		trade.EntryPrice, trade.ExitPrice, trade.Profit, trade.ProfitPercent)

	l.logger.Println(entry)
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Println(fmt.Sprintf(`
[%s] [STATUS] 🛑 TRADING SESSION ENDED
================================================================================`,
		time.Now().Format("2006-01-02 15:04:05")))
	return l.logFile.Close()
}
