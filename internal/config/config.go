// Package config loads the bridge configuration from the environment.
// Every option has a working default, so a bare process runs against
// the mock broker out of the box.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantbridge/mt5-bridge/internal/errors"
)

type Config struct {
	Environment string
	LogLevel    string
	LogFile     string

	Broker struct {
		Name      string // "mock" or "bybit"
		APIKey    string
		APISecret string
		Category  string
		Testnet   bool
		Demo      bool
	}

	Trading struct {
		Symbols      []string
		Timeframe    string
		CandleCount  int
		PollInterval time.Duration
	}

	Risk struct {
		MaxDailyLossPercent    float64
		MaxDrawdownPercent     float64
		PositionSizePercent    float64
		MinRiskRewardRatio     float64
		MaxTradesPerDay        int
		MaxConcurrentPositions int
	}

	Strategy struct {
		Enabled []string

		BollingerPeriod int
		BollingerStdDev float64

		RSIPeriod     int
		RSIOversold   float64
		RSIOverbought float64

		ShortMAPeriod int
		LongMAPeriod  int
		MAType        string
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Reporting struct {
		ExcelPath string
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
	}

	cfg.Broker.Name = strings.ToLower(getEnv("BROKER", "mock"))
	cfg.Broker.APIKey = getEnv("BYBIT_API_KEY", "")
	cfg.Broker.APISecret = getEnv("BYBIT_API_SECRET", "")
	cfg.Broker.Category = getEnv("BYBIT_CATEGORY", "linear")
	cfg.Broker.Testnet = getEnvBool("BYBIT_TESTNET", true)
	cfg.Broker.Demo = getEnvBool("BYBIT_DEMO", false)

	cfg.Trading.Symbols = getEnvList("TRADING_SYMBOLS", []string{"EURUSD"})
	cfg.Trading.Timeframe = getEnv("TRADING_TIMEFRAME", "M5")
	cfg.Trading.CandleCount = getEnvInt("TRADING_CANDLE_COUNT", 100)
	cfg.Trading.PollInterval = getEnvDuration("TRADING_POLL_INTERVAL", 30*time.Second)

	cfg.Risk.MaxDailyLossPercent = getEnvFloat("MAX_DAILY_LOSS_PERCENT", 5.0)
	cfg.Risk.MaxDrawdownPercent = getEnvFloat("MAX_DRAWDOWN_PERCENT", 10.0)
	cfg.Risk.PositionSizePercent = getEnvFloat("DEFAULT_POSITION_SIZE_PERCENT", 2.0)
	cfg.Risk.MinRiskRewardRatio = getEnvFloat("RISK_REWARD_RATIO", 1.5)
	cfg.Risk.MaxTradesPerDay = getEnvInt("MAX_TRADES_PER_DAY", 20)
	cfg.Risk.MaxConcurrentPositions = getEnvInt("MAX_CONCURRENT_POSITIONS", 5)

	cfg.Strategy.Enabled = getEnvList("STRATEGIES", []string{"MEAN_REVERSION", "SCALPING", "TREND_FOLLOWING"})
	cfg.Strategy.BollingerPeriod = getEnvInt("BOLLINGER_PERIOD", 20)
	cfg.Strategy.BollingerStdDev = getEnvFloat("BOLLINGER_STD_DEV", 2.0)
	cfg.Strategy.RSIPeriod = getEnvInt("RSI_PERIOD", 14)
	cfg.Strategy.RSIOversold = getEnvFloat("RSI_OVERSOLD", 30)
	cfg.Strategy.RSIOverbought = getEnvFloat("RSI_OVERBOUGHT", 70)
	cfg.Strategy.ShortMAPeriod = getEnvInt("SHORT_MA_PERIOD", 20)
	cfg.Strategy.LongMAPeriod = getEnvInt("LONG_MA_PERIOD", 50)
	cfg.Strategy.MAType = strings.ToUpper(getEnv("MA_TYPE", "SMA"))

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 9090)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Reporting.ExcelPath = getEnv("EXCEL_REPORT_PATH", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	fail := func(msg string) error {
		return errors.New(errors.CategoryConfig, "config", "load", msg)
	}

	switch c.Broker.Name {
	case "mock":
	case "bybit":
		if c.Broker.APIKey == "" || c.Broker.APISecret == "" {
			return fail("bybit broker requires BYBIT_API_KEY and BYBIT_API_SECRET")
		}
	default:
		return fail(fmt.Sprintf("unknown broker %q", c.Broker.Name))
	}

	if len(c.Trading.Symbols) == 0 {
		return fail("at least one trading symbol is required")
	}
	if c.Trading.CandleCount < 2 {
		return fail("TRADING_CANDLE_COUNT must be at least 2")
	}
	if c.Trading.PollInterval <= 0 {
		return fail("TRADING_POLL_INTERVAL must be positive")
	}

	if c.Risk.MaxDailyLossPercent <= 0 || c.Risk.MaxDailyLossPercent > 100 {
		return fail("MAX_DAILY_LOSS_PERCENT must be in (0, 100]")
	}
	if c.Risk.MaxDrawdownPercent <= 0 || c.Risk.MaxDrawdownPercent > 100 {
		return fail("MAX_DRAWDOWN_PERCENT must be in (0, 100]")
	}
	if c.Risk.PositionSizePercent <= 0 || c.Risk.PositionSizePercent > 100 {
		return fail("DEFAULT_POSITION_SIZE_PERCENT must be in (0, 100]")
	}
	if c.Risk.MinRiskRewardRatio <= 0 {
		return fail("RISK_REWARD_RATIO must be positive")
	}
	if c.Risk.MaxTradesPerDay <= 0 {
		return fail("MAX_TRADES_PER_DAY must be positive")
	}
	if c.Risk.MaxConcurrentPositions <= 0 {
		return fail("MAX_CONCURRENT_POSITIONS must be positive")
	}

	if c.Strategy.ShortMAPeriod >= c.Strategy.LongMAPeriod {
		return fail("SHORT_MA_PERIOD must be below LONG_MA_PERIOD")
	}
	if c.Strategy.RSIOversold >= c.Strategy.RSIOverbought {
		return fail("RSI_OVERSOLD must be below RSI_OVERBOUGHT")
	}
	if c.Strategy.MAType != "SMA" && c.Strategy.MAType != "EMA" {
		return fail("MA_TYPE must be SMA or EMA")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
