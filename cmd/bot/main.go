package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantbridge/mt5-bridge/internal/bot"
	"github.com/quantbridge/mt5-bridge/internal/config"
	"github.com/quantbridge/mt5-bridge/internal/monitoring"
)

func main() {
	var (
		brokerName = flag.String("broker", "", "Broker backend (mock, bybit) - overrides environment")
		demo       = flag.Bool("demo", false, "Use Bybit demo trading environment - paper trading")
		envFile    = flag.String("env", ".env", "Environment file path (default: .env)")
	)
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	fmt.Println("🚀 MT5 Bridge Starting...")

	if *brokerName != "" {
		os.Setenv("BROKER", *brokerName)
	}
	if *demo {
		os.Setenv("BYBIT_DEMO", "true")
		os.Setenv("BYBIT_TESTNET", "false")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	health := monitoring.NewHealthChecker()
	startMonitoringServers(cfg, health)

	tradingBot, err := bot.New(cfg, health)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tradingBot.Start(ctx); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\n🛑 Shutdown signal received...")

	cancel()
	tradingBot.Stop()
	fmt.Println("✅ Bridge stopped successfully")
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}

// startMonitoringServers serves the metrics and health endpoints in the
// background. A failed listen is logged but does not stop trading.
func startMonitoringServers(cfg *config.Config, health *monitoring.HealthChecker) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.NewMetricsHandler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("📊 Metrics available at :%d/metrics", cfg.Monitoring.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Metrics server failed: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", health)
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("❤️ Health endpoint at :%d/health", cfg.Monitoring.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Health server failed: %v", err)
		}
	}()
}
