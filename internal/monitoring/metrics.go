package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mt5_bridge_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "action"},
	)

	tradeVolume = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mt5_bridge_trade_volume_lots",
			Help:    "Distribution of executed trade volumes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"symbol"},
	)

	riskRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mt5_bridge_risk_rejections_total",
			Help: "Signals rejected by the risk gate",
		},
		[]string{"reason"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mt5_bridge_current_price",
			Help: "Latest close price per symbol",
		},
		[]string{"symbol"},
	)

	// Strategy metrics
	strategyConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mt5_bridge_strategy_confidence",
			Help: "Confidence of the latest signal per strategy",
		},
		[]string{"strategy"},
	)

	// Risk state metrics
	dailyLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mt5_bridge_daily_loss",
			Help: "Accumulated realized loss for the current day",
		},
	)

	openTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mt5_bridge_open_trades",
			Help: "Number of trades currently open in the ledger",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mt5_bridge_errors_total",
			Help: "Total number of pipeline errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeVolume)
	prometheus.MustRegister(riskRejections)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(strategyConfidence)
	prometheus.MustRegister(dailyLoss)
	prometheus.MustRegister(openTrades)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records an executed trade.
func RecordTrade(symbol, action string, volume float64) {
	tradesTotal.WithLabelValues(symbol, action).Inc()
	tradeVolume.WithLabelValues(symbol).Observe(volume)
}

// RecordRejection records a risk gate rejection.
func RecordRejection(reason string) {
	riskRejections.WithLabelValues(reason).Inc()
}

// UpdatePrice updates the latest close price for a symbol.
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateStrategyConfidence updates the latest confidence per strategy.
func UpdateStrategyConfidence(strategy string, confidence float64) {
	strategyConfidence.WithLabelValues(strategy).Set(confidence)
}

// UpdateRiskState publishes the current daily loss and open trade count.
func UpdateRiskState(loss float64, open int) {
	dailyLoss.Set(loss)
	openTrades.Set(float64(open))
}

// RecordError records a pipeline error by category.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
