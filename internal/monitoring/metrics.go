package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_trades_total",
			Help: "Total number of executed fills",
		},
		[]string{"strategy", "side"},
	)

	riskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_risk_rejections_total",
			Help: "Signals rejected by the risk check ladder",
		},
		[]string{"strategy"},
	)

	// Portfolio metrics
	totalEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "algotrader_total_equity",
			Help: "Current total equity in account currency",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "algotrader_open_positions",
			Help: "Number of open positions",
		},
	)

	killSwitchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "algotrader_kill_switch_active",
			Help: "1 when the kill switch is tripped",
		},
	)

	// Strategy metrics
	pairZScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "algotrader_pair_zscore",
			Help: "Current spread z-score per pair",
		},
		[]string{"pair"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "algotrader_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(riskRejectionsTotal)
	prometheus.MustRegister(totalEquity)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(killSwitchActive)
	prometheus.MustRegister(pairZScore)
	prometheus.MustRegister(errorsTotal)
}

// RecordTrade records an executed fill
func RecordTrade(strategy, side string) {
	tradesTotal.WithLabelValues(strategy, side).Inc()
}

// RecordRiskRejection records a risk-ladder rejection
func RecordRiskRejection(strategy string) {
	riskRejectionsTotal.WithLabelValues(strategy).Inc()
}

// UpdatePortfolio updates the equity and position gauges
func UpdatePortfolio(equity float64, positions int) {
	totalEquity.Set(equity)
	openPositions.Set(float64(positions))
}

// UpdateKillSwitch updates the kill-switch gauge
func UpdateKillSwitch(active bool) {
	if active {
		killSwitchActive.Set(1)
	} else {
		killSwitchActive.Set(0)
	}
}

// UpdatePairZScore updates the per-pair z-score gauge
func UpdatePairZScore(pair string, z float64) {
	pairZScore.WithLabelValues(pair).Set(z)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
