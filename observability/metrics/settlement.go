package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks batch settlement outcomes exported via /metrics.
type SettlementMetrics struct {
	settlementsTotal *prometheus.CounterVec
	payoutAccounts   prometheus.Counter
	amountOutSum     *prometheus.GaugeVec
	feeCollected     *prometheus.GaugeVec
	roundingDust     *prometheus.GaugeVec
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the process-wide settlement metrics collection.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			settlementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pointsale_settlements_total",
				Help: "Count of executed settlements by outcome.",
			}, []string{"outcome"}),
			payoutAccounts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pointsale_payout_accounts_total",
				Help: "Count of account payouts disbursed across settlements.",
			}),
			amountOutSum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pointsale_amount_out",
				Help: "Output amount received from the venue in the latest settlement per pair.",
			}, []string{"pair"}),
			feeCollected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pointsale_fee_collected",
				Help: "Fee amount collected in the latest settlement per pair.",
			}, []string{"pair"}),
			roundingDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "pointsale_rounding_dust",
				Help: "Floor-division remainder recorded in the latest settlement per pair.",
			}, []string{"pair"}),
		}
		prometheus.MustRegister(
			settlementRegistry.settlementsTotal,
			settlementRegistry.payoutAccounts,
			settlementRegistry.amountOutSum,
			settlementRegistry.feeCollected,
			settlementRegistry.roundingDust,
		)
	})
	return settlementRegistry
}

// ObserveSuccess records a completed settlement.
func (m *SettlementMetrics) ObserveSuccess(pair string, payouts int, amountOut, fee, dust *big.Int) {
	if m == nil {
		return
	}
	m.settlementsTotal.WithLabelValues("success").Inc()
	m.payoutAccounts.Add(float64(payouts))
	m.amountOutSum.WithLabelValues(pair).Set(bigToFloat(amountOut))
	m.feeCollected.WithLabelValues(pair).Set(bigToFloat(fee))
	m.roundingDust.WithLabelValues(pair).Set(bigToFloat(dust))
}

// ObserveFailure records an aborted settlement.
func (m *SettlementMetrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.settlementsTotal.WithLabelValues("failure").Inc()
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	out, _ := new(big.Float).SetInt(v).Float64()
	return out
}
