package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type TokenMetrics struct {
	mintedTotal     prometheus.Counter
	burnedTotal     prometheus.Counter
	feeCentsTotal   *prometheus.CounterVec
	lockboxesOpen   prometheus.Gauge
	lockedBNJITotal prometheus.Gauge
}

var (
	tokenOnce     sync.Once
	tokenRegistry *TokenMetrics
)

// Token returns the process-wide token engine metrics, registering them on
// first use.
func Token() *TokenMetrics {
	tokenOnce.Do(func() {
		tokenRegistry = &TokenMetrics{
			mintedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "token_minted_total",
				Help: "Tokens minted through the bonding curve.",
			}),
			burnedTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "token_burned_total",
				Help: "Tokens burned through the bonding curve.",
			}),
			feeCentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "token_fee_cents_total",
				Help: "Protocol fee cents collected by operation.",
			}, []string{"op"}),
			lockboxesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "token_lockboxes_open",
				Help: "Currently open lockboxes across all accounts.",
			}),
			lockedBNJITotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "token_locked_bnji",
				Help: "BNJI currently held in open lockboxes.",
			}),
		}
		prometheus.MustRegister(
			tokenRegistry.mintedTotal,
			tokenRegistry.burnedTotal,
			tokenRegistry.feeCentsTotal,
			tokenRegistry.lockboxesOpen,
			tokenRegistry.lockedBNJITotal,
		)
	})
	return tokenRegistry
}

func feeFloat(feeCents *big.Int) float64 {
	if feeCents == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(feeCents).Float64()
	return f
}

// RecordMint counts a settled mint and its fee.
func (m *TokenMetrics) RecordMint(amount uint64, feeCents *big.Int) {
	if m == nil {
		return
	}
	m.mintedTotal.Add(float64(amount))
	m.feeCentsTotal.WithLabelValues("mint").Add(feeFloat(feeCents))
}

// RecordBurn counts a settled burn and its fee.
func (m *TokenMetrics) RecordBurn(amount uint64, feeCents *big.Int) {
	if m == nil {
		return
	}
	m.burnedTotal.Add(float64(amount))
	m.feeCentsTotal.WithLabelValues("burn").Add(feeFloat(feeCents))
}

// LockboxOpened tracks a newly funded lockbox.
func (m *TokenMetrics) LockboxOpened(amount uint64) {
	if m == nil {
		return
	}
	m.lockboxesOpen.Inc()
	m.lockedBNJITotal.Add(float64(amount))
}

// LockboxClosed tracks a destroyed lockbox.
func (m *TokenMetrics) LockboxClosed(amount uint64) {
	if m == nil {
		return
	}
	m.lockboxesOpen.Dec()
	m.lockedBNJITotal.Sub(float64(amount))
}
