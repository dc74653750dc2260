// Package metrics — счётчики Prometheus для подсчёта Light Score и минта.
// Коллекторы регистрируются один раз в реестре по умолчанию; методы
// безопасны для nil-получателя.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LightMetrics — коллекторы движка.
type LightMetrics struct {
	eventsIngested *prometheus.CounterVec
	daysScored     *prometheus.CounterVec
	unknownActions prometheus.Counter
	epochPool      *prometheus.GaugeVec
	epochMinted    *prometheus.GaugeVec
	epochUnminted  *prometheus.GaugeVec
	cappedUsers    prometheus.Counter
	closeDuration  prometheus.Histogram
}

var (
	lightOnce     sync.Once
	lightRegistry *LightMetrics
)

// Light возвращает общий набор коллекторов.
func Light() *LightMetrics {
	lightOnce.Do(func() {
		lightRegistry = &LightMetrics{
			eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "light_events_ingested_total",
				Help: "Action events received by outcome.",
			}, []string{"result"}),
			daysScored: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "light_days_scored_total",
				Help: "User-days scored by rule version.",
			}, []string{"rule_version"}),
			unknownActions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "light_unknown_actions_total",
				Help: "Actions with a type missing from the weight map.",
			}),
			epochPool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "mint_epoch_pool",
				Help: "Mint pool of a closed epoch, in FUN.",
			}, []string{"epoch"}),
			epochMinted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "mint_epoch_minted",
				Help: "FUN allocated to users in a closed epoch.",
			}, []string{"epoch"}),
			epochUnminted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "mint_epoch_unminted",
				Help: "FUN left unminted in a closed epoch.",
			}, []string{"epoch"}),
			cappedUsers: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "mint_capped_users_total",
				Help: "Allocations limited by the anti-whale cap.",
			}),
			closeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "epoch_close_duration_seconds",
				Help:    "Time spent finalising an epoch.",
				Buckets: prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			lightRegistry.eventsIngested,
			lightRegistry.daysScored,
			lightRegistry.unknownActions,
			lightRegistry.epochPool,
			lightRegistry.epochMinted,
			lightRegistry.epochUnminted,
			lightRegistry.cappedUsers,
			lightRegistry.closeDuration,
		)
	})
	return lightRegistry
}

func (m *LightMetrics) ObserveEventIngested(result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.eventsIngested.WithLabelValues(result).Inc()
}

func (m *LightMetrics) ObserveDayScored(ruleVersion string, unknownActions int) {
	if m == nil {
		return
	}
	m.daysScored.WithLabelValues(ruleVersion).Inc()
	if unknownActions > 0 {
		m.unknownActions.Add(float64(unknownActions))
	}
}

// ObserveEpochClosed записывает итоги закрытия эпохи (суммы в FUN).
func (m *LightMetrics) ObserveEpochClosed(epochID string, pool, minted, unminted float64, capped int, took time.Duration) {
	if m == nil {
		return
	}
	m.epochPool.WithLabelValues(epochID).Set(pool)
	m.epochMinted.WithLabelValues(epochID).Set(minted)
	m.epochUnminted.WithLabelValues(epochID).Set(unminted)
	if capped > 0 {
		m.cappedUsers.Add(float64(capped))
	}
	m.closeDuration.Observe(took.Seconds())
}
