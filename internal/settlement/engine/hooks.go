package engine

import (
	"errors"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/liability"
	"github.com/radieske/pool-settlement/internal/shared/metrics"
)

// MetricsHooks liga os callbacks do Service às métricas Prometheus
func MetricsHooks(m *metrics.Settlement) Hooks {
	return Hooks{
		OnSettled: func(res domain.SettlementResult, replayed bool, took time.Duration) {
			m.ObserveSettled(res.DrawID, len(res.Tickets), replayed, took)
		},
		OnSettleFailed: func(_ string, err error) {
			m.ObserveFailure(errors.Is(err, domain.ErrIncompleteResult))
		},
		OnInvalidPicks: m.ObserveInvalidPicks,
		OnExposure: func(rep liability.Report) {
			worst, _ := rep.Worst()
			m.ObserveExposure(rep.DrawID, worst.PayoutCents)
		},
	}
}
