package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados possíveis de uma execução de apuração (label "outcome")
const (
	OutcomeSettled    = "settled"
	OutcomeReplayed   = "replayed"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
)

// Settlement agrupa as métricas da apuração e da exposição
type Settlement struct {
	Runs              *prometheus.CounterVec
	TicketsClassified prometheus.Counter
	InvalidPicks      *prometheus.CounterVec
	Duration          prometheus.Histogram
	ExposureTop       *prometheus.GaugeVec
}

// NewSettlement cria e registra as métricas em reg
func NewSettlement(reg prometheus.Registerer) *Settlement {
	m := &Settlement{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_runs_total",
			Help: "Execuções de apuração por resultado",
		}, []string{"outcome"}),
		TicketsClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_tickets_classified_total",
			Help: "Bilhetes classificados em apurações efetivadas",
		}),
		InvalidPicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_invalid_picks_total",
			Help: "Bilhetes com palpite inválido encontrados na apuração",
		}, []string{"game"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duração da apuração de um concurso",
			Buckets: prometheus.DefBuckets,
		}),
		ExposureTop: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exposure_top_payout_cents",
			Help: "Maior pagamento hipotético entre os candidatos do concurso",
		}, []string{"draw"}),
	}
	reg.MustRegister(m.Runs, m.TicketsClassified, m.InvalidPicks, m.Duration, m.ExposureTop)
	return m
}

// ObserveSettled registra uma apuração concluída (nova ou reapresentada).
// Concurso apurado não tem mais exposição: a série do gauge é removida.
func (m *Settlement) ObserveSettled(drawID string, tickets int, replayed bool, took time.Duration) {
	m.ExposureTop.DeleteLabelValues(drawID)
	if replayed {
		m.Runs.WithLabelValues(OutcomeReplayed).Inc()
		return
	}
	m.Runs.WithLabelValues(OutcomeSettled).Inc()
	m.TicketsClassified.Add(float64(tickets))
	m.Duration.Observe(took.Seconds())
}

// ObserveFailure: incompleto conta à parte dos erros reais
func (m *Settlement) ObserveFailure(incomplete bool) {
	if incomplete {
		m.Runs.WithLabelValues(OutcomeIncomplete).Inc()
		return
	}
	m.Runs.WithLabelValues(OutcomeFailed).Inc()
}

func (m *Settlement) ObserveInvalidPicks(gameID string, n int) {
	m.InvalidPicks.WithLabelValues(gameID).Add(float64(n))
}

func (m *Settlement) ObserveExposure(drawID string, topPayoutCents int64) {
	m.ExposureTop.WithLabelValues(drawID).Set(float64(topPayoutCents))
}
