package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/results-simulator/generator"
	"github.com/radieske/pool-settlement/internal/shared/config"
	"github.com/radieske/pool-settlement/internal/shared/kafka"
	"github.com/radieske/pool-settlement/internal/shared/logger"
	"github.com/radieske/pool-settlement/internal/shared/metrics"
)

// Publica resultados aleatórios em draw_results_entered para os concursos de SIM_DRAW_IDS.
// SIM_INTERVAL=0 publica uma vez e sai; com intervalo, repete (útil para testar reentregas).
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	draws := splitIDs(cfg.SimDrawIDs)
	if len(draws) == 0 {
		log.Fatal("SIM_DRAW_IDS is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "results_simulator_published_total",
		Help: "Resultados simulados publicados",
	}, []string{"game_type"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "results_simulator_failures_total",
		Help: "Falhas ao gerar ou publicar resultados",
	})
	reg.MustRegister(sent, failed)
	if cfg.SimInterval > 0 {
		msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, nil)
		defer msrv.Close()
	}

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultsEntered)
	defer writer.Close()

	gen := generator.New(time.Now().UnixNano())
	opts := generator.Options{
		GameType:     cfg.SimGameType,
		MatchCount:   cfg.SimMatchCount,
		NumberDigits: cfg.SimNumberDigits,
		Partial:      cfg.SimPartial,
		Source:       cfg.ServiceName,
	}

	publish := func() {
		for _, id := range draws {
			ev, err := gen.Generate(id, opts, time.Now())
			if err != nil {
				failed.Inc()
				log.Error("generate results", zap.String("draw_id", id), zap.Error(err))
				continue
			}
			if err := kafka.WriteJSON(ctx, writer, id, ev); err != nil {
				failed.Inc()
				log.Error("publish results", zap.String("draw_id", id), zap.Error(err))
				continue
			}
			sent.WithLabelValues(ev.GameType).Inc()
			log.Info("results published",
				zap.String("draw_id", id),
				zap.String("game_type", ev.GameType),
				zap.Int("matches", len(ev.Matches)),
				zap.String("drawn_value", ev.DrawnValue),
			)
		}
	}

	publish()
	if cfg.SimInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.SimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}

func splitIDs(csv string) []string {
	var out []string
	for _, id := range strings.Split(csv, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
