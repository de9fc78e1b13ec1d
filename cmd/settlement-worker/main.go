package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/settlement-worker/consumer"
	"github.com/radieske/pool-settlement/internal/settlement-worker/producer"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
	"github.com/radieske/pool-settlement/internal/settlement/game"
	"github.com/radieske/pool-settlement/internal/settlement/repo"
	"github.com/radieske/pool-settlement/internal/shared/clock"
	"github.com/radieske/pool-settlement/internal/shared/config"
	"github.com/radieske/pool-settlement/internal/shared/db"
	"github.com/radieske/pool-settlement/internal/shared/kafka"
	"github.com/radieske/pool-settlement/internal/shared/logger"
	"github.com/radieske/pool-settlement/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	games, err := game.LoadCatalog(cfg.GamesFile)
	if err != nil {
		log.Fatal("game catalog", zap.String("file", cfg.GamesFile), zap.Error(err))
	}

	// Postgres: mesma base do settlement-service
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	if err := repo.Migrate(ctx, pg); err != nil {
		log.Fatal("pg migrate", zap.Error(err))
	}

	// Kafka consumer: resultados lançados
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicResultsEntered, cfg.ConsumerGroup)
	defer reader.Close()

	// Kafka producer: concursos apurados e, opcionalmente, DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawSettled)
	defer settledWriter.Close()

	var dlq kafka.MessageWriter
	if cfg.TopicResultsEnteredDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultsEnteredDLQ)
		defer w.Close()
		dlq = w
	}

	// Métricas Prometheus
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSettlement(reg)
	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_worker_consumed_total",
		Help: "Mensagens de resultado consumidas",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_worker_published_total",
		Help: "Eventos draw_settled publicados",
	}, []string{"replayed"})
	dead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_worker_dlq_total",
		Help: "Mensagens enviadas para a DLQ por fase",
	}, []string{"stage"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_worker_errors_total",
		Help: "Erros do worker por fase",
	}, []string{"stage"})
	reg.MustRegister(consumed, published, dead, errs)

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return nil
	})
	log.Info("metrics/health", zap.String("addr", msrv.Addr))

	svc := engine.NewService(repo.NewPostgres(pg), games, clock.System(), log, engine.MetricsHooks(m))

	p := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Settler:    svc,
		Publisher:  producer.NewKafkaPublisher(settledWriter, cfg.TopicDrawSettled),
		DLQ:        dlq,
		Clock:      clock.System(),
		MaxRetries: cfg.MaxRetries,
		Backoff:    300 * time.Millisecond,
		OnConsumed: consumed.Inc,
		OnSettled: func(replayed bool) {
			published.WithLabelValues(fmt.Sprint(replayed)).Inc()
		},
		OnDLQ:   func(stage string) { dead.WithLabelValues(stage).Inc() },
		OnError: func(stage string) { errs.WithLabelValues(stage).Inc() },
	}

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicResultsEntered),
		zap.String("publish", cfg.TopicDrawSettled),
		zap.String("dlq", cfg.TopicResultsEnteredDLQ),
	)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}
