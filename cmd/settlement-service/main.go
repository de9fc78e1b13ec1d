package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/settlement-service/cache"
	httpapi "github.com/radieske/pool-settlement/internal/settlement-service/http"
	"github.com/radieske/pool-settlement/internal/settlement-service/ws"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
	"github.com/radieske/pool-settlement/internal/settlement/game"
	"github.com/radieske/pool-settlement/internal/settlement/repo"
	scache "github.com/radieske/pool-settlement/internal/shared/cache"
	"github.com/radieske/pool-settlement/internal/shared/clock"
	"github.com/radieske/pool-settlement/internal/shared/config"
	"github.com/radieske/pool-settlement/internal/shared/db"
	"github.com/radieske/pool-settlement/internal/shared/logger"
	"github.com/radieske/pool-settlement/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// catálogo de jogos (faixas, percentuais, limites)
	games, err := game.LoadCatalog(cfg.GamesFile)
	if err != nil {
		log.Fatal("failed to load game catalog", zap.String("file", cfg.GamesFile), zap.Error(err))
	}
	log.Info("game catalog loaded", zap.Strings("games", games.IDs()))

	// conecta com db Postgres e aplica o schema
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := repo.Migrate(ctx, pg); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}
	log.Info("postgres connected")

	// conecta com Redis (cache + pub/sub do dashboard)
	redisClient, err := scache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// métricas
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSettlement(reg)

	svc := engine.NewService(repo.NewPostgres(pg), games, clock.System(), log, engine.MetricsHooks(m))
	svc.ExposureWorkers = cfg.ExposureWorkers

	// dashboard: cada instância assina o canal e entrega aos seus clientes
	hub := ws.NewHub(log, func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := &httpapi.API{
		Svc:           svc,
		Cache:         cache.New(redisClient),
		Broadcast:     ws.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		Hub:           hub,
		Log:           log,
		Clock:         clock.System(),
		SettlementTTL: cfg.SettlementCacheTTL,
		ExposureTTL:   cfg.ExposureCacheTTL,
		ExposureTop:   cfg.ExposureTop,
	}

	// healthz: valida dependências críticas
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health server starting", zap.String("addr", msrv.Addr))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)
}
