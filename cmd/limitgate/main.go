package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlexKimmel/LimitGate/internal/audit"
	"github.com/AlexKimmel/LimitGate/internal/auth"
	"github.com/AlexKimmel/LimitGate/internal/config"
	"github.com/AlexKimmel/LimitGate/internal/gateway"
	"github.com/AlexKimmel/LimitGate/internal/obs"
	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
	"github.com/AlexKimmel/LimitGate/internal/ratelimit/memory"
	"github.com/AlexKimmel/LimitGate/internal/ratelimit/redisstore"
	"github.com/AlexKimmel/LimitGate/internal/score"
)

func main() {
	cfg, err := config.Load("./config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := obs.SetupLogger(cfg.Observability.LogLevel)

	store, err := newStore(cfg.Store)
	if err != nil {
		log.Fatalf("init counter store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("close counter store")
		}
	}()

	auditLog, err := audit.New(cfg.Observability.AuditPath, logger)
	if err != nil {
		log.Fatalf("open audit log: %v", err)
	}
	defer func() { _ = auditLog.Close() }()

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)

	eng, err := ratelimit.New(cfg.Limits.EngineConfig(), ratelimit.Deps{
		Store:      store,
		Scorer:     metrics.ObserveScorer(score.NewVelocity(store, cfg.Limits.ScorerHostileRate)),
		Authorizer: auth.TierAuthorizer{},
		Audit:      auditLog,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("init rate limit engine: %v", err)
	}

	pairs := map[string]auth.Principal{}
	for _, k := range cfg.Auth.Keys {
		if k.Secret != "" && k.ID != "" {
			pairs[k.Secret] = auth.Principal{ID: k.ID, Tier: k.Tier}
		}
	}
	authStore := auth.NewStatic(cfg.Auth.Header, pairs)

	skip := map[string]struct{}{
		"/health":                        {},
		"/version":                       {},
		cfg.Observability.PrometheusPath: {},
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("v0.1.0"))
	})
	r.Method(http.MethodGet, cfg.Observability.PrometheusPath,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	api := &apiHandlers{eng: eng, metrics: metrics}
	r.Route("/api", func(r chi.Router) {
		r.Get("/items", api.listItems)
		r.Post("/items", api.createItem)
		r.Delete("/items/{id}", api.deleteItem)
		r.Get("/items/export", api.exportItems)
		r.Get("/search", api.search)
		r.Post("/bulk", api.bulkImport)
	})
	r.Post("/admin/ratelimits/reset", api.resetLimits)

	handler := gateway.Chain(
		r,
		obs.Logger(logger),
		gateway.BodyLimit(cfg.Server.MaxBody()),
		authStore.Middleware(skip),
		gateway.RateLimit(eng, "request", skip, metrics.OnLimited, metrics.OnError),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout(),
		IdleTimeout:       cfg.Server.IdleTimeout(),
		ReadTimeout:       cfg.Server.ReadTimeout(),
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("bye")
}

func newStore(cfg config.Store) (ratelimit.CounterStore, error) {
	if cfg.Type == "redis" {
		return redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return memory.New(), nil
}
