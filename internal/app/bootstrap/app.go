// Package bootstrap wires configuration, storage and handlers into a runnable API.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/experiment-scheduler/internal/api/router"
	"github.com/wolfman30/experiment-scheduler/internal/bookings"
	appconfig "github.com/wolfman30/experiment-scheduler/internal/config"
	"github.com/wolfman30/experiment-scheduler/internal/dropout"
	"github.com/wolfman30/experiment-scheduler/internal/http/handlers"
	"github.com/wolfman30/experiment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/experiment-scheduler/internal/schedules"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

// App is the wired API server state.
type App struct {
	Handler http.Handler
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	stop    chan struct{}
}

// BuildApp validates cfg and wires every component. reg receives the scheduler metrics; nil uses a fresh registry.
func BuildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg *prometheus.Registry) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := cfg.Scheduler()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.NewSchedulerMetrics(reg)

	pool, err := BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	redisClient := BuildRedisClient(ctx, cfg, logger, true)

	store := schedules.NewStore(pool)
	var cache *schedules.SnapshotCache
	if redisClient != nil {
		cache = schedules.NewSnapshotCache(redisClient, cfg.SnapshotCacheTTL)
	}
	snapshots := schedules.NewSnapshotSource(store, cache, m, logger)

	bookingService := bookings.NewService(store, snapshots, rules, m, logger)
	dropoutService := dropout.NewService(store, snapshots, m, logger)

	stop := make(chan struct{})
	handler := router.New(&router.Config{
		Logger:             logger,
		Participants:       handlers.NewParticipantHandler(bookingService, logger),
		Experimenter:       handlers.NewExperimenterHandler(store, snapshots, dropoutService, rules, cfg.ExcludedParticipants, logger),
		Health:             handlers.NewHealthHandler(ReadinessChecks(pool, redisClient), logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		Stop:               stop,
	})

	logger.Info("scheduler wired",
		"total_sessions", rules.Limits.TotalSessions,
		"max_concurrent", rules.Finder.MaxConcurrent,
		"snapshot_cache", cache != nil,
	)
	return &App{Handler: handler, Pool: pool, Redis: redisClient, stop: stop}, nil
}

// Close releases connections and background workers.
func (a *App) Close() {
	if a == nil {
		return
	}
	close(a.stop)
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
