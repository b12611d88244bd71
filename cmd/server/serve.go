package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"apeguard/internal/governance"
	jwttoken "apeguard/internal/jwt_token"
	"apeguard/internal/platform/config"
	"apeguard/internal/platform/httpserver"
	"apeguard/internal/platform/logger"
	"apeguard/internal/platform/metrics"
	"apeguard/internal/platform/postgres"
	"apeguard/internal/platform/redis"
	"apeguard/internal/platform/tracing"
	"apeguard/internal/registry/handler"
	regmetrics "apeguard/internal/registry/metrics"
	"apeguard/internal/registry/service"
	"apeguard/internal/registry/store"
	"apeguard/pkg/platform/audit"
	"apeguard/pkg/platform/audit/publisher"
	auditkafka "apeguard/pkg/platform/audit/store/kafka"
	auditmemory "apeguard/pkg/platform/audit/store/memory"
	auditpostgres "apeguard/pkg/platform/audit/store/postgres"
	"apeguard/pkg/platform/circuit"
	"apeguard/pkg/platform/httputil"
	authmw "apeguard/pkg/platform/middleware/auth"
	request "apeguard/pkg/platform/middleware/request"
	"apeguard/pkg/platform/middleware/requesttime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry HTTP API",
	Long: `Run the registry HTTP API. Snapshots go to Redis when redis.url is set,
audit events to Postgres when postgres.dsn is set and to Kafka when
kafka.brokers is set; otherwise both stay in memory.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	infra, err := connect(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer infra.close(log)

	pub := publisher.NewPublisher(infra.auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithLogger(log),
	)
	svc := service.New(
		service.WithLogger(log),
		service.WithAuditPublisher(pub),
		service.WithAuditReader(infra.auditReader),
		service.WithMetrics(regmetrics.New(reg)),
		service.WithSnapshotStore(infra.snapshots),
		service.WithTracer(tp.Tracer()),
	)
	executor, err := deploy(ctx, cfg, svc, log, governance.WithAuditPublisher(pub))
	if err != nil {
		_ = pub.Close()
		return fmt.Errorf("deploy registries: %w", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	router := newRouter(routerDeps{
		logger:        log,
		registerer:    reg,
		gatherer:      reg,
		catalog:       svc,
		executor:      executor,
		requireCaller: authmw.RequireCaller(jwttoken.NewCallerValidator(jwtService), log),
		health:        infra.health,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	serverDone := make(chan struct{})
	g.Go(func() error {
		defer close(serverDone)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	// Audit events of in-flight requests are drained once the server stops.
	g.Go(func() error {
		<-serverDone
		return pub.Close()
	})
	return g.Wait()
}

type routerDeps struct {
	logger        *slog.Logger
	registerer    prometheus.Registerer
	gatherer      prometheus.Gatherer
	catalog       handler.Service
	executor      *governance.Executor
	requireCaller func(http.Handler) http.Handler
	health        func(ctx context.Context) error
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(deps.logger))
	r.Use(metrics.NewHTTP(deps.registerer).Middleware)

	r.Handle("/metrics", metrics.Handler(deps.gatherer))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.health != nil {
			if err := deps.health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.New(deps.catalog, deps.logger).Register(r, deps.requireCaller)
	if deps.executor != nil {
		governance.NewHandler(deps.executor, deps.logger).Register(r, deps.requireCaller)
	}
	return r
}

// infrastructure holds the optional backing services selected by config.
type infrastructure struct {
	snapshots   store.SnapshotStore
	auditStore  audit.Store
	auditReader audit.Reader
	health      func(ctx context.Context) error
	closers     []func() error
}

func (i *infrastructure) close(log *slog.Logger) {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			log.Error("failed to close connection", "error", err)
		}
	}
}

func connect(ctx context.Context, cfg config.Config, reg prometheus.Registerer, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{snapshots: store.NewInMemory()}
	fail := func(err error) (*infrastructure, error) {
		infra.close(log)
		return nil, err
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if rc != nil {
		infra.snapshots = store.NewRedis(rc.Client)
		infra.health = rc.Health
		infra.closers = append(infra.closers, rc.Close)
		log.Info("snapshots stored in redis")
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return fail(err)
	}
	var primary interface {
		audit.Store
		audit.Reader
	}
	if db != nil {
		infra.closers = append(infra.closers, db.Close)
		pg := auditpostgres.New(db)
		if err := pg.Migrate(ctx); err != nil {
			return fail(fmt.Errorf("migrate audit schema: %w", err))
		}
		primary = pg
		log.Info("audit events stored in postgres")
	} else {
		primary = auditmemory.NewInMemoryStore()
	}
	infra.auditReader = primary
	stores := audit.Fanout{primary}

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := auditkafka.NewClient(cfg.Kafka.Brokers)
		if err != nil {
			return fail(err)
		}
		infra.closers = append(infra.closers, func() error {
			client.Close()
			return nil
		})
		if err := auditkafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1); err != nil {
			return fail(fmt.Errorf("ensure audit topic: %w", err))
		}
		dropped := promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "apeguard_audit_events_dropped_total",
			Help: "Audit events not streamed to kafka because the circuit was open.",
		})
		breaker := circuit.New("kafka-audit",
			circuit.WithFailureThreshold(cfg.Kafka.BreakerThreshold),
			circuit.WithCooldown(cfg.Kafka.BreakerCooldown))
		stores = append(stores, audit.Guarded{
			Store:   auditkafka.NewSink(client, cfg.Kafka.Topic),
			Breaker: breaker,
			OnDrop:  func(audit.Event) { dropped.Inc() },
		})
		log.Info("audit events streamed to kafka", "topic", cfg.Kafka.Topic)
	}
	infra.auditStore = stores
	return infra, nil
}
