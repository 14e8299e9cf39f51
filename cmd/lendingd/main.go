package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jehnsen/coop-lending/internal/application/usecase"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/service"
	"github.com/jehnsen/coop-lending/internal/infrastructure/adapter"
	"github.com/jehnsen/coop-lending/internal/infrastructure/config"
	"github.com/jehnsen/coop-lending/internal/infrastructure/kafka"
	pgstore "github.com/jehnsen/coop-lending/internal/infrastructure/persistence/postgres"
	"github.com/jehnsen/coop-lending/internal/infrastructure/scheduler"
	grpcPresentation "github.com/jehnsen/coop-lending/internal/presentation/grpc"
	"github.com/jehnsen/coop-lending/internal/presentation/rest"
	"github.com/jehnsen/coop-lending/pkg/auth"
	pkgkafka "github.com/jehnsen/coop-lending/pkg/kafka"
	"github.com/jehnsen/coop-lending/pkg/observability"
	pkgpostgres "github.com/jehnsen/coop-lending/pkg/postgres"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = migrateCmd(os.Args[2:])
	} else {
		err = run()
	}
	if err != nil {
		slog.Error("lending-service exited", "error", err)
		os.Exit(1)
	}
}

// migrateCmd runs "lendingd migrate [up|down]" against the configured
// database and exits.
func migrateCmd(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dsn := cfg.Postgres().DSN()

	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}
	switch direction {
	case "up":
		err = pkgpostgres.RunEmbeddedMigrations(dsn, pgstore.Migrations, pgstore.MigrationsDir)
	case "down":
		err = pkgpostgres.RollbackEmbeddedMigrations(dsn, pgstore.Migrations, pgstore.MigrationsDir)
	default:
		return fmt.Errorf("unknown migrate direction %q, want up or down", direction)
	}
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "direction", direction)
	return nil
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := observability.InitLogger(cfg.Logging())
	logger.Info("starting lending-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	// Telemetry.
	_, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, cfg.Tracing())
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
		}
	}

	// Database connection and schema.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pkgpostgres.NewPool(dbCtx, cfg.Postgres())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := pkgpostgres.RunEmbeddedMigrations(cfg.Postgres().DSN(), pgstore.Migrations, pgstore.MigrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := pgstore.NewStore(pool)

	// External ports.
	members, closeMembers, err := membershipDirectory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeMembers()

	checks := map[string]rest.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return pkgpostgres.HealthCheck(ctx, pool) },
	}

	var products port.ProductCatalog = adapter.NewPostgresProductCatalog(pool)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		products = adapter.NewCachedProductCatalog(products, rdb, cfg.Redis.ProductTTL, logger)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		logger.Info("redis not configured, product cache disabled")
	}

	// Use cases.
	policy := service.NewLoanPolicy()
	compute := usecase.NewComputePenaltiesUseCase(store, products, logger)
	sweep := usecase.NewPenaltySweepUseCase(store, compute, logger)
	uc := grpcPresentation.UseCases{
		Apply:            usecase.NewApplyLoanUseCase(store, members, products, policy, logger),
		Approve:          usecase.NewApproveLoanUseCase(store, logger),
		Reject:           usecase.NewRejectLoanUseCase(store, logger),
		Disburse:         usecase.NewDisburseLoanUseCase(store, logger),
		GetLoan:          usecase.NewGetLoanUseCase(store),
		Quote:            usecase.NewQuoteLoanUseCase(products, policy, logger),
		RecordPayment:    usecase.NewRecordPaymentUseCase(store, logger),
		ReversePayment:   usecase.NewReversePaymentUseCase(store, logger),
		ListPayments:     usecase.NewListPaymentsUseCase(store),
		ComputePenalties: compute,
		WaivePenalty:     usecase.NewWaivePenaltyUseCase(store, logger),
		ListPenalties:    usecase.NewListPenaltiesUseCase(store),
		Sweep:            sweep,
	}

	// Event relay.
	producer, err := pkgkafka.NewProducer(cfg.KafkaProducer())
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()
	relay := kafka.NewOutboxRelay(store,
		kafka.NewKafkaEventPublisher(producer, cfg.Kafka.Topic, logger),
		kafka.RelayConfig{BatchSize: cfg.Outbox.BatchSize, Interval: cfg.Outbox.Interval},
		logger)

	// Penalty sweep schedule.
	var sweeper *scheduler.PenaltySweepScheduler
	if cfg.Sweep.Enabled {
		sweeper, err = scheduler.NewPenaltySweepScheduler(cfg.Sweep.Schedule, cfg.Sweep.Timeout, sweep, logger)
		if err != nil {
			return err
		}
	}

	// gRPC server.
	jwtSvc, err := auth.NewJWTService(cfg.JWT())
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	grpcServer, err := grpcPresentation.NewServer(grpcPresentation.NewLendingHandler(uc, logger), logger, jwtSvc,
		grpcPresentation.ServerOptions{TLS: cfg.GRPCTLS(), Reflection: cfg.GRPC.Reflection})
	if err != nil {
		return err
	}

	// HTTP server (health checks and metrics).
	health := rest.NewHealthHandler(cfg.ServiceName, checks, metricsHandler, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           health.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start background work and servers.
	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(relayCtx)
	}()
	if sweeper != nil {
		sweeper.Start()
	}

	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", "error", runErr)
	}

	// Graceful shutdown: stop intake first, then drain background work so
	// events committed by in-flight calls still get relayed.
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	if _, err := relay.RelayOnce(shutdownCtx); err != nil {
		logger.Warn("final outbox relay failed", "error", err)
	}
	stopRelay()
	<-relayDone

	logger.Info("lending-service stopped")
	return runErr
}

// membershipDirectory connects to the back-office members database, or falls
// back to the static directory when no DSN is configured.
func membershipDirectory(cfg config.Config, logger *slog.Logger) (port.MembershipDirectory, func(), error) {
	if cfg.MembersDB.DSN == "" {
		logger.Warn("members database not configured, every member is eligible")
		return adapter.NewStaticMembershipDirectory(), func() {}, nil
	}

	db, err := adapter.OpenMembersDB(cfg.MembersDB.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("members database: %w", err)
	}
	mdCfg := adapter.DefaultMembershipDirectoryConfig()
	if cfg.MembersDB.QueryTimeout > 0 {
		mdCfg.QueryTimeout = cfg.MembersDB.QueryTimeout
	}
	mdCfg.MaxRetries = cfg.MembersDB.MaxRetries
	return adapter.NewMembershipDirectory(db, mdCfg, logger), func() { _ = db.Close() }, nil
}
