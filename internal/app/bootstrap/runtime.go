package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/economy-bridge/internal/adapters/cache"
	eventadapter "github.com/viralforge/economy-bridge/internal/adapters/events"
	"github.com/viralforge/economy-bridge/internal/adapters/gateway"
	grpcadapter "github.com/viralforge/economy-bridge/internal/adapters/grpc"
	httpadapter "github.com/viralforge/economy-bridge/internal/adapters/http"
	"github.com/viralforge/economy-bridge/internal/adapters/postgres"
	"github.com/viralforge/economy-bridge/internal/adapters/simhost"
	"github.com/viralforge/economy-bridge/internal/application"
	"github.com/viralforge/economy-bridge/internal/ports"
)

const hostBridgeHealthName = "viralforge.economy.v1.HostBridgeService"

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func(context.Context)
}

// Module is the wired economy module. Service is nil when the module is inert.
type Module struct {
	Service   *application.Service
	Directory *simhost.Directory
	cleanupFn func(context.Context)
}

func (m *Module) Close(ctx context.Context) {
	if m.cleanupFn != nil {
		m.cleanupFn(ctx)
	}
}

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.LogLevel).With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping economy bridge", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	module, err := BuildModule(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router := httpadapter.NewRouter(httpadapter.NewHandler(module.Service))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if module.Service != nil {
		grpcadapter.Register(grpcServer, grpcadapter.NewHostBridgeServer(module.Service, module.Directory))
		healthSrv.SetServingStatus(hostBridgeHealthName, healthpb.HealthCheckResponse_SERVING)
	} else {
		healthSrv.SetServingStatus(hostBridgeHealthName, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		module.Close(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    module.Service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		cleanupFn:  module.Close,
	}, nil
}

// BuildModule discovers the gateway and wires the economy module's adapters. When the
// configuration disables the module or discovery gets no answer, the returned Module
// has a nil Service and the process serves health endpoints only.
func BuildModule(ctx context.Context, cfg Config, logger *slog.Logger) (*Module, error) {
	if ok, reason := cfg.ModuleStatus(); !ok {
		logger.Warn("module disabled", "operation", "bootstrap", "outcome", "skipped", "reason", reason)
		return &Module{}, nil
	}

	client := gateway.NewClient(cfg.GatewayTimeout)
	gatewayURL, err := application.DiscoverGatewayURL(ctx, client, cfg.InitURL, cfg.Environment)
	if err != nil {
		logger.Error("module disabled",
			"operation", "discover_gateway",
			"outcome", "failure",
			"init_url", cfg.InitURL,
			"error", err,
		)
		return &Module{}, nil
	}
	logger.Info("gateway discovered", "operation", "discover_gateway", "outcome", "success", "gateway_url", gatewayURL)

	var closers []func(context.Context)
	cleanup := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](ctx)
		}
	}

	secrets, closeSecrets, err := openSecretStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeSecrets)

	journal, closeJournal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		cleanup(ctx)
		return nil, err
	}
	closers = append(closers, closeJournal)

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		cleanup(ctx)
		return nil, err
	}
	closers = append(closers, closePublisher)

	directory := simhost.NewDirectory(publisher)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			GatewayURL:       gatewayURL,
			GridURL:          cfg.GridURL,
			GridShortName:    cfg.GridShortName,
			SimulatorVersion: cfg.SimulatorVersion,
			ClaimWorkers:     cfg.ClaimWorkers,
		},
		Gateway:     client,
		Secrets:     secrets,
		Host:        directory,
		Interaction: directory,
		Journal:     journal,
		Logger:      logger,
	})
	return &Module{Service: svc, Directory: directory, cleanupFn: cleanup}, nil
}

func openSecretStore(ctx context.Context, cfg Config) (ports.SecretStore, func(context.Context), error) {
	if cfg.RedisURL == "" {
		return cacheadapter.NewMemorySecretStore(), func(context.Context) {}, nil
	}
	client, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return cacheadapter.NewRedisSecretStore(client), func(context.Context) { _ = client.Close() }, nil
}

func openJournal(ctx context.Context, cfg Config, logger *slog.Logger) (ports.CallbackJournal, func(context.Context), error) {
	if cfg.DatabaseURL == "" {
		return eventadapter.NewLoggingJournal(logger), func(context.Context) {}, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = postgres.Close(db)
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return postgres.NewCallbackJournal(db), func(context.Context) { _ = postgres.Close(db) }, nil
}

func openPublisher(cfg Config, logger *slog.Logger) (ports.EventPublisher, func(context.Context), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventadapter.NewLoggingPublisher(logger), func(context.Context) {}, nil
	}
	publisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.InteractionTopic, cfg.InteractionTopics)
	if err != nil {
		return nil, nil, fmt.Errorf("init kafka publisher: %w", err)
	}
	return publisher, func(context.Context) { _ = publisher.Close() }, nil
}

// RunAPI serves HTTP and gRPC until a signal arrives or a server fails, then closes
// every active region at the gateway and releases adapters.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutdown started")
		r.shutdown()
		return nil
	})

	err := g.Wait()
	if err != nil {
		r.logger.Error("server failure", "error", err)
	}
	return err
}

func (r *Runtime) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r.grpcServer.GracefulStop()
	_ = r.httpServer.Shutdown(shutdownCtx)
	if r.service != nil {
		if err := r.service.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("close regions failed", "operation", "shutdown", "error", err)
		}
		if err := r.service.Close(shutdownCtx); err != nil {
			r.logger.Warn("claims still running at shutdown", "operation", "shutdown", "error", err)
		}
	}
	r.cleanupFn(shutdownCtx)
}
