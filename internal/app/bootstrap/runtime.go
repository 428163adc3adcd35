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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/nimbusboard/nimbusboard/internal/adapters/cache"
	eventadapter "github.com/nimbusboard/nimbusboard/internal/adapters/events"
	httpadapter "github.com/nimbusboard/nimbusboard/internal/adapters/http"
	"github.com/nimbusboard/nimbusboard/internal/adapters/postgres"
	"github.com/nimbusboard/nimbusboard/internal/adapters/security"
	"github.com/nimbusboard/nimbusboard/internal/application"
	"github.com/nimbusboard/nimbusboard/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	sweep      *eventadapter.CodeSweepWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping session service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	sealer, err := security.NewCookieSealer(cfg.CookieSecret)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init cookie sealer: %w", err)
	}

	providers := make(map[string]security.ProviderConfig, len(cfg.OAuthProviders))
	for name, p := range cfg.OAuthProviders {
		providers[name] = security.ProviderConfig{
			AuthorizeURL: p.AuthorizeURL,
			TokenURL:     p.TokenURL,
			UserInfoURL:  p.UserInfoURL,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Scopes:       p.Scopes,
		}
	}
	oauthClient := security.NewOAuthClient(security.OAuthClientConfig{
		HTTPClient: &http.Client{Timeout: cfg.OAuthHTTPTimeout},
		Providers:  providers,
	})

	var emailSender ports.EmailSender
	var publisher ports.EventPublisher
	closers := []func() error{redisClient.Close, sqlDB.Close}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaEmail, err := eventadapter.NewKafkaEmailSender(cfg.KafkaBrokers, cfg.KafkaEmailTopic)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka email sender: %w", err)
		}
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, nil)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		emailSender = kafkaEmail
		publisher = kafkaPublisher
		closers = append(closers, kafkaEmail.Close, kafkaPublisher.Close)
	} else {
		logger.Warn("kafka brokers not configured; email and events go to the log")
		emailSender = eventadapter.NewLoggingEmailSender(logger)
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			SessionLifetime: cfg.SessionLifetime,
			CodeValidity:    cfg.CodeValidity,
			CodeLength:      cfg.CodeLength,
			SendThreshold:   cfg.SendThreshold,
			SendWindow:      cfg.SendWindow,
			EmailFrom:       cfg.EmailFrom,
			OAuthStateTTL:   cfg.OAuthStateTTL,
		},
		Sessions:      repos.Sessions,
		Codes:         repos.Codes,
		Users:         repos.Users,
		Customers:     repos.Customers,
		OAuthAccounts: repos.OAuth,
		Outbox:        repos.Outbox,
		Email:         emailSender,
		Provider:      oauthClient,
		Geo: security.StaticGeoResolver{
			City:    cfg.GeoCity,
			Region:  cfg.GeoRegion,
			Country: cfg.GeoCountry,
		},
		Throttle:   cacheadapter.NewRedisSendThrottleStore(redisClient),
		OAuthState: cacheadapter.NewRedisOAuthStateStore(redisClient),
		Sealer:     sealer,
	})

	registry := prometheus.NewRegistry()
	handler := httpadapter.NewHandler(svc, httpadapter.HandlerConfig{
		SecureCookies: cfg.SecureCookies,
		Registry:      registry,
	})
	router := httpadapter.NewRouter(handler, registry)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	sweep := eventadapter.NewCodeSweepWorker(
		logger,
		svc,
		cacheadapter.NewRedisSweepLock(redisClient),
		cfg.SweepInterval,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		sweep:      sweep,
		cleanupFn: func(ctx context.Context) {
			for _, closeFn := range closers {
				_ = closeFn()
			}
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		errCh <- r.outbox.Run(ctx)
	}()
	go func() {
		r.logger.Info("code sweep worker started")
		errCh <- r.sweep.Run(ctx)
	}()

	err := <-errCh
	stop()
	<-errCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
