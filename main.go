package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/apiclient"
	"github.com/example/nutriscan/internal/auth"
	"github.com/example/nutriscan/internal/camera"
	"github.com/example/nutriscan/internal/config"
	"github.com/example/nutriscan/internal/handlers"
	"github.com/example/nutriscan/internal/healthcheck"
	"github.com/example/nutriscan/internal/logging"
	"github.com/example/nutriscan/internal/profile"
	"github.com/example/nutriscan/internal/repository"
	"github.com/example/nutriscan/internal/session"
	"github.com/example/nutriscan/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	defer initCancel()

	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	sessions := initSessions(initCtx, cfg, logger)
	if mem, ok := sessions.(*session.MemoryStore); ok {
		go mem.RunSweeper(ctx, logger)
	}

	var history usecase.ScanLogRepository
	if repo := initHistory(initCtx, cfg, logger); repo != nil {
		history = repo
	}
	scanner := usecase.NewScanUseCase(client, sessions, history, logger)
	profiles := profile.NewStore(client, logger)

	// A nil *SnapshotDevice must not reach the registry as a non-nil Device.
	var device camera.Device
	if cfg.CameraEnabled() {
		device = camera.NewSnapshotDevice(cfg.CameraRearURL, cfg.CameraFrontURL, cfg.APITimeout)
	}
	cameras := camera.NewRegistry(device, logger)
	go cameras.RunSweeper(ctx, cfg.CameraIdleTimeout)
	defer cameras.ReleaseAll()

	monitor := healthcheck.NewMonitor(client, cfg.HealthInterval, logger)
	go monitor.Run(ctx)
	defer monitor.Shutdown()

	if cfg.GRPCHealthAddr != "" {
		grpcServer, err := serveGRPCHealth(cfg.GRPCHealthAddr, monitor, logger)
		if err != nil {
			logger.Fatal("failed to start grpc health server", zap.Error(err))
		}
		defer grpcServer.GracefulStop()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	err = handlers.RegisterRoutes(r, handlers.Dependencies{
		Sessions:    sessions,
		Scanner:     scanner,
		Profiles:    profiles,
		Uploader:    acquisition.NewUploader(cfg.MaxUploadBytes),
		Cameras:     cameras,
		Health:      monitor,
		Auth:        auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to register routes", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("NutriScan listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.Bool("camera", cameras.Enabled()),
		zap.Bool("history", scanner.HistoryEnabled()),
	)
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// initSessions uses redis when REDIS_ADDR is set and process memory otherwise.
func initSessions(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) session.Store {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL)
	}
	client := initRedis(ctx, cfg.RedisAddr, zapLogger)
	return session.NewRedisStore(session.NewRedisCache(client), cfg.SessionTTL, zapLogger)
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.String("addr", addr), zap.Error(err))
	}
	return client
}

// initHistory returns nil when no DATABASE_DSN is configured.
func initHistory(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) *repository.ScanLogRepository {
	if cfg.DatabaseDSN == "" {
		return nil
	}
	db, err := repository.Open(ctx, cfg.DatabaseDSN, cfg.Debug)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	repo := repository.NewScanLogRepository(db, zapLogger)
	if err := repo.AutoMigrate(ctx); err != nil {
		zapLogger.Fatal("auto migrate failed", zap.Error(err))
	}
	return repo
}

func serveGRPCHealth(addr string, monitor *healthcheck.Monitor, zapLogger *zap.Logger) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := healthcheck.NewGRPCServer(monitor)
	go func() {
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			zapLogger.Error("grpc health server stopped", zap.Error(err))
		}
	}()
	zapLogger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	return server, nil
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithListener(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, listener, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
