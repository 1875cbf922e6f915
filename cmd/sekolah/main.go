package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/sekolah-suite/sekolah/internal/app"
	"github.com/sekolah-suite/sekolah/internal/auth"
	"github.com/sekolah-suite/sekolah/internal/observability"
	"github.com/sekolah-suite/sekolah/internal/platform/cache"
	"github.com/sekolah-suite/sekolah/internal/platform/db"
	"github.com/sekolah-suite/sekolah/internal/rbac"
	"github.com/sekolah-suite/sekolah/internal/users"
	"github.com/sekolah-suite/sekolah/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// The permission matrix is validated before anything listens: serving
	// with an incomplete matrix risks a fail-open on an unmodeled pair.
	surface := rbac.DefaultSurface()
	matrix, err := loadMatrix(cfg, surface)
	if err != nil {
		logger.Error("load permission matrix", slog.Any("error", err))
		os.Exit(1)
	}
	guard := rbac.Guard{Evaluator: rbac.NewEvaluator(matrix), Logger: logger}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Error("token manager", slog.Any("error", err))
		os.Exit(1)
	}

	var revocations auth.RevocationStore
	var sweeper *auth.MemoryRevocationStore
	switch cfg.RevocationStore {
	case "memory":
		store := auth.NewMemoryRevocationStore()
		revocations, sweeper = store, store
	default:
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		revocations = auth.NewRedisRevocationStore(redisClient)
	}

	usersRepo := users.NewRepository(dbpool)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	authService := auth.NewService(users.NewAuthAdapter(usersRepo), tokens, revocations, logger)
	usersService := users.NewService(usersRepo, jobsClient)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthService:  authService,
		AuthHandler:  auth.NewHandler(logger, authService, metrics),
		UsersHandler: users.NewHandler(logger, usersService, guard),
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if sweeper != nil {
		group.Go(func() error {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					if removed := sweeper.Sweep(); removed > 0 {
						logger.Debug("revocation sweep", slog.Int("removed", removed))
					}
				}
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func loadMatrix(cfg *app.Config, surface *rbac.Surface) (*rbac.Matrix, error) {
	if cfg.RBACMatrixPath == "" {
		return rbac.DefaultMatrix(surface)
	}
	f, err := os.Open(cfg.RBACMatrixPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return rbac.LoadMatrix(f, surface)
}
