package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/config"
	"github.com/iliyamo/seat-pos/internal/database"
	"github.com/iliyamo/seat-pos/internal/handler"
	"github.com/iliyamo/seat-pos/internal/middleware"
	"github.com/iliyamo/seat-pos/internal/queue"
	"github.com/iliyamo/seat-pos/internal/repository"
	"github.com/iliyamo/seat-pos/internal/router"
	"github.com/iliyamo/seat-pos/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient() // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	local, closeLocal := openLocal(ctx, cfg, rdb, logger)
	defer closeLocal()
	remote, closeRemote := openRemote(ctx, cfg, logger)
	defer closeRemote()

	gw := repository.NewGateway(remote, local,
		repository.WithRemoteTimeout(cfg.RemoteTimeout),
		repository.WithLogger(logger.Named("gateway")),
	)

	var events service.Publisher
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, 256, logger.Named("publisher"))
		go pub.Run(ctx)
		go queue.StartConsumer(ctx, cfg.AMQPURL, queue.NewSalesLog(cfg.EventLogDir), logger.Named("consumer"))
		events = pub
	}

	clock := service.SystemClock{Location: cfg.Location, Override: cfg.DebugDate}
	sess := service.NewSession(service.Deps{
		Gateway: gw,
		Clock:   clock,
		Events:  events,
		Logger:  logger,
		Notify: func(previous, current string) {
			logger.Info("a new business day has started", zap.String("previous", previous), zap.String("current", current))
		},
	})
	localMode, res := sess.Bootstrap(ctx)
	logger.Info("session ready",
		zap.String("date", sess.Calendar.Date()),
		zap.Bool("local_mode", localMode),
		zap.String("storage", string(res.Outcome)))

	if err := sess.Rollover.Start(cfg.RolloverSchedule); err != nil {
		logger.Fatal("rollover schedule", zap.Error(err))
	}
	defer sess.Rollover.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger.Named("http")))

	h := router.Handlers{
		Health:   handler.NewHealthHandler(sess),
		Auth:     handler.NewAuthHandler(cfg),
		Business: handler.NewBusinessHandler(sess),
		Orders:   handler.NewOrderHandler(sess),
		Sales:    handler.NewSalesHandler(sess),
		Seats:    handler.NewSeatHandler(sess),
		Menus:    handler.NewMenuHandler(sess),
		Session:  handler.NewSessionHandler(sess),
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit"))
	router.RegisterRoutes(e, h.Health)
	router.RegisterAuth(e, h.Auth)
	router.RegisterPOS(e, h, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if env == "dev" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}

// openLocal opens the fallback store.  Redis is used when requested and
// reachable; otherwise the SQLite file.
func openLocal(ctx context.Context, cfg config.Config, rdb *redis.Client, logger *zap.Logger) (repository.LocalStore, func()) {
	if cfg.LocalDriver == "redis" {
		if rdb != nil {
			return repository.NewRedisLocalStore(rdb, cfg.LocalNamespace), func() {}
		}
		logger.Warn("redis local store requested but unavailable, using sqlite")
	}
	db, err := database.OpenLocal(cfg.LocalPath)
	if err != nil {
		logger.Fatal("open local store", zap.String("path", cfg.LocalPath), zap.Error(err))
	}
	store := repository.NewSQLiteLocalStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("local store schema", zap.Error(err))
	}
	return store, func() { _ = db.Close() }
}

// openRemote attaches the authoritative document store whenever it is
// configured, or returns nil to run in local mode.  A database that does
// not answer at boot stays attached: the gateway falls back per call and
// the schema is created on the first call that reaches it.
func openRemote(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.DocumentStore, func()) {
	if !cfg.RemoteConfigured() {
		return nil, func() {}
	}
	db, err := database.OpenRemote(database.RemoteParams{
		Driver: cfg.DBDriver, User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		logger.Fatal("remote store settings", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	store := repository.NewSQLDocumentStore(db)
	if err := database.Ping(ctx, db); err != nil {
		logger.Warn("remote store unreachable, using local fallback until it answers", zap.Error(err))
	}
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn("remote schema pending, retried on next call", zap.Error(err))
	}
	return store, func() { _ = db.Close() }
}
