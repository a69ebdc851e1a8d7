package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskreminder/api/handler"
	"github.com/fastygo/taskreminder/internal/config"
	"github.com/fastygo/taskreminder/internal/infrastructure/alarm"
	"github.com/fastygo/taskreminder/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskreminder/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskreminder/internal/infrastructure/redis"
	sqliteInfra "github.com/fastygo/taskreminder/internal/infrastructure/sqlite"
	"github.com/fastygo/taskreminder/internal/middleware"
	"github.com/fastygo/taskreminder/internal/router"
	"github.com/fastygo/taskreminder/internal/services"
	"github.com/fastygo/taskreminder/internal/services/lifecycle"
	"github.com/fastygo/taskreminder/pkg/httpcontext"
	"github.com/fastygo/taskreminder/pkg/logger"
	"github.com/fastygo/taskreminder/repository"
	pgRepo "github.com/fastygo/taskreminder/repository/postgres"
	redisRepo "github.com/fastygo/taskreminder/repository/redis"
	sqliteRepo "github.com/fastygo/taskreminder/repository/sqlite"
	authUC "github.com/fastygo/taskreminder/usecase/auth"
	profileUC "github.com/fastygo/taskreminder/usecase/profile"
	taskUC "github.com/fastygo/taskreminder/usecase/task"
)

type stores struct {
	users    repository.UserRepository
	tasks    repository.TaskRepository
	sessions repository.SessionRepository
}

// app holds every wired component of a running server.
type app struct {
	cfg            *config.Config
	logger         *zap.Logger
	lifecycle      *lifecycle.Manager
	alarms         *services.AlarmManager
	reconciler     *services.Reconciler
	handlers       router.Handlers
	authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment)), nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	zapLogger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    zapLogger,
		lifecycle: lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger),
	}
	mon := monitor.New(0, zapLogger)

	st, err := a.openStores(ctx, mon)
	if err != nil {
		a.shutdown()
		return nil, err
	}

	alarmStore, err := alarm.Open(cfg.Alarm.Path, "alarms")
	if err != nil {
		a.shutdown()
		return nil, fmt.Errorf("open alarm store: %w", err)
	}
	a.lifecycle.RegisterCloser("alarm_store", alarmStore.Close)
	mon.WatchAlarms(alarmStore)

	a.alarms = services.NewAlarmManager(alarmStore, services.NewLogNotifier(zapLogger), cfg.Alarm.AllowExact, zapLogger)
	scheduler := services.NewReminderScheduler(a.alarms, cfg.Alarm.CoarseWindow, zapLogger)

	tasks := taskUC.New(st.tasks, scheduler, zapLogger)
	accounts := authUC.New(st.users, st.sessions, tasks, cfg.Session.TTL, zapLogger)
	profiles := profileUC.New(st.users, st.tasks, zapLogger)

	a.reconciler = services.NewReconciler(st.tasks, a.alarms, scheduler, cfg.Reconcile.Interval, zapLogger)

	mon.Start()
	a.lifecycle.Register("monitor", func(context.Context) error {
		mon.Stop()
		return nil
	})

	secret := cfg.JWT.Secret
	if secret == "" {
		secret = randomSecret()
		zapLogger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	tokens := middleware.NewTokenManager(secret, cfg.JWT.Issuer)
	a.authMiddleware = middleware.JWTAuth(tokens, accounts, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	a.handlers = router.Handlers{
		Auth:    apiHandler.NewAuthHandler(accounts, tokens, ctxAdapter, zapLogger),
		Profile: apiHandler.NewProfileHandler(profiles, accounts, ctxAdapter, zapLogger),
		Task:    apiHandler.NewTaskHandler(tasks, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	return a, nil
}

// openStores connects the configured relational store and, when REDIS_URL is
// set, moves sessions to Redis.
func (a *app) openStores(ctx context.Context, mon *monitor.Monitor) (*stores, error) {
	cfg := a.cfg
	st := &stores{}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, a.logger); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, a.logger)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		a.lifecycle.Register("postgres", func(context.Context) error {
			pgInfra.Close(pool, a.logger)
			return nil
		})
		mon.WatchPostgres(pool)
		st.users = pgRepo.NewUserRepository(pool)
		st.tasks = pgRepo.NewTaskRepository(pool)
		st.sessions = pgRepo.NewSessionRepository(pool, cfg.Session.TTL)
	default:
		db, err := sqliteInfra.Open(ctx, cfg.Storage.SQLitePath, a.logger)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		a.lifecycle.Register("sqlite", func(context.Context) error {
			sqliteInfra.Close(db, a.logger)
			return nil
		})
		if cfg.Migrations.Enabled {
			if err := sqliteInfra.RunMigrations(cfg.Storage.SQLitePath, a.logger); err != nil {
				return nil, fmt.Errorf("sqlite migrations: %w", err)
			}
		}
		mon.WatchSQL("sqlite", db)
		st.users = sqliteRepo.NewUserRepository(db)
		st.tasks = sqliteRepo.NewTaskRepository(db)
		st.sessions = sqliteRepo.NewSessionRepository(db, cfg.Session.TTL)
	}

	if cfg.Redis.Enabled() {
		client, err := redisInfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis connection: %w", err)
		}
		a.lifecycle.RegisterCloser("redis", client.Close)
		mon.WatchRedis(client)
		st.sessions = redisRepo.NewSessionRepository(client, cfg.Session.TTL)
	}
	return st, nil
}

func (a *app) shutdown() error {
	return a.lifecycle.Shutdown(context.Background())
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
