// Package app wires configuration, storage and handlers into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/nearmod/keybot/core/bootstrap"
	coreconfig "github.com/nearmod/keybot/core/config"
	coredatabase "github.com/nearmod/keybot/core/database"
	"github.com/nearmod/keybot/core/logger"
	coretelegram "github.com/nearmod/keybot/core/telegram"
	"github.com/nearmod/keybot/core/telegram/router"
	"github.com/nearmod/keybot/internal/bot"
	"github.com/nearmod/keybot/internal/config"
	"github.com/nearmod/keybot/internal/keys"
	"github.com/nearmod/keybot/internal/storage/filestore"
	"github.com/nearmod/keybot/internal/storage/redisstore"
	"github.com/nearmod/keybot/internal/storage/sqlstore"
)

const redisPingTimeout = 5 * time.Second

// Options overrides infrastructure constructors. Zero values use the
// production ones.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
	NewRedis   func(config.RedisConfig) redis.UniversalClient
	// Now drives the key lifecycle clock; nil means time.Now.
	Now func() time.Time
}

// App holds the initialized bot dependencies.
type App struct {
	cfg      *config.Config
	infra    *bootstrap.Result
	redis    redis.UniversalClient
	store    keys.Store
	service  *keys.Service
	handlers *bot.Handlers
}

// Bootstrap initializes logging, the selected key store and the handlers.
func Bootstrap(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	bopts := bootstrap.Options{
		Config:     cfg.CoreConfig(),
		LoggerInit: opts.LoggerInit,
		Connect:    opts.Connect,
		Migrate:    opts.Migrate,
	}
	if cfg.UsesSQL() {
		db := cfg.Database
		bopts.Database = &db
	}
	infra, err := bootstrap.Run(bopts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra}
	if err := a.openStore(opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.service = keys.NewService(a.store, &keys.Lifecycle{Now: opts.Now})
	a.handlers = bot.New(a.service)

	logger.Store.Info("store ready",
		slog.String("event", "store.open"),
		slog.String("driver", cfg.Storage.Driver),
	)
	return a, nil
}

func (a *App) openStore(opts Options) error {
	switch a.cfg.Storage.Driver {
	case config.DriverFile:
		a.store = filestore.New(a.cfg.Storage.File.Path)
	case config.DriverPostgres, config.DriverSQLite:
		if a.infra == nil || a.infra.DB == nil {
			return fmt.Errorf("app: %s store needs a database connection", a.cfg.Storage.Driver)
		}
		a.store = sqlstore.New(a.infra.DB)
	case config.DriverRedis:
		newRedis := opts.NewRedis
		if newRedis == nil {
			newRedis = defaultRedis
		}
		a.redis = newRedis(a.cfg.Storage.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("app: redis ping %s: %w", a.cfg.Storage.Redis.Addr, err)
		}
		a.store = redisstore.New(a.redis, a.cfg.Storage.Redis.Key)
	default:
		return fmt.Errorf("app: unknown storage driver %q", a.cfg.Storage.Driver)
	}
	return nil
}

func defaultRedis(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Service exposes the key service.
func (a *App) Service() *keys.Service {
	return a.service
}

// TelegramRunOptions builds the registry and routes for the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.handlers.AdminOnly,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(),
		Routes:      routes,
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			if rt.Dispatcher != nil {
				logger.TG.Info("sender stats",
					slog.String("event", "sender.stats"),
					slog.Uint64("send_errors", rt.Dispatcher.ErrorCount()),
				)
			}
			return nil
		},
	}, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if err := a.infra.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	return errors.Join(errs...)
}
