// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xsj/go-loom/internal/condition"
	"github.com/0xsj/go-loom/internal/config"
	"github.com/0xsj/go-loom/internal/container"
	"github.com/0xsj/go-loom/internal/event"
	"github.com/0xsj/go-loom/internal/lib/cache"
	"github.com/0xsj/go-loom/internal/lib/database"
	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
	"github.com/0xsj/go-loom/internal/scheduler"
)

var (
	keyConfig  = manifest.Key{Type: "config"}
	keyLogger  = manifest.Key{Type: "logger"}
	keyDB      = manifest.Key{Type: "database"}
	keyCache   = manifest.Key{Type: "cache"}
	keyRepo    = manifest.Key{Type: "visit.repository"}
	keyService = manifest.Key{Type: "visit.service"}
	keyServer  = manifest.Key{Type: "http.server"}
	keyVisitor = manifest.Key{Type: "request.visitor"}
)

// App carries the running container so components constructed inside it can
// reach back for request-scoped resolution.
type App struct {
	container *container.Container
}

func (a *App) Container() *container.Container {
	return a.container
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLogger(&logger.LoggerConfig{
		Level:      logger.ParseLevel(cfg.Logger.Level),
		Format:     logFormat(cfg.Logger.Format),
		ShowCaller: cfg.Logger.ShowCaller,
		ShowColor:  cfg.Logger.ShowColor,
	})

	// Size the scheduler pool from config before the container takes the
	// singleton over; a prior Init (tests, harnesses) wins.
	if _, err := scheduler.Init(scheduler.Config{
		Workers: cfg.Scheduler.Workers,
		Log:     appLogger,
	}); err != nil {
		appLogger.Warn("Scheduler already initialized", logger.Err(err))
	}

	app := &App{}
	m, err := buildManifest(cfg, appLogger, app)
	if err != nil {
		log.Fatalf("Failed to build manifest: %v", err)
	}

	c := container.New(m,
		container.WithLogger(appLogger),
		container.WithProfiles(cfg.App.ProfileList()...),
		container.WithProperties(config.EnvProperties()),
		container.WithScheduler(),
	)
	app.container = c

	event.Subscribe(c.Events(), func(e container.Started) {
		appLogger.Info("Application ready",
			logger.String("name", cfg.App.Name),
			logger.Int("components", e.Components),
		)
	})

	if err := c.Start(ctx); err != nil {
		log.Fatalf("Failed to start container: %v", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		appLogger.Error("Shutdown finished with errors", logger.Err(err))
	}

	appLogger.Info("Server shutdown complete")
}

func logFormat(format string) logger.LogFormat {
	if format == "json" {
		return logger.FormatJSON
	}
	return logger.FormatPretty
}

func buildManifest(cfg *config.Config, appLogger logger.Logger, app *App) (*manifest.Manifest, error) {
	return manifest.New(
		&manifest.Declaration{
			Key:   keyConfig,
			Scope: manifest.ScopeSingleton,
			Factory: func(_ context.Context, _ manifest.Deps) (any, error) {
				return cfg, nil
			},
		},
		&manifest.Declaration{
			Key:   keyLogger,
			Scope: manifest.ScopeSingleton,
			Factory: func(_ context.Context, _ manifest.Deps) (any, error) {
				return appLogger, nil
			},
		},
		&manifest.Declaration{
			Key:   keyDB,
			Scope: manifest.ScopeSingleton,
			Dependencies: []manifest.Edge{
				{Target: keyConfig},
				{Target: keyLogger},
			},
			Factory: func(_ context.Context, deps manifest.Deps) (any, error) {
				c := deps.One(keyConfig).(*config.Config)
				return database.New(&database.Config{
					Driver:          c.Database.Driver,
					DSN:             c.Database.DSN,
					MaxOpenConns:    c.Database.MaxOpenConns,
					MaxIdleConns:    c.Database.MaxIdleConns,
					ConnMaxLifetime: c.Database.ConnMaxLifetime,
				}, deps.One(keyLogger).(logger.Logger)), nil
			},
			PostConstruct: func(ctx context.Context, instance any) error {
				return instance.(*database.DB).Connect(ctx)
			},
			Start: []manifest.OrderedHook{
				{Order: 10, Fn: func(ctx context.Context, instance any) error {
					return instance.(*database.DB).HealthCheck(ctx)
				}},
			},
			PreDestroy: func(_ context.Context, instance any) error {
				return instance.(*database.DB).Close()
			},
		},
		&manifest.Declaration{
			Key:        keyCache,
			Scope:      manifest.ScopeSingleton,
			Conditions: []manifest.Condition{condition.OnProfile("cache")},
			Dependencies: []manifest.Edge{
				{Target: keyConfig},
				{Target: keyLogger},
			},
			Factory: func(_ context.Context, deps manifest.Deps) (any, error) {
				c := deps.One(keyConfig).(*config.Config)
				return cache.New(&cache.Config{
					Addr:     c.Cache.Addr,
					Password: c.Cache.Password,
					DB:       c.Cache.DB,
				}, deps.One(keyLogger).(logger.Logger)), nil
			},
			Start: []manifest.OrderedHook{
				{Order: 20, Fn: func(ctx context.Context, instance any) error {
					return instance.(*cache.Cache).Ping(ctx)
				}},
			},
			PreDestroy: func(_ context.Context, instance any) error {
				return instance.(*cache.Cache).Close()
			},
		},
		&manifest.Declaration{
			Key:   keyRepo,
			Scope: manifest.ScopeSingleton,
			Dependencies: []manifest.Edge{
				{Target: keyDB},
				{Target: keyLogger},
			},
			Factory: func(_ context.Context, deps manifest.Deps) (any, error) {
				return NewVisitRepository(
					deps.One(keyDB).(*database.DB),
					deps.One(keyLogger).(logger.Logger),
				), nil
			},
			PostConstruct: func(ctx context.Context, instance any) error {
				return instance.(*VisitRepository).Init(ctx)
			},
		},
		&manifest.Declaration{
			Key:   keyService,
			Scope: manifest.ScopeSingleton,
			Dependencies: []manifest.Edge{
				{Target: keyRepo},
				{Target: keyCache, Optional: true},
				{Target: keyLogger},
			},
			Factory: func(_ context.Context, deps manifest.Deps) (any, error) {
				var cacheClient *cache.Cache
				if v, ok := deps.Maybe(keyCache); ok {
					cacheClient = v.(*cache.Cache)
				}
				return NewVisitService(
					deps.One(keyRepo).(*VisitRepository),
					cacheClient,
					deps.One(keyLogger).(logger.Logger),
				), nil
			},
			Start: []manifest.OrderedHook{
				{Order: 50, Fn: func(_ context.Context, instance any) error {
					return instance.(*VisitService).StartJanitor()
				}},
			},
			Stop: []manifest.OrderedHook{
				{Order: 50, Fn: func(_ context.Context, instance any) error {
					instance.(*VisitService).StopJanitor()
					return nil
				}},
			},
		},
		&manifest.Declaration{
			Key:   keyVisitor,
			Scope: manifest.ScopeRequest,
			Factory: func(_ context.Context, _ manifest.Deps) (any, error) {
				return NewVisitor(), nil
			},
		},
		&manifest.Declaration{
			Key:   keyServer,
			Scope: manifest.ScopeSingleton,
			Dependencies: []manifest.Edge{
				{Target: keyConfig},
				{Target: keyService},
				{Target: keyLogger},
			},
			Factory: func(_ context.Context, deps manifest.Deps) (any, error) {
				c := deps.One(keyConfig).(*config.Config)
				return NewHTTPServer(app, c.Server.Address(), ServerTimeouts{
					Read:  c.Server.ReadTimeout,
					Write: c.Server.WriteTimeout,
					Idle:  c.Server.IdleTimeout,
				}, deps.One(keyLogger).(logger.Logger)), nil
			},
			Start: []manifest.OrderedHook{
				{Order: 100, Fn: func(_ context.Context, instance any) error {
					instance.(*HTTPServer).Listen()
					return nil
				}},
			},
			Stop: []manifest.OrderedHook{
				{Order: 100, Fn: func(ctx context.Context, instance any) error {
					return instance.(*HTTPServer).Shutdown(ctx)
				}},
			},
		},
	)
}
