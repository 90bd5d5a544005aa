package weave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/pkg/adapters/agent"
	httpAdapter "github.com/aretw0/weave/pkg/adapters/http"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/adapters/postgres"
	"github.com/aretw0/weave/pkg/adapters/process"
	"github.com/aretw0/weave/pkg/adapters/redis"
	"github.com/aretw0/weave/pkg/adapters/sqlite"
	"github.com/aretw0/weave/pkg/observability"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/registry"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/aretw0/weave/pkg/session"
)

// App wires the configured store, session manager, runner and HTTP API.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	agent    ports.Agent
	records  ports.RecordStore
	locker   ports.DistributedLocker
	registry *registry.Registry

	manager *session.Manager
	history *runner.History
	runner  *runner.Runner
	metrics *observability.Metrics
	handler http.Handler

	closers []func() error
}

// Option configures an App.
type Option func(*App)

// WithAgent replaces the agent selected by agent.url.
func WithAgent(a ports.Agent) Option {
	return func(app *App) {
		app.agent = a
	}
}

// WithLogger sets the logger. By default one is built from the log settings.
func WithLogger(l *slog.Logger) Option {
	return func(app *App) {
		app.logger = l
	}
}

// WithRecordStore replaces the store selected by store.driver.
func WithRecordStore(s ports.RecordStore) Option {
	return func(app *App) {
		app.records = s
	}
}

// New builds an App from cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("weave: config is required")
	}
	app := &App{cfg: cfg, registry: registry.Default()}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		logger, err := logging.Parse(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		app.logger = logger
	}

	if app.records == nil {
		if err := app.openStore(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}
	records := middleware.Chain(app.records, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))

	if app.agent == nil {
		ag, err := app.newAgent()
		if err != nil {
			app.Close()
			return nil, err
		}
		app.agent = ag
	}

	managerOpts := []session.Option{
		session.WithLogger(app.logger),
		session.WithRegistry(app.registry),
	}
	runnerOpts := []runner.Option{
		runner.WithLogger(app.logger),
		runner.WithHooks(observability.AuditHooks(app.logger)),
		runner.WithMaxInputSize(cfg.Input.MaxSize),
		runner.WithProduction(cfg.Server.Production),
	}
	if cfg.Metrics.Enabled {
		app.metrics = observability.NewMetrics()
		managerOpts = append(managerOpts, session.WithStatusObserver(app.metrics.ObserveStatus))
		runnerOpts = append(runnerOpts, runner.WithMetrics(app.metrics))
	}
	if app.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(app.locker))
	}

	app.manager = session.NewManager(records, managerOpts...)
	app.history = runner.NewHistory(records)
	app.runner = runner.New(app.agent, append(runnerOpts, runner.WithHistory(app.history))...)

	httpOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(app.logger),
		httpAdapter.WithHistory(app.history),
		httpAdapter.WithRegistry(app.registry),
		httpAdapter.WithProduction(cfg.Server.Production),
		httpAdapter.WithVersion(Version),
	}
	if app.metrics != nil {
		httpOpts = append(httpOpts, httpAdapter.WithMetricsHandler(app.metrics.Handler()))
	}
	handler, err := httpAdapter.NewHandler(app.runner, app.manager, httpOpts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("weave: build http handler: %w", err)
	}
	app.handler = handler

	app.logger.Debug("weave initialized",
		"store", cfg.Store.Driver,
		"metrics", cfg.Metrics.Enabled,
		"production", cfg.Server.Production,
	)
	return app, nil
}

func (app *App) openStore(ctx context.Context) error {
	sc := app.cfg.Store
	switch sc.Driver {
	case config.DriverMemory, "":
		app.records = memory.NewStore()

	case config.DriverRedis:
		store := redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redis.WithPrefix(sc.Redis.Prefix),
			redis.WithTTL(sc.Redis.TTL),
		)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			store.Close()
			return fmt.Errorf("weave: redis %s: %w", sc.Redis.Addr, err)
		}
		app.records = store
		app.locker = redis.NewLocker(store.Client(), sc.Redis.Prefix)
		app.closers = append(app.closers, store.Close)

	case config.DriverSQLite:
		store, err := sqlite.Open(sc.SQLite.Path)
		if err != nil {
			return fmt.Errorf("weave: sqlite %s: %w", sc.SQLite.Path, err)
		}
		app.records = store
		app.closers = append(app.closers, store.Close)

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			URL:      sc.Postgres.URL,
			MaxConns: sc.Postgres.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("weave: %w", err)
		}
		app.records = postgres.New(pool)
		app.closers = append(app.closers, func() error {
			pool.Close()
			return nil
		})

	default:
		return fmt.Errorf("weave: unknown store driver %q", sc.Driver)
	}
	return nil
}

func (app *App) newAgent() (ports.Agent, error) {
	ac := app.cfg.Agent
	switch {
	case ac.URL != "":
		return agent.NewRemote(ac.URL,
			agent.WithTimeout(ac.Timeout),
			agent.WithRemoteLogger(app.logger),
		), nil
	case ac.Command != "":
		pc, err := process.LoadConfig(ac.Command)
		if err != nil {
			return nil, fmt.Errorf("weave: %w", err)
		}
		return process.NewAgent(pc, process.WithLogger(app.logger)), nil
	default:
		app.logger.Warn("no agent configured, using the echo agent")
		return agent.Echo{}, nil
	}
}

// Handler returns the HTTP API.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Manager returns the graph session manager.
func (app *App) Manager() *session.Manager {
	return app.manager
}

// Runner returns the worker runner.
func (app *App) Runner() *runner.Runner {
	return app.runner
}

// History returns the chat history.
func (app *App) History() *runner.History {
	return app.history
}

// Registry returns the node type catalog.
func (app *App) Registry() *registry.Registry {
	return app.registry
}

// Metrics returns the Prometheus metrics, or nil when disabled.
func (app *App) Metrics() *observability.Metrics {
	return app.metrics
}

// Logger returns the application logger.
func (app *App) Logger() *slog.Logger {
	return app.logger
}

// Close releases the store connections.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
