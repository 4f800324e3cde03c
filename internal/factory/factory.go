package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/globaldex/internal/config"
	"github.com/mcoot/globaldex/internal/dependencies/clock"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/admission"
	"github.com/mcoot/globaldex/internal/services/dex"
	"github.com/mcoot/globaldex/internal/services/intake"
	"github.com/mcoot/globaldex/internal/services/maintenance"
	"github.com/mcoot/globaldex/internal/services/merge"
	"github.com/mcoot/globaldex/internal/storage"
	"github.com/mcoot/globaldex/internal/storage/memory"
	redisstorage "github.com/mcoot/globaldex/internal/storage/redis"
	"github.com/mcoot/globaldex/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeSQLite = config.StorageSQLite
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
)

// Queue names, as they appear in logs and stats
const (
	RegisterQueueName = "register"
	CaptureQueueName  = "capture"
)

// Defaults applied to zero-valued Config fields
const (
	DefaultQueueCapacity = 500
	DefaultIntentTimeout = 60 * time.Second
	DefaultMaxSpecies    = 1998
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock

	// Services
	Engine      *merge.Engine
	Intake      *intake.Service
	Dex         *dex.Service
	Maintenance *maintenance.Service
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("sqlite", "memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// SQLiteConfig holds the database settings (required if StorageType is "sqlite")
	SQLiteConfig *sqlite.Config
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config

	RegisterQueue admission.Config
	CaptureQueue  admission.Config
	Intake        intake.Config
	Maintenance   maintenance.Config
	MaxSpecies    int
}

// ConfigFromEnv maps the environment configuration onto a factory Config
func ConfigFromEnv(c config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: c.Storage,
		RegisterQueue: admission.Config{
			Capacity: c.Register.QueueSize,
			Workers:  c.Register.Workers,
		},
		CaptureQueue: admission.Config{
			Capacity: c.Capture.QueueSize,
			Workers:  c.Capture.Workers,
		},
		Intake: intake.Config{
			RegisterTimeout:      c.Register.Timeout,
			RegisterImmediateAck: c.Register.ImmediateAck,
			CaptureTimeout:       c.Capture.Timeout,
			CaptureImmediateAck:  c.Capture.ImmediateAck,
			UncaptureTimeout:     c.UncaptureTimeout,
		},
		Maintenance: maintenance.Config{
			StatsInterval:      c.MaintenanceInterval,
			CheckpointInterval: c.CheckpointInterval,
		},
		MaxSpecies: c.MaxSpecies,
	}

	switch c.Storage {
	case config.StorageSQLite:
		cfg.SQLiteConfig = &sqlite.Config{Path: c.DBPath, BusyTimeout: c.DBBusyTimeout}
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}

	app, err := newWithDependencies(store, clock.New(), cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// OpenStorage opens the backend selected by cfg.StorageType
func OpenStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeSQLite:
		if cfg.SQLiteConfig == nil {
			return nil, errors.New("SQLiteConfig required when StorageType is sqlite")
		}
		return sqlite.Open(*cfg.SQLiteConfig)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'sqlite', 'memory' or 'redis'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, cfg Config, logger *slog.Logger) (*App, error) {
	engine := merge.New(store, clk, logger)

	registerCfg := cfg.RegisterQueue
	registerCfg.Name = RegisterQueueName
	if registerCfg.Capacity <= 0 {
		registerCfg.Capacity = DefaultQueueCapacity
	}
	captureCfg := cfg.CaptureQueue
	captureCfg.Name = CaptureQueueName
	if captureCfg.Capacity <= 0 {
		captureCfg.Capacity = DefaultQueueCapacity
	}

	registerQueue := admission.New(registerCfg,
		func(ctx context.Context, intent model.RegisterIntent) (model.RegisterResult, error) {
			return engine.Register(ctx, intent)
		}, logger)
	captureQueue := admission.New(captureCfg,
		func(ctx context.Context, intent model.CaptureIntent) (model.CaptureResult, error) {
			return engine.Capture(ctx, intent)
		}, logger)

	intakeCfg := cfg.Intake
	intakeCfg.RegisterTimeout = orDefault(intakeCfg.RegisterTimeout, DefaultIntentTimeout)
	intakeCfg.CaptureTimeout = orDefault(intakeCfg.CaptureTimeout, DefaultIntentTimeout)
	intakeCfg.UncaptureTimeout = orDefault(intakeCfg.UncaptureTimeout, DefaultIntentTimeout)
	intakeService := intake.New(engine, store, registerQueue, captureQueue, intakeCfg, logger)

	maxSpecies := cfg.MaxSpecies
	if maxSpecies == 0 {
		maxSpecies = DefaultMaxSpecies
	}
	dexService := dex.New(store, maxSpecies, logger)

	// Only backends with a write-ahead log get a checkpoint job
	var checkpointer maintenance.Checkpointer
	if cp, ok := store.(maintenance.Checkpointer); ok {
		checkpointer = cp
	}
	maintenanceService, err := maintenance.New(cfg.Maintenance, intakeService, checkpointer, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Storage:     store,
		Clock:       clk,
		Engine:      engine,
		Intake:      intakeService,
		Dex:         dexService,
		Maintenance: maintenanceService,
	}, nil
}

// Start launches the queue workers and the maintenance scheduler
func (a *App) Start(ctx context.Context) {
	a.Intake.Start(ctx)
	a.Maintenance.Start()
}

// Shutdown drains the queues, stops maintenance and closes the store, in that order
func (a *App) Shutdown(ctx context.Context) error {
	queueErr := a.Intake.Stop(ctx)
	maintenanceErr := a.Maintenance.Stop()
	storeErr := a.Storage.Close()
	return errors.Join(queueErr, maintenanceErr, storeErr)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
