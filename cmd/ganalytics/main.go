package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Moqi/ganalytics/internal/analytics"
	"github.com/Moqi/ganalytics/internal/api"
	"github.com/Moqi/ganalytics/internal/session"
	"github.com/Moqi/ganalytics/internal/store"
	"github.com/Moqi/ganalytics/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ganalytics state data
	DefaultStateDir = "/var/lib/ganalytics"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "ganalytics.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	// Default to a SQLite file in the state directory when no DSN is given.
	if *flags.dbDSN == "" && *flags.dbDriver != "redis" && *flags.dbDriver != "memory" {
		dsn := filepath.Join(*flags.stateDir, DefaultDBFileName)
		flags.dbDSN = &dsn
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", dsn)
	}

	kv, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open durable store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	svc, err := analytics.New(kv,
		analytics.WithAccount(*flags.account),
		analytics.WithDomain(*flags.domain),
		analytics.WithCollectorURL(*flags.collectorURL),
		analytics.WithMaxQueued(*flags.maxQueued),
		analytics.WithOfflineLogging(*flags.offlineLogging),
		analytics.WithDrainInterval(*flags.drainInterval),
		analytics.WithThrottle(*flags.throttle),
		analytics.WithSessionTimeout(*flags.sessionTimeout),
	)
	if err != nil {
		slog.Error("Failed to initialize analytics service", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go svc.Run(ctx)

	slog.Info("Bootstrapping ganalytics", "api_addr", *flags.apiAddr, "db_driver", *flags.dbDriver)
	server := api.NewServer(svc, *flags.apiAddr)
	if err := server.Run(ctx); err != nil {
		slog.Error("ganalytics failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ganalytics exited successfully")
}

// Config holds environment configuration
type Config struct {
	Account        string
	Domain         string
	CollectorURL   string
	StateDir       string
	DbDriver       string
	DbDSN          string
	RedisAddr      string
	APIAddr        string
	MaxQueued      int
	OfflineLogging bool
	DrainInterval  time.Duration
	Throttle       time.Duration
	SessionTimeout time.Duration
}

// Flags holds command line flag values
type Flags struct {
	account        *string
	domain         *string
	collectorURL   *string
	stateDir       *string
	dbDriver       *string
	dbDSN          *string
	redisAddr      *string
	apiAddr        *string
	maxQueued      *int
	offlineLogging *bool
	drainInterval  *time.Duration
	throttle       *time.Duration
	sessionTimeout *time.Duration
}

// initializeLogger sets up structured logging
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		Account:        os.Getenv("GA_ACCOUNT"),
		Domain:         os.Getenv("GA_DOMAIN"),
		CollectorURL:   os.Getenv("GA_COLLECTOR_URL"),
		StateDir:       os.Getenv("GA_STATE_DIR"),
		DbDriver:       os.Getenv("GA_DB_DRIVER"),
		DbDSN:          os.Getenv("GA_DB_DSN"),
		RedisAddr:      os.Getenv("GA_REDIS_ADDR"),
		APIAddr:        os.Getenv("GA_API_ADDR"),
		MaxQueued:      util.ParseIntEnv("GA_MAX_QUEUED", 0),
		OfflineLogging: util.ParseBoolEnv("GA_OFFLINE_LOGGING", true),
		DrainInterval:  util.ParseDurationEnv("GA_DRAIN_INTERVAL", analytics.DefaultDrainInterval),
		Throttle:       util.ParseDurationEnv("GA_THROTTLE", time.Second),
		SessionTimeout: util.ParseDurationEnv("GA_SESSION_TIMEOUT", session.DefaultSessionTimeout),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No GA_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	slog.Debug("environment variables loaded",
		"GA_ACCOUNT_SET", config.Account != "",
		"GA_DOMAIN", config.Domain,
		"GA_DB_DRIVER", config.DbDriver,
		"GA_DB_DSN_SET", config.DbDSN != "",
		"GA_REDIS_ADDR", config.RedisAddr,
		"GA_API_ADDR", config.APIAddr,
		"GA_MAX_QUEUED", config.MaxQueued,
		"GA_OFFLINE_LOGGING", config.OfflineLogging)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		account:        flag.String("account", config.Account, "tracking account id (overrides $GA_ACCOUNT)"),
		domain:         flag.String("domain", config.Domain, "reported host domain (overrides $GA_DOMAIN)"),
		collectorURL:   flag.String("collector-url", config.CollectorURL, "telemetry collector URL (overrides $GA_COLLECTOR_URL)"),
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for ganalytics data (overrides $GA_STATE_DIR)"),
		dbDriver:       flag.String("db-driver", config.DbDriver, "durable store driver: sqlite3, postgres, redis or memory (overrides $GA_DB_DRIVER)"),
		dbDSN:          flag.String("db-dsn", config.DbDSN, "durable store DSN (overrides $GA_DB_DSN)"),
		redisAddr:      flag.String("redis-addr", config.RedisAddr, "Redis address for the redis driver (overrides $GA_REDIS_ADDR)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "ingestion API address (overrides $GA_API_ADDR)"),
		maxQueued:      flag.Int("max-queued", config.MaxQueued, "offline queue capacity, 0 = unlimited (overrides $GA_MAX_QUEUED)"),
		offlineLogging: flag.Bool("offline-logging", config.OfflineLogging, "queue failed sends for retry (overrides $GA_OFFLINE_LOGGING)"),
		drainInterval:  flag.Duration("drain-interval", config.DrainInterval, "drain tick period (overrides $GA_DRAIN_INTERVAL)"),
		throttle:       flag.Duration("throttle", config.Throttle, "pause between drained entries (overrides $GA_THROTTLE)"),
		sessionTimeout: flag.Duration("session-timeout", config.SessionTimeout, "idle gap that starts a new session (overrides $GA_SESSION_TIMEOUT)"),
	}
	flag.Parse()
	return flags
}

// openStore selects and opens the durable store backend by driver name.
func openStore(flags Flags) (store.KV, error) {
	switch *flags.dbDriver {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	case "redis":
		return store.NewRedisStore(store.WithRedisAddr(*flags.redisAddr))
	case "memory":
		slog.Warn("Using in-memory store; queued events will not survive restart")
		return store.NewInMemoryStore(), nil
	default:
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	}
}
