// Package console parses console command flags and composes the operator
// console process.
package console

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/fleetdeck/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/fleetdeck/internal/platform/grpc"
	"github.com/louisbranch/fleetdeck/internal/platform/timeouts"
	consoleservice "github.com/louisbranch/fleetdeck/internal/services/console"
	"github.com/louisbranch/fleetdeck/internal/services/console/auth"
	"github.com/louisbranch/fleetdeck/internal/services/console/backend"
	"github.com/louisbranch/fleetdeck/internal/services/console/realtime"
	"github.com/louisbranch/fleetdeck/internal/services/console/session"
	"github.com/louisbranch/fleetdeck/internal/services/console/storage"
	redisstore "github.com/louisbranch/fleetdeck/internal/services/console/storage/redis"
	sqlitestore "github.com/louisbranch/fleetdeck/internal/services/console/storage/sqlite"
)

const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

const realtimePath = "/v1/realtime"

// Config holds console command configuration.
type Config struct {
	HTTPAddr        string        `env:"FLEETDECK_HTTP_ADDR"         envDefault:"127.0.0.1:8088"`
	BackendURL      string        `env:"FLEETDECK_BACKEND_URL"       envDefault:"http://localhost:8080"`
	RealtimeURL     string        `env:"FLEETDECK_REALTIME_URL"`
	RealtimeOrigin  string        `env:"FLEETDECK_REALTIME_ORIGIN"`
	BackendGRPCAddr string        `env:"FLEETDECK_BACKEND_GRPC_ADDR"`
	HealthService   string        `env:"FLEETDECK_BACKEND_HEALTH_SERVICE"`
	StorageDriver   string        `env:"FLEETDECK_STORAGE_DRIVER"    envDefault:"sqlite"`
	DBPath          string        `env:"FLEETDECK_DB_PATH"           envDefault:"data/console.db"`
	RedisAddr       string        `env:"FLEETDECK_REDIS_ADDR"        envDefault:"localhost:6379"`
	RedisUsername   string        `env:"FLEETDECK_REDIS_USERNAME"`
	RedisPassword   string        `env:"FLEETDECK_REDIS_PASSWORD"`
	RedisDB         int           `env:"FLEETDECK_REDIS_DB"          envDefault:"0"`
	RedisPrefix     string        `env:"FLEETDECK_REDIS_PREFIX"      envDefault:"fleetdeck:console:"`
	RefreshInterval time.Duration `env:"FLEETDECK_REFRESH_INTERVAL"  envDefault:"25m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args, bindFlags); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "console HTTP listen address")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "fleet backend base URL")
	fs.StringVar(&cfg.RealtimeURL, "realtime-url", cfg.RealtimeURL, "fleet backend websocket URL (derived from -backend-url when empty)")
	fs.StringVar(&cfg.RealtimeOrigin, "realtime-origin", cfg.RealtimeOrigin, "Origin header sent on the realtime handshake")
	fs.StringVar(&cfg.BackendGRPCAddr, "backend-grpc-addr", cfg.BackendGRPCAddr, "fleet backend gRPC address for health checks")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "token storage driver: sqlite, redis or memory")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	fs.DurationVar(&cfg.RefreshInterval, "refresh-interval", cfg.RefreshInterval, "session token refresh interval")
}

// Validate checks values that flags and env cannot constrain.
func (c Config) Validate() error {
	switch strings.TrimSpace(c.StorageDriver) {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if _, err := c.RealtimeEndpoint(); err != nil {
		return err
	}
	return nil
}

// RealtimeEndpoint returns the configured websocket URL, or the backend URL
// with a ws scheme and the realtime path.
func (c Config) RealtimeEndpoint() (string, error) {
	if explicit := strings.TrimSpace(c.RealtimeURL); explicit != "" {
		return explicit, nil
	}
	base, err := url.Parse(strings.TrimSpace(c.BackendURL))
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	default:
		return "", fmt.Errorf("backend url must be http or https: %q", c.BackendURL)
	}
	if base.Host == "" {
		return "", errors.New("backend url host is required")
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + realtimePath
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""
	return base.String(), nil
}

// Run composes the console and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceConsole, func(ctx context.Context) error {
		if err := run(ctx, cfg); err != nil {
			return fmt.Errorf("serve console: %w", err)
		}
		return nil
	})
}

func run(ctx context.Context, cfg Config) error {
	realtimeURL, err := cfg.RealtimeEndpoint()
	if err != nil {
		return err
	}
	tokens, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tokens.Close() }()

	store := session.NewStore(tokens, nil)
	sessionToken := backend.TokenFunc(func() string { return store.Snapshot().Token })

	client, err := backend.New(cfg.BackendURL, backend.WithTokenSource(sessionToken))
	if err != nil {
		return err
	}
	controller, err := auth.NewController(store, client, auth.WithRefreshInterval(cfg.RefreshInterval))
	if err != nil {
		return err
	}
	channel, err := realtime.NewChannel(realtime.Config{
		URL:    realtimeURL,
		Origin: cfg.RealtimeOrigin,
		Tokens: sessionToken,
	})
	if err != nil {
		return err
	}

	var health consoleservice.HealthChecker
	if addr := strings.TrimSpace(cfg.BackendGRPCAddr); addr != "" {
		conn, err := platformgrpc.NewClient(addr)
		if err != nil {
			return fmt.Errorf("dial backend grpc: %w", err)
		}
		defer func() { _ = conn.Close() }()
		probe, err := platformgrpc.NewHealthProbe(conn, cfg.HealthService, timeouts.HealthCheck)
		if err != nil {
			return err
		}
		health = probe
	}

	app, err := consoleservice.NewApplication(store, controller, channel)
	if err != nil {
		return err
	}
	if err := app.Mount(ctx); err != nil {
		app.Unmount()
		return fmt.Errorf("mount console: %w", err)
	}
	defer app.Unmount()

	server, err := consoleservice.NewServer(ctx, consoleservice.Config{
		HTTPAddr: cfg.HTTPAddr,
		Sessions: store,
		Auth:     controller,
		Data:     client,
		Realtime: channel,
		Health:   health,
	})
	if err != nil {
		return err
	}
	return server.ListenAndServe(ctx)
}

func openStorage(ctx context.Context, cfg Config) (storage.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, timeouts.StorageOp)
	defer cancel()
	switch strings.TrimSpace(cfg.StorageDriver) {
	case StorageSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlitestore.Open(openCtx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageRedis:
		store, err := redisstore.Open(openCtx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
