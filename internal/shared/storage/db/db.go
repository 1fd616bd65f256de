package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"resume-ats/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// ConnectRetries bounds extra ping attempts while the database comes up.
	ConnectRetries uint64
}

var (
	openDB         = sql.Open
	singletonMu    sync.Mutex
	singletonCond  = sync.NewCond(&singletonMu)
	singletonDB    *sql.DB
	singletonInFly bool
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions returns conservative defaults for Lambda concurrency.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
		ConnectRetries:  1,
	}
}

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectRetries:  5,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectRetries:  5,
	}
}

// envOverrides holds the optional DB_* pool settings. Unset variables leave
// the pointers nil so the caller's defaults survive.
type envOverrides struct {
	MaxOpenConns    *int           `env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    *int           `env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime *time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime *time.Duration `env:"DB_CONN_MAX_IDLE_TIME"`
	PingTimeout     *time.Duration `env:"DB_PING_TIMEOUT"`
	ConnectRetries  *uint64        `env:"DB_CONNECT_RETRIES"`
}

// OptionsFromEnv overrides defaults with DB_* env vars if present. A
// malformed value is logged and the defaults are kept.
func OptionsFromEnv(defaults Options) Options {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"error": err.Error()})
		return defaults
	}
	opts := defaults
	if o.MaxOpenConns != nil {
		opts.MaxOpenConns = *o.MaxOpenConns
	}
	if o.MaxIdleConns != nil {
		opts.MaxIdleConns = *o.MaxIdleConns
	}
	if o.ConnMaxLifetime != nil {
		opts.ConnMaxLifetime = *o.ConnMaxLifetime
	}
	if o.ConnMaxIdleTime != nil {
		opts.ConnMaxIdleTime = *o.ConnMaxIdleTime
	}
	if o.PingTimeout != nil {
		opts.PingTimeout = *o.PingTimeout
	}
	if o.ConnectRetries != nil {
		opts.ConnectRetries = *o.ConnectRetries
	}
	return opts
}

// Connect opens a *sql.DB using the provided DATABASE_URL and verifies connectivity.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxInterval = 2 * time.Second
	retry := backoff.WithContext(backoff.WithMaxRetries(expo, opts.ConnectRetries), ctx)
	notify := func(err error, wait time.Duration) {
		telemetry.Warn("db.ping.retry", map[string]any{"wait_ms": wait.Milliseconds(), "error": err.Error()})
	}
	if err := backoff.RetryNotify(ping, retry, notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

// GetSingleton returns a process-wide *sql.DB, initializing it once per execution environment.
// If initialization fails, a later call will retry until successful.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	if singletonDB != nil {
		singletonMu.Unlock()
		return singletonDB, nil
	}
	if singletonInFly {
		for singletonInFly && singletonDB == nil {
			singletonCond.Wait()
		}
		if singletonDB != nil {
			singletonMu.Unlock()
			return singletonDB, nil
		}
	}
	singletonInFly = true
	singletonMu.Unlock()

	db, err := Connect(ctx, databaseURL, opts)

	singletonMu.Lock()
	if err == nil {
		singletonDB = db
	}
	singletonInFly = false
	singletonCond.Broadcast()
	singletonMu.Unlock()

	if err == nil {
		telemetry.Info("db.singleton.init", nil)
	}
	return singletonDB, err
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, event string) {
	stats := db.Stats()
	telemetry.Info(event, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}
