package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress             string
	DatabaseURI            string
	PrimarySupplierAddress string
	StorefrontAddress      string
	WebhookSecret          string

	RetryInterval    time.Duration
	MaxRetries       int
	FallbackInterval time.Duration
	TrackingInterval time.Duration
	LockTTL          time.Duration

	PollBatchSize   int
	WorkerPoolSize  int
	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress       = ":8080"
	defaultRetryInterval    = 15 * time.Minute
	defaultMaxRetries       = 3
	defaultFallbackInterval = 10 * time.Minute
	defaultTrackingInterval = 10 * time.Minute
	defaultLockTTL          = 2 * time.Minute
	defaultPollBatchSize    = 20
	defaultWorkerPoolSize   = 4
	defaultShutdownTimeout  = 10 * time.Second

	// Interval floors keep misconfigured deployments from hammering the
	// suppliers with pathologically tight polling.
	minWorkerInterval = 5 * time.Minute
	minLockTTL        = 30 * time.Second
)

// Load parses configuration from .env, environment variables and flags.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:             getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:            getString(lookup, "DATABASE_URI", ""),
		PrimarySupplierAddress: getString(lookup, "PRIMARY_SUPPLIER_ADDRESS", ""),
		StorefrontAddress:      getString(lookup, "STOREFRONT_ADDRESS", ""),
		WebhookSecret:          getString(lookup, "WEBHOOK_SECRET", ""),
		RetryInterval:          getDuration(lookup, "RETRY_INTERVAL", defaultRetryInterval),
		MaxRetries:             getInt(lookup, "MAX_RETRIES", defaultMaxRetries),
		FallbackInterval:       getDuration(lookup, "FALLBACK_INTERVAL", defaultFallbackInterval),
		TrackingInterval:       getDuration(lookup, "TRACKING_INTERVAL", defaultTrackingInterval),
		LockTTL:                getDuration(lookup, "LOCK_TTL", defaultLockTTL),
		PollBatchSize:          getInt(lookup, "POLL_BATCH_SIZE", defaultPollBatchSize),
		WorkerPoolSize:         getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:        getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("shipstream", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		retryIntervalStr    = cfg.RetryInterval.String()
		fallbackIntervalStr = cfg.FallbackInterval.String()
		trackingIntervalStr = cfg.TrackingInterval.String()
		lockTTLStr          = cfg.LockTTL.String()
		shutdownTimeoutStr  = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PrimarySupplierAddress, "supplier", cfg.PrimarySupplierAddress, "Primary supplier base URL")
	fs.StringVar(&cfg.StorefrontAddress, "storefront", cfg.StorefrontAddress, "Storefront base URL")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Shared secret for webhook signatures")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Primary submission attempts before escalation")
	fs.IntVar(&cfg.PollBatchSize, "poll-batch", cfg.PollBatchSize, "Maximum records per worker tick")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent retry workers")
	fs.StringVar(&retryIntervalStr, "retry-interval", retryIntervalStr, "Interval between retry ticks")
	fs.StringVar(&fallbackIntervalStr, "fallback-interval", fallbackIntervalStr, "Interval between fallback ticks")
	fs.StringVar(&trackingIntervalStr, "tracking-interval", trackingIntervalStr, "Interval between tracking polls")
	fs.StringVar(&lockTTLStr, "lock-ttl", lockTTLStr, "Per-record lock expiry")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.RetryInterval, err = time.ParseDuration(retryIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid retry interval: %w", err)
	}
	if cfg.FallbackInterval, err = time.ParseDuration(fallbackIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid fallback interval: %w", err)
	}
	if cfg.TrackingInterval, err = time.ParseDuration(trackingIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid tracking interval: %w", err)
	}
	if cfg.LockTTL, err = time.ParseDuration(lockTTLStr); err != nil {
		return nil, fmt.Errorf("invalid lock ttl: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.WebhookSecret = string(content)
	}

	if cfg.RetryInterval < minWorkerInterval {
		cfg.RetryInterval = minWorkerInterval
	}
	if cfg.FallbackInterval < minWorkerInterval {
		cfg.FallbackInterval = minWorkerInterval
	}
	if cfg.TrackingInterval < minWorkerInterval {
		cfg.TrackingInterval = minWorkerInterval
	}
	if cfg.LockTTL < minLockTTL {
		cfg.LockTTL = minLockTTL
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.PollBatchSize <= 0 {
		cfg.PollBatchSize = defaultPollBatchSize
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.PrimarySupplierAddress == "" {
		return nil, fmt.Errorf("primary supplier address must be provided")
	}
	if cfg.StorefrontAddress == "" {
		return nil, fmt.Errorf("storefront address must be provided")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
