package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageBackendREST = "rest"
	StorageBackendS3   = "s3"
)

// S3Config configures the S3-compatible storage backend.
type S3Config struct {
	Endpoint      string `env:"ENDPOINT"`
	Region        string `env:"REGION"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	Bucket        string `env:"BUCKET"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

// Config holds runtime settings for the dogstack terminal client.
//
// Fields:
//   - BackendURL: root URL of the backend (auth and rows endpoints).
//   - AnonKey: public API key sent with every request.
//   - StorageURL: storage API root; derived from BackendURL when empty.
//   - StorageBackend: "rest" (storage API) or "s3" (presigned S3 PUT).
//   - RedirectURL: app link the backend puts into confirmation e-mails.
//   - CallbackListenAddr: loopback address receiving auth callbacks; empty disables it.
//   - DatabasePath: local SQLite file holding the session.
//   - ForegroundCheckInterval: how often the session is re-validated.
//   - InitialURL: link the client was started with, if any.
type Config struct {
	BackendURL              string        `env:"DOGSTACK_BACKEND_URL"`
	AnonKey                 string        `env:"DOGSTACK_ANON_KEY"`
	StorageURL              string        `env:"DOGSTACK_STORAGE_URL"`
	StorageBackend          string        `env:"DOGSTACK_STORAGE_BACKEND"`
	S3                      S3Config      `envPrefix:"DOGSTACK_S3_"`
	RedirectURL             string        `env:"DOGSTACK_REDIRECT_URL"`
	CallbackListenAddr      string        `env:"DOGSTACK_CALLBACK_ADDR"`
	DatabasePath            string        `env:"DOGSTACK_DB_PATH"`
	LogLevel                string        `env:"DOGSTACK_LOG_LEVEL"`
	ForegroundCheckInterval time.Duration `env:"DOGSTACK_FOREGROUND_INTERVAL"`
	InitialURL              string        `env:"DOGSTACK_INITIAL_URL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:54321"
	c.StorageBackend = StorageBackendREST
	c.S3.Region = "us-east-1"
	c.S3.Bucket = "profile-pictures"
	c.RedirectURL = "dogstack://auth/callback"
	c.CallbackListenAddr = "127.0.0.1:54330"
	c.DatabasePath = "dogstack.db"
	c.LogLevel = "info"
	c.ForegroundCheckInterval = 30 * time.Second
}

// LoadConfig constructs a Config from defaults, then the JSON file named by
// -c/-config, then DOGSTACK_* environment variables, then flags. Later sources
// take precedence. Malformed input panics.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}

// StorageBaseURL is the storage API root.
func (c *Config) StorageBaseURL() string {
	if c.StorageURL != "" {
		return strings.TrimRight(c.StorageURL, "/")
	}
	return strings.TrimRight(c.BackendURL, "/") + "/storage/v1"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend url %q is not an absolute url", c.BackendURL))
	}
	switch c.StorageBackend {
	case StorageBackendREST:
	case StorageBackendS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 storage needs an endpoint and a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.ForegroundCheckInterval <= 0 {
		errs = append(errs, errors.New("foreground check interval must be positive"))
	}
	return errors.Join(errs...)
}
