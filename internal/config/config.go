// Package config assembles the service configuration from an optional .env
// file, an optional YAML file named by CONFIG_FILE, and environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid configuration")

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Service   Service   `yaml:"service"`
	Log       Log       `yaml:"log"`
	HTTP      HTTP      `yaml:"http"`
	Store     Store     `yaml:"store"`
	Redis     Redis     `yaml:"redis"`
	Auth      Auth      `yaml:"auth"`
	Checkout  Checkout  `yaml:"checkout"`
	Stripe    Stripe    `yaml:"stripe"`
	Media     Media     `yaml:"media"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Service struct {
	Name    string `yaml:"name"`
	Env     string `yaml:"env"`
	Version string `yaml:"version"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type Store struct {
	// Driver is "memory" or "postgres".
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
}

// Redis backs the fulfillment ledger when Addr is set.
type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	AdminEmail string        `yaml:"admin_email"`
}

type Checkout struct {
	FrontendURL string `yaml:"frontend_url"`
	Currency    string `yaml:"currency"`
}

type Stripe struct {
	SecretKey        string        `yaml:"secret_key"`
	WebhookSecret    string        `yaml:"webhook_secret"`
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	WebhookTolerance time.Duration `yaml:"webhook_tolerance"`
}

// Media selects S3 when Bucket is set, otherwise images stay in memory under BaseURL.
type Media struct {
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
	BaseURL string `yaml:"base_url"`
}

type Telemetry struct {
	// Exporter is "stdout" or empty.
	Exporter string `yaml:"exporter"`
}

func Default() Config {
	return Config{
		Service:  Service{Name: "storefront", Env: "dev", Version: "dev"},
		Log:      Log{Level: "info"},
		HTTP:     HTTP{Addr: ":8080", ShutdownTimeout: 10 * time.Second, MaxUploadBytes: 32 << 20},
		Store:    Store{Driver: StoreMemory},
		Redis:    Redis{KeyPrefix: "storefront:fulfilled", TTL: 30 * 24 * time.Hour},
		Auth:     Auth{TokenTTL: 7 * 24 * time.Hour},
		Checkout: Checkout{FrontendURL: "http://localhost:5173", Currency: "usd"},
		Stripe:   Stripe{BaseURL: "https://api.stripe.com", Timeout: 15 * time.Second, WebhookTolerance: 5 * time.Minute},
		Media:    Media{Region: "us-east-1", BaseURL: "http://localhost:8080/media"},
	}
}

// Load reads .env (if present), CONFIG_FILE (if set), then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.LoadEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) LoadFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalid, ext)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return nil
}

// LoadEnv applies environment overrides. lookup is os.LookupEnv outside tests.
func (c *Config) LoadEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.str("SERVICE_NAME", &c.Service.Name)
	env.str("ENV", &c.Service.Env)
	env.str("SERVICE_VERSION", &c.Service.Version)
	env.str("LOG_LEVEL", &c.Log.Level)
	env.str("LOG_FILE", &c.Log.File)

	if port, ok := env.get("PORT"); ok {
		c.HTTP.Addr = ":" + port
	}
	env.str("HTTP_ADDR", &c.HTTP.Addr)
	env.duration("HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	env.int64("HTTP_MAX_UPLOAD_BYTES", &c.HTTP.MaxUploadBytes)

	env.str("STORE_DRIVER", &c.Store.Driver)
	env.str("DATABASE_URL", &c.Store.DatabaseURL)

	env.str("REDIS_ADDR", &c.Redis.Addr)
	env.str("REDIS_PASSWORD", &c.Redis.Password)
	env.int("REDIS_DB", &c.Redis.DB)
	env.str("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)
	env.duration("REDIS_TTL", &c.Redis.TTL)

	env.str("JWT_SECRET", &c.Auth.JWTSecret)
	env.duration("TOKEN_TTL", &c.Auth.TokenTTL)
	env.str("ADMIN_EMAIL", &c.Auth.AdminEmail)

	env.str("FRONTEND_URL", &c.Checkout.FrontendURL)
	env.str("CHECKOUT_CURRENCY", &c.Checkout.Currency)

	env.str("STRIPE_SECRET_KEY", &c.Stripe.SecretKey)
	env.str("STRIPE_WEBHOOK_SECRET", &c.Stripe.WebhookSecret)
	env.str("STRIPE_BASE_URL", &c.Stripe.BaseURL)
	env.duration("STRIPE_TIMEOUT", &c.Stripe.Timeout)
	env.duration("STRIPE_WEBHOOK_TOLERANCE", &c.Stripe.WebhookTolerance)

	env.str("S3_BUCKET", &c.Media.Bucket)
	env.str("AWS_REGION", &c.Media.Region)
	env.str("S3_PREFIX", &c.Media.Prefix)
	env.str("MEDIA_BASE_URL", &c.Media.BaseURL)

	env.str("OTEL_EXPORTER", &c.Telemetry.Exporter)

	return env.err
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.Checkout.FrontendURL == "" {
		errs = append(errs, errors.New("FRONTEND_URL is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.Service.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) int(key string, dst *int) {
	if v, ok := r.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) int64(key string, dst *int64) {
	if v, ok := r.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
}
