package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the full process configuration.
type Config struct {
	AppEnv         string        `toml:"app_env" validate:"oneof=dev prod test"`
	HTTPAddr       string        `toml:"http_addr" validate:"required"`
	AllowedOrigins []string      `toml:"allowed_origins" validate:"dive,url|eq=*"`
	RequestTimeout time.Duration `toml:"-" validate:"gt=0"`

	Store   StoreConfig   `toml:"store"`
	Redis   RedisConfig   `toml:"redis"`
	Uploads UploadsConfig `toml:"uploads"`
	Static  StaticConfig  `toml:"static"`

	// IssueRateLimit caps issue reports per client per RateLimitWindow. Zero disables it.
	IssueRateLimit  int           `toml:"issue_rate_limit" validate:"gte=0"`
	RateLimitPrefix string        `toml:"rate_limit_prefix"`
	RateLimitWindow time.Duration `toml:"-"`

	// ArchiveCron schedules ClearResolved. Empty disables the job.
	ArchiveCron string `toml:"archive_cron"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver        string `toml:"driver" validate:"oneof=file sqlite mongo redis"`
	DataDir       string `toml:"data_dir" validate:"required_if=Driver file"`
	SQLitePath    string `toml:"sqlite_path" validate:"required_if=Driver sqlite"`
	MongoURI      string `toml:"mongodb_uri" validate:"required_if=Driver mongo"`
	MongoDatabase string `toml:"mongodb_database" validate:"required_if=Driver mongo"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// RedisConfig is shared by the redis store backend and the rate limiter.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"gte=0"`
}

// UploadsConfig controls the upload endpoint.
type UploadsConfig struct {
	Dir      string `toml:"dir" validate:"required"`
	MaxFiles int    `toml:"max_files" validate:"gt=0"`
}

// StaticConfig points at optional front-end directories.
type StaticConfig struct {
	ClientDir string `toml:"client_dir"`
	PortalDir string `toml:"portal_dir"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		AppEnv:         "dev",
		HTTPAddr:       ":3000",
		AllowedOrigins: []string{"http://localhost:3000"},
		RequestTimeout: 10 * time.Second,
		Store: StoreConfig{
			Driver:        "file",
			DataDir:       "data",
			SQLitePath:    "data/civicreport.db",
			MongoDatabase: "civicreport",
			RedisPrefix:   "civicreport",
		},
		Uploads: UploadsConfig{
			Dir:      "uploads",
			MaxFiles: 10,
		},
		RateLimitPrefix: "issue-limit",
		RateLimitWindow: 24 * time.Hour,
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the optional TOML file at path, a .env file and the process environment.
func Load(path string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return nil
	}
	if err := toml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("decode toml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppEnv = getenv("APP_ENV", cfg.AppEnv)
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	if origins := parseStrings(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	cfg.RequestTimeout = dur("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.Store.Driver = getenv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.DataDir = getenv("DATA_DIR", cfg.Store.DataDir)
	cfg.Store.SQLitePath = getenv("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.MongoURI = getenv("MONGODB_URI", cfg.Store.MongoURI)
	cfg.Store.MongoDatabase = getenv("MONGODB_DATABASE", cfg.Store.MongoDatabase)
	cfg.Store.RedisPrefix = getenv("REDIS_PREFIX", cfg.Store.RedisPrefix)

	cfg.Redis.Address = getenv("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getenv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = atoi("REDIS_DB", cfg.Redis.DB)

	cfg.Uploads.Dir = getenv("UPLOADS_DIR", cfg.Uploads.Dir)
	cfg.Uploads.MaxFiles = atoi("MAX_UPLOAD_FILES", cfg.Uploads.MaxFiles)
	cfg.Static.ClientDir = getenv("CLIENT_DIR", cfg.Static.ClientDir)
	cfg.Static.PortalDir = getenv("PORTAL_DIR", cfg.Static.PortalDir)

	cfg.IssueRateLimit = atoi("ISSUE_RATE_LIMIT", cfg.IssueRateLimit)
	cfg.RateLimitPrefix = getenv("REDIS_QUEUE_FOR_ISSUE_LIMIT", cfg.RateLimitPrefix)
	cfg.RateLimitWindow = dur("ISSUE_RATE_WINDOW", cfg.RateLimitWindow)
	cfg.ArchiveCron = getenv("ARCHIVE_CRON", cfg.ArchiveCron)
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Driver == "redis" && c.Redis.Address == "" {
		return errors.New("invalid config: redis.address is required for the redis store")
	}
	if c.IssueRateLimit > 0 && c.Redis.Address == "" {
		return errors.New("invalid config: redis.address is required when issue_rate_limit is set")
	}
	if c.IssueRateLimit > 0 && c.RateLimitWindow <= 0 {
		return errors.New("invalid config: rate limit window must be positive")
	}
	return nil
}

// IsDev reports whether the process runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseStrings(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
