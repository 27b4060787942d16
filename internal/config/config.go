package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Image store types
const (
	ImageStoreDatabase = "database"
	ImageStoreAzure    = "azure"
	ImageStoreS3       = "s3"
	ImageStoreMemory   = "memory"
)

type Config struct {
	Host               string        `toml:"host"`
	Port               string        `toml:"port"`
	RequestTimeout     time.Duration `toml:"-"`
	ShutdownTimeout    time.Duration `toml:"-"`
	MaxRequestBodySize int64         `toml:"max_request_body_size"`
	MaxImageSizeMB     float64       `toml:"max_image_size_mb"`
	LogLevel           string        `toml:"log_level"`
	Debug              bool          `toml:"debug"`

	Database   DatabaseConfig   `toml:"database"`
	ImageStore ImageStoreConfig `toml:"image_store"`
	CORS       CORSConfig       `toml:"cors"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
}

type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Host         string `toml:"host"`
	Port         string `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Name         string `toml:"name"`
	SSLMode      string `toml:"sslmode"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

type ImageStoreConfig struct {
	Type  string      `toml:"type"`
	Azure AzureConfig `toml:"azure"`
	S3    S3Config    `toml:"s3"`
}

type AzureConfig struct {
	AccountName string `toml:"account"`
	AccountKey  string `toml:"key"`
	Container   string `toml:"container"`
}

type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
}

type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
}

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// durations are kept as strings in the file and parsed like the env values
type fileDurations struct {
	RequestTimeout  string `toml:"request_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// DSN builds the postgres connection URL from the database settings
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   net.JoinHostPort(c.Database.Host, c.Database.Port),
		Path:   "/" + c.Database.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.Database.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8000",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		MaxRequestBodySize: 16 * 1024 * 1024, // 16MB, room for a 1MB image after base64 and JSON overhead
		MaxImageSizeMB:     1,
		LogLevel:           "info",
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			Name:         "annotations",
			SSLMode:      "disable",
			Path:         "annotations.db",
			MaxOpenConns: 10,
		},
		ImageStore: ImageStoreConfig{
			Type:  ImageStoreDatabase,
			Azure: AzureConfig{Container: "annotations"},
			S3:    S3Config{Region: "us-east-1"},
		},
		CORS:      CORSConfig{AllowOrigins: []string{"*"}},
		RateLimit: RateLimitConfig{RPS: 0, Burst: 20},
	}
}

// Load builds the configuration from defaults, the optional CONFIG_FILE and the environment
func Load() (*Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	var durations fileDurations
	if err := toml.Unmarshal(data, &durations); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if durations.RequestTimeout != "" {
		d, err := time.ParseDuration(strings.TrimSpace(durations.RequestTimeout))
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", durations.RequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if durations.ShutdownTimeout != "" {
		d, err := time.ParseDuration(strings.TrimSpace(durations.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("invalid shutdown_timeout %q: %w", durations.ShutdownTimeout, err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ShutdownTimeout = parseDurationOrDefault("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.MaxImageSizeMB = parseFloatOrDefault("MAX_IMAGE_SIZE_MB", cfg.MaxImageSizeMB)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Debug = parseBoolOrDefault("DEBUG", cfg.Debug)

	db := &cfg.Database
	db.Driver = strings.ToLower(getEnvOrDefault("DB_DRIVER", db.Driver))
	db.Host = getEnvOrDefault("DB_HOST", db.Host)
	db.Port = getEnvOrDefault("DB_PORT", db.Port)
	db.User = getEnvOrDefault("DB_USER", db.User)
	db.Password = getEnvOrDefault("DB_PASSWORD", db.Password)
	db.Name = getEnvOrDefault("DB", db.Name)
	db.SSLMode = getEnvOrDefault("DB_SSLMODE", db.SSLMode)
	db.Path = getEnvOrDefault("DB_PATH", db.Path)
	db.MaxOpenConns = int(parseIntOrDefault("DB_MAX_OPEN_CONNS", int64(db.MaxOpenConns)))

	store := &cfg.ImageStore
	store.Type = strings.ToLower(getEnvOrDefault("IMAGE_STORE", store.Type))
	store.Azure.AccountName = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", store.Azure.AccountName)
	store.Azure.AccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", store.Azure.AccountKey)
	store.Azure.Container = getEnvOrDefault("AZURE_STORAGE_CONTAINER", store.Azure.Container)
	store.S3.Bucket = getEnvOrDefault("S3_BUCKET", store.S3.Bucket)
	store.S3.Region = getEnvOrDefault("S3_REGION", store.S3.Region)
	store.S3.Endpoint = getEnvOrDefault("S3_ENDPOINT", store.S3.Endpoint)
	store.S3.PathStyle = parseBoolOrDefault("S3_PATH_STYLE", store.S3.PathStyle)

	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		cfg.CORS.AllowOrigins = splitList(origins)
	}

	cfg.RateLimit.RPS = parseFloatOrDefault("RATE_LIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = int(parseIntOrDefault("RATE_LIMIT_BURST", int64(cfg.RateLimit.Burst)))
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageSizeMB <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE_MB must be > 0 (got %g)", c.MaxImageSizeMB)
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, shutdown=%s)",
			c.RequestTimeout, c.ShutdownTimeout)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("postgres driver requires DB_HOST and DB")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite driver requires DB_PATH")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 0 (got %d)", c.Database.MaxOpenConns)
	}

	switch c.ImageStore.Type {
	case ImageStoreDatabase, ImageStoreMemory:
	case ImageStoreAzure:
		if c.ImageStore.Azure.AccountName == "" || c.ImageStore.Azure.AccountKey == "" {
			return fmt.Errorf("azure image store requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		if c.ImageStore.Azure.Container == "" {
			return fmt.Errorf("azure image store requires AZURE_STORAGE_CONTAINER")
		}
	case ImageStoreS3:
		if c.ImageStore.S3.Bucket == "" {
			return fmt.Errorf("s3 image store requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_STORE: %q", c.ImageStore.Type)
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0 (got %g)", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be > 0 when rate limiting is enabled (got %d)", c.RateLimit.Burst)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
