package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Gateway environments. The preprod endpoint is used for anything that is
// not explicitly production.
const (
	EnvTest       = "test"
	EnvProduction = "production"

	apiURLTest = "https://payment.preprod.direct.worldline-solutions.com"
	apiURLProd = "https://payment.direct.worldline-solutions.com"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Reconciler    ReconcilerConfig    `mapstructure:"reconciler"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	StorefrontURL     string        `mapstructure:"storefront_url"`
	AdminToken        string        `mapstructure:"admin_token"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// GatewayConfig carries the CAWL credentials explicitly; nothing reads them
// from ambient module state.
type GatewayConfig struct {
	Environment    string        `mapstructure:"environment"`
	MerchantID     string        `mapstructure:"merchant_id"`
	APIKey         string        `mapstructure:"api_key"`
	APISecret      string        `mapstructure:"api_secret"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	Locale         string        `mapstructure:"locale"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CatalogConfig struct {
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
}

type ReconcilerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxWorkers   int           `mapstructure:"max_workers"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (c *GatewayConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *GatewayConfig) APIURL() string {
	if c.IsProduction() {
		return apiURLProd
	}
	return apiURLTest
}

// ----------------- ENV LOADING -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds the configuration purely from environment
// variables, used for container deployments.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			StorefrontURL:     getEnv("STOREFRONT_URL", "http://localhost:3000"),
			AdminToken:        getEnv("ADMIN_TOKEN", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Gateway: GatewayConfig{
			Environment:    getEnv("CAWL_ENVIRONMENT", EnvTest),
			MerchantID:     getEnv("CAWL_MERCHANT_ID", ""),
			APIKey:         getEnv("CAWL_API_KEY", ""),
			APISecret:      getEnv("CAWL_API_SECRET", ""),
			WebhookSecret:  getEnv("CAWL_WEBHOOK_SECRET", ""),
			Locale:         getEnv("CAWL_LOCALE", "fr-FR"),
			RequestTimeout: getEnvAsDuration("CAWL_REQUEST_TIMEOUT", 15*time.Second),
		},
		Catalog: CatalogConfig{
			CacheTTL:  getEnvAsDuration("CATALOG_CACHE_TTL", time.Hour),
			RedisAddr: getEnv("CATALOG_REDIS_ADDR", ""),
			RedisDB:   getEnvAsInt("CATALOG_REDIS_DB", 0),
		},
		Reconciler: ReconcilerConfig{
			PollInterval: getEnvAsDuration("RECONCILER_POLL_INTERVAL", time.Minute),
			StaleAfter:   getEnvAsDuration("RECONCILER_STALE_AFTER", 10*time.Minute),
			BatchSize:    getEnvAsInt("RECONCILER_BATCH_SIZE", 50),
			MaxWorkers:   getEnvAsInt("RECONCILER_MAX_WORKERS", 4),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

// Validate fails fast on missing credentials so a misconfigured deployment
// dies at startup instead of at the first customer checkout. These messages
// are configuration errors, distinct from gateway communication errors.
func (c *GatewayConfig) Validate() error {
	if c.Environment != EnvTest && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q", EnvTest, EnvProduction)
	}
	if c.MerchantID == "" {
		return errors.New("merchant_id (PSPID) is required")
	}
	if c.APIKey == "" || c.APISecret == "" {
		return errors.New("api_key and api_secret are required")
	}
	if c.WebhookSecret == "" && c.IsProduction() {
		return errors.New("webhook_secret is required in production")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
