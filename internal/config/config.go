package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Providers ProvidersConfig
	Summary   SummaryConfig
	Scheduler SchedulerConfig

	// Timezone is the single application timezone used to bucket price
	// observations and portfolio snapshots into calendar days.
	Timezone string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers        []string
	MovementsTopic string
	PricesTopic    string
	ConsumerGroup  string
}

// ProviderConfig holds the settings of a single market-data provider.
// API keys are injected from here; providers never read the environment
// themselves.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// ProvidersConfig holds the settings of all market-data providers.
type ProvidersConfig struct {
	Finnhub ProviderConfig
	EODHD   ProviderConfig
	Yahoo   ProviderConfig

	// Timeout bounds every provider HTTP call.
	Timeout time.Duration
	// RequestsPerSecond caps the request rate per provider.
	RequestsPerSecond float64
	// CacheTTL is how long a resolved price stays in the Redis cache.
	CacheTTL time.Duration
}

// SummaryConfig holds the text-summary collaborator settings.
type SummaryConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// SchedulerConfig holds the background job intervals.
type SchedulerConfig struct {
	RefreshInterval  time.Duration
	SnapshotInterval time.Duration
	// RefreshDebounce coalesces rapid on-demand refresh triggers.
	RefreshDebounce time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "olympe"),
			Password: getEnv("DB_PASSWORD", "olympe"),
			DBName:   getEnv("DB_NAME", "portfolio"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Kafka: KafkaConfig{
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			MovementsTopic: getEnv("KAFKA_MOVEMENTS_TOPIC", "portfolio.movements"),
			PricesTopic:    getEnv("KAFKA_PRICES_TOPIC", "portfolio.prices"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "portfolio-service"),
		},
		Providers: ProvidersConfig{
			Finnhub: ProviderConfig{
				APIKey:  getEnv("FINNHUB_API_KEY", ""),
				BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			},
			EODHD: ProviderConfig{
				APIKey:  getEnv("EODHD_API_KEY", ""),
				BaseURL: getEnv("EODHD_BASE_URL", "https://eodhd.com/api"),
			},
			Yahoo: ProviderConfig{
				BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			},
			Timeout:           getDuration("PROVIDER_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getFloat("PROVIDER_RATE_LIMIT", 5),
			CacheTTL:          getDuration("PRICE_CACHE_TTL", 5*time.Minute),
		},
		Summary: SummaryConfig{
			Endpoint: getEnv("SUMMARY_ENDPOINT", ""),
			APIKey:   getEnv("SUMMARY_API_KEY", ""),
			Model:    getEnv("SUMMARY_MODEL", "mistral-small-latest"),
		},
		Scheduler: SchedulerConfig{
			RefreshInterval:  getDuration("REFRESH_INTERVAL", time.Hour),
			SnapshotInterval: getDuration("SNAPSHOT_INTERVAL", 6*time.Hour),
			RefreshDebounce:  getDuration("REFRESH_DEBOUNCE", 2*time.Second),
		},
		Timezone: getEnv("APP_TIMEZONE", "Europe/Paris"),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
