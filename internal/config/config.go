package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for a service binary.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Broker   BrokerConfig
	Cache    CacheConfig
	Auth     AuthConfig
	S3       S3Config
	Gateway  GatewayConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type BrokerConfig struct {
	// Namespace is the well-known stream prefix shared by every service
	// in a deployment; routing keys are appended to it.
	Namespace string
	// MaxDeliveries bounds redelivery before a message is dead-lettered.
	MaxDeliveries int
	// ReclaimMinIdle is how long a failed delivery stays pending before
	// the reclaim loop retries it.
	ReclaimMinIdle time.Duration
	// StreamMaxLen caps stream length (approximate trim).
	StreamMaxLen int64
}

type CacheConfig struct {
	TTL time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
}

// GatewayConfig maps URL prefixes to downstream service base URLs.
type GatewayConfig struct {
	IdentityURL string
	PostsURL    string
	MediaURL    string
	SearchURL   string
}

// Load loads configuration from environment variables, with an optional
// .env file for local development. defaultPort is the service's port
// when SERVER_PORT is unset.
func Load(defaultPort string) (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", defaultPort),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "openfeed"),
			Password: getEnv("DB_PASSWORD", "openfeed"),
			Name:     getEnv("DB_NAME", "openfeed"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Broker: BrokerConfig{
			Namespace:      getEnv("BROKER_NAMESPACE", "feed.events"),
			MaxDeliveries:  getEnvAsInt("BROKER_MAX_DELIVERIES", 5),
			ReclaimMinIdle: getEnvAsDuration("BROKER_RECLAIM_MIN_IDLE", 30*time.Second),
			StreamMaxLen:   int64(getEnvAsInt("BROKER_STREAM_MAXLEN", 100000)),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 300*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "dev-secret-do-not-use"),
			AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		S3: S3Config{
			Region:     getEnv("S3_REGION", ""),
			Bucket:     getEnv("S3_BUCKET", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			PublicBase: getEnv("S3_PUBLIC_BASE", ""),
		},
		Gateway: GatewayConfig{
			IdentityURL: getEnv("IDENTITY_SERVICE_URL", "http://localhost:3001"),
			PostsURL:    getEnv("POSTS_SERVICE_URL", "http://localhost:3002"),
			MediaURL:    getEnv("MEDIA_SERVICE_URL", "http://localhost:3003"),
			SearchURL:   getEnv("SEARCH_SERVICE_URL", "http://localhost:3004"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
