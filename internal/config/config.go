package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Storage        string
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	SSLMode        string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	NatsHost       string
	NatsPort       string
	ApiPort        string
	BusProvider    string
	GRPCHost       string
	GRPCPort       string
	GRPCListenPort string
	NotifyBuffer   int
	LogLevel       string
}

// New loads and validates configuration from environment variables.
// Redis is optional: with no LOYALTY_REDIS_HOST the service runs without a cache.
// The gRPC event server only starts when LOYALTY_GRPC_LISTEN_PORT is set.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage:        getEnv("LOYALTY_STORAGE", "postgres"),
		DBUser:         os.Getenv("LOYALTY_POSTGRES_USER"),
		DBPass:         os.Getenv("LOYALTY_POSTGRES_PASSWORD"),
		DBHost:         os.Getenv("LOYALTY_POSTGRES_HOST"),
		DBPort:         getEnv("LOYALTY_POSTGRES_PORT", "5432"),
		DBName:         os.Getenv("LOYALTY_POSTGRES_DB"),
		SSLMode:        getEnv("LOYALTY_POSTGRES_SSLMODE", "disable"),
		RedisHost:      os.Getenv("LOYALTY_REDIS_HOST"),
		RedisPort:      getEnv("LOYALTY_REDIS_PORT", "6379"),
		RedisPassword:  os.Getenv("LOYALTY_REDIS_PASSWORD"),
		RedisDB:        getEnvInt("LOYALTY_REDIS_DB", 0),
		NatsHost:       os.Getenv("LOYALTY_NATS_HOST"),
		NatsPort:       getEnv("LOYALTY_NATS_PORT", "4222"),
		GRPCHost:       os.Getenv("LOYALTY_GRPC_HOST"),
		GRPCPort:       os.Getenv("LOYALTY_GRPC_PORT"),
		GRPCListenPort: os.Getenv("LOYALTY_GRPC_LISTEN_PORT"),
		BusProvider:    getEnv("LOYALTY_BUS_PROVIDER", "local"),
		ApiPort:        getEnv("LOYALTY_API_PORT", "8080"),
		NotifyBuffer:   getEnvInt("LOYALTY_NOTIFY_BUFFER", 1024),
		LogLevel:       getEnv("LOYALTY_LOG_LEVEL", "info"),
	}

	switch cfg.Storage {
	case "postgres":
		if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" {
			return nil, fmt.Errorf("missing required env for database: LOYALTY_POSTGRES_USER/HOST/DB")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("invalid storage %q, must be 'postgres' or 'memory'", cfg.Storage)
	}

	switch cfg.BusProvider {
	case "nats":
		if cfg.NatsHost == "" {
			return nil, fmt.Errorf("missing required env for nats bus: LOYALTY_NATS_HOST")
		}
	case "grpc":
		if cfg.GRPCHost == "" || cfg.GRPCPort == "" {
			return nil, fmt.Errorf("missing required env for grpc bus: LOYALTY_GRPC_HOST/PORT")
		}
	case "local":
	default:
		return nil, fmt.Errorf("invalid bus provider %q, must be 'nats', 'grpc' or 'local'", cfg.BusProvider)
	}

	if cfg.NotifyBuffer <= 0 {
		return nil, fmt.Errorf("LOYALTY_NOTIFY_BUFFER must be positive, got %d", cfg.NotifyBuffer)
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

// CacheEnabled reports whether a Redis host was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%s", c.GRPCHost, c.GRPCPort)
}

func (c *Config) ApiAddr() string {
	return ":" + c.ApiPort
}

// GRPCListenAddr returns the EventService listen address, or an error when
// the server is not configured and should not start.
func (c *Config) GRPCListenAddr() (string, error) {
	if c.GRPCListenPort == "" {
		return "", fmt.Errorf("gRPC event server is disabled (LOYALTY_GRPC_LISTEN_PORT is empty)")
	}
	return ":" + c.GRPCListenPort, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}
