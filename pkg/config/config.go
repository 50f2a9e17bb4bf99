package config

import (
	"fmt"
	"time"

	"meshline-backend/pkg/constants"
	"meshline-backend/pkg/env"
)

// Config holds all configuration for the realtime service
type Config struct {
	Server    ServerConfig
	Cockroach CockroachConfig
	Cassandra CassandraConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Push      PushConfig
	Worker    WorkerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
}

// CockroachConfig holds CockroachDB configuration
type CockroachConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// CassandraConfig holds Cassandra configuration
type CassandraConfig struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// PushConfig holds push provider configuration
type PushConfig struct {
	Provider           string // fcm, apns, none
	FCMCredentialsPath string
	FCMProjectID       string
	APNsKeyPath        string
	APNsKeyID          string
	APNsTeamID         string
	APNsBundleID       string
	APNsProduction     bool
}

// WorkerConfig holds periodic worker configuration
type WorkerConfig struct {
	ScheduledReleaseInterval  time.Duration
	SelfDestructSweepInterval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output string // stdout, stderr
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        env.GetInt("PORT", 8080),
			Environment: env.GetString("ENV", "development"),
			ServiceName: env.GetString("SERVICE_NAME", "realtime-service"),
		},
		Cockroach: CockroachConfig{
			Host:     env.GetString("COCKROACH_HOST", "localhost"),
			Port:     env.GetInt("COCKROACH_PORT", 26257),
			User:     env.GetString("COCKROACH_USER", "root"),
			Password: env.GetStringFromFile("COCKROACH_PASSWORD", ""),
			Database: env.GetString("COCKROACH_DATABASE", "meshline_db"),
			SSLMode:  env.GetString("COCKROACH_SSLMODE", "disable"),
			MaxConns: env.GetInt("COCKROACH_MAX_CONNS", 25),
			MinConns: env.GetInt("COCKROACH_MIN_CONNS", 5),
		},
		Cassandra: CassandraConfig{
			Hosts:    []string{env.GetString("CASSANDRA_HOST", "localhost")},
			Keyspace: env.GetString("CASSANDRA_KEYSPACE", "meshline_ks"),
			Username: env.GetStringFromFile("CASSANDRA_USER", ""),
			Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
			Timeout:  env.GetDuration("CASSANDRA_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetInt("REDIS_POOL_SIZE", 10),
			Timeout:  env.GetDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret: env.GetStringFromFile("JWT_SECRET", ""),
		},
		Push: PushConfig{
			Provider:           env.GetString("PUSH_PROVIDER", "none"),
			FCMCredentialsPath: env.GetString("FCM_CREDENTIALS_PATH", ""),
			FCMProjectID:       env.GetString("FCM_PROJECT_ID", ""),
			APNsKeyPath:        env.GetString("APNS_KEY_PATH", ""),
			APNsKeyID:          env.GetString("APNS_KEY_ID", ""),
			APNsTeamID:         env.GetString("APNS_TEAM_ID", ""),
			APNsBundleID:       env.GetString("APNS_BUNDLE_ID", ""),
			APNsProduction:     env.GetBool("APNS_PRODUCTION", false),
		},
		Worker: WorkerConfig{
			ScheduledReleaseInterval:  env.GetDuration("SCHEDULED_RELEASE_INTERVAL", constants.ScheduledReleaseInterval),
			SelfDestructSweepInterval: env.GetDuration("SELF_DESTRUCT_SWEEP_INTERVAL", constants.SelfDestructSweepInterval),
		},
		Log: LogConfig{
			Level:  env.GetString("LOG_LEVEL", "info"),
			Format: env.GetString("LOG_FORMAT", "json"),
			Output: env.GetString("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Environment == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	if c.Worker.ScheduledReleaseInterval <= 0 || c.Worker.SelfDestructSweepInterval <= 0 {
		return fmt.Errorf("worker intervals must be positive")
	}

	return nil
}
