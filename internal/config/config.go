package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the case engine service
type Config struct {
	Environment   string              `yaml:"environment"`
	Debug         bool                `yaml:"debug"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Redis         RedisConfig         `yaml:"redis"`
	Pursuit       PursuitConfig       `yaml:"pursuit"`
	Bail          BailConfig          `yaml:"bail"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig contains the operational HTTP endpoint settings
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL database settings
type DatabaseConfig struct {
	ConnectionString   string        `yaml:"connection_string"`
	MaxOpenConnections int           `yaml:"max_open_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
	ConnectionTimeout  time.Duration `yaml:"connection_timeout"`
	MigrationPath      string        `yaml:"migration_path"`
}

// KafkaConfig contains notification event publishing settings
type KafkaConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Brokers           []string      `yaml:"brokers"`
	NotificationTopic string        `yaml:"notification_topic"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BatchSize         int           `yaml:"batch_size"`
	BatchTimeout      time.Duration `yaml:"batch_timeout"`
}

// RedisConfig contains unread-counter cache settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PursuitConfig tunes the suspect pursuit thresholds and reward math
type PursuitConfig struct {
	IntensiveAfter   time.Duration `yaml:"intensive_after"`
	RewardMultiplier int64         `yaml:"reward_multiplier"`
}

// BailConfig bounds the acceptable bail amount in monetary base units
type BailConfig struct {
	MinAmount int64 `yaml:"min_amount"`
	MaxAmount int64 `yaml:"max_amount"`
}

// NotificationsConfig tunes tip reward issuance
type NotificationsConfig struct {
	TipRewardShare   float64 `yaml:"tip_reward_share"`
	TipRewardMinimum int64   `yaml:"tip_reward_minimum"`
}

// Load builds the configuration from defaults, an optional yaml file named by
// CONFIG_FILE, and environment variable overrides, in that order.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Debug:       getBoolEnv("DEBUG", false),

		Server: ServerConfig{
			HTTPPort:        getIntEnv("HTTP_PORT", 8080),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDurationEnv("IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},

		Database: DatabaseConfig{
			ConnectionString:   getEnv("DATABASE_URL", "postgres://localhost:5432/case_engine?sslmode=disable"),
			MaxOpenConnections: getIntEnv("DB_MAX_OPEN_CONNECTIONS", 25),
			MaxIdleConnections: getIntEnv("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnectionLifetime: getDurationEnv("DB_CONNECTION_LIFETIME", 1*time.Hour),
			ConnectionTimeout:  getDurationEnv("DB_CONNECTION_TIMEOUT", 30*time.Second),
			MigrationPath:      getEnv("DB_MIGRATION_PATH", "file://migrations"),
		},

		Kafka: KafkaConfig{
			Enabled:           getBoolEnv("KAFKA_ENABLED", false),
			Brokers:           []string{getEnv("KAFKA_BROKER", "localhost:9092")},
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "case-engine.notifications"),
			WriteTimeout:      getDurationEnv("KAFKA_WRITE_TIMEOUT", 10*time.Second),
			BatchSize:         getIntEnv("KAFKA_BATCH_SIZE", 100),
			BatchTimeout:      getDurationEnv("KAFKA_BATCH_TIMEOUT", 1*time.Second),
		},

		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},

		Pursuit: PursuitConfig{
			IntensiveAfter:   getDurationEnv("PURSUIT_INTENSIVE_AFTER", 30*24*time.Hour),
			RewardMultiplier: getInt64Env("PURSUIT_REWARD_MULTIPLIER", 20_000_000),
		},

		Bail: BailConfig{
			MinAmount: getInt64Env("BAIL_MIN_AMOUNT", 10_000_000),
			MaxAmount: getInt64Env("BAIL_MAX_AMOUNT", 50_000_000_000),
		},

		Notifications: NotificationsConfig{
			TipRewardShare:   getFloatEnv("TIP_REWARD_SHARE", 0.1),
			TipRewardMinimum: getInt64Env("TIP_REWARD_MINIMUM", 5_000_000),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database connection string is required")
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Pursuit.IntensiveAfter <= 0 {
		return fmt.Errorf("pursuit intensive_after must be positive")
	}
	if c.Pursuit.RewardMultiplier <= 0 {
		return fmt.Errorf("pursuit reward_multiplier must be positive")
	}
	if c.Bail.MinAmount <= 0 || c.Bail.MaxAmount <= c.Bail.MinAmount {
		return fmt.Errorf("invalid bail bounds: min=%d max=%d", c.Bail.MinAmount, c.Bail.MaxAmount)
	}
	if c.Notifications.TipRewardShare <= 0 || c.Notifications.TipRewardShare > 1 {
		return fmt.Errorf("tip_reward_share must be in (0, 1]")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
