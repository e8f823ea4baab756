package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Commerce  CommerceConfig  `yaml:"commerce"`
	Database  DatabaseConfig  `yaml:"database"`
	Minio     MinioConfig     `yaml:"minio"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	Contract  ContractConfig  `yaml:"contract"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port int `yaml:"port" env:"SERVER_PORT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CommerceConfig points at the GraphQL commerce backend.
type CommerceConfig struct {
	GraphQLURL     string `yaml:"graphql_url" env:"COMMERCE_GRAPHQL_URL"`
	StoreCode      string `yaml:"store_code" env:"COMMERCE_STORE_CODE"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"COMMERCE_TIMEOUT_SECONDS"`
}

type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey  string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey  string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket     string `yaml:"bucket" env:"MINIO_BUCKET"`
	Region     string `yaml:"region" env:"MINIO_REGION"`
	UseSSL     bool   `yaml:"use_ssl" env:"MINIO_USE_SSL"`
	ExpireDays int    `yaml:"expire_days" env:"MINIO_EXPIRE_DAYS"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr" env:"REDIS_ADDR"`
	Password   string `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"REDIS_DB"`
	TTLMinutes int    `yaml:"ttl_minutes" env:"REDIS_SESSION_TTL_MINUTES"`
}

// KafkaConfig configures e-mail notification dispatch. An empty broker list
// falls back to logging notifications.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	EmailTopic string   `yaml:"email_topic" env:"KAFKA_EMAIL_TOPIC"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenExpireHours int    `yaml:"token_expire_hours" env:"AUTH_TOKEN_EXPIRE_HOURS"`
	CookieName       string `yaml:"cookie_name" env:"AUTH_COOKIE_NAME"`
	CookieSecure     bool   `yaml:"cookie_secure" env:"AUTH_COOKIE_SECURE"`
	SignInPath       string `yaml:"sign_in_path" env:"AUTH_SIGN_IN_PATH"`
}

type ContractConfig struct {
	DefaultLocale string `yaml:"default_locale" env:"CONTRACT_DEFAULT_LOCALE"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_PER_MINUTE"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

var GlobalConfig *Config

// Load reads the YAML file at path and overlays environment variables on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Commerce.TimeoutSeconds == 0 {
		c.Commerce.TimeoutSeconds = 30
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Redis.TTLMinutes == 0 {
		c.Redis.TTLMinutes = 120
	}
	if c.Kafka.EmailTopic == "" {
		c.Kafka.EmailTopic = "notifications.email"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "session_token"
	}
	if c.Auth.SignInPath == "" {
		c.Auth.SignInPath = "/sign-in"
	}
	if c.Contract.DefaultLocale == "" {
		c.Contract.DefaultLocale = "en"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}

// CommerceTimeout returns the HTTP timeout for GraphQL calls.
func (c *Config) CommerceTimeout() time.Duration {
	return time.Duration(c.Commerce.TimeoutSeconds) * time.Second
}

// ConnLifetime parses the database connection lifetime, defaulting to one hour.
func (c *DatabaseConfig) ConnLifetime() time.Duration {
	if c.ConnMaxLifetime == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.ConnMaxLifetime)
	if err != nil {
		return time.Hour
	}
	return d
}
