package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Staging   StagingConfig
	Queue     QueueConfig
	Orders    OrdersConfig
	Gateway   GatewayConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	Timezone     string
	MaxIdleConns int
	MaxOpenConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// StagingConfig selects where in-flight transaction state is kept
type StagingConfig struct {
	Backend string // memory | redis
	TTL     time.Duration
}

// QueueConfig configures the side-effect queue
type QueueConfig struct {
	Enabled         bool
	Name            string
	MaxAttempts     int
	DispatchTimeout time.Duration
}

type OrdersConfig struct {
	CashOperationDeleteWindow time.Duration
	CouponReopenPolicy        string // keep | release
}

type GatewayConfig struct {
	CallbackToken string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "posflow-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "posflow")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("STAGING_BACKEND", "memory")
	viper.SetDefault("STAGING_TTL_SECONDS", 300)
	viper.SetDefault("QUEUE_ENABLED", false)
	viper.SetDefault("QUEUE_NAME", "side-effects")
	viper.SetDefault("QUEUE_MAX_ATTEMPTS", 2)
	viper.SetDefault("QUEUE_DISPATCH_TIMEOUT_MS", 2000)
	viper.SetDefault("GATEWAY_CALLBACK_TOKEN", "")
	viper.SetDefault("CASH_OPERATION_DELETE_WINDOW_MINUTES", 1440)
	viper.SetDefault("COUPON_REOPEN_POLICY", "keep")

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			Name:         viper.GetString("DB_NAME"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			SSLMode:      viper.GetString("DB_SSL_MODE"),
			Timezone:     viper.GetString("DB_TIMEZONE"),
			MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Staging: StagingConfig{
			Backend: viper.GetString("STAGING_BACKEND"),
			TTL:     time.Duration(viper.GetInt("STAGING_TTL_SECONDS")) * time.Second,
		},
		Queue: QueueConfig{
			Enabled:         viper.GetBool("QUEUE_ENABLED"),
			Name:            viper.GetString("QUEUE_NAME"),
			MaxAttempts:     viper.GetInt("QUEUE_MAX_ATTEMPTS"),
			DispatchTimeout: time.Duration(viper.GetInt("QUEUE_DISPATCH_TIMEOUT_MS")) * time.Millisecond,
		},
		Orders: OrdersConfig{
			CashOperationDeleteWindow: time.Duration(viper.GetInt("CASH_OPERATION_DELETE_WINDOW_MINUTES")) * time.Minute,
			CouponReopenPolicy:        viper.GetString("COUPON_REOPEN_POLICY"),
		},
		Gateway: GatewayConfig{
			CallbackToken: viper.GetString("GATEWAY_CALLBACK_TOKEN"),
		},
	}
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.Staging.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("STAGING_BACKEND must be memory or redis, got %q", c.Staging.Backend)
	}
	if c.Staging.TTL <= 0 {
		return fmt.Errorf("STAGING_TTL_SECONDS must be positive")
	}
	switch c.Orders.CouponReopenPolicy {
	case "keep", "release":
	default:
		return fmt.Errorf("COUPON_REOPEN_POLICY must be keep or release, got %q", c.Orders.CouponReopenPolicy)
	}
	if c.Queue.Enabled && c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Queue.DispatchTimeout <= 0 {
		return fmt.Errorf("QUEUE_DISPATCH_TIMEOUT_MS must be positive")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
