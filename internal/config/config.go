package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Redis       RedisConfig
	Remote      RemoteConfig
	Checkout    CheckoutConfig
	LogLevel    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RemoteConfig struct {
	// BaseURL is the storefront backend hosting the discount, catalog,
	// order and payment APIs.
	BaseURL string
}

type CheckoutConfig struct {
	BuyNowCouponTTL time.Duration
	// BypassPayment places orders without a payment-initiation call, used to
	// validate routing and store assignment in test environments.
	BypassPayment bool
	ReturnURL     string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", "0")
	viper.SetDefault("BUY_NOW_COUPON_TTL", "5m")
	viper.SetDefault("BYPASS_PAYMENT_CHECKOUT", "true")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	ttl, err := time.ParseDuration(getEnvOrViper("BUY_NOW_COUPON_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUY_NOW_COUPON_TTL: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Remote: RemoteConfig{
			BaseURL: getEnvOrViper("REMOTE_API_BASE_URL", ""),
		},
		Checkout: CheckoutConfig{
			BuyNowCouponTTL: ttl,
			BypassPayment:   getEnvOrViper("BYPASS_PAYMENT_CHECKOUT", "true") == "true",
			ReturnURL:       getEnvOrViper("CHECKOUT_RETURN_URL", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("REMOTE_API_BASE_URL is required")
	}
	if cfg.Checkout.BuyNowCouponTTL <= 0 {
		return nil, fmt.Errorf("BUY_NOW_COUPON_TTL must be positive")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
