package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL string

	HTTPPort string

	BinanceURL   string
	FetchTimeout time.Duration
	PingTimeout  time.Duration

	FetchCron string

	LogLevel     string
	IsProduction bool
}

func LoadConfig() (Config, error) {
	// .env is a local-dev convenience; real env vars win
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BINANCE_API_URL", "https://api.binance.com/api/v3")
	viper.SetDefault("BINANCE_TIMEOUT", "10s")
	viper.SetDefault("BINANCE_PING_TIMEOUT", "5s")
	viper.SetDefault("FETCH_CRON", "*/5 * * * *")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.AutomaticEnv()

	cfg := Config{
		HTTPPort:     viper.GetString("PORT"),
		BinanceURL:   strings.TrimRight(viper.GetString("BINANCE_API_URL"), "/"),
		FetchTimeout: viper.GetDuration("BINANCE_TIMEOUT"),
		PingTimeout:  viper.GetDuration("BINANCE_PING_TIMEOUT"),
		FetchCron:    viper.GetString("FETCH_CRON"),
		LogLevel:     viper.GetString("LOG_LEVEL"),
		IsProduction: viper.GetBool("IS_PRODUCTION"),
	}

	cfg.DatabaseURL = strings.TrimSpace(viper.GetString("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is empty")
	}

	if cfg.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("BINANCE_TIMEOUT must be positive, got %s", cfg.FetchTimeout)
	}
	if cfg.PingTimeout <= 0 {
		return Config{}, fmt.Errorf("BINANCE_PING_TIMEOUT must be positive, got %s", cfg.PingTimeout)
	}

	return cfg, nil
}
