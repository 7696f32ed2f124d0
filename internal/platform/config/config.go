package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// Scheduler settings
	SchedulerEnabled      bool
	SchedulerTickInterval time.Duration

	// Dispatcher settings
	ReferenceRetryLimit int
	PluginTimeout       time.Duration

	// Rate limiting, e.g. "100-M" for 100 requests/minute
	RateLimit string
}

// LoadConfig loads configuration from environment variables and a .env file
// if present. Environment variables override .env values.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULER_TICK_INTERVAL", "1m")
	viper.SetDefault("REFERENCE_RETRY_LIMIT", 3)
	viper.SetDefault("PLUGIN_TIMEOUT", "5s")
	viper.SetDefault("RATE_LIMIT", "300-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	tickStr := viper.GetString("SCHEDULER_TICK_INTERVAL")
	tick, err := time.ParseDuration(tickStr)
	if err != nil || tick <= 0 {
		tick = time.Minute
		if tickStr != "" {
			log.Printf("Warning: Invalid value for SCHEDULER_TICK_INTERVAL ('%s'). Defaulting to %s.\n", tickStr, tick)
		}
	}

	pluginTimeoutStr := viper.GetString("PLUGIN_TIMEOUT")
	pluginTimeout, err := time.ParseDuration(pluginTimeoutStr)
	if err != nil || pluginTimeout <= 0 {
		pluginTimeout = 5 * time.Second
		if pluginTimeoutStr != "" {
			log.Printf("Warning: Invalid value for PLUGIN_TIMEOUT ('%s'). Defaulting to %s.\n", pluginTimeoutStr, pluginTimeout)
		}
	}

	retryLimit := viper.GetInt("REFERENCE_RETRY_LIMIT")
	if retryLimit < 1 {
		retryLimit = 3
		log.Printf("Warning: REFERENCE_RETRY_LIMIT must be at least 1. Defaulting to %d.\n", retryLimit)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.SchedulerEnabled = viper.GetBool("SCHEDULER_ENABLED")
	cfg.SchedulerTickInterval = tick
	cfg.ReferenceRetryLimit = retryLimit
	cfg.PluginTimeout = pluginTimeout
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}
