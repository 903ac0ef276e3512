package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the capture agent.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	PostgresURL    string `mapstructure:"POSTGRES_URL"` // optional capture archive
	BackendURL     string `mapstructure:"BACKEND_URL"`
	MarketplaceURL string `mapstructure:"MARKETPLACE_URL"`
	Headless       bool   `mapstructure:"BROWSER_HEADLESS"`
	PageSettleMS   int    `mapstructure:"PAGE_SETTLE_MS"` // delay before reading embedded page state
	NavPollMS      int    `mapstructure:"NAV_POLL_MS"`    // SPA navigation watcher interval
	SyncRPS        int    `mapstructure:"SYNC_RPS"`       // backend call pacing during bulk resync
}

// Load reads configuration from a .env file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// The .env file is optional; environment variables alone are enough in
	// production.
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("BACKEND_URL", "https://dcard-auto.web.app/api")
	viper.SetDefault("MARKETPLACE_URL", "https://shopee.tw")
	viper.SetDefault("BROWSER_HEADLESS", false)
	viper.SetDefault("PAGE_SETTLE_MS", 1000)
	viper.SetDefault("NAV_POLL_MS", 500)
	viper.SetDefault("SYNC_RPS", 4)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
