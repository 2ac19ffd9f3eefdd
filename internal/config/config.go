package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Quotes   Quotes   `mapstructure:"quotes"`
	Journal  Journal  `mapstructure:"journal"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Quotes holds the configuration for the external market-data source
// and the caches in front of it.
type Quotes struct {
	BaseURL              string  `mapstructure:"base_url"`
	ApiKey               string  `mapstructure:"apiKey"`
	RateLimit            float64 `mapstructure:"rate_limit"`
	RateLimitBurst       int     `mapstructure:"rate_limit_burst"`
	CacheTTLMinutes      int     `mapstructure:"cache_ttl_minutes"`
	FailureWindowMinutes int     `mapstructure:"failure_window_minutes"`
	SeriesCacheTTLHours  int     `mapstructure:"series_cache_ttl_hours"`
	SeriesCacheCapacity  int     `mapstructure:"series_cache_capacity"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port    int `mapstructure:"port"`
	ApiPort int `mapstructure:"api_port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Journal holds the configuration for the metrics recompute loop.
type Journal struct {
	UserID          string  `mapstructure:"user_id"`
	StartingCapital float64 `mapstructure:"starting_capital"`
	TickInterval    int     `mapstructure:"tick_interval"`
	PersistDerived  bool    `mapstructure:"persist_derived"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("quotes.rate_limit", 10)      // requests per second
	viper.SetDefault("quotes.rate_limit_burst", 5) // burst size
	viper.SetDefault("quotes.cache_ttl_minutes", 30)
	viper.SetDefault("quotes.failure_window_minutes", 120)
	viper.SetDefault("quotes.series_cache_ttl_hours", 24)
	viper.SetDefault("quotes.series_cache_capacity", 50)
	viper.SetDefault("journal.user_id", "default")
	viper.SetDefault("journal.starting_capital", 25000)
	viper.SetDefault("journal.tick_interval", 300)
	viper.SetDefault("journal.persist_derived", true)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
