package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MARKETVIEWER"

// Config holds all configuration for the market viewer.
type Config struct {
	// Exchange endpoint and HTTP settings
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Poll intervals per data kind
	ProductBookInterval  time.Duration `mapstructure:"product_book_interval"`
	MarketTradesInterval time.Duration `mapstructure:"market_trades_interval"`
	CandlesInterval      time.Duration `mapstructure:"candles_interval"`
	ProductInterval      time.Duration `mapstructure:"product_interval"`

	// Candle request window, RFC 3339
	CandlesStart       string `mapstructure:"candles_start"`
	CandlesEnd         string `mapstructure:"candles_end"`
	CandlesGranularity string `mapstructure:"candles_granularity"`

	MarketTradesLimit int    `mapstructure:"market_trades_limit"`
	BookDepth         int    `mapstructure:"book_depth"`
	DefaultProductID  string `mapstructure:"default_product_id"`

	// Parsed from CandlesStart and CandlesEnd by Load.
	CandlesStartTime time.Time `mapstructure:"-"`
	CandlesEndTime   time.Time `mapstructure:"-"`
}

var defaults = map[string]any{
	"base_url":               "https://api.coinbase.com/api/v3/brokerage",
	"request_timeout":        10 * time.Second,
	"log_level":              "info",
	"log_format":             "text",
	"product_book_interval":  time.Second,
	"market_trades_interval": time.Second,
	"candles_interval":       time.Second,
	"product_interval":       200 * time.Millisecond,
	"candles_start":          "2022-01-01T00:00:00Z",
	"candles_end":            "2022-01-02T00:00:00Z",
	"candles_granularity":    "ONE_HOUR",
	"market_trades_limit":    10,
	"book_depth":             10,
	"default_product_id":     "BTC-USD",
}

var granularities = map[string]bool{
	"ONE_MINUTE":     true,
	"FIVE_MINUTE":    true,
	"FIFTEEN_MINUTE": true,
	"THIRTY_MINUTE":  true,
	"ONE_HOUR":       true,
	"TWO_HOUR":       true,
	"SIX_HOUR":       true,
	"ONE_DAY":        true,
}

// Load reads configuration from defaults, an optional config file, environment
// variables and overrides, in increasing order of precedence.
//
// If path is empty, config.yaml is looked up in the working directory and in
// $HOME/.marketviewer and skipped when absent. An explicit path must exist.
//
// Every key can be set through the environment as MARKETVIEWER_<KEY>, e.g.
//   - MARKETVIEWER_BASE_URL
//   - MARKETVIEWER_LOG_LEVEL
//   - MARKETVIEWER_PRODUCT_INTERVAL (Go duration, e.g. 200ms)
//   - MARKETVIEWER_DEFAULT_PRODUCT_ID
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.marketviewer")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Bind environment variables for every known key
	for key := range defaults {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.BaseURL == "" {
		problems = append(problems, "base_url is empty")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "request_timeout must be positive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q is not text or json", c.LogFormat))
	}

	intervals := []struct {
		key   string
		value time.Duration
	}{
		{"product_book_interval", c.ProductBookInterval},
		{"market_trades_interval", c.MarketTradesInterval},
		{"candles_interval", c.CandlesInterval},
		{"product_interval", c.ProductInterval},
	}
	for _, iv := range intervals {
		if iv.value <= 0 {
			problems = append(problems, iv.key+" must be positive")
		}
	}

	var err error
	if c.CandlesStartTime, err = time.Parse(time.RFC3339, c.CandlesStart); err != nil {
		problems = append(problems, fmt.Sprintf("candles_start %q is not RFC 3339", c.CandlesStart))
	}
	if c.CandlesEndTime, err = time.Parse(time.RFC3339, c.CandlesEnd); err != nil {
		problems = append(problems, fmt.Sprintf("candles_end %q is not RFC 3339", c.CandlesEnd))
	}
	if !c.CandlesStartTime.IsZero() && !c.CandlesEndTime.IsZero() && !c.CandlesEndTime.After(c.CandlesStartTime) {
		problems = append(problems, "candles_end must be after candles_start")
	}
	if !granularities[c.CandlesGranularity] {
		problems = append(problems, fmt.Sprintf("candles_granularity %q is not supported", c.CandlesGranularity))
	}

	if c.MarketTradesLimit <= 0 {
		problems = append(problems, "market_trades_limit must be positive")
	}
	if c.BookDepth <= 0 {
		problems = append(problems, "book_depth must be positive")
	}
	if c.DefaultProductID == "" {
		problems = append(problems, "default_product_id is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
