package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Depthsignal DepthsignalConfig `yaml:"depthsignal"`
	Server      ServerConfig      `yaml:"server"`
	Aggregator  AggregatorConfig  `yaml:"aggregator"`
	Reader      ReaderConfig      `yaml:"reader"`
	Source      SourceConfig      `yaml:"source"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type DepthsignalConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ServerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type AggregatorConfig struct {
	// PollInterval is the fixed cycle period. Cycles never overlap.
	PollInterval time.Duration `yaml:"poll_interval"`
	// HistoryWindow bounds the retained imbalance history.
	HistoryWindow time.Duration `yaml:"history_window"`
	// TrendWindow bounds the readings considered by trend classification.
	TrendWindow time.Duration `yaml:"trend_window"`
	// SubscriberBuffer is the per-subscriber outbound queue length.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

type ReaderConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type SourceConfig struct {
	Binance BinanceSourceConfig `yaml:"binance"`
	Bybit   BybitSourceConfig   `yaml:"bybit"`
	Kucoin  KucoinSourceConfig  `yaml:"kucoin"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type BinanceSourceConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	URL            string               `yaml:"url"`
	DepthLimit     int                  `yaml:"depth_limit"`
	Symbols        map[string]string    `yaml:"symbols"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type BybitSourceConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	URL            string               `yaml:"url"`
	DepthLimit     int                  `yaml:"depth_limit"`
	Symbols        map[string]string    `yaml:"symbols"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type KucoinSourceConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	URL            string               `yaml:"url"`
	Symbols        map[string]string    `yaml:"symbols"`
	RateLimitRPS   float64              `yaml:"rate_limit_rps"`
	RateLimitBurst int                  `yaml:"rate_limit_burst"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled"`
	// FastTTL applies to funding, open interest, long/short ratio,
	// metals and macro index lookups.
	FastTTL time.Duration `yaml:"fast_ttl"`
	// OnchainTTL applies to the slow-moving on-chain statistics feed.
	OnchainTTL time.Duration `yaml:"onchain_ttl"`
	MetalsURL  string        `yaml:"metals_url"`
	IndexURL   string        `yaml:"index_url"`
	OnchainURL string        `yaml:"onchain_url"`
}

type MetricsConfig struct {
	Prometheus bool             `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Region    string        `yaml:"region"`
	Namespace string        `yaml:"namespace"`
	Interval  time.Duration `yaml:"interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// LoadConfig reads and validates the YAML configuration at path.
// Environment variables override selected fields so deployments can
// keep secrets and regions out of the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		config.Server.Address = strings.TrimSpace(v)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Default returns the built-in configuration used when no file is
// supplied; it is also the base over which YAML values are layered.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Depthsignal: DepthsignalConfig{
			Name:    "depthsignal",
			Version: "dev",
		},
		Server: ServerConfig{
			Enabled:      true,
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Aggregator: AggregatorConfig{
			PollInterval:     2 * time.Second,
			HistoryWindow:    20 * time.Minute,
			TrendWindow:      15 * time.Minute,
			SubscriberBuffer: 8,
		},
		Reader: ReaderConfig{
			Timeout: 5 * time.Second,
		},
		Source: SourceConfig{
			Binance: BinanceSourceConfig{
				Enabled:    true,
				URL:        "https://fapi.binance.com",
				DepthLimit: 50,
				Symbols: map[string]string{
					"BTC": "BTCUSDT",
					"ETH": "ETHUSDT",
				},
				ConnectionPool: defaultPool(),
			},
			Bybit: BybitSourceConfig{
				Enabled:    true,
				URL:        "https://api.bybit.com",
				DepthLimit: 50,
				Symbols: map[string]string{
					"BTC": "BTCUSDT",
					"ETH": "ETHUSDT",
				},
				ConnectionPool: defaultPool(),
			},
			Kucoin: KucoinSourceConfig{
				Enabled: true,
				URL:     "https://api-futures.kucoin.com/api/v1/level2/snapshot",
				Symbols: map[string]string{
					"BTC": "XBTUSDTM",
					"ETH": "ETHUSDTM",
				},
				RateLimitRPS:   5,
				RateLimitBurst: 5,
				ConnectionPool: defaultPool(),
			},
		},
		Enrichment: EnrichmentConfig{
			Enabled:    true,
			FastTTL:    60 * time.Second,
			OnchainTTL: 3600 * time.Second,
			MetalsURL:  "https://api.gold-api.com/price/XAU",
			IndexURL:   "https://api.alternative.me/fng/",
			OnchainURL: "https://api.blockchain.info/stats",
		},
		Metrics: MetricsConfig{
			Prometheus: true,
			CloudWatch: CloudWatchConfig{
				Enabled:   false,
				Namespace: "Depthsignal",
				Interval:  60 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func defaultPool() ConnectionPoolConfig {
	return ConnectionPoolConfig{
		MaxIdleConns:    10,
		MaxConnsPerHost: 10,
		IdleConnTimeout: 90 * time.Second,
	}
}

func validateConfig(config *Config) error {
	if config.Aggregator.PollInterval <= 0 {
		return fmt.Errorf("aggregator poll_interval must be positive")
	}
	if config.Aggregator.HistoryWindow < config.Aggregator.TrendWindow {
		return fmt.Errorf("aggregator history_window must cover the trend_window")
	}
	if config.Aggregator.SubscriberBuffer <= 0 {
		return fmt.Errorf("aggregator subscriber_buffer must be positive")
	}
	if config.Reader.Timeout <= 0 {
		return fmt.Errorf("reader timeout must be positive")
	}
	if config.Server.Enabled && strings.TrimSpace(config.Server.Address) == "" {
		return fmt.Errorf("server address must be set when the server is enabled")
	}
	if config.Enrichment.Enabled {
		if config.Enrichment.FastTTL <= 0 || config.Enrichment.OnchainTTL <= 0 {
			return fmt.Errorf("enrichment TTLs must be positive")
		}
	}
	for name, src := range map[string]map[string]string{
		"binance": config.Source.Binance.Symbols,
		"bybit":   config.Source.Bybit.Symbols,
		"kucoin":  config.Source.Kucoin.Symbols,
	} {
		for _, asset := range []string{"BTC", "ETH"} {
			if strings.TrimSpace(src[asset]) == "" {
				return fmt.Errorf("source %s is missing a symbol for %s", name, asset)
			}
		}
	}
	return nil
}
