// Package config loads dlobd's bootstrap configuration: per-market tick
// sizes and the ingest/metrics listen addresses, read from a YAML file
// with environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// MarketConfig is one entry in the bootstrap market list: which market
// to pre-create an Orderbook for, and at what tick size.
type MarketConfig struct {
	Index    uint16 `mapstructure:"index"`
	Kind     string `mapstructure:"kind"`
	TickSize uint64 `mapstructure:"tick_size"`
}

// MarketId resolves this entry's string Kind ("perp"/"spot") into a
// common.MarketId.
func (m MarketConfig) MarketId() (common.MarketId, error) {
	switch strings.ToLower(m.Kind) {
	case "perp":
		return common.NewMarketId(m.Index, common.MarketTypePerp), nil
	case "spot":
		return common.NewMarketId(m.Index, common.MarketTypeSpot), nil
	default:
		return common.MarketId{}, fmt.Errorf("config: unknown market kind %q", m.Kind)
	}
}

// IngestConfig configures the TCP front door.
type IngestConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Workers int    `mapstructure:"workers"`
}

// MetricsConfig configures the Prometheus /metrics HTTP server.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// LoggingConfig controls zerolog's global level and console-vs-JSON
// writer.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is dlobd's top-level configuration, maps directly onto the YAML
// file structure.
type Config struct {
	Markets []MarketConfig `mapstructure:"markets"`
	Ingest  IngestConfig   `mapstructure:"ingest"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logging LoggingConfig  `mapstructure:"logging"`
}

// Load reads config from a YAML file with DLOB_* environment overrides
// (e.g. DLOB_INGEST_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("DLOB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ingest.address", "0.0.0.0")
	v.SetDefault("ingest.port", 9001)
	v.SetDefault("ingest.workers", 16)
	v.SetDefault("metrics.address", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("config: at least one market must be listed under markets")
	}
	for i, m := range c.Markets {
		if _, err := m.MarketId(); err != nil {
			return fmt.Errorf("config: markets[%d]: %w", i, err)
		}
		if m.TickSize == 0 {
			return fmt.Errorf("config: markets[%d]: tick_size must be > 0", i)
		}
	}
	if c.Ingest.Port <= 0 {
		return fmt.Errorf("config: ingest.port must be > 0")
	}
	return nil
}
