package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StoreConfig struct {
	// Driver selects the snapshot and ledger backend: "memory" or "duckdb".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type ClassificationConfig struct {
	DecommissionThresholdDays int `mapstructure:"decommission_threshold_days"`
	ReviewThresholdDays       int `mapstructure:"review_threshold_days"`
}

type DiscoveryConfig struct {
	// Source selects the telemetry provider: "static" or "databricks".
	Source       string        `mapstructure:"source"`
	ProfilesPath string        `mapstructure:"profiles_path"`
	Interval     time.Duration `mapstructure:"interval"`
	Concurrency  int           `mapstructure:"concurrency"`
}

type ExecutionConfig struct {
	Concurrency        int     `mapstructure:"concurrency"`
	RetryLimit         int     `mapstructure:"retry_limit"`
	RatePerSecond      float64 `mapstructure:"rate_per_second"`
	AutoApproveMonitor bool    `mapstructure:"auto_approve_monitor"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	Server            ServerConfig         `mapstructure:"server"`
	Store             StoreConfig          `mapstructure:"store"`
	Classification    ClassificationConfig `mapstructure:"classification"`
	ProtectedPatterns []string             `mapstructure:"protected_patterns"`
	Discovery         DiscoveryConfig      `mapstructure:"discovery"`
	Execution         ExecutionConfig      `mapstructure:"execution"`
	Kafka             KafkaConfig          `mapstructure:"kafka"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "steward.db")
	v.SetDefault("classification.decommission_threshold_days", 45)
	v.SetDefault("classification.review_threshold_days", 14)
	v.SetDefault("protected_patterns", []string{"prod-*", "production-*"})
	v.SetDefault("discovery.source", "static")
	v.SetDefault("discovery.interval", time.Hour)
	v.SetDefault("discovery.concurrency", 4)
	v.SetDefault("execution.concurrency", 2)
	v.SetDefault("execution.retry_limit", 3)
	v.SetDefault("execution.rate_per_second", 5)
	v.SetDefault("execution.auto_approve_monitor", true)
	v.SetDefault("kafka.topic", "steward.actions")
}

// LoadConfig reads the configuration file at path. A missing file yields
// the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Provider serves the current configuration and reloads it when the file
// changes on disk. Readers always see a complete config, never a partial
// reload.
type Provider struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg Config
}

func NewProvider(path string) (*Provider, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	p := &Provider{v: v}
	if err := p.reload(); err != nil {
		return nil, err
	}

	if path != "" {
		v.OnConfigChange(func(_ fsnotify.Event) {
			if err := p.reload(); err != nil {
				log.Warn().Err(err).Msg("config reload failed, keeping previous config")
			}
		})
		v.WatchConfig()
	}
	return p, nil
}

func (p *Provider) reload() error {
	var cfg Config
	if err := p.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

func (p *Provider) Current() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}
