// Package config loads server configuration from file and environment.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Server  ServerConfig
	Decoys  DecoyConfig
	Sweep   SweepConfig
	Metrics MetricsConfig
	Data    DataConfig
	Speech  SpeechConfig
	Radio   RadioConfig
}

type ServerConfig struct {
	Port        int
	ReadTimeout int // seconds
}

type DecoyConfig struct {
	MinDistance float64 // meters
	MaxDistance float64 // meters
	FallbackLat float64
	FallbackLon float64
}

type SweepConfig struct {
	Interval int // seconds
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type DataConfig struct {
	Dir string
}

type SpeechConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type RadioConfig struct {
	Enabled     bool
	CountryCode string
	Duration    int // seconds per captured segment
	Stream      string
}

var (
	config *AppConfig
	once   sync.Once
)

// Load reads config.yaml (if present) plus BEACON_* env overrides.
// Safe to call more than once; only the first call loads.
func Load(env string) (*AppConfig, error) {
	var loadErr error
	once.Do(func() {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/beacon")

		setDefaults()
		bindEnvVars()

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				loadErr = fmt.Errorf("read config: %w", err)
				return
			}
			// defaults and env only
		}

		c := &AppConfig{}
		if err := viper.Unmarshal(c); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := c.Validate(); err != nil {
			loadErr = err
			return
		}

		config = c
	})

	if loadErr != nil {
		return nil, loadErr
	}
	return config, nil
}
