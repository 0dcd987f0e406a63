// Copyright 2026 Matdan Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "matdan.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultRecordPlugin   = "badger"
	DefaultMetadataPlugin = "sqlite"
)

type Config struct {
	DataDir          string `yaml:"dataDir"          split_words:"true"`
	RecordPlugin     string `yaml:"recordPlugin"     envconfig:"MATDAN_RECORD_PLUGIN"`
	MetadataPlugin   string `yaml:"metadataPlugin"   envconfig:"MATDAN_METADATA_PLUGIN"`
	BindAddr         string `yaml:"bindAddr"         split_words:"true"`
	BlockCutInterval string `yaml:"blockCutInterval" split_words:"true"`
	TokenTTL         string `yaml:"tokenTtl"         envconfig:"MATDAN_TOKEN_TTL"`
	ShutdownTimeout  string `yaml:"shutdownTimeout"  split_words:"true"`
	MaxBlockTxs      int    `yaml:"maxBlockTxs"      split_words:"true"`
	MetricsPort      uint   `yaml:"metricsPort"      split_words:"true"`
}

// Load returns a config populated from defaults, an optional YAML config
// file, and environment variable overrides, in that order
func Load(configFile string) (*Config, error) {
	cfg := &Config{
		DataDir:          ".matdan",
		RecordPlugin:     DefaultRecordPlugin,
		MetadataPlugin:   DefaultMetadataPlugin,
		BindAddr:         "0.0.0.0",
		BlockCutInterval: "200ms",
		TokenTTL:         "1h",
		ShutdownTimeout:  "30s",
		MaxBlockTxs:      100,
		MetricsPort:      12798,
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("matdan", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks duration fields and plugin names for obvious mistakes
// before any component consumes them
func (c *Config) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"blockCutInterval", c.BlockCutInterval},
		{"tokenTtl", c.TokenTTL},
		{"shutdownTimeout", c.ShutdownTimeout},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
	}
	if c.MaxBlockTxs <= 0 {
		return errors.New("maxBlockTxs must be positive")
	}
	return nil
}

// BlockCutIntervalDuration returns the parsed block cut interval
func (c *Config) BlockCutIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.BlockCutInterval)
	return d
}

// TokenTTLDuration returns the parsed token validity window
func (c *Config) TokenTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TokenTTL)
	return d
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}
