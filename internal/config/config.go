// Package config loads the hub's YAML configuration, filling in the
// protocol's recommended defaults for anything the file omits.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the hub process's full runtime configuration.
type Config struct {
	AppName string `yaml:"app_name"`
	Debug   bool   `yaml:"debug"`

	Broker BrokerConfig `yaml:"broker"`
	Client ClientConfig `yaml:"client"`
}

// BrokerConfig controls the broker's heartbeat reaper. Bind is loaded and
// defaulted like the other fields, but cmd/hived does not pass it on: the
// embedded hub always binds 127.0.0.1:0.
type BrokerConfig struct {
	Bind                    string `yaml:"bind"`
	HeartbeatTickSeconds    int    `yaml:"heartbeat_tick_seconds"`
	HeartbeatTimeoutSeconds int    `yaml:"heartbeat_timeout_seconds"`
}

// ClientConfig holds the per-operation timeouts the hub's own embedded
// agent session (and any sample client) should use absent overrides.
type ClientConfig struct {
	DMTimeoutSeconds          int `yaml:"dm_timeout_seconds"`
	ChannelOpTimeoutSeconds   int `yaml:"channel_op_timeout_seconds"`
	ReservationTimeoutSeconds int `yaml:"reservation_timeout_seconds"`
	ListTimeoutSeconds        int `yaml:"list_timeout_seconds"`
	HeartbeatIntervalSeconds  int `yaml:"heartbeat_interval_seconds"`
}

// Load reads filename and fills in defaults for anything left zero-valued.
// A missing file is not an error; Default() is returned instead, matching
// the hub's "run with sane built-ins, no config required" expectation.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{AppName: "hive"}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.Broker.Bind == "" {
		c.Broker.Bind = "127.0.0.1:8787"
	}
	if c.Broker.HeartbeatTickSeconds <= 0 {
		c.Broker.HeartbeatTickSeconds = 30
	}
	if c.Broker.HeartbeatTimeoutSeconds <= 0 {
		c.Broker.HeartbeatTimeoutSeconds = 60
	}
	if c.Client.DMTimeoutSeconds <= 0 {
		c.Client.DMTimeoutSeconds = 120
	}
	if c.Client.ChannelOpTimeoutSeconds <= 0 {
		c.Client.ChannelOpTimeoutSeconds = 3
	}
	if c.Client.ReservationTimeoutSeconds <= 0 {
		c.Client.ReservationTimeoutSeconds = 4
	}
	if c.Client.ListTimeoutSeconds <= 0 {
		c.Client.ListTimeoutSeconds = 2
	}
	if c.Client.HeartbeatIntervalSeconds <= 0 {
		c.Client.HeartbeatIntervalSeconds = 20
	}
}

// HeartbeatTick returns the broker's reaper tick as a time.Duration.
func (c *Config) HeartbeatTick() time.Duration {
	return time.Duration(c.Broker.HeartbeatTickSeconds) * time.Second
}

// HeartbeatTimeout returns the broker's reap threshold as a time.Duration.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Broker.HeartbeatTimeoutSeconds) * time.Second
}
