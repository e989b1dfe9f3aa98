package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	SchemaVersion      = 1
	DefaultPath        = "/etc/velishub/config.yaml"
	DefaultHTTPAddr    = "0.0.0.0:8080"
	DefaultLogLevel    = "info"
	DefaultDashDir     = "/var/lib/velishub/dashboards"
	DefaultStateDir    = "/var/lib/velishub/session"
	DefaultHistoryPath = "/var/lib/velishub/velishub.db"
	DefaultBlobPrefix  = "velishub/session"
	DefaultAristonHost = "https://www.ariston-net.remotethermo.com"
	DefaultPollSeconds = 30
)

// Config is the root daemon configuration.
type Config struct {
	SchemaVersion int            `mapstructure:"schema_version"`
	Core          CoreConfig     `mapstructure:"core"`
	Session       SessionConfig  `mapstructure:"session"`
	History       HistoryConfig  `mapstructure:"history"`
	MQTT          *MQTTConfig    `mapstructure:"mqtt"`
	Ariston       *AristonConfig `mapstructure:"ariston"`
}

type CoreConfig struct {
	HTTPAddr     string `mapstructure:"http_addr"`
	LogLevel     string `mapstructure:"log_level"`
	DashboardDir string `mapstructure:"dashboard_dir"`
}

// SessionConfig controls local and remote persistence of vendor sessions.
type SessionConfig struct {
	StateDir string      `mapstructure:"state_dir"`
	Blob     *BlobConfig `mapstructure:"blob"`
}

type BlobConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	AccessKeyFile string `mapstructure:"access_key_file"`
	SecretKeyFile string `mapstructure:"secret_key_file"`
	Region        string `mapstructure:"region"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type MQTTConfig struct {
	Broker       string `mapstructure:"broker"`
	Username     string `mapstructure:"username"`
	PasswordFile string `mapstructure:"password_file"`
	TopicPrefix  string `mapstructure:"topic_prefix"`
}

// AristonConfig configures the Ariston Velis plugin. Presence enables it.
type AristonConfig struct {
	Host                string `mapstructure:"host"`
	Username            string `mapstructure:"username"`
	PasswordFile        string `mapstructure:"password_file"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
}

// Load parses the YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Core.HTTPAddr == "" {
		cfg.Core.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Core.LogLevel == "" {
		cfg.Core.LogLevel = DefaultLogLevel
	}
	if cfg.Core.DashboardDir == "" {
		cfg.Core.DashboardDir = DefaultDashDir
	}
	if cfg.Session.StateDir == "" {
		cfg.Session.StateDir = DefaultStateDir
	}
	if cfg.Session.Blob != nil && cfg.Session.Blob.Prefix == "" {
		cfg.Session.Blob.Prefix = DefaultBlobPrefix
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.MQTT != nil && cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "velishub"
	}
	if cfg.Ariston != nil {
		if cfg.Ariston.Host == "" {
			cfg.Ariston.Host = DefaultAristonHost
		}
		if cfg.Ariston.PollIntervalSeconds == 0 {
			cfg.Ariston.PollIntervalSeconds = DefaultPollSeconds
		}
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("schema_version must be %d", SchemaVersion)
	}
	if cfg.Core.HTTPAddr == "" {
		return fmt.Errorf("core.http_addr is required")
	}

	if blob := cfg.Session.Blob; blob != nil {
		if blob.Endpoint == "" {
			return fmt.Errorf("session.blob.endpoint is required")
		}
		if blob.Bucket == "" {
			return fmt.Errorf("session.blob.bucket is required")
		}
		if blob.AccessKeyFile == "" {
			return fmt.Errorf("session.blob.access_key_file is required")
		}
		if blob.SecretKeyFile == "" {
			return fmt.Errorf("session.blob.secret_key_file is required")
		}
	}

	if cfg.MQTT != nil && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}

	if cfg.Ariston != nil {
		if cfg.Ariston.Username == "" {
			return fmt.Errorf("ariston.username is required")
		}
		if cfg.Ariston.PasswordFile == "" {
			return fmt.Errorf("ariston.password_file is required")
		}
		if cfg.Ariston.PollIntervalSeconds < 0 {
			return fmt.Errorf("ariston.poll_interval_seconds must not be negative")
		}
	}

	return nil
}

// EnabledPlugins maps enabled plugin IDs based on config presence.
func EnabledPlugins(cfg *Config) map[string]bool {
	enabled := make(map[string]bool)
	if cfg == nil {
		return enabled
	}
	if cfg.Ariston != nil {
		enabled["ariston"] = true
	}
	return enabled
}
