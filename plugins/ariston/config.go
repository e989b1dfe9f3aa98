package ariston

import (
	"fmt"
	"strings"
	"time"

	"github.com/velishub/velishub/internal/config"
)

const defaultPollInterval = 30 * time.Second

// Config defines runtime configuration for the Ariston client.
type Config struct {
	Host         string
	Username     string
	PasswordFile string
	PollInterval time.Duration
}

func ConfigFromHub(cfg *config.AristonConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("ariston config is required")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return Config{}, fmt.Errorf("ariston username is required")
	}
	if strings.TrimSpace(cfg.PasswordFile) == "" {
		return Config{}, fmt.Errorf("ariston password_file is required")
	}

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = config.DefaultAristonHost
	}
	host = strings.TrimRight(host, "/")

	interval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		interval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}

	return Config{
		Host:         host,
		Username:     cfg.Username,
		PasswordFile: cfg.PasswordFile,
		PollInterval: interval,
	}, nil
}
