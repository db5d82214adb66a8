package agent

import (
	"fmt"
	"logpush/internal/config"
	"logpush/internal/global"
	"os"
)

// Loads JSON (comments allowed) or YAML config from file
func LoadConfig(path string) (cfg JSONConfig, err error) {
	err = config.Decode(path, &cfg)
	return
}

// Parses file config into daemon config
func (cfg JSONConfig) NewDaemonConf() (config Config, err error) {
	config.Hostname = cfg.Hostname
	config.Workers = cfg.Workers

	// Metric settings
	config.MetricServerEnabled = cfg.Metrics.Enabled
	config.MetricServerAddress = cfg.Metrics.Address

	err = config.setDefaults()
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() (err error) {
	if cfg.Hostname == "" {
		cfg.Hostname, err = os.Hostname()
		if err != nil {
			err = fmt.Errorf("failed to determine local hostname: %w", err)
			return
		}
	}

	if cfg.MetricServerAddress == "" {
		cfg.MetricServerAddress = global.HTTPListenAddr
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = global.AgentShutdownTimeout
	}
	return
}
