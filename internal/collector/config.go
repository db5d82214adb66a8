package collector

import (
	"fmt"
	"logpush/internal/config"
	"logpush/internal/global"
	"logpush/pkg/protocol"
	"strings"
	"time"
)

// Loads JSON (comments allowed) or YAML config from file
func LoadConfig(path string) (cfg JSONConfig, err error) {
	err = config.Decode(path, &cfg)
	return
}

// Parses file config into daemon config
func (cfg JSONConfig) NewDaemonConf() (config Config, err error) {
	// Network settings
	config.ListenAddress = cfg.Address
	config.Protocol = strings.ToLower(cfg.Collector.Protocol)

	// Output settings
	config.Stdout = cfg.Collector.Stdout
	config.FilePath = cfg.Collector.FilePath
	config.ForwardAddress = cfg.Collector.Forward
	config.JournaldURL = cfg.Collector.Journald
	if cfg.Collector.FlushInterval != "" {
		config.FlushInterval, err = time.ParseDuration(cfg.Collector.FlushInterval)
		if err != nil {
			err = fmt.Errorf("failed to parse flush interval: %w", err)
			return
		}
	}

	// Metric settings
	config.MetricServerEnabled = cfg.Metrics.Enabled
	config.MetricServerAddress = cfg.Metrics.Address

	err = config.setDefaults()
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() (err error) {
	// Network
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "0.0.0.0"
	}
	cfg.ListenAddress, err = protocol.NormalizeAddress(cfg.ListenAddress)
	if err != nil {
		return
	}
	switch cfg.Protocol {
	case "":
		cfg.Protocol = ProtocolZMQ
	case ProtocolZMQ, ProtocolLumberjack:
	default:
		err = fmt.Errorf("unknown collector protocol '%s' (expected %s or %s)", cfg.Protocol, ProtocolZMQ, ProtocolLumberjack)
		return
	}

	// Outputs
	if !cfg.Stdout && cfg.FilePath == "" && cfg.ForwardAddress == "" && cfg.JournaldURL == "" {
		cfg.Stdout = true
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = global.DefaultFlushInterval
	}

	// Metrics
	if cfg.MetricServerAddress == "" {
		cfg.MetricServerAddress = global.HTTPListenAddr
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = global.CollectorShutdownTimeout
	}
	return
}
