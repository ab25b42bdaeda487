// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

// Config is the top-level configuration. Maps to the `strix:` root key in
// YAML; env vars use the STRIX_ prefix (e.g. STRIX_LOG_LEVEL).
type Config struct {
	Interface       string           `mapstructure:"interface" yaml:"interface"`
	Capture         CaptureConfig    `mapstructure:"capture" yaml:"capture"`
	Extensions      ExtensionsConfig `mapstructure:"extensions" yaml:"extensions"`
	Target          TargetConfig     `mapstructure:"target" yaml:"target"`
	ShutdownTimeout string           `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Output          OutputConfig     `mapstructure:"output" yaml:"output"`
	Log             log.Config       `mapstructure:"log" yaml:"log"`
	Metrics         MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// CaptureConfig selects and tunes the interface handle.
type CaptureConfig struct {
	Handle      string       `mapstructure:"handle" yaml:"handle"` // pcap | replay
	SnapLen     int          `mapstructure:"snap_len" yaml:"snap_len"`
	PollTimeout string       `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	BPFFilter   string       `mapstructure:"bpf_filter" yaml:"bpf_filter"`
	Promiscuous bool         `mapstructure:"promiscuous" yaml:"promiscuous"`
	RFMon       bool         `mapstructure:"rfmon" yaml:"rfmon"` // ask libpcap to flip monitor mode on
	Replay      ReplayConfig `mapstructure:"replay" yaml:"replay"`
}

// ReplayConfig feeds the replay handle from pcap files instead of a live
// interface.
type ReplayConfig struct {
	Input  string `mapstructure:"input" yaml:"input"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ExtensionsConfig names the extensions to load, in dispatch order, plus
// their free-form settings.
type ExtensionsConfig struct {
	Enabled  []string          `mapstructure:"enabled" yaml:"enabled"`
	Settings map[string]string `mapstructure:"settings" yaml:"settings"`
}

// TargetConfig describes the access point under assessment. All fields are
// optional; extensions decide what they require.
type TargetConfig struct {
	BSSID      string `mapstructure:"bssid" yaml:"bssid"`
	SSID       string `mapstructure:"ssid" yaml:"ssid"`
	Channel    int    `mapstructure:"channel" yaml:"channel"`
	RogueAPMAC string `mapstructure:"rogue_ap_mac" yaml:"rogue_ap_mac"`
}

// OutputConfig controls periodic printing of aggregated extension output.
type OutputConfig struct {
	FlushInterval string `mapstructure:"flush_interval" yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// configRoot is the top-level wrapper matching the YAML structure `strix: ...`.
type configRoot struct {
	Strix Config `mapstructure:"strix" yaml:"strix"`
}

// Load loads configuration from file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variable overrides. There is no explicit env prefix: the
	// `strix.` key prefix maps to STRIX_ via the key replacer, so the key
	// "strix.log.level" reads env STRIX_LOG_LEVEL.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Strix

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration. All keys use the
// "strix." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Capture defaults
	v.SetDefault("strix.capture.handle", "pcap")
	v.SetDefault("strix.capture.snap_len", 65535)
	v.SetDefault("strix.capture.poll_timeout", "500ms")
	v.SetDefault("strix.capture.promiscuous", true)
	v.SetDefault("strix.capture.rfmon", false)

	// Shutdown and output defaults
	v.SetDefault("strix.shutdown_timeout", "5s")
	v.SetDefault("strix.output.flush_interval", "5s")

	// Log defaults
	v.SetDefault("strix.log.level", "info")
	v.SetDefault("strix.log.format", "text")
	v.SetDefault("strix.log.file.enabled", false)
	v.SetDefault("strix.log.file.path", "/var/log/strix/strix.log")
	v.SetDefault("strix.log.file.max_size_mb", 100)
	v.SetDefault("strix.log.file.max_age_days", 7)
	v.SetDefault("strix.log.file.max_backups", 3)
	v.SetDefault("strix.log.file.compress", true)

	// Metrics defaults
	v.SetDefault("strix.metrics.enabled", false)
	v.SetDefault("strix.metrics.listen", ":9465")
	v.SetDefault("strix.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration values that cannot be
// checked at unmarshal time.
func (cfg *Config) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %q (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	switch cfg.Capture.Handle {
	case "pcap":
	case "replay":
		if cfg.Capture.Replay.Input == "" {
			return fmt.Errorf("%w: capture.replay.input is required for the replay handle", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: capture.handle %q (must be pcap/replay)", core.ErrConfigInvalid, cfg.Capture.Handle)
	}

	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: capture.snap_len must be positive", core.ErrConfigInvalid)
	}

	for key, val := range map[string]string{
		"capture.poll_timeout":  cfg.Capture.PollTimeout,
		"shutdown_timeout":      cfg.ShutdownTimeout,
		"output.flush_interval": cfg.Output.FlushInterval,
	} {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", core.ErrConfigInvalid, key, val, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", core.ErrConfigInvalid, key)
		}
	}

	if cfg.Target.Channel < 0 || cfg.Target.Channel > 196 {
		return fmt.Errorf("%w: target.channel %d out of range", core.ErrConfigInvalid, cfg.Target.Channel)
	}

	return nil
}

// Durations below are validated by ValidateAndApplyDefaults, so parse
// failures fall back to the documented defaults.

// PollTimeoutDuration returns the capture poll timeout.
func (cfg *Config) PollTimeoutDuration() time.Duration {
	return durationOr(cfg.Capture.PollTimeout, 500*time.Millisecond)
}

// ShutdownTimeoutDuration returns the join deadline for shutdown.
func (cfg *Config) ShutdownTimeoutDuration() time.Duration {
	return durationOr(cfg.ShutdownTimeout, 5*time.Second)
}

// FlushIntervalDuration returns the aggregated-output flush interval.
func (cfg *Config) FlushIntervalDuration() time.Duration {
	return durationOr(cfg.Output.FlushInterval, 5*time.Second)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
