package carbon

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/argus-labs/carbon/pkg/carbon/device"
)

// appConfig holds the configuration read from the environment.
type appConfig struct {
	// Number of ticks per second.
	TickRate float64 `env:"CARBON_TICK_RATE" envDefault:"60"`

	// Log level ("debug", "info", "warn", "error").
	LogLevel string `env:"CARBON_LOG_LEVEL" envDefault:"info"`

	// Human-readable console logs instead of JSON.
	LogPretty bool `env:"CARBON_LOG_PRETTY" envDefault:"false"`

	// Path of the robot description file. Without one only a base frame is spawned.
	Description string `env:"CARBON_DESCRIPTION"`

	// Address of the statsd agent. Metrics are dropped when empty.
	StatsdAddress string `env:"CARBON_STATSD_ADDRESS"`

	// Tags added to every metric.
	StatsdTags []string `env:"CARBON_STATSD_TAGS" envSeparator:","`

	// Open the serial ports of robot.Port components at startup.
	ConnectPorts bool `env:"CARBON_CONNECT_PORTS" envDefault:"false"`

	// Where to write the debug snapshot on shutdown. Nothing is written when empty.
	SnapshotPath string `env:"CARBON_SNAPSHOT_PATH"`
}

// loadConfig loads the app configuration from environment variables.
func loadConfig() (appConfig, error) {
	cfg := appConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse app config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

func (cfg *appConfig) validate() error {
	if cfg.TickRate <= 0 {
		return eris.Errorf("tick rate must be positive, got %g", cfg.TickRate)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", cfg.LogLevel)
	}
	return nil
}

func (cfg *appConfig) toOptions() Options {
	return Options{
		TickRate:      cfg.TickRate,
		LogLevel:      cfg.LogLevel,
		LogPretty:     cfg.LogPretty,
		Description:   cfg.Description,
		StatsdAddress: cfg.StatsdAddress,
		StatsdTags:    cfg.StatsdTags,
		ConnectPorts:  cfg.ConnectPorts,
		SnapshotPath:  cfg.SnapshotPath,
	}
}

// Options configures an App. Non-zero fields override the environment.
type Options struct {
	TickRate      float64  // Ticks per second
	LogLevel      string   // Log level name
	LogPretty     bool     // Console logs instead of JSON
	Description   string   // Robot description path
	StatsdAddress string   // Statsd agent address
	StatsdTags    []string // Tags added to every metric
	ConnectPorts  bool     // Open serial ports at startup
	SnapshotPath  string   // Debug snapshot destination

	MaxTicks uint64          // Stop after this many ticks, 0 runs until stopped
	Logger   *zerolog.Logger // Replaces the logger built from LogLevel and LogPretty
	Opener   device.Opener   // Replaces serial.Open
}

func newDefaultOptions() Options {
	// Set these to invalid values to force the environment or caller to fill them in.
	return Options{
		TickRate: 0,
		LogLevel: "",
	}
}

// apply merges the given options into the current options, overriding non-zero values.
func (opt *Options) apply(newOpt Options) {
	if newOpt.TickRate != 0 {
		opt.TickRate = newOpt.TickRate
	}
	if newOpt.LogLevel != "" {
		opt.LogLevel = newOpt.LogLevel
	}
	if newOpt.LogPretty {
		opt.LogPretty = true
	}
	if newOpt.Description != "" {
		opt.Description = newOpt.Description
	}
	if newOpt.StatsdAddress != "" {
		opt.StatsdAddress = newOpt.StatsdAddress
	}
	if newOpt.StatsdTags != nil {
		opt.StatsdTags = newOpt.StatsdTags
	}
	if newOpt.ConnectPorts {
		opt.ConnectPorts = true
	}
	if newOpt.SnapshotPath != "" {
		opt.SnapshotPath = newOpt.SnapshotPath
	}
	if newOpt.MaxTicks != 0 {
		opt.MaxTicks = newOpt.MaxTicks
	}
	if newOpt.Logger != nil {
		opt.Logger = newOpt.Logger
	}
	if newOpt.Opener != nil {
		opt.Opener = newOpt.Opener
	}
}

// validate checks that all required options are set and valid.
func (opt *Options) validate() error {
	if opt.TickRate <= 0 {
		return eris.New("tick rate must be positive")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(opt.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s", opt.LogLevel)
	}
	return nil
}
