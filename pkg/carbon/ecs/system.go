package ecs

import (
	"github.com/rs/zerolog"

	carbonlog "github.com/argus-labs/carbon/pkg/carbon/log"
)

// SystemContext is what a system receives on every run.
type SystemContext struct {
	World    *World
	Commands *Commands
	Logger   *zerolog.Logger // Tagged with the system name
}

// System is a function that contains simulation logic.
type System func(ctx SystemContext) error

// systemConfig holds all configurable options for system registration.
type systemConfig struct {
	// The hook that determines when the system should be executed.
	hook SystemHook
	// Read-only systems may run concurrently with their read-only neighbours.
	readOnly bool
}

// newSystemConfig creates a new system config with default values.
func newSystemConfig() systemConfig {
	return systemConfig{
		hook:     Update,
		readOnly: false,
	}
}

// SystemOption is a function that configures a systemConfig.
type SystemOption func(*systemConfig)

// SystemHook defines when a system should be executed in the update cycle.
type SystemHook uint8

const (
	// PreUpdate runs before the main update.
	PreUpdate SystemHook = 0
	// Update runs during the main update phase.
	Update SystemHook = 1
	// PostUpdate runs after the main update.
	PostUpdate SystemHook = 2
	// Init runs once before the first update.
	Init SystemHook = 3
)

func (h SystemHook) String() string {
	switch h {
	case PreUpdate:
		return "PreUpdate"
	case Update:
		return "Update"
	case PostUpdate:
		return "PostUpdate"
	case Init:
		return "Init"
	default:
		return "Unknown"
	}
}

// WithHook returns an option to set the system hook.
func WithHook(hook SystemHook) SystemOption {
	return func(cfg *systemConfig) { cfg.hook = hook }
}

// WithReadOnly marks a system as only reading world state. It must route every edit through
// ctx.Commands. Consecutive read-only systems in a hook run concurrently.
func WithReadOnly() SystemOption {
	return func(cfg *systemConfig) { cfg.readOnly = true }
}

// RegisterSystem adds a system to the world. Systems in the same hook run in registration order.
func RegisterSystem(w *World, name string, system System, opts ...SystemOption) {
	cfg := newSystemConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	meta := systemMetadata{
		name:     name,
		readOnly: cfg.readOnly,
		fn:       system,
		logger:   carbonlog.CreateSystemLogger(&w.logger, name),
	}

	if cfg.hook == Init {
		w.initSystems.register(meta)
		return
	}
	w.scheduler[cfg.hook].register(meta)
}
