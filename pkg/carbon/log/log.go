// Package log holds zerolog helpers shared by the world and the app.
package log

import (
	"github.com/rs/zerolog"
)

// Loggable is anything that can describe its registered components and systems.
type Loggable interface {
	ComponentNames() []string
	SystemNames() []string
}

// CreateSystemLogger creates a Sub Logger with the entry {"system" : systemName}.
func CreateSystemLogger(logger *zerolog.Logger, systemName string) *zerolog.Logger {
	newLogger := logger.With().Str("system", systemName).Logger()
	return &newLogger
}

// CreateTraceLogger Creates a trace Logger. Using a single id you can use this Logger to follow and log a data path.
func CreateTraceLogger(logger *zerolog.Logger, traceID string) *zerolog.Logger {
	newLogger := logger.With().Str("trace_id", traceID).Logger()
	return &newLogger
}

// World logs the registered components and systems of target at the given level.
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	components := target.ComponentNames()
	systems := target.SystemNames()

	event := logger.WithLevel(level)
	event.Int("total_components", len(components)).Strs("components", components)
	event.Int("total_systems", len(systems)).Strs("systems", systems)
	event.Msg("world summary")
}
