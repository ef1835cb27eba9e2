// Package worldstage tracks where the app is in its lifecycle. Stages only move forward.
package worldstage

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
)

type Stage string

const (
	Init         Stage = "Init"         // Nothing has started
	Starting     Stage = "Starting"     // Run was called, the world is being built
	Ready        Stage = "Ready"        // The world is built and the loop is about to tick
	Running      Stage = "Running"      // The first tick ran
	ShuttingDown Stage = "ShuttingDown" // A stop was requested or a tick failed
	ShutDown     Stage = "ShutDown"     // Resources are released
)

var order = map[Stage]int{ //nolint:gochecknoglobals // lookup table
	Init:         0,
	Starting:     1,
	Ready:        2,
	Running:      3,
	ShuttingDown: 4,
	ShutDown:     5,
}

var ErrBackwards = eris.New("stage cannot move backwards")

type Manager struct {
	current atomic.Value
}

func NewManager() *Manager {
	m := &Manager{}
	m.current.Store(Init)
	return m
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage) //nolint:errcheck // only Stage is stored
}

// CompareAndSwap moves from oldStage to newStage if oldStage is current.
func (m *Manager) CompareAndSwap(oldStage, newStage Stage) bool {
	return m.current.CompareAndSwap(oldStage, newStage)
}

// Advance moves to next unless that would go backwards. Staying put is allowed.
func (m *Manager) Advance(next Stage) error {
	for {
		cur := m.Current()
		if order[next] < order[cur] {
			return eris.Wrapf(ErrBackwards, "%s -> %s", cur, next)
		}
		if m.current.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// IsStopping reports whether shutdown has begun.
func (m *Manager) IsStopping() bool {
	return order[m.Current()] >= order[ShuttingDown]
}
