// Package device opens the serial ports robot components talk through.
package device

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/robot"
)

// DefaultBaudRate is used for ports that don't set one.
const DefaultBaudRate = 115200

// Opener opens a serial port. serial.Open is the real one; tests substitute a fake.
type Opener func(path string, mode *serial.Mode) (serial.Port, error)

// Connection is attached to an entity once its robot.Port is open. Removing it, or destroying the
// entity, closes the port.
type Connection struct {
	Path string
	Mode serial.Mode
	port serial.Port
}

var _ ecs.Component = Connection{}

func (Connection) Name() string { return "connection" }

// Port returns the open port.
func (c Connection) Port() serial.Port {
	return c.port
}

// Manager owns every port opened for the world.
type Manager struct {
	open  Opener
	mu    sync.Mutex
	ports map[ecs.EntityID]serial.Port
}

type Option func(*Manager)

// WithOpener replaces serial.Open.
func WithOpener(open Opener) Option {
	return func(m *Manager) { m.open = open }
}

// Register installs the Manager resource and the connect_ports system, which runs once in the
// Init hook.
func Register(w *ecs.World, opts ...Option) *Manager {
	m := &Manager{open: serial.Open, ports: make(map[ecs.EntityID]serial.Port)}
	for _, opt := range opts {
		opt(m)
	}

	robot.Register(w)
	ecs.RegisterComponent[Connection](w)
	ecs.InsertResource(w, m)
	ecs.OnRemove[Connection](w, func(w *ecs.World, e ecs.EntityID, _ Connection) {
		if err := m.release(e); err != nil {
			w.Logger().Warn().Err(err).Stringer("entity", e).Msg("failed to close port")
		}
	})
	ecs.RegisterSystem(w, "connect_ports", func(ctx ecs.SystemContext) error {
		m.ConnectPorts(ctx.World, ctx.Logger)
		return nil
	}, ecs.WithHook(ecs.Init))
	return m
}

// Mode returns the serial settings for p: 8 data bits, no parity, one stop bit.
func Mode(p robot.Port) *serial.Mode {
	baud := p.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// ConnectPorts opens every robot.Port that has no Connection yet. A port that fails to open is
// logged and skipped so a missing device doesn't stop the robot. Returns how many ports opened.
func (m *Manager) ConnectPorts(w *ecs.World, logger *zerolog.Logger) int {
	connected := 0
	for _, e := range ecs.Entities[robot.Port](w) {
		if ecs.Has[Connection](w, e) {
			continue
		}
		p, err := ecs.Get[robot.Port](w, e)
		if err != nil {
			continue
		}

		mode := Mode(p)
		port, err := m.open(p.Path, mode)
		if err != nil {
			logger.Error().Err(err).Str("path", p.Path).Stringer("entity", e).Msg("failed to open port")
			continue
		}

		m.mu.Lock()
		m.ports[e] = port
		m.mu.Unlock()
		if err := ecs.Set(w, e, Connection{Path: p.Path, Mode: *mode, port: port}); err != nil {
			_ = m.release(e)
			continue
		}
		logger.Info().Str("path", p.Path).Int("baud_rate", mode.BaudRate).Msg("connected to port")
		connected++
	}
	return connected
}

// Len returns the number of open ports.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ports)
}

func (m *Manager) release(e ecs.EntityID) error {
	m.mu.Lock()
	port, ok := m.ports[e]
	delete(m.ports, e)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return eris.Wrapf(port.Close(), "close port of %s", e)
}

// Close closes every open port. The first failure is returned after all ports were tried.
func (m *Manager) Close() error {
	m.mu.Lock()
	entities := make([]ecs.EntityID, 0, len(m.ports))
	for e := range m.ports {
		entities = append(entities, e)
	}
	m.mu.Unlock()

	var first error
	for _, e := range entities {
		if err := m.release(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
