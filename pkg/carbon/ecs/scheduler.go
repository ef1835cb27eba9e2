package ecs

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// systemMetadata contains the metadata for a system.
type systemMetadata struct {
	name     string
	readOnly bool
	fn       System
	logger   *zerolog.Logger
}

func (s *systemMetadata) run(w *World) error {
	ctx := SystemContext{World: w, Commands: w.commands, Logger: s.logger}
	if err := s.fn(ctx); err != nil {
		return eris.Wrapf(err, "system %s failed", s.name)
	}
	return nil
}

// systemScheduler runs the systems of one hook. Exclusive systems run alone in registration order.
// Runs of consecutive read-only systems are executed concurrently and joined before the next
// exclusive system starts.
type systemScheduler struct {
	systems []systemMetadata
}

// newSystemScheduler creates a new system scheduler.
func newSystemScheduler() systemScheduler {
	return systemScheduler{systems: make([]systemMetadata, 0)}
}

// register registers a system with the scheduler.
func (s *systemScheduler) register(meta systemMetadata) {
	s.systems = append(s.systems, meta)
}

func (s *systemScheduler) names() []string {
	names := make([]string, len(s.systems))
	for i := range s.systems {
		names[i] = s.systems[i].name
	}
	return names
}

// run executes the hook. It returns the first error; systems after a failed one don't run.
func (s *systemScheduler) run(w *World) error {
	for i := 0; i < len(s.systems); {
		if !s.systems[i].readOnly {
			if err := s.systems[i].run(w); err != nil {
				return err
			}
			i++
			continue
		}

		end := i
		for end < len(s.systems) && s.systems[end].readOnly {
			end++
		}

		g := new(errgroup.Group)
		for j := i; j < end; j++ {
			system := &s.systems[j]
			g.Go(func() error { return system.run(w) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
		i = end
	}
	return nil
}
