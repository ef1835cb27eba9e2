package ecs

import (
	"slices"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// World holds every entity, component, resource and system of one simulation. Independent worlds
// never share state.
type World struct {
	entities   entityManager
	components componentManager
	resources  resourceManager
	commands   *Commands

	eventBuffers []eventBuffer // Event queues rotated at the end of every tick
	onDespawn    []DespawnHook

	initDone    bool               // Tracks if init systems have been executed
	initSystems systemScheduler    // Run once before the first update
	scheduler   [3]systemScheduler // Systems schedulers (PreUpdate, Update, PostUpdate)
	tick        uint64

	logger zerolog.Logger
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithLogger sets the logger handed to systems and used for diagnostics.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) { w.logger = logger }
}

// NewWorld creates a new World instance.
func NewWorld(opts ...WorldOption) *World {
	world := &World{
		entities:     newEntityManager(),
		components:   newComponentManager(),
		resources:    newResourceManager(),
		eventBuffers: make([]eventBuffer, 0),
		initDone:     false,
		initSystems:  newSystemScheduler(),
		scheduler:    [3]systemScheduler{},
		logger:       zerolog.Nop(),
	}
	world.commands = newCommands(world)

	for i := range world.scheduler {
		world.scheduler[i] = newSystemScheduler()
	}
	for _, opt := range opts {
		opt(world)
	}

	return world
}

// -------------------------------------------------------------------------------------------------
// Entity Operations
// -------------------------------------------------------------------------------------------------

// Spawn creates an entity with the given components. Component types must be registered.
func (w *World) Spawn(components ...Component) EntityID {
	eid := w.entities.new()
	for _, component := range components {
		w.setAbstract(eid, component)
	}
	return eid
}

// DespawnHook runs when an entity is about to be destroyed. The entity is still alive and carries
// all its components.
type DespawnHook func(w *World, eid EntityID)

// OnDespawn registers a hook that runs at the start of every Destroy.
func OnDespawn(w *World, hook DespawnHook) {
	w.onDespawn = append(w.onDespawn, hook)
}

// Destroy runs the despawn hooks, removes every component of an entity, running their remove
// hooks, and invalidates the id. Returns false if the entity wasn't alive.
func (w *World) Destroy(eid EntityID) bool {
	if !w.entities.isAlive(eid) {
		return false
	}

	for _, hook := range w.onDespawn {
		hook(w, eid)
	}

	for id, col := range w.components.columns {
		component, ok := col.removeAbstract(eid)
		if !ok {
			continue
		}
		w.runHooks(w.components.onRemove[id], eid, component)
	}

	return w.entities.remove(eid)
}

// Alive reports whether the handle names a live entity.
func (w *World) Alive(eid EntityID) bool {
	return w.entities.isAlive(eid)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.entities.len()
}

// setAbstract attaches a component whose concrete type is only known at runtime.
func (w *World) setAbstract(eid EntityID, component Component) {
	id, err := w.components.getID(component.Name())
	if err != nil {
		panic(err)
	}
	w.components.columns[id].setAbstract(eid, component)
	w.runHooks(w.components.onInsert[id], eid, component)
}

func (w *World) runHooks(hooks []abstractHook, eid EntityID, component Component) {
	for _, hook := range hooks {
		hook(w, eid, component)
	}
}

// -------------------------------------------------------------------------------------------------
// Ticking
// -------------------------------------------------------------------------------------------------

// Commands returns the world's deferred edit queue.
func (w *World) Commands() *Commands {
	return w.commands
}

// Flush applies queued commands in FIFO order until the queue stays empty. Commands queued while
// flushing are applied in the same call.
func (w *World) Flush() {
	for {
		pending := w.commands.drain()
		if len(pending) == 0 {
			return
		}
		for _, cmd := range pending {
			cmd.Apply(w)
		}
	}
}

// Tick runs the init systems on the first call, then the PreUpdate, Update and PostUpdate hooks
// in order. Commands queued by a hook are flushed before the next hook starts. If a system fails
// the tick stops, commands still queued are discarded and the error is returned.
func (w *World) Tick() error {
	defer w.updateEvents()

	if !w.initDone {
		if err := w.initSystems.run(w); err != nil {
			w.commands.discard()
			return eris.Wrap(err, "init systems failed")
		}
		w.Flush()
		w.initDone = true
	}

	for i := range w.scheduler {
		if err := w.scheduler[i].run(w); err != nil {
			discarded := w.commands.discard()
			w.logger.Warn().Int("discarded", discarded).Msg("tick failed, dropping queued commands")
			return eris.Wrapf(err, "%s systems failed", SystemHook(i))
		}
		w.Flush()
	}

	w.tick++
	return nil
}

// CurrentTick returns the number of completed ticks.
func (w *World) CurrentTick() uint64 {
	return w.tick
}

// CustomTick runs fn against the world instead of the registered systems, then flushes.
// This function is for testing and internal use only!
func (w *World) CustomTick(fn func(*World)) {
	fn(w)
	w.Flush()
}

func (w *World) updateEvents() {
	for _, events := range w.eventBuffers {
		events.update()
	}
}

// Logger returns the world logger.
func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// -------------------------------------------------------------------------------------------------
// Introspection methods
// -------------------------------------------------------------------------------------------------

// ComponentNames returns the registered component names, sorted.
func (w *World) ComponentNames() []string {
	names := make([]string, 0, len(w.components.catalog))
	for name := range w.components.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SystemNames returns the registered system names in execution order.
func (w *World) SystemNames() []string {
	names := slices.Clone(w.initSystems.names())
	for i := range w.scheduler {
		names = append(names, w.scheduler[i].names()...)
	}
	return names
}
