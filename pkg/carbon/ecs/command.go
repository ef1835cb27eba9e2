package ecs

import "sync"

// Command is a deferred world edit. Commands are queued while the caller only has partial access
// to the world and applied in FIFO order at the next flush point.
type Command interface {
	Apply(w *World)
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc func(w *World)

// Apply calls f(w).
func (f CommandFunc) Apply(w *World) {
	f(w)
}

// Commands is the world's deferred edit queue. It is safe for concurrent use by systems running
// in parallel.
type Commands struct {
	world    *World
	mu       sync.Mutex
	queue    []Command
	reserved map[EntityID]struct{} // Spawned ids whose spawn command hasn't been applied yet
}

func newCommands(w *World) *Commands {
	const initialQueueCapacity = 64
	return &Commands{
		world:    w,
		queue:    make([]Command, 0, initialQueueCapacity),
		reserved: make(map[EntityID]struct{}),
	}
}

// Queue appends a command.
func (c *Commands) Queue(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, cmd)
}

// Len returns the number of pending commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Spawn reserves an entity now and queues its components. The returned id is live immediately so
// it can be referenced by later commands; the components attach at flush. If the queue is
// discarded before that, the reserved entity is destroyed.
func (c *Commands) Spawn(components ...Component) EntityID {
	eid := c.world.entities.new()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserved[eid] = struct{}{}
	c.queue = append(c.queue, spawnCommand{entity: eid, components: components})
	return eid
}

// Insert queues components to attach to an existing entity.
func (c *Commands) Insert(eid EntityID, components ...Component) {
	c.Queue(insertCommand{entity: eid, components: components})
}

// Despawn queues the destruction of a single entity. Despawn hooks run when it is applied, so
// registered relationships are repaired. Descendants are not destroyed; use the hierarchy package
// for that.
func (c *Commands) Despawn(eid EntityID) {
	c.Queue(CommandFunc(func(w *World) { w.Destroy(eid) }))
}

// drain takes every pending command.
func (c *Commands) drain() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	pending := c.queue
	c.queue = make([]Command, 0, cap(pending))
	return pending
}

// discard drops every pending command and destroys the entities reserved by Spawn calls that never
// reached a flush. It returns the number of dropped commands.
func (c *Commands) discard() int {
	pending := c.drain()

	c.mu.Lock()
	reserved := make([]EntityID, 0, len(c.reserved))
	for eid := range c.reserved {
		reserved = append(reserved, eid)
	}
	clear(c.reserved)
	c.mu.Unlock()

	for _, eid := range reserved {
		c.world.Destroy(eid)
	}
	return len(pending)
}

func (c *Commands) release(eid EntityID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reserved, eid)
}

type spawnCommand struct {
	entity     EntityID
	components []Component
}

func (cmd spawnCommand) Apply(w *World) {
	w.commands.release(cmd.entity)
	insertCommand(cmd).Apply(w)
}

type insertCommand struct {
	entity     EntityID
	components []Component
}

func (cmd insertCommand) Apply(w *World) {
	if !w.Alive(cmd.entity) {
		w.logger.Debug().Stringer("entity", cmd.entity).Msg("skipping insert on despawned entity")
		return
	}
	for _, component := range cmd.components {
		w.setAbstract(cmd.entity, component)
	}
}
