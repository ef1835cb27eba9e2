package hierarchy

import (
	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// ChildBuilder spawns entities that become children of one parent. Everything spawned through it
// is attached in a single AddChildren batch once the builder function returns.
type ChildBuilder struct {
	parent   ecs.EntityID
	spawn    func(components ...ecs.Component) ecs.EntityID
	children []ecs.EntityID
}

// Spawn creates an entity with components and records it as a child.
func (b *ChildBuilder) Spawn(components ...ecs.Component) ecs.EntityID {
	e := b.spawn(components...)
	b.children = append(b.children, e)
	return e
}

// SpawnEmpty creates an entity without components and records it as a child.
func (b *ChildBuilder) SpawnEmpty() ecs.EntityID {
	return b.Spawn()
}

// ParentEntity returns the entity the children will be attached to.
func (b *ChildBuilder) ParentEntity() ecs.EntityID {
	return b.parent
}

// -------------------------------------------------------------------------------------------------
// Direct builder
// -------------------------------------------------------------------------------------------------

// EntityMut edits one entity's relationships immediately.
type EntityMut[C, P any, CP ChildrenKind[C], PP ParentKind[P]] struct {
	tree  Tree[C, P, CP, PP]
	world *ecs.World
	id    ecs.EntityID
}

// Entity returns a direct builder for e.
func (t Tree[C, P, CP, PP]) Entity(w *ecs.World, e ecs.EntityID) EntityMut[C, P, CP, PP] {
	return EntityMut[C, P, CP, PP]{tree: t, world: w, id: e}
}

// Spawn creates an entity and returns a direct builder for it.
func (t Tree[C, P, CP, PP]) Spawn(w *ecs.World, components ...ecs.Component) EntityMut[C, P, CP, PP] {
	return t.Entity(w, w.Spawn(components...))
}

// ID returns the entity being edited.
func (e EntityMut[C, P, CP, PP]) ID() ecs.EntityID { return e.id }

// WithChild spawns a child with components and attaches it. Returns the child.
func (e EntityMut[C, P, CP, PP]) WithChild(components ...ecs.Component) ecs.EntityID {
	child := e.world.Spawn(components...)
	e.tree.AddChild(e.world, e.id, child)
	return child
}

// WithChildren runs build and attaches everything it spawned.
func (e EntityMut[C, P, CP, PP]) WithChildren(build func(*ChildBuilder)) EntityMut[C, P, CP, PP] {
	b := &ChildBuilder{parent: e.id, spawn: e.world.Spawn}
	build(b)
	e.tree.AddChildren(e.world, e.id, b.children)
	return e
}

// AddChild attaches child under the entity. See Tree.AddChild.
func (e EntityMut[C, P, CP, PP]) AddChild(child ecs.EntityID) EntityMut[C, P, CP, PP] {
	e.tree.AddChild(e.world, e.id, child)
	return e
}

// AddChildren attaches children under the entity in one batch. See Tree.AddChildren.
func (e EntityMut[C, P, CP, PP]) AddChildren(children ...ecs.EntityID) EntityMut[C, P, CP, PP] {
	e.tree.AddChildren(e.world, e.id, children)
	return e
}

// InsertChildren attaches children starting at index. See Tree.InsertChildren.
func (e EntityMut[C, P, CP, PP]) InsertChildren(index int, children ...ecs.EntityID) EntityMut[C, P, CP, PP] {
	e.tree.InsertChildren(e.world, e.id, index, children)
	return e
}

// RemoveChildren detaches the listed children of the entity.
func (e EntityMut[C, P, CP, PP]) RemoveChildren(children ...ecs.EntityID) EntityMut[C, P, CP, PP] {
	e.tree.RemoveChildren(e.world, e.id, children)
	return e
}

// SetParent attaches the entity under parent.
func (e EntityMut[C, P, CP, PP]) SetParent(parent ecs.EntityID) EntityMut[C, P, CP, PP] {
	e.tree.SetParent(e.world, e.id, parent)
	return e
}

// RemoveParent detaches the entity from its parent.
func (e EntityMut[C, P, CP, PP]) RemoveParent() EntityMut[C, P, CP, PP] {
	e.tree.RemoveParent(e.world, e.id)
	return e
}

// ClearChildren detaches every child without sending events.
func (e EntityMut[C, P, CP, PP]) ClearChildren() EntityMut[C, P, CP, PP] {
	e.tree.ClearChildren(e.world, e.id)
	return e
}

// ReplaceChildren clears the children and attaches the given ones. See Tree.ReplaceChildren.
func (e EntityMut[C, P, CP, PP]) ReplaceChildren(children ...ecs.EntityID) EntityMut[C, P, CP, PP] {
	e.tree.ReplaceChildren(e.world, e.id, children)
	return e
}

// DespawnRecursive destroys the entity and its subtree.
func (e EntityMut[C, P, CP, PP]) DespawnRecursive() {
	e.tree.DespawnRecursive(e.world, e.id)
}

// DespawnDescendants destroys the subtree and keeps the entity.
func (e EntityMut[C, P, CP, PP]) DespawnDescendants() EntityMut[C, P, CP, PP] {
	e.tree.DespawnDescendants(e.world, e.id)
	return e
}

// -------------------------------------------------------------------------------------------------
// Deferred builder
// -------------------------------------------------------------------------------------------------

// EntityCommands queues relationship edits for one entity. Nothing changes until the world
// flushes its command queue.
type EntityCommands[C, P any, CP ChildrenKind[C], PP ParentKind[P]] struct {
	tree     Tree[C, P, CP, PP]
	commands *ecs.Commands
	id       ecs.EntityID
}

// Commands returns a deferred builder for e.
func (t Tree[C, P, CP, PP]) Commands(cmds *ecs.Commands, e ecs.EntityID) EntityCommands[C, P, CP, PP] {
	return EntityCommands[C, P, CP, PP]{tree: t, commands: cmds, id: e}
}

// SpawnDeferred reserves an entity, queues its components and returns a deferred builder for it.
func (t Tree[C, P, CP, PP]) SpawnDeferred(
	cmds *ecs.Commands, components ...ecs.Component,
) EntityCommands[C, P, CP, PP] {
	return t.Commands(cmds, cmds.Spawn(components...))
}

// ID returns the entity being edited.
func (e EntityCommands[C, P, CP, PP]) ID() ecs.EntityID { return e.id }

// WithChild reserves a child with components and queues its attachment. Returns the child.
func (e EntityCommands[C, P, CP, PP]) WithChild(components ...ecs.Component) ecs.EntityID {
	child := e.commands.Spawn(components...)
	e.commands.Queue(e.tree.AddChildCommand(e.id, child))
	return child
}

// WithChildren runs build and queues one AddChildren for everything it spawned.
func (e EntityCommands[C, P, CP, PP]) WithChildren(build func(*ChildBuilder)) EntityCommands[C, P, CP, PP] {
	b := &ChildBuilder{parent: e.id, spawn: e.commands.Spawn}
	build(b)
	if len(b.children) > 0 {
		e.commands.Queue(e.tree.AddChildrenCommand(e.id, b.children))
	}
	return e
}

// AddChild queues attaching child under the entity.
func (e EntityCommands[C, P, CP, PP]) AddChild(child ecs.EntityID) EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.AddChildCommand(e.id, child))
	return e
}

// AddChildren queues attaching children under the entity as one batch.
func (e EntityCommands[C, P, CP, PP]) AddChildren(children ...ecs.EntityID) EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.AddChildrenCommand(e.id, children))
	return e
}

// InsertChildren queues attaching children starting at index.
func (e EntityCommands[C, P, CP, PP]) InsertChildren(
	index int, children ...ecs.EntityID,
) EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.InsertChildrenCommand(e.id, index, children))
	return e
}

// RemoveChildren queues detaching the listed children.
func (e EntityCommands[C, P, CP, PP]) RemoveChildren(children ...ecs.EntityID) EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.RemoveChildrenCommand(e.id, children))
	return e
}

// SetParent queues attaching the entity under parent.
func (e EntityCommands[C, P, CP, PP]) SetParent(parent ecs.EntityID) EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.SetParentCommand(e.id, parent))
	return e
}

// RemoveParent queues detaching the entity from its parent.
func (e EntityCommands[C, P, CP, PP]) RemoveParent() EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.RemoveParentCommand(e.id))
	return e
}

// ClearChildren queues detaching every child.
func (e EntityCommands[C, P, CP, PP]) ClearChildren() EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.ClearChildrenCommand(e.id))
	return e
}

// ReplaceChildren queues replacing the children with the given ones.
func (e EntityCommands[C, P, CP, PP]) ReplaceChildren(children ...ecs.EntityID) EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.ReplaceChildrenCommand(e.id, children))
	return e
}

// DespawnRecursive queues the destruction of the entity and its subtree.
func (e EntityCommands[C, P, CP, PP]) DespawnRecursive() {
	e.commands.Queue(e.tree.DespawnRecursiveCommand(e.id, true))
}

// DespawnDescendants queues the destruction of the subtree.
func (e EntityCommands[C, P, CP, PP]) DespawnDescendants() EntityCommands[C, P, CP, PP] {
	e.commands.Queue(e.tree.DespawnDescendantsCommand(e.id, true))
	return e
}
