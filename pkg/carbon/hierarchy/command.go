package hierarchy

import (
	"slices"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// Op selects what a Command does.
type Op uint8

const (
	OpAddChild Op = iota + 1
	OpAddChildren
	OpInsertChildren
	OpRemoveChildren
	OpSetParent
	OpRemoveParent
	OpClearChildren
	OpReplaceChildren
	OpDespawnRecursive
	OpDespawnDescendants
)

func (op Op) String() string {
	switch op {
	case OpAddChild:
		return "AddChild"
	case OpAddChildren:
		return "AddChildren"
	case OpInsertChildren:
		return "InsertChildren"
	case OpRemoveChildren:
		return "RemoveChildren"
	case OpSetParent:
		return "SetParent"
	case OpRemoveParent:
		return "RemoveParent"
	case OpClearChildren:
		return "ClearChildren"
	case OpReplaceChildren:
		return "ReplaceChildren"
	case OpDespawnRecursive:
		return "DespawnRecursive"
	case OpDespawnDescendants:
		return "DespawnDescendants"
	default:
		return "Unknown"
	}
}

// Command is a deferred hierarchy edit. Target is the entity the operation is named after: the
// parent for children operations, the child for SetParent and RemoveParent, the root for despawns.
// Commands built through a Tree have already passed the self-parent check.
type Command[C, P any, CP ChildrenKind[C], PP ParentKind[P]] struct {
	Op       Op
	Target   ecs.EntityID
	Other    ecs.EntityID   // Child for AddChild, parent for SetParent
	Children []ecs.EntityID // Owned copy
	Index    int            // InsertChildren position
	Warn     bool           // Despawn warnings
}

var _ ecs.Command = Command[SmallChildren, ParentOf, *SmallChildren, *ParentOf]{}

// Apply performs the edit against the world.
func (cmd Command[C, P, CP, PP]) Apply(w *ecs.World) {
	t := Tree[C, P, CP, PP]{}
	switch cmd.Op {
	case OpAddChild:
		t.AddChild(w, cmd.Target, cmd.Other)
	case OpAddChildren:
		t.AddChildren(w, cmd.Target, cmd.Children)
	case OpInsertChildren:
		t.InsertChildren(w, cmd.Target, cmd.Index, cmd.Children)
	case OpRemoveChildren:
		t.RemoveChildren(w, cmd.Target, cmd.Children)
	case OpSetParent:
		t.SetParent(w, cmd.Target, cmd.Other)
	case OpRemoveParent:
		t.RemoveParent(w, cmd.Target)
	case OpClearChildren:
		t.ClearChildren(w, cmd.Target)
	case OpReplaceChildren:
		t.ReplaceChildren(w, cmd.Target, cmd.Children)
	case OpDespawnRecursive:
		t.despawnRecursive(w, cmd.Target, cmd.Warn)
	case OpDespawnDescendants:
		t.despawnDescendants(w, cmd.Target, cmd.Warn)
	default:
		w.Logger().Error().Stringer("op", cmd.Op).Msg("unknown hierarchy command")
	}
}

// -------------------------------------------------------------------------------------------------
// Constructors
// -------------------------------------------------------------------------------------------------
// Each constructor runs the self-parent check, so an invalid edit panics at the call site and
// never reaches the queue.
// -------------------------------------------------------------------------------------------------

// AddChildCommand is the deferred form of AddChild.
func (Tree[C, P, CP, PP]) AddChildCommand(parent, child ecs.EntityID) Command[C, P, CP, PP] {
	assertNotSelf(parent, child)
	return Command[C, P, CP, PP]{Op: OpAddChild, Target: parent, Other: child}
}

// AddChildrenCommand is the deferred form of AddChildren.
func (Tree[C, P, CP, PP]) AddChildrenCommand(parent ecs.EntityID, children []ecs.EntityID) Command[C, P, CP, PP] {
	assertNotSelf(parent, children...)
	return Command[C, P, CP, PP]{Op: OpAddChildren, Target: parent, Children: slices.Clone(children)}
}

// InsertChildrenCommand is the deferred form of InsertChildren.
func (Tree[C, P, CP, PP]) InsertChildrenCommand(
	parent ecs.EntityID, index int, children []ecs.EntityID,
) Command[C, P, CP, PP] {
	assertNotSelf(parent, children...)
	return Command[C, P, CP, PP]{
		Op: OpInsertChildren, Target: parent, Index: index, Children: slices.Clone(children),
	}
}

// RemoveChildrenCommand is the deferred form of RemoveChildren.
func (Tree[C, P, CP, PP]) RemoveChildrenCommand(parent ecs.EntityID, children []ecs.EntityID) Command[C, P, CP, PP] {
	return Command[C, P, CP, PP]{Op: OpRemoveChildren, Target: parent, Children: slices.Clone(children)}
}

// SetParentCommand is the deferred form of SetParent.
func (Tree[C, P, CP, PP]) SetParentCommand(child, parent ecs.EntityID) Command[C, P, CP, PP] {
	assertNotSelf(parent, child)
	return Command[C, P, CP, PP]{Op: OpSetParent, Target: child, Other: parent}
}

// RemoveParentCommand is the deferred form of RemoveParent.
func (Tree[C, P, CP, PP]) RemoveParentCommand(child ecs.EntityID) Command[C, P, CP, PP] {
	return Command[C, P, CP, PP]{Op: OpRemoveParent, Target: child}
}

// ClearChildrenCommand is the deferred form of ClearChildren.
func (Tree[C, P, CP, PP]) ClearChildrenCommand(parent ecs.EntityID) Command[C, P, CP, PP] {
	return Command[C, P, CP, PP]{Op: OpClearChildren, Target: parent}
}

// ReplaceChildrenCommand is the deferred form of ReplaceChildren.
func (Tree[C, P, CP, PP]) ReplaceChildrenCommand(parent ecs.EntityID, children []ecs.EntityID) Command[C, P, CP, PP] {
	assertNotSelf(parent, children...)
	return Command[C, P, CP, PP]{Op: OpReplaceChildren, Target: parent, Children: slices.Clone(children)}
}

// DespawnRecursiveCommand is the deferred form of DespawnRecursive and TryDespawnRecursive.
func (Tree[C, P, CP, PP]) DespawnRecursiveCommand(e ecs.EntityID, warn bool) Command[C, P, CP, PP] {
	return Command[C, P, CP, PP]{Op: OpDespawnRecursive, Target: e, Warn: warn}
}

// DespawnDescendantsCommand is the deferred form of DespawnDescendants and TryDespawnDescendants.
func (Tree[C, P, CP, PP]) DespawnDescendantsCommand(e ecs.EntityID, warn bool) Command[C, P, CP, PP] {
	return Command[C, P, CP, PP]{Op: OpDespawnDescendants, Target: e, Warn: warn}
}
