package hierarchy

import (
	"slices"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// DespawnRecursive destroys e and all its descendants after detaching e from its parent. Entities
// that are already gone are logged at warn level.
func (t Tree[C, P, CP, PP]) DespawnRecursive(w *ecs.World, e ecs.EntityID) {
	t.despawnRecursive(w, e, true)
}

// TryDespawnRecursive is DespawnRecursive without the warnings.
func (t Tree[C, P, CP, PP]) TryDespawnRecursive(w *ecs.World, e ecs.EntityID) {
	t.despawnRecursive(w, e, false)
}

// DespawnDescendants destroys every descendant of e. e stays alive without children.
func (t Tree[C, P, CP, PP]) DespawnDescendants(w *ecs.World, e ecs.EntityID) {
	t.despawnDescendants(w, e, true)
}

// TryDespawnDescendants is DespawnDescendants without the warnings.
func (t Tree[C, P, CP, PP]) TryDespawnDescendants(w *ecs.World, e ecs.EntityID) {
	t.despawnDescendants(w, e, false)
}

func (t Tree[C, P, CP, PP]) despawnRecursive(w *ecs.World, e ecs.EntityID, warn bool) {
	// Detach first so the parent is consistent before any recursive work.
	if parent, ok := t.Parent(w, e); ok {
		t.RemoveFromChildren(w, parent, e)
	}
	t.despawnWithChildren(w, e, warn)
}

func (t Tree[C, P, CP, PP]) despawnDescendants(w *ecs.World, e ecs.EntityID, warn bool) {
	children, ok := ecs.Take[CP](w, e)
	if !ok {
		return
	}
	for _, child := range slices.Clone(children.Get()) {
		t.despawnWithChildren(w, child, warn)
	}
}

// despawnWithChildren destroys root and its subtree children-first. It uses an explicit stack so
// depth is bounded by memory, not by the goroutine stack.
func (Tree[C, P, CP, PP]) despawnWithChildren(w *ecs.World, root ecs.EntityID, warn bool) {
	type frame struct {
		entity   ecs.EntityID
		expanded bool
	}

	stack := []frame{{entity: root}}
	for len(stack) > 0 {
		top := len(stack) - 1
		if !stack[top].expanded {
			stack[top].expanded = true
			if children, ok := ecs.Take[CP](w, stack[top].entity); ok {
				ids := children.Get()
				for i := len(ids) - 1; i >= 0; i-- {
					stack = append(stack, frame{entity: ids[i]})
				}
			}
			continue
		}

		e := stack[top].entity
		stack = stack[:top]
		if !w.Destroy(e) && warn {
			w.Logger().Warn().Stringer("entity", e).Msg("failed to despawn entity, it does not exist")
		}
	}
}

// detachDespawned runs before e is destroyed. e leaves its parent's children, and its children
// lose their Parent and get ChildRemoved. Despawns from this package have already done both, so
// for them it finds nothing to do.
func (t Tree[C, P, CP, PP]) detachDespawned(w *ecs.World, e ecs.EntityID) {
	if parent, ok := t.Parent(w, e); ok {
		t.RemoveFromChildren(w, parent, e)
	}

	children, ok := ecs.Take[CP](w, e)
	if !ok {
		return
	}
	events := make([]Event, 0, children.Len())
	for _, child := range children.Get() {
		if parent, ok := t.Parent(w, child); ok && parent == e {
			_, _ = ecs.Take[PP](w, child)
			events = append(events, childRemoved(child, e))
		}
	}
	PushEvents(w, events...)
}
