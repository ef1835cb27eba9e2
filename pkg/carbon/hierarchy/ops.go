package hierarchy

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// -------------------------------------------------------------------------------------------------
// Direct operations
// -------------------------------------------------------------------------------------------------
// These need exclusive access to the world. Code that only has partial access (read-only systems)
// uses the command forms in command.go, which end up here at flush time. Self-parenting panics
// with ErrSelfParent and attaching an ancestor panics with ErrCycle, both before anything is
// written. Entities that are not alive are skipped.
// -------------------------------------------------------------------------------------------------

// AddChild attaches child under parent, detaching it from its previous parent.
func (t Tree[C, P, CP, PP]) AddChild(w *ecs.World, parent, child ecs.EntityID) {
	assertNotSelf(parent, child)
	if !t.bothAlive(w, parent, child) {
		return
	}
	t.assertAcyclic(w, parent, child)

	t.UpdateOldParent(w, child, parent)
	if children, ok := t.children(w, parent); ok {
		if !children.Contains(child) {
			children.Push(child)
		}
		return
	}
	t.setChildren(w, parent, []ecs.EntityID{child})
}

// SetParent is AddChild seen from the child.
func (t Tree[C, P, CP, PP]) SetParent(w *ecs.World, child, parent ecs.EntityID) {
	t.AddChild(w, parent, child)
}

// AddChildren attaches children under parent in order. Children already under parent move to the
// end of the list.
func (t Tree[C, P, CP, PP]) AddChildren(w *ecs.World, parent ecs.EntityID, children []ecs.EntityID) {
	assertNotSelf(parent, children...)
	children = t.liveUnique(w, children)
	if !w.Alive(parent) || len(children) == 0 {
		return
	}
	t.assertAcyclic(w, parent, children...)

	t.UpdateOldParents(w, parent, children)
	if current, ok := t.children(w, parent); ok {
		incoming := toSet(children)
		current.Retain(func(e ecs.EntityID) bool {
			_, ok := incoming[e]
			return !ok
		})
		current.Extend(children)
		return
	}
	t.setChildren(w, parent, children)
}

// InsertChildren attaches children under parent starting at position index. Later children shift
// back. index is clamped to the list length after children already under parent are taken out.
func (t Tree[C, P, CP, PP]) InsertChildren(
	w *ecs.World, parent ecs.EntityID, index int, children []ecs.EntityID,
) {
	assertNotSelf(parent, children...)
	children = t.liveUnique(w, children)
	if !w.Alive(parent) || len(children) == 0 {
		return
	}
	t.assertAcyclic(w, parent, children...)

	t.UpdateOldParents(w, parent, children)
	if current, ok := t.children(w, parent); ok {
		incoming := toSet(children)
		current.Retain(func(e ecs.EntityID) bool {
			_, ok := incoming[e]
			return !ok
		})
		current.InsertFromSlice(min(max(index, 0), current.Len()), children)
		return
	}
	t.setChildren(w, parent, children)
}

// RemoveParent detaches child from its parent and sends ChildRemoved. No-op without a parent.
func (t Tree[C, P, CP, PP]) RemoveParent(w *ecs.World, child ecs.EntityID) {
	p, ok := ecs.Take[PP](w, child)
	if !ok {
		return
	}
	parent := p.Get()
	t.RemoveFromChildren(w, parent, child)
	PushEvents(w, childRemoved(child, parent))
}

// ReplaceChildren is ClearChildren followed by AddChildren. A child present in both the old and
// the new list is detached and reattached, so it produces a ChildAdded event.
func (t Tree[C, P, CP, PP]) ReplaceChildren(w *ecs.World, parent ecs.EntityID, children []ecs.EntityID) {
	assertNotSelf(parent, children...)
	t.assertAcyclic(w, parent, children...)
	t.ClearChildren(w, parent)
	t.AddChildren(w, parent, children)
}

func (Tree[C, P, CP, PP]) bothAlive(w *ecs.World, parent, child ecs.EntityID) bool {
	if w.Alive(parent) && w.Alive(child) {
		return true
	}
	w.Logger().Debug().Stringer("parent", parent).Stringer("child", child).
		Msg("skipping attach, entity does not exist")
	return false
}

// liveUnique drops dead entities and repeated ids, keeping first occurrences in order.
func (Tree[C, P, CP, PP]) liveUnique(w *ecs.World, children []ecs.EntityID) []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(children))
	seen := make(map[ecs.EntityID]struct{}, len(children))
	for _, child := range children {
		if _, dup := seen[child]; dup || !w.Alive(child) {
			continue
		}
		seen[child] = struct{}{}
		out = append(out, child)
	}
	return out
}

// assertAcyclic panics with ErrCycle when one of children is an ancestor of parent. Only entities
// with children of their own can be ancestors, so attaching fresh entities skips the walk.
func (t Tree[C, P, CP, PP]) assertAcyclic(w *ecs.World, parent ecs.EntityID, children ...ecs.EntityID) {
	var candidates map[ecs.EntityID]struct{}
	for _, child := range children {
		if t.HasChildren(w, child) {
			if candidates == nil {
				candidates = make(map[ecs.EntityID]struct{}, len(children))
			}
			candidates[child] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return
	}

	for e := parent; ; {
		ancestor, ok := t.Parent(w, e)
		if !ok {
			return
		}
		if _, hit := candidates[ancestor]; hit {
			panic(eris.Wrapf(ErrCycle, "%s is an ancestor of %s", ancestor, parent))
		}
		e = ancestor
	}
}

func toSet(entities []ecs.EntityID) map[ecs.EntityID]struct{} {
	set := make(map[ecs.EntityID]struct{}, len(entities))
	for _, e := range entities {
		set[e] = struct{}{}
	}
	return set
}
