package hierarchy

import (
	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// -------------------------------------------------------------------------------------------------
// Structural mutation utilities
// -------------------------------------------------------------------------------------------------
// These are the building blocks of every public operation. Only UpdateOldParent(s) and
// RemoveChildren keep both sides of the relation in sync on their own; the lower level helpers
// each touch one side and leave the other to the caller.
// -------------------------------------------------------------------------------------------------

// UpdateParent points child at newParent and returns the previous parent, if any. It does not
// touch either parent's children.
func (Tree[C, P, CP, PP]) UpdateParent(
	w *ecs.World, child, newParent ecs.EntityID,
) (ecs.EntityID, bool) {
	previous := ecs.Invalid
	hadParent := false
	if p, err := ecs.Get[PP](w, child); err == nil {
		previous, hadParent = p.Get(), true
	}

	if err := ecs.Set(w, child, makeParent[P, PP](newParent)); err != nil {
		w.Logger().Debug().Err(err).Stringer("child", child).Msg("cannot set parent")
	}
	return previous, hadParent
}

// AddChildUnchecked appends child to parent's children, creating the list if needed. The caller
// guarantees child isn't already listed.
func (t Tree[C, P, CP, PP]) AddChildUnchecked(w *ecs.World, parent, child ecs.EntityID) {
	if children, ok := t.children(w, parent); ok {
		children.Push(child)
		return
	}
	t.setChildren(w, parent, []ecs.EntityID{child})
}

// RemoveFromChildren drops child from parent's children and removes the list once it is empty.
func (t Tree[C, P, CP, PP]) RemoveFromChildren(w *ecs.World, parent, child ecs.EntityID) {
	children, ok := t.children(w, parent)
	if !ok {
		return
	}
	children.Retain(func(e ecs.EntityID) bool { return e != child })
	if children.Len() == 0 {
		_, _ = ecs.Take[CP](w, parent)
	}
}

// UpdateOldParent points child at newParent and detaches it from its previous parent. It sends
// ChildAdded on first parenting and ChildMoved on a move. Nothing happens when newParent already
// is the parent. newParent's children are left to the caller.
func (t Tree[C, P, CP, PP]) UpdateOldParent(w *ecs.World, child, newParent ecs.EntityID) {
	if event, ok := t.updateOldParent(w, child, newParent); ok {
		PushEvents(w, event)
	}
}

// UpdateOldParents is UpdateOldParent for a batch; the events are sent together.
func (t Tree[C, P, CP, PP]) UpdateOldParents(w *ecs.World, parent ecs.EntityID, children []ecs.EntityID) {
	events := make([]Event, 0, len(children))
	for _, child := range children {
		if event, ok := t.updateOldParent(w, child, parent); ok {
			events = append(events, event)
		}
	}
	PushEvents(w, events...)
}

func (t Tree[C, P, CP, PP]) updateOldParent(w *ecs.World, child, newParent ecs.EntityID) (Event, bool) {
	previous, hadParent := t.Parent(w, child)
	if hadParent && previous == newParent {
		return Event{}, false
	}

	t.UpdateParent(w, child, newParent)
	if !hadParent {
		return childAdded(child, newParent), true
	}
	t.RemoveFromChildren(w, previous, child)
	return childMoved(child, previous, newParent), true
}

// RemoveChildren detaches every listed child currently under parent, sending ChildRemoved for
// each. Children not listed under parent are ignored.
func (t Tree[C, P, CP, PP]) RemoveChildren(w *ecs.World, parent ecs.EntityID, children []ecs.EntityID) {
	current, ok := t.children(w, parent)
	if !ok {
		return
	}

	removed := make(map[ecs.EntityID]struct{}, len(children))
	events := make([]Event, 0, len(children))
	for _, child := range children {
		if _, dup := removed[child]; dup || !current.Contains(child) {
			continue
		}
		removed[child] = struct{}{}
		events = append(events, childRemoved(child, parent))
		_, _ = ecs.Take[PP](w, child)
	}
	PushEvents(w, events...)

	current.Retain(func(e ecs.EntityID) bool {
		_, drop := removed[e]
		return !drop
	})
	if current.Len() == 0 {
		_, _ = ecs.Take[CP](w, parent)
	}
}

// ClearChildren removes parent's children list and the Parent of every former child. It is a
// single bulk transition and sends no events.
func (t Tree[C, P, CP, PP]) ClearChildren(w *ecs.World, parent ecs.EntityID) {
	children, ok := ecs.Take[CP](w, parent)
	if !ok {
		return
	}
	for _, child := range children.Get() {
		if p, ok := t.Parent(w, child); ok && p == parent {
			_, _ = ecs.Take[PP](w, child)
		}
	}
}

func (Tree[C, P, CP, PP]) setChildren(w *ecs.World, parent ecs.EntityID, children []ecs.EntityID) {
	if err := ecs.Set(w, parent, makeChildren[C, CP](children)); err != nil {
		w.Logger().Debug().Err(err).Stringer("parent", parent).Msg("cannot set children")
	}
}
