package ecs

import "github.com/rotisserie/eris"

// Set sets a component on an entity. If the entity contains the component type, it will update the
// value. If it doesn't, it will add the component. Insert hooks run in both cases.
func Set[T Component](w *World, eid EntityID, component T) error {
	if !w.Alive(eid) {
		return eris.Wrapf(ErrEntityNotFound, "entity %s", eid)
	}

	col, id := columnOf[T](&w.components)
	col.set(eid, component)
	w.runHooks(w.components.onInsert[id], eid, component)
	return nil
}

// Get gets a component from an entity.
// Returns an error if the entity doesn't exist or doesn't contain the component type.
func Get[T Component](w *World, eid EntityID) (T, error) {
	var zero T
	if !w.Alive(eid) {
		return zero, eris.Wrapf(ErrEntityNotFound, "entity %s", eid)
	}

	col, ok := lookup[T](&w.components)
	if !ok {
		return zero, eris.Wrapf(ErrComponentNotFound, "entity %s has no %s", eid, zero.Name())
	}
	component, ok := col.get(eid)
	if !ok {
		return zero, eris.Wrapf(ErrComponentNotFound, "entity %s has no %s", eid, zero.Name())
	}
	return component, nil
}

// Remove removes a component from an entity.
// Returns an error if the entity or the component to remove doesn't exist.
func Remove[T Component](w *World, eid EntityID) error {
	if _, ok := Take[T](w, eid); !ok {
		var zero T
		if !w.Alive(eid) {
			return eris.Wrapf(ErrEntityNotFound, "entity %s", eid)
		}
		return eris.Wrapf(ErrComponentNotFound, "entity %s has no %s", eid, zero.Name())
	}
	return nil
}

// Take removes a component from an entity and returns it. Absence of either the entity or the
// component is reported through the boolean only.
func Take[T Component](w *World, eid EntityID) (T, bool) {
	var zero T
	if !w.Alive(eid) {
		return zero, false
	}

	col, ok := lookup[T](&w.components)
	if !ok {
		return zero, false
	}
	component, ok := col.remove(eid)
	if !ok {
		return zero, false
	}

	id, _ := w.components.getID(zero.Name())
	w.runHooks(w.components.onRemove[id], eid, component)
	return component, true
}

// Has checks if an entity has a specific component type.
// Returns false if either the entity doesn't exist or doesn't have the component.
func Has[T Component](w *World, eid EntityID) bool {
	_, err := Get[T](w, eid)
	return err == nil
}

// Each calls fn for every entity carrying a T, in storage order, until fn returns false. The
// column must not be structurally modified from inside fn.
func Each[T Component](w *World, fn func(EntityID, T) bool) {
	col, ok := lookup[T](&w.components)
	if !ok {
		return
	}
	for i, eid := range col.owners {
		if !fn(eid, col.components[i]) {
			return
		}
	}
}

// Entities returns a snapshot of the entities carrying a T.
func Entities[T Component](w *World) []EntityID {
	col, ok := lookup[T](&w.components)
	if !ok {
		return nil
	}
	return col.entities()
}

// Count returns the number of entities carrying a T.
func Count[T Component](w *World) int {
	col, ok := lookup[T](&w.components)
	if !ok {
		return 0
	}
	return col.len()
}
