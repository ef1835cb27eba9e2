package ecs

import (
	"reflect"

	"github.com/argus-labs/carbon/pkg/assert"
	"github.com/rotisserie/eris"
)

// Component is the interface that all components must implement.
// Components are pure data containers that can be attached to entities.
type Component interface { //nolint:iface // We may add more methods in the future.
	// Name returns a unique string identifier for the component type.
	Name() string
}

// componentID is a unique identifier for a component type.
type componentID = uint32

// ComponentHook observes a component being attached to or detached from an entity.
type ComponentHook[T Component] func(w *World, e EntityID, component T)

type abstractHook func(w *World, e EntityID, component Component)

// componentManager manages component type registration and lookup.
type componentManager struct {
	nextID   componentID             // The next available component ID
	catalog  map[string]componentID  // Component name -> component ID
	types    map[string]reflect.Type // Component name -> concrete type
	columns  []abstractColumn        // Component ID -> column
	onInsert [][]abstractHook        // Component ID -> hooks run after every insert or overwrite
	onRemove [][]abstractHook        // Component ID -> hooks run after removal
}

// newComponentManager creates a new component manager.
func newComponentManager() componentManager {
	return componentManager{
		nextID:   0,
		catalog:  make(map[string]componentID),
		types:    make(map[string]reflect.Type),
		columns:  make([]abstractColumn, 0),
		onInsert: make([][]abstractHook, 0),
		onRemove: make([][]abstractHook, 0),
	}
}

// register registers a component type and returns its ID. If the component is already
// registered, no-op. Two different types sharing a name is a programming error.
func register[T Component](cm *componentManager) componentID {
	var zero T
	name := zero.Name()
	assert.That(name != "", "component name cannot be empty")

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if cid, exists := cm.catalog[name]; exists {
		assert.That(cm.types[name] == typ, "component name %s is used by %s and %s", name, cm.types[name], typ)
		return cid
	}

	cm.catalog[name] = cm.nextID
	cm.types[name] = typ
	cm.columns = append(cm.columns, newColumn[T]())
	cm.onInsert = append(cm.onInsert, nil)
	cm.onRemove = append(cm.onRemove, nil)
	cm.nextID++
	assert.That(int(cm.nextID) == len(cm.columns), "component id doesn't match number of components")

	return cm.nextID - 1
}

// getID returns a component's ID given a name.
func (cm *componentManager) getID(name string) (componentID, error) {
	id, exists := cm.catalog[name]
	if !exists {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "component %s", name)
	}
	return id, nil
}

// lookup returns the typed column for T without registering it.
func lookup[T Component](cm *componentManager) (*column[T], bool) {
	var zero T
	id, exists := cm.catalog[zero.Name()]
	if !exists {
		return nil, false
	}
	col, ok := cm.columns[id].(*column[T])
	assert.That(ok, "component %s has an unexpected column type", zero.Name())
	return col, true
}

// columnOf returns the typed column for T, registering the type on first use.
func columnOf[T Component](cm *componentManager) (*column[T], componentID) {
	id := register[T](cm)
	col, ok := cm.columns[id].(*column[T])
	assert.That(ok, "component %s has an unexpected column type", cm.columns[id].name())
	return col, id
}

// RegisterComponent registers a component type so it can be attached through the untyped paths
// (World.Spawn, Commands.Spawn, Commands.Insert). Typed setters register on first use.
func RegisterComponent[T Component](w *World) {
	register[T](&w.components)
}

// OnInsert registers a hook that runs after a T is attached to an entity or overwritten.
func OnInsert[T Component](w *World, hook ComponentHook[T]) {
	id := register[T](&w.components)
	w.components.onInsert[id] = append(w.components.onInsert[id], wrapHook(hook))
}

// OnRemove registers a hook that runs after a T is detached from an entity, including when the
// entity is destroyed. The hook receives the removed value.
func OnRemove[T Component](w *World, hook ComponentHook[T]) {
	id := register[T](&w.components)
	w.components.onRemove[id] = append(w.components.onRemove[id], wrapHook(hook))
}

func wrapHook[T Component](hook ComponentHook[T]) abstractHook {
	return func(w *World, e EntityID, component Component) {
		concrete, ok := component.(T)
		assert.That(ok, "hook received the wrong component type")
		hook(w, e, concrete)
	}
}
