package ecs

import (
	"reflect"

	"github.com/argus-labs/carbon/pkg/assert"
	"github.com/rotisserie/eris"
)

// resourceManager holds singleton values keyed by their type. Resources are stored as pointers so
// systems mutate them in place.
type resourceManager struct {
	items map[reflect.Type]any
}

func newResourceManager() resourceManager {
	return resourceManager{items: make(map[reflect.Type]any)}
}

func resourceKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil))
}

// InsertResource stores res as the world's T, replacing any previous value.
func InsertResource[T any](w *World, res *T) {
	assert.That(res != nil, "cannot insert nil resource %s", resourceKey[T]())
	w.resources.items[resourceKey[T]()] = res
}

// GetResource returns the world's T.
func GetResource[T any](w *World) (*T, bool) {
	res, ok := w.resources.items[resourceKey[T]()]
	if !ok {
		return nil, false
	}
	return res.(*T), true //nolint:errcheck // keyed by type
}

// MustResource returns the world's T and panics if it was never inserted.
func MustResource[T any](w *World) *T {
	res, ok := GetResource[T](w)
	if !ok {
		panic(eris.Wrapf(ErrResourceNotFound, "resource %s", resourceKey[T]()))
	}
	return res
}

// RemoveResource deletes the world's T. Returns false if it wasn't present.
func RemoveResource[T any](w *World) bool {
	key := resourceKey[T]()
	if _, ok := w.resources.items[key]; !ok {
		return false
	}
	delete(w.resources.items, key)
	return true
}
