package ecs

import "github.com/rotisserie/eris"

var (
	// ErrEntityNotFound is returned when operating on an entity that was never created or has
	// already been destroyed.
	ErrEntityNotFound = eris.New("entity does not exist")

	// ErrComponentNotFound is returned when an entity doesn't carry the requested component.
	ErrComponentNotFound = eris.New("component does not exist")

	// ErrComponentNotRegistered is raised when a component value is attached through the untyped
	// path before its type was registered with RegisterComponent.
	ErrComponentNotRegistered = eris.New("component is not registered")

	// ErrResourceNotFound is raised by MustResource when the resource was never inserted.
	ErrResourceNotFound = eris.New("resource does not exist")
)
