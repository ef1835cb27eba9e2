package hierarchy

import "github.com/rotisserie/eris"

var (
	// ErrSelfParent is the panic value of any operation naming an entity as its own parent or
	// child. The check runs before anything is written.
	ErrSelfParent = eris.New("entity cannot be its own parent")

	// ErrCycle is the panic value of an attach that would make an entity its own ancestor. The
	// check runs when the edit is applied, before anything is written; for commands that is at
	// flush.
	ErrCycle = eris.New("attach would create a cycle")

	// ErrInconsistent is returned by Tree.Check when Parent and Children disagree.
	ErrInconsistent = eris.New("hierarchy is inconsistent")
)
