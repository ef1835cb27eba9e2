// Package hierarchy keeps parent/child relationships between entities consistent. Every entity
// with a Parent appears exactly once in that parent's Children, and every Children entry points
// back at its owner. Empty Children components are removed rather than kept.
//
// The algorithms are generic over the relationship encoding; a Tree value picks one:
//
//	tree := hierarchy.New[hierarchy.SmallChildren, hierarchy.ParentOf]()
//	tree.Register(w)
//	tree.AddChild(w, base, link)
package hierarchy

import (
	"slices"

	"github.com/rotisserie/eris"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// Tree binds the hierarchy algorithms to a Children and Parent encoding. It holds no state; all
// state lives in the world passed to each call, so the zero value is ready to use.
type Tree[C, P any, CP ChildrenKind[C], PP ParentKind[P]] struct{}

// New returns a Tree for the given encodings. The pointer types are inferred:
//
//	hierarchy.New[hierarchy.IndexedChildren, hierarchy.ParentOf]()
func New[C, P any, CP ChildrenKind[C], PP ParentKind[P]]() Tree[C, P, CP, PP] {
	return Tree[C, P, CP, PP]{}
}

// DefaultTree uses inline small-vector children.
type DefaultTree = Tree[SmallChildren, ParentOf, *SmallChildren, *ParentOf]

// Default is the DefaultTree instance.
var Default = New[SmallChildren, ParentOf]() //nolint:gochecknoglobals // stateless

// registration marks a world whose despawn hook for this encoding is installed.
type registration[CP, PP any] struct{}

// Register makes the relationship components known to the world and installs a despawn hook that
// keeps the relation consistent when an entity is destroyed directly through ecs. Calling it again
// is a no-op.
func (t Tree[C, P, CP, PP]) Register(w *ecs.World) {
	ecs.RegisterComponent[CP](w)
	ecs.RegisterComponent[PP](w)
	if _, ok := ecs.GetResource[registration[CP, PP]](w); ok {
		return
	}
	ecs.InsertResource(w, &registration[CP, PP]{})
	ecs.OnDespawn(w, t.detachDespawned)
}

// -------------------------------------------------------------------------------------------------
// Reads
// -------------------------------------------------------------------------------------------------

// Parent returns the parent of child.
func (Tree[C, P, CP, PP]) Parent(w *ecs.World, child ecs.EntityID) (ecs.EntityID, bool) {
	p, err := ecs.Get[PP](w, child)
	if err != nil {
		return ecs.Invalid, false
	}
	return p.Get(), true
}

// Children returns a copy of parent's children. It is nil when parent has none.
func (t Tree[C, P, CP, PP]) Children(w *ecs.World, parent ecs.EntityID) []ecs.EntityID {
	children, ok := t.children(w, parent)
	if !ok {
		return nil
	}
	return slices.Clone(children.Get())
}

// HasChildren reports whether parent carries a Children component.
func (Tree[C, P, CP, PP]) HasChildren(w *ecs.World, parent ecs.EntityID) bool {
	return ecs.Has[CP](w, parent)
}

// Descendants returns every transitive child of root in depth-first pre-order, excluding root.
func (t Tree[C, P, CP, PP]) Descendants(w *ecs.World, root ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	stack := t.Children(w, root)
	slices.Reverse(stack)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, e)

		children := t.Children(w, e)
		slices.Reverse(children)
		stack = append(stack, children...)
	}
	return out
}

// Root walks Parent links up from e and returns the topmost ancestor.
func (t Tree[C, P, CP, PP]) Root(w *ecs.World, e ecs.EntityID) ecs.EntityID {
	for {
		parent, ok := t.Parent(w, e)
		if !ok {
			return e
		}
		e = parent
	}
}

// Check verifies that Parent and Children are exact inverses, children lists hold no duplicates
// and no Children component is empty.
func (t Tree[C, P, CP, PP]) Check(w *ecs.World) error {
	var err error
	ecs.Each(w, func(parent ecs.EntityID, children CP) bool {
		if children.Len() == 0 {
			err = eris.Wrapf(ErrInconsistent, "entity %s has an empty children list", parent)
			return false
		}
		seen := make(map[ecs.EntityID]struct{}, children.Len())
		for _, child := range children.Get() {
			if _, dup := seen[child]; dup {
				err = eris.Wrapf(ErrInconsistent, "child %s listed twice under %s", child, parent)
				return false
			}
			seen[child] = struct{}{}
			if got, ok := t.Parent(w, child); !ok || got != parent {
				err = eris.Wrapf(ErrInconsistent, "child %s of %s points at parent %s", child, parent, got)
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	ecs.Each(w, func(child ecs.EntityID, parent PP) bool {
		children, ok := t.children(w, parent.Get())
		if !ok || !children.Contains(child) {
			err = eris.Wrapf(ErrInconsistent, "%s is missing from the children of its parent %s",
				child, parent.Get())
			return false
		}
		return true
	})
	return err
}

func (Tree[C, P, CP, PP]) children(w *ecs.World, parent ecs.EntityID) (CP, bool) {
	children, err := ecs.Get[CP](w, parent)
	if err != nil {
		var zero CP
		return zero, false
	}
	return children, true
}

func makeChildren[C any, CP ChildrenKind[C]](children []ecs.EntityID) CP {
	c := CP(new(C))
	c.Init(children)
	return c
}

func makeParent[P any, PP ParentKind[P]](parent ecs.EntityID) PP {
	p := PP(new(P))
	p.Init(parent)
	return p
}

func assertNotSelf(parent ecs.EntityID, children ...ecs.EntityID) {
	if slices.Contains(children, parent) {
		panic(eris.Wrapf(ErrSelfParent, "entity %s", parent))
	}
}
