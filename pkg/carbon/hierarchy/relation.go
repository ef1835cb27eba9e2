package hierarchy

import (
	"slices"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// Parent is the capability of a type recording an entity's parent. It is a single value holder
// with no other semantics.
type Parent interface {
	ecs.Component

	// Init points the holder at parent.
	Init(parent ecs.EntityID)
	// Get returns the parent.
	Get() ecs.EntityID
}

// ParentKind is satisfied by *T when *T implements Parent.
type ParentKind[T any] interface {
	*T
	Parent
}

// Children is the capability of a type holding an ordered list of children. The hierarchy
// algorithms only use these primitives, so any encoding satisfying them can be swapped in without
// touching the algorithms.
type Children interface {
	ecs.Component

	// Init replaces the contents with a copy of children.
	Init(children []ecs.EntityID)
	// Get returns the ordered children. The slice aliases internal storage and must not be
	// retained across mutations.
	Get() []ecs.EntityID
	// Mut returns the ordered children for in-place reordering. Writes must keep the same set of
	// ids; membership changes go through the methods below.
	Mut() []ecs.EntityID
	Len() int
	Contains(child ecs.EntityID) bool

	Push(child ecs.EntityID)
	Retain(keep func(ecs.EntityID) bool)
	Extend(children []ecs.EntityID)
	// InsertFromSlice inserts children before position index. index must be in [0, Len()].
	InsertFromSlice(index int, children []ecs.EntityID)
	Swap(i, j int)
}

// ChildrenKind is satisfied by *T when *T implements Children.
type ChildrenKind[T any] interface {
	*T
	Children
}

// -------------------------------------------------------------------------------------------------
// ParentOf
// -------------------------------------------------------------------------------------------------

// ParentOf is the default parent holder.
type ParentOf struct {
	parent ecs.EntityID
}

var _ Parent = (*ParentOf)(nil)

func (*ParentOf) Name() string { return "parent" }

func (p *ParentOf) Init(parent ecs.EntityID) { p.parent = parent }

func (p *ParentOf) Get() ecs.EntityID { return p.parent }

// -------------------------------------------------------------------------------------------------
// SmallChildren
// -------------------------------------------------------------------------------------------------

const inlineChildren = 8

// SmallChildren stores up to eight children inline and spills to a heap slice beyond that. Most
// links of a robot have one or two children, so the common case never allocates a second time.
type SmallChildren struct {
	inline [inlineChildren]ecs.EntityID
	n      int            // Number of inline entries, unused once spilled
	heap   []ecs.EntityID // Non-nil once spilled
}

var _ Children = (*SmallChildren)(nil)

func (*SmallChildren) Name() string { return "children" }

func (s *SmallChildren) Init(children []ecs.EntityID) {
	s.reset(slices.Clone(children))
}

func (s *SmallChildren) Get() []ecs.EntityID {
	if s.heap != nil {
		return s.heap
	}
	return s.inline[:s.n]
}

func (s *SmallChildren) Mut() []ecs.EntityID { return s.Get() }

func (s *SmallChildren) Len() int { return len(s.Get()) }

func (s *SmallChildren) Contains(child ecs.EntityID) bool {
	return slices.Contains(s.Get(), child)
}

// Spilled reports whether the children moved to the heap.
func (s *SmallChildren) Spilled() bool { return s.heap != nil }

func (s *SmallChildren) Push(child ecs.EntityID) {
	switch {
	case s.heap != nil:
		s.heap = append(s.heap, child)
	case s.n < inlineChildren:
		s.inline[s.n] = child
		s.n++
	default:
		heap := make([]ecs.EntityID, 0, 2*inlineChildren)
		heap = append(heap, s.inline[:]...)
		s.heap = append(heap, child)
		s.n = 0
	}
}

func (s *SmallChildren) Retain(keep func(ecs.EntityID) bool) {
	kept := slices.DeleteFunc(s.Get(), func(e ecs.EntityID) bool { return !keep(e) })
	if s.heap != nil {
		s.heap = kept
		return
	}
	s.n = len(kept)
}

func (s *SmallChildren) Extend(children []ecs.EntityID) {
	for _, child := range children {
		s.Push(child)
	}
}

func (s *SmallChildren) InsertFromSlice(index int, children []ecs.EntityID) {
	s.reset(slices.Insert(slices.Clone(s.Get()), index, children...))
}

func (s *SmallChildren) Swap(i, j int) {
	v := s.Get()
	v[i], v[j] = v[j], v[i]
}

// reset takes ownership of children.
func (s *SmallChildren) reset(children []ecs.EntityID) {
	if len(children) > inlineChildren {
		s.heap = children
		s.n = 0
		return
	}
	s.heap = nil
	s.n = copy(s.inline[:], children)
	clear(s.inline[s.n:])
}

// -------------------------------------------------------------------------------------------------
// IndexedChildren
// -------------------------------------------------------------------------------------------------

// IndexedChildren keeps a membership index next to the ordered list so Contains is O(1). It suits
// wide nodes such as a frame holding many sensor links.
type IndexedChildren struct {
	order []ecs.EntityID
	index map[ecs.EntityID]struct{}
}

var _ Children = (*IndexedChildren)(nil)

func (*IndexedChildren) Name() string { return "indexed_children" }

func (c *IndexedChildren) Init(children []ecs.EntityID) {
	c.order = slices.Clone(children)
	c.reindex()
}

func (c *IndexedChildren) Get() []ecs.EntityID { return c.order }

func (c *IndexedChildren) Mut() []ecs.EntityID { return c.order }

func (c *IndexedChildren) Len() int { return len(c.order) }

func (c *IndexedChildren) Contains(child ecs.EntityID) bool {
	_, ok := c.index[child]
	return ok
}

func (c *IndexedChildren) Push(child ecs.EntityID) {
	if c.index == nil {
		c.index = make(map[ecs.EntityID]struct{})
	}
	c.order = append(c.order, child)
	c.index[child] = struct{}{}
}

func (c *IndexedChildren) Retain(keep func(ecs.EntityID) bool) {
	c.order = slices.DeleteFunc(c.order, func(e ecs.EntityID) bool {
		if keep(e) {
			return false
		}
		delete(c.index, e)
		return true
	})
}

func (c *IndexedChildren) Extend(children []ecs.EntityID) {
	for _, child := range children {
		c.Push(child)
	}
}

func (c *IndexedChildren) InsertFromSlice(index int, children []ecs.EntityID) {
	if c.index == nil {
		c.index = make(map[ecs.EntityID]struct{})
	}
	c.order = slices.Insert(c.order, index, children...)
	for _, child := range children {
		c.index[child] = struct{}{}
	}
}

func (c *IndexedChildren) Swap(i, j int) {
	c.order[i], c.order[j] = c.order[j], c.order[i]
}

func (c *IndexedChildren) reindex() {
	c.index = make(map[ecs.EntityID]struct{}, len(c.order))
	for _, child := range c.order {
		c.index[child] = struct{}{}
	}
}
