package hierarchy

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

type label string

func (label) Name() string { return "label" }

type fixture[C, P any, CP ChildrenKind[C], PP ParentKind[P]] struct {
	tree   Tree[C, P, CP, PP]
	world  *ecs.World
	events *ecs.Events[Event]
}

func newFixture[C, P any, CP ChildrenKind[C], PP ParentKind[P]](
	tree Tree[C, P, CP, PP],
) *fixture[C, P, CP, PP] {
	w := ecs.NewWorld()
	tree.Register(w)
	ecs.RegisterComponent[label](w)
	return &fixture[C, P, CP, PP]{tree: tree, world: w, events: AddEvents(w)}
}

func (f *fixture[C, P, CP, PP]) spawn(n int) []ecs.EntityID {
	out := make([]ecs.EntityID, n)
	for i := range out {
		out[i] = f.world.Spawn()
	}
	return out
}

func (f *fixture[C, P, CP, PP]) check(t *testing.T) {
	t.Helper()
	require.NoError(t, f.tree.Check(f.world))
}

// snapshot captures every relationship so tests can assert nothing changed.
func (f *fixture[C, P, CP, PP]) snapshot(entities []ecs.EntityID) map[ecs.EntityID][2]any {
	out := make(map[ecs.EntityID][2]any, len(entities))
	for _, e := range entities {
		parent, _ := f.tree.Parent(f.world, e)
		out[e] = [2]any{parent, f.tree.Children(f.world, e)}
	}
	return out
}

func requireSelfParentPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a self-parent panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value should be an error, got %v", r)
		assert.True(t, eris.Is(err, ErrSelfParent))
	}()
	fn()
}

type (
	smallFixture   = fixture[SmallChildren, ParentOf, *SmallChildren, *ParentOf]
	indexedFixture = fixture[IndexedChildren, ParentOf, *IndexedChildren, *ParentOf]
)

// -------------------------------------------------------------------------------------------------
// Generic test bodies
// -------------------------------------------------------------------------------------------------

func testAddChild[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(3)
	p, a, b := e[0], e[1], e[2]

	f.tree.AddChild(f.world, p, a)
	f.tree.AddChild(f.world, p, b)
	f.check(t)

	assert.Equal(t, []ecs.EntityID{a, b}, f.tree.Children(f.world, p))
	got, ok := f.tree.Parent(f.world, a)
	require.True(t, ok)
	assert.Equal(t, p, got)
	assert.Equal(t, []Event{childAdded(a, p), childAdded(b, p)}, f.events.Drain())

	// Re-adding an existing child is a no-op without events.
	f.tree.AddChild(f.world, p, a)
	f.tree.SetParent(f.world, b, p)
	assert.Equal(t, []ecs.EntityID{a, b}, f.tree.Children(f.world, p))
	assert.Empty(t, f.events.Drain())
	f.check(t)
}

func testMove[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(4)
	p1, p2, c, other := e[0], e[1], e[2], e[3]

	f.tree.AddChild(f.world, p1, c)
	f.tree.AddChild(f.world, p2, other)
	f.events.Drain()

	f.tree.AddChild(f.world, p2, c)
	f.check(t)

	assert.Equal(t, []Event{childMoved(c, p1, p2)}, f.events.Drain())
	assert.False(t, f.tree.HasChildren(f.world, p1), "empty children list must be removed")
	assert.Equal(t, []ecs.EntityID{other, c}, f.tree.Children(f.world, p2))
}

func testSelfParent[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(3)
	p, a, b := e[0], e[1], e[2]
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b})
	f.events.Drain()
	before := f.snapshot(e)

	requireSelfParentPanic(t, func() { f.tree.AddChild(f.world, a, a) })
	requireSelfParentPanic(t, func() { f.tree.SetParent(f.world, b, b) })
	requireSelfParentPanic(t, func() { f.tree.AddChildren(f.world, p, []ecs.EntityID{a, p}) })
	requireSelfParentPanic(t, func() { f.tree.InsertChildren(f.world, p, 0, []ecs.EntityID{p}) })
	requireSelfParentPanic(t, func() { f.tree.ReplaceChildren(f.world, p, []ecs.EntityID{b, p}) })
	requireSelfParentPanic(t, func() { f.tree.Entity(f.world, a).AddChild(a) })

	cmds := f.world.Commands()
	requireSelfParentPanic(t, func() { f.tree.Commands(cmds, a).AddChild(a) })
	requireSelfParentPanic(t, func() { f.tree.Commands(cmds, b).SetParent(b) })
	requireSelfParentPanic(t, func() { f.tree.Commands(cmds, p).AddChildren(a, p) })
	requireSelfParentPanic(t, func() { f.tree.Commands(cmds, p).InsertChildren(1, p) })
	requireSelfParentPanic(t, func() { f.tree.Commands(cmds, p).ReplaceChildren(p) })
	assert.Equal(t, 0, cmds.Len(), "rejected commands must never be queued")

	f.world.Flush()
	assert.Equal(t, before, f.snapshot(e))
	assert.Empty(t, f.events.Drain())
	f.check(t)
}

func testRemoveChildren[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(5)
	p, a, b, c, stranger := e[0], e[1], e[2], e[3], e[4]
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b, c})
	f.events.Drain()

	f.tree.RemoveChildren(f.world, p, []ecs.EntityID{b, stranger, b})
	f.check(t)
	assert.Equal(t, []ecs.EntityID{a, c}, f.tree.Children(f.world, p))
	assert.Equal(t, []Event{childRemoved(b, p)}, f.events.Drain())
	_, ok := f.tree.Parent(f.world, b)
	assert.False(t, ok)

	f.tree.RemoveChildren(f.world, p, []ecs.EntityID{a, c})
	f.check(t)
	assert.False(t, f.tree.HasChildren(f.world, p))
	assert.Len(t, f.events.Drain(), 2)

	// Nothing left to remove.
	f.tree.RemoveChildren(f.world, p, []ecs.EntityID{a})
	assert.Empty(t, f.events.Drain())
}

func testRemoveParent[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(3)
	p, a, b := e[0], e[1], e[2]
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b})
	f.events.Drain()

	f.tree.RemoveParent(f.world, a)
	f.check(t)
	assert.Equal(t, []ecs.EntityID{b}, f.tree.Children(f.world, p))
	assert.Equal(t, []Event{childRemoved(a, p)}, f.events.Drain())

	f.tree.RemoveParent(f.world, a)
	assert.Empty(t, f.events.Drain())

	f.tree.Entity(f.world, b).RemoveParent()
	assert.False(t, f.tree.HasChildren(f.world, p))
	f.check(t)
}

func testClearChildren[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(4)
	p, a, b, c := e[0], e[1], e[2], e[3]
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b, c})
	f.events.Drain()

	f.tree.ClearChildren(f.world, p)
	f.check(t)
	assert.False(t, f.tree.HasChildren(f.world, p))
	for _, child := range []ecs.EntityID{a, b, c} {
		_, ok := f.tree.Parent(f.world, child)
		assert.False(t, ok)
	}
	assert.Empty(t, f.events.Drain(), "clear is a bulk transition without per-child events")

	f.tree.ClearChildren(f.world, p)
	f.check(t)
}

func testReplaceChildrenOverlap[C, P any, CP ChildrenKind[C], PP ParentKind[P]](
	t *testing.T, f *fixture[C, P, CP, PP],
) {
	e := f.spawn(4)
	p, a, b, c := e[0], e[1], e[2], e[3]
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b})
	f.events.Drain()

	f.tree.ReplaceChildren(f.world, p, []ecs.EntityID{b, c})
	f.check(t)

	assert.Equal(t, []ecs.EntityID{b, c}, f.tree.Children(f.world, p))
	_, ok := f.tree.Parent(f.world, a)
	assert.False(t, ok)
	// b is detached and reattached rather than left untouched.
	assert.Equal(t, []Event{childAdded(b, p), childAdded(c, p)}, f.events.Drain())
}

func testAddChildrenOrdering[C, P any, CP ChildrenKind[C], PP ParentKind[P]](
	t *testing.T, f *fixture[C, P, CP, PP],
) {
	e := f.spawn(6)
	p, a, b, c, d, other := e[0], e[1], e[2], e[3], e[4], e[5]
	f.tree.AddChild(f.world, other, d)
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b, c})
	f.events.Drain()

	// a is already a child and moves to the end, d moves over from other, duplicates collapse.
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, d, a})
	f.check(t)
	assert.Equal(t, []ecs.EntityID{b, c, a, d}, f.tree.Children(f.world, p))
	assert.Equal(t, []Event{childMoved(d, other, p)}, f.events.Drain())
	assert.False(t, f.tree.HasChildren(f.world, other))
}

func testInsertChildren[C, P any, CP ChildrenKind[C], PP ParentKind[P]](t *testing.T, f *fixture[C, P, CP, PP]) {
	e := f.spawn(6)
	p, a, b, c, d, x := e[0], e[1], e[2], e[3], e[4], e[5]

	f.tree.InsertChildren(f.world, p, 3, []ecs.EntityID{a, b})
	assert.Equal(t, []ecs.EntityID{a, b}, f.tree.Children(f.world, p))

	f.tree.InsertChildren(f.world, p, 1, []ecs.EntityID{c, d})
	assert.Equal(t, []ecs.EntityID{a, c, d, b}, f.tree.Children(f.world, p))

	// a is taken out before inserting, so index 2 refers to [c d b].
	f.tree.InsertChildren(f.world, p, 2, []ecs.EntityID{a})
	assert.Equal(t, []ecs.EntityID{c, d, a, b}, f.tree.Children(f.world, p))

	f.tree.InsertChildren(f.world, p, 100, []ecs.EntityID{x})
	f.tree.InsertChildren(f.world, p, -4, []ecs.EntityID{b})
	assert.Equal(t, []ecs.EntityID{b, c, d, a, x}, f.tree.Children(f.world, p))
	f.check(t)
}

func testDeadEntitiesAreSkipped[C, P any, CP ChildrenKind[C], PP ParentKind[P]](
	t *testing.T, f *fixture[C, P, CP, PP],
) {
	e := f.spawn(3)
	p, a, dead := e[0], e[1], e[2]
	f.world.Destroy(dead)

	f.tree.AddChild(f.world, p, dead)
	f.tree.AddChild(f.world, dead, a)
	f.tree.AddChildren(f.world, p, []ecs.EntityID{dead, a})
	f.tree.RemoveParent(f.world, dead)
	f.tree.ClearChildren(f.world, dead)
	f.tree.RemoveChildren(f.world, dead, []ecs.EntityID{a})
	f.check(t)

	assert.Equal(t, []ecs.EntityID{a}, f.tree.Children(f.world, p))
	assert.Equal(t, []Event{childAdded(a, p)}, f.events.Drain())
}

func TestTree(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		small   func(*testing.T, *smallFixture)
		indexed func(*testing.T, *indexedFixture)
	}{
		{"add child", testAddChild[SmallChildren, ParentOf], testAddChild[IndexedChildren, ParentOf]},
		{"move", testMove[SmallChildren, ParentOf], testMove[IndexedChildren, ParentOf]},
		{"self parent", testSelfParent[SmallChildren, ParentOf], testSelfParent[IndexedChildren, ParentOf]},
		{"remove children", testRemoveChildren[SmallChildren, ParentOf], testRemoveChildren[IndexedChildren, ParentOf]},
		{"remove parent", testRemoveParent[SmallChildren, ParentOf], testRemoveParent[IndexedChildren, ParentOf]},
		{"clear children", testClearChildren[SmallChildren, ParentOf], testClearChildren[IndexedChildren, ParentOf]},
		{"replace children overlap", testReplaceChildrenOverlap[SmallChildren, ParentOf], testReplaceChildrenOverlap[IndexedChildren, ParentOf]},
		{"add children ordering", testAddChildrenOrdering[SmallChildren, ParentOf], testAddChildrenOrdering[IndexedChildren, ParentOf]},
		{"insert children", testInsertChildren[SmallChildren, ParentOf], testInsertChildren[IndexedChildren, ParentOf]},
		{"dead entities", testDeadEntitiesAreSkipped[SmallChildren, ParentOf], testDeadEntitiesAreSkipped[IndexedChildren, ParentOf]},
	}

	for _, tc := range cases {
		t.Run(tc.name+"/small", func(t *testing.T) {
			t.Parallel()
			tc.small(t, newFixture(Default))
		})
		t.Run(tc.name+"/indexed", func(t *testing.T) {
			t.Parallel()
			tc.indexed(t, newFixture(New[IndexedChildren, ParentOf]()))
		})
	}
}

func TestTree_EventsWithoutSinkAreDropped(t *testing.T) {
	t.Parallel()

	w := ecs.NewWorld()
	Default.Register(w)
	p, c := w.Spawn(), w.Spawn()

	assert.NotPanics(t, func() {
		Default.AddChild(w, p, c)
		Default.RemoveParent(w, c)
	})
	_, ok := ecs.GetResource[ecs.Events[Event]](w)
	assert.False(t, ok)
}

func TestTree_CheckDetectsCorruption(t *testing.T) {
	t.Parallel()

	w := ecs.NewWorld()
	Default.Register(w)
	p, c := w.Spawn(), w.Spawn()

	// A Parent written behind the tree's back has no matching Children entry.
	require.NoError(t, ecs.Set(w, c, makeParent[ParentOf](p)))
	err := Default.Check(w)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInconsistent))
}

func TestTree_AncestorCyclePanics(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	e := f.spawn(4)
	a, b, c, x := e[0], e[1], e[2], e[3]
	f.tree.AddChild(f.world, a, b)
	f.tree.AddChild(f.world, b, c)
	f.events.Drain()
	before := f.snapshot(e)

	requireCyclePanic := func(fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a cycle panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value should be an error, got %v", r)
			assert.True(t, eris.Is(err, ErrCycle))
		}()
		fn()
	}
	requireCyclePanic(func() { f.tree.AddChild(f.world, b, a) })
	requireCyclePanic(func() { f.tree.AddChild(f.world, c, a) })
	requireCyclePanic(func() { f.tree.SetParent(f.world, a, c) })
	requireCyclePanic(func() { f.tree.AddChildren(f.world, c, []ecs.EntityID{x, a}) })
	requireCyclePanic(func() { f.tree.InsertChildren(f.world, c, 0, []ecs.EntityID{b}) })
	requireCyclePanic(func() { f.tree.ReplaceChildren(f.world, c, []ecs.EntityID{a}) })
	requireCyclePanic(func() {
		f.tree.Commands(f.world.Commands(), c).AddChild(a)
		f.world.Flush()
	})

	assert.Equal(t, before, f.snapshot(e), "a rejected attach writes nothing")
	assert.Empty(t, f.events.Drain())
	f.check(t)

	// Moving a subtree sideways or down a different branch is fine.
	f.tree.AddChild(f.world, x, c)
	f.tree.AddChild(f.world, c, b)
	assert.Equal(t, x, f.tree.Root(f.world, b))
	f.check(t)
}

func TestTree_DescendantsAndRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	e := f.spawn(5)
	root, a, b, c, d := e[0], e[1], e[2], e[3], e[4]
	f.tree.AddChildren(f.world, root, []ecs.EntityID{a, d})
	f.tree.AddChildren(f.world, a, []ecs.EntityID{b, c})

	assert.Equal(t, []ecs.EntityID{a, b, c, d}, f.tree.Descendants(f.world, root))
	assert.Equal(t, root, f.tree.Root(f.world, c))
	assert.Equal(t, root, f.tree.Root(f.world, root))
}
