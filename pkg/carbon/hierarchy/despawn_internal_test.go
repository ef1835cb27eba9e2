package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// buildTestTree builds
//
//	root
//	├── a
//	│   ├── b
//	│   └── c
//	│       └── d
//	└── e
func buildTestTree(f *smallFixture) map[string]ecs.EntityID {
	n := make(map[string]ecs.EntityID)
	for _, name := range []string{"root", "a", "b", "c", "d", "e"} {
		n[name] = f.world.Spawn(label(name))
	}
	f.tree.AddChildren(f.world, n["root"], []ecs.EntityID{n["a"], n["e"]})
	f.tree.AddChildren(f.world, n["a"], []ecs.EntityID{n["b"], n["c"]})
	f.tree.AddChild(f.world, n["c"], n["d"])
	f.events.Drain()
	return n
}

func TestDespawnRecursive(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	n := buildTestTree(f)

	f.tree.DespawnRecursive(f.world, n["a"])
	require.NoError(t, f.tree.Check(f.world))

	for _, name := range []string{"a", "b", "c", "d"} {
		assert.False(t, f.world.Alive(n[name]), "%s should be despawned", name)
	}
	assert.True(t, f.world.Alive(n["root"]))
	assert.True(t, f.world.Alive(n["e"]))
	assert.Equal(t, []ecs.EntityID{n["e"]}, f.tree.Children(f.world, n["root"]))
	assert.Equal(t, 2, ecs.Count[label](f.world))
	assert.Empty(t, f.events.Drain(), "despawn sends no hierarchy events")
}

func TestDespawnRecursive_LastChildCollapsesParent(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	n := buildTestTree(f)

	f.tree.DespawnRecursive(f.world, n["d"])
	assert.False(t, f.tree.HasChildren(f.world, n["c"]))
	require.NoError(t, f.tree.Check(f.world))
}

func TestDespawnDescendants(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	n := buildTestTree(f)

	f.tree.Entity(f.world, n["root"]).DespawnDescendants()
	require.NoError(t, f.tree.Check(f.world))

	assert.True(t, f.world.Alive(n["root"]))
	assert.False(t, f.tree.HasChildren(f.world, n["root"]))
	assert.Equal(t, 1, f.world.Len())
}

func TestDespawn_MissingEntitiesAreBenign(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	n := buildTestTree(f)
	f.tree.DespawnRecursive(f.world, n["a"])

	assert.NotPanics(t, func() {
		f.tree.DespawnRecursive(f.world, n["a"])
		f.tree.TryDespawnRecursive(f.world, n["b"])
		f.tree.DespawnDescendants(f.world, n["c"])
		f.tree.TryDespawnDescendants(f.world, n["d"])
	})
	assert.Equal(t, 2, f.world.Len())
}

func TestDespawn_Deferred(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	n := buildTestTree(f)
	cmds := f.world.Commands()

	f.tree.Commands(cmds, n["c"]).DespawnRecursive()
	f.tree.Commands(cmds, n["root"]).DespawnDescendants()
	assert.Equal(t, 6, f.world.Len(), "nothing happens before flush")

	f.world.Flush()
	assert.Equal(t, 1, f.world.Len())
	assert.True(t, f.world.Alive(n["root"]))
	require.NoError(t, f.tree.Check(f.world))
}

func TestDespawn_DeepChain(t *testing.T) {
	t.Parallel()

	const depth = 10_000
	f := newFixture(Default)

	chain := make([]ecs.EntityID, depth)
	chain[0] = f.world.Spawn()
	for i := 1; i < depth; i++ {
		chain[i] = f.tree.Entity(f.world, chain[i-1]).WithChild()
	}
	holder := f.world.Spawn()
	f.tree.AddChild(f.world, holder, chain[0])
	require.NoError(t, f.tree.Check(f.world))
	assert.Equal(t, holder, f.tree.Root(f.world, chain[depth-1]))
	assert.Len(t, f.tree.Descendants(f.world, chain[0]), depth-1)

	f.tree.DespawnDescendants(f.world, chain[depth/2])
	assert.Equal(t, depth/2+2, f.world.Len())

	f.tree.DespawnRecursive(f.world, chain[0])
	assert.Equal(t, 1, f.world.Len())
	assert.False(t, f.tree.HasChildren(f.world, holder))
	require.NoError(t, f.tree.Check(f.world))
}

func TestDestroy_RepairsRelation(t *testing.T) {
	t.Parallel()

	f := newFixture(Default)
	n := buildTestTree(f)
	f.tree.Register(f.world)

	// A single-entity despawn through ecs leaves the parent's list and orphans the children.
	f.world.Commands().Despawn(n["c"])
	f.world.Flush()
	require.NoError(t, f.tree.Check(f.world))
	assert.False(t, f.world.Alive(n["c"]))
	assert.Equal(t, []ecs.EntityID{n["b"]}, f.tree.Children(f.world, n["a"]))
	_, hasParent := f.tree.Parent(f.world, n["d"])
	assert.False(t, hasParent)
	assert.Equal(t, []Event{childRemoved(n["d"], n["c"])}, f.events.Drain())

	f.world.Destroy(n["root"])
	require.NoError(t, f.tree.Check(f.world))
	for _, name := range []string{"a", "e"} {
		_, hasParent := f.tree.Parent(f.world, n[name])
		assert.False(t, hasParent, name)
	}
	assert.Equal(t, []Event{childRemoved(n["a"], n["root"]), childRemoved(n["e"], n["root"])}, f.events.Drain())

	// The last child leaving collapses the list.
	f.world.Destroy(n["b"])
	require.NoError(t, f.tree.Check(f.world))
	assert.False(t, f.tree.HasChildren(f.world, n["a"]))
}

func TestDestroy_RepairsIndexedRelation(t *testing.T) {
	t.Parallel()

	f := newFixture(New[IndexedChildren, ParentOf]())
	e := f.spawn(3)
	p, a, b := e[0], e[1], e[2]
	f.tree.AddChildren(f.world, p, []ecs.EntityID{a, b})

	f.world.Destroy(a)
	require.NoError(t, f.tree.Check(f.world))
	assert.Equal(t, []ecs.EntityID{b}, f.tree.Children(f.world, p))
}
