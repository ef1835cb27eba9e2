package ecs

import "github.com/argus-labs/carbon/pkg/assert"

// abstractColumn is an internal interface for generic column operations.
type abstractColumn interface {
	name() string
	len() int
	has(e EntityID) bool
	entities() []EntityID

	setAbstract(e EntityID, component Component)
	getAbstract(e EntityID) (Component, bool)
	removeAbstract(e EntityID) (Component, bool)
}

var _ abstractColumn = &column[Component]{}

// column stores every value of one component type. Rows are dense: entities[i] owns
// components[i]. The sparse set maps an entity slot to its row.
type column[T Component] struct {
	compName   string    // The name of the component stored in this column
	rows       sparseSet // Entity slot -> row
	owners     []EntityID
	components []T
}

// newColumn creates a new column with the specified type.
func newColumn[T Component]() *column[T] {
	var zero T
	const initialCapacity = 16
	return &column[T]{
		compName:   zero.Name(),
		rows:       newSparseSet(),
		owners:     make([]EntityID, 0, initialCapacity),
		components: make([]T, 0, initialCapacity),
	}
}

func (c *column[T]) name() string {
	return c.compName
}

func (c *column[T]) len() int {
	return len(c.components)
}

// row returns the row of an entity. The owner check rejects stale handles whose slot has since
// been reused.
func (c *column[T]) row(e EntityID) (int, bool) {
	row, ok := c.rows.get(e.Index())
	if !ok || c.owners[row] != e {
		return 0, false
	}
	return row, true
}

func (c *column[T]) has(e EntityID) bool {
	_, ok := c.row(e)
	return ok
}

// entities returns a copy of the owners slice in row order.
func (c *column[T]) entities() []EntityID {
	out := make([]EntityID, len(c.owners))
	copy(out, c.owners)
	return out
}

// set stores a component for an entity, appending a row if the entity has none. Returns true if a
// row was added.
func (c *column[T]) set(e EntityID, component T) bool {
	if row, ok := c.row(e); ok {
		c.components[row] = component
		return false
	}

	_, occupied := c.rows.get(e.Index())
	assert.That(!occupied, "column %s holds a row for a dead entity in slot %d", c.compName, e.Index())

	c.rows.set(e.Index(), len(c.components))
	c.owners = append(c.owners, e)
	c.components = append(c.components, component)
	return true
}

func (c *column[T]) setAbstract(e EntityID, component Component) {
	concrete, ok := component.(T)
	assert.That(ok, "tried to set the wrong component type in column %s", c.compName)
	c.set(e, concrete)
}

func (c *column[T]) get(e EntityID) (T, bool) {
	row, ok := c.row(e)
	if !ok {
		var zero T
		return zero, false
	}
	return c.components[row], true
}

func (c *column[T]) getAbstract(e EntityID) (Component, bool) {
	return c.get(e)
}

// remove deletes an entity's row by swapping the last row into its place.
func (c *column[T]) remove(e EntityID) (T, bool) {
	row, ok := c.row(e)
	if !ok {
		var zero T
		return zero, false
	}

	removed := c.components[row]
	last := len(c.components) - 1
	moved := c.owners[last]

	c.components[row] = c.components[last]
	c.owners[row] = moved
	c.rows.set(moved.Index(), row)

	var zero T
	c.components[last] = zero
	c.components = c.components[:last]
	c.owners = c.owners[:last]
	c.rows.remove(e.Index())

	return removed, true
}

func (c *column[T]) removeAbstract(e EntityID) (Component, bool) {
	return c.remove(e)
}
