package hierarchy

import (
	"github.com/argus-labs/carbon/pkg/carbon/ecs"
)

// EventKind tells which structural transition an Event records.
type EventKind uint8

const (
	// ChildAdded is sent when an entity without a parent gains one.
	ChildAdded EventKind = iota + 1
	// ChildMoved is sent when an entity changes from one parent to another.
	ChildMoved
	// ChildRemoved is sent when an entity loses its parent.
	ChildRemoved
)

func (k EventKind) String() string {
	switch k {
	case ChildAdded:
		return "ChildAdded"
	case ChildMoved:
		return "ChildMoved"
	case ChildRemoved:
		return "ChildRemoved"
	default:
		return "Unknown"
	}
}

// Event is an immutable record of a hierarchy change. Parent is set for ChildAdded and
// ChildRemoved; PreviousParent and NewParent are set for ChildMoved.
type Event struct {
	Kind           EventKind
	Child          ecs.EntityID
	Parent         ecs.EntityID
	PreviousParent ecs.EntityID
	NewParent      ecs.EntityID
}

func childAdded(child, parent ecs.EntityID) Event {
	return Event{Kind: ChildAdded, Child: child, Parent: parent}
}

func childMoved(child, previous, next ecs.EntityID) Event {
	return Event{Kind: ChildMoved, Child: child, PreviousParent: previous, NewParent: next}
}

func childRemoved(child, parent ecs.EntityID) Event {
	return Event{Kind: ChildRemoved, Child: child, Parent: parent}
}

// AddEvents installs the Events[Event] queue that hierarchy changes are delivered to.
func AddEvents(w *ecs.World) *ecs.Events[Event] {
	return ecs.AddEvents[Event](w)
}

// PushEvents delivers events to the world's hierarchy event queue. Without a queue they are
// dropped.
func PushEvents(w *ecs.World, events ...Event) {
	if len(events) == 0 {
		return
	}
	ecs.SendEvents(w, events...)
}
