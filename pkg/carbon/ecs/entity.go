package ecs

import (
	"fmt"
	"math"
	"sync"

	"github.com/argus-labs/carbon/pkg/assert"
)

// EntityID is an opaque entity handle. The low 32 bits select a slot and the high 32 bits carry
// the slot generation at the time the handle was issued. Destroying an entity bumps the slot
// generation, so stale handles never resolve to a live entity even after the slot is reused.
type EntityID uint64

// Invalid is the zero EntityID. Generations start at 1, so it never names a live entity. APIs that
// take an optional entity use it for "none".
const Invalid EntityID = 0

// maxSlots is the maximum number of entity slots that can be allocated.
const maxSlots = math.MaxUint32

func newEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index of the entity.
func (e EntityID) Index() uint32 {
	return uint32(e) //nolint:gosec // truncation is the point
}

// Generation returns the slot generation the handle was issued with.
func (e EntityID) Generation() uint32 {
	return uint32(e >> 32) //nolint:gosec // fits
}

// IsValid reports whether the handle could ever have been issued. It does not check liveness.
func (e EntityID) IsValid() bool {
	return e.Generation() != 0
}

func (e EntityID) String() string {
	if !e.IsValid() {
		return "none"
	}
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}

// entityManager allocates entity slots. Freed slots are recycled in FIFO order with a bumped
// generation. A slot whose generation is exhausted is retired instead of recycled.
type entityManager struct {
	generations []uint32   // Slot -> current generation
	alive       []bool     // Slot -> whether the current generation is live
	free        []uint32   // Queue of recyclable slots
	count       int        // Number of live entities
	mu          sync.Mutex // Commands reserve ids from concurrently running systems
}

func newEntityManager() entityManager {
	const initialCapacity = 128
	return entityManager{
		generations: make([]uint32, 0, initialCapacity),
		alive:       make([]bool, 0, initialCapacity),
		free:        make([]uint32, 0),
		count:       0,
		mu:          sync.Mutex{},
	}
}

// new allocates a live entity handle.
func (em *entityManager) new() EntityID {
	em.mu.Lock()
	defer em.mu.Unlock()

	var index uint32
	if len(em.free) > 0 {
		index = em.free[0]
		em.free = em.free[1:]
	} else {
		assert.That(len(em.generations) < maxSlots, "max number of entities exceeded")
		index = uint32(len(em.generations)) //nolint:gosec // bounded by maxSlots
		em.generations = append(em.generations, 1)
		em.alive = append(em.alive, false)
	}

	em.alive[index] = true
	em.count++
	return newEntityID(index, em.generations[index])
}

// remove invalidates the handle. Returns false if it wasn't live.
func (em *entityManager) remove(e EntityID) bool {
	em.mu.Lock()
	defer em.mu.Unlock()

	if !em.isAliveLocked(e) {
		return false
	}

	index := e.Index()
	em.alive[index] = false
	em.count--
	if em.generations[index] == math.MaxUint32 {
		return true // Retired, the slot is never handed out again.
	}
	em.generations[index]++
	em.free = append(em.free, index)
	return true
}

func (em *entityManager) isAlive(e EntityID) bool {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.isAliveLocked(e)
}

func (em *entityManager) isAliveLocked(e EntityID) bool {
	index := e.Index()
	if !e.IsValid() || int(index) >= len(em.generations) {
		return false
	}
	return em.alive[index] && em.generations[index] == e.Generation()
}

func (em *entityManager) len() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.count
}
