package testutils

import "github.com/argus-labs/carbon/pkg/assert"

// Gen enumerates every sequence of bounded choices a test body makes. Each pass through
//
//	for g := testutils.NewGen(); !g.Done(); {
//		...
//	}
//
// records the choices made by Intn and friends. Done advances to the next sequence by bumping the
// rightmost choice that is still below its bound and resetting everything after it, so the
// sequences come out in lexicographic order. Technique from
// https://matklad.github.io/2021/11/07/generate-all-the-things.html
type Gen struct {
	started bool
	choices [maxChoices]choice
	pos     int
	depth   int
}

type choice struct {
	value uint32
	bound uint32
}

const maxChoices = 32

// NewGen creates a generator positioned before the first sequence.
func NewGen() *Gen {
	return &Gen{}
}

// Done reports whether every sequence has been produced.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	for i := g.depth - 1; i >= 0; i-- {
		if g.choices[i].value < g.choices[i].bound {
			g.choices[i].value++
			g.depth = i + 1
			g.pos = 0
			return false
		}
	}
	return true
}

func (g *Gen) next(bound uint32) uint32 {
	assert.That(g.pos < maxChoices, "gen: more than %d choices in one sequence", maxChoices)
	if g.pos == g.depth {
		g.choices[g.pos] = choice{}
		g.depth++
	}
	g.choices[g.pos].bound = bound
	g.pos++
	return g.choices[g.pos-1].value
}

// Intn returns a value in [0, bound].
func (g *Gen) Intn(bound int) int {
	return int(g.next(uint32(bound))) //nolint:gosec // bounds are small in tests
}

// Index returns a valid index into a slice of the given length.
func (g *Gen) Index(length int) int {
	assert.That(length > 0, "gen: empty slice")
	return g.Intn(length - 1)
}

// Bool returns false then true.
func (g *Gen) Bool() bool {
	return g.Intn(1) == 1
}

// Pick returns an element of a non-empty slice.
func Pick[T any](g *Gen, s []T) T {
	return s[g.Index(len(s))]
}
