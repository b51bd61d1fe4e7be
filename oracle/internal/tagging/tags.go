// Package tagging models the tag arrays of set-associative caches.
package tagging

// A Way is one slot of a set.
type Way struct {
	// Line is the address of the first byte of the cached line.
	Line  uint64
	Valid bool
}

// A Set holds the ways sharing an index.
type Set struct {
	Ways []Way

	// Recency lists way indices from the least to the most recently used.
	Recency []int
}

// An Array is the tag store of one cache level.
type Array struct {
	numWays  int
	lineSize uint64
	sets     []Set
}

// NewArray creates an empty tag store.
func NewArray(numSets, numWays int, lineSize uint64) *Array {
	a := &Array{
		numWays:  numWays,
		lineSize: lineSize,
		sets:     make([]Set, numSets),
	}

	a.Reset()

	return a
}

// NumSets returns the number of sets.
func (a *Array) NumSets() int {
	return len(a.sets)
}

// Capacity returns the number of bytes the array can hold.
func (a *Array) Capacity() uint64 {
	return uint64(len(a.sets)) * uint64(a.numWays) * a.lineSize
}

// LineOf returns the line address of addr.
func (a *Array) LineOf(addr uint64) uint64 {
	return addr / a.lineSize * a.lineSize
}

// SetIndex returns the index of the set addr maps to.
func (a *Array) SetIndex(addr uint64) int {
	return int(addr / a.lineSize % uint64(len(a.sets)))
}

// Set returns the set addr maps to.
func (a *Array) Set(addr uint64) *Set {
	return &a.sets[a.SetIndex(addr)]
}

// Lookup returns the way holding the line of addr.
func (a *Array) Lookup(addr uint64) (way int, ok bool) {
	line := a.LineOf(addr)

	for i, w := range a.Set(addr).Ways {
		if w.Valid && w.Line == line {
			return i, true
		}
	}

	return -1, false
}

// Install places the line of addr into a way of its set and marks it most
// recently used.
func (a *Array) Install(addr uint64, way int) {
	set := a.Set(addr)
	set.Ways[way] = Way{Line: a.LineOf(addr), Valid: true}

	a.Touch(addr, way)
}

// Touch marks a way of the set of addr as most recently used.
func (a *Array) Touch(addr uint64, way int) {
	set := a.Set(addr)
	order := set.Recency[:0]

	for _, w := range set.Recency {
		if w != way {
			order = append(order, w)
		}
	}

	set.Recency = append(order, way)
}

// Reset invalidates every way.
func (a *Array) Reset() {
	for i := range a.sets {
		a.sets[i] = Set{
			Ways:    make([]Way, a.numWays),
			Recency: make([]int, a.numWays),
		}

		for w := range a.sets[i].Recency {
			a.sets[i].Recency[w] = w
		}
	}
}
