package tagging

// A Level is one cache of a hierarchy.
type Level struct {
	Name         string
	Tags         *Array
	VictimFinder VictimFinder
}

// Touch marks the line of addr as most recently used. It returns false on a
// miss.
func (l *Level) Touch(addr uint64) bool {
	way, hit := l.Tags.Lookup(addr)
	if !hit {
		return false
	}

	l.Tags.Touch(addr, way)

	return true
}

// Fill installs the line of addr, evicting a victim if the set is full.
func (l *Level) Fill(addr uint64) {
	way := l.VictimFinder.FindVictim(l.Tags.Set(addr))
	l.Tags.Install(addr, way)
}

// A Hierarchy is a chain of levels, L1 first.
type Hierarchy struct {
	Levels []*Level
}

// Access loads addr and returns the level that served it, counting from 1.
// Memory is level len(Levels)+1. Every level observes the access: levels
// holding the line update their recency order, the others fill it.
func (h *Hierarchy) Access(addr uint64) int {
	served := len(h.Levels) + 1

	for i, l := range h.Levels {
		if l.Touch(addr) {
			served = min(served, i+1)
			continue
		}

		l.Fill(addr)
	}

	return served
}

// Reset empties every level.
func (h *Hierarchy) Reset() {
	for _, l := range h.Levels {
		l.Tags.Reset()
	}
}
