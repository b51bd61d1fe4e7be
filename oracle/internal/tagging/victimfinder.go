package tagging

// A VictimFinder picks the way of a full or partially filled set that
// receives a new line.
type VictimFinder interface {
	FindVictim(set *Set) int
}

// LRUVictimFinder picks an empty way if there is one, the least recently
// used way otherwise.
type LRUVictimFinder struct{}

// FindVictim returns the way to replace.
func (LRUVictimFinder) FindVictim(set *Set) int {
	for _, w := range set.Recency {
		if !set.Ways[w].Valid {
			return w
		}
	}

	return set.Recency[0]
}
