package addrset

// Partition cuts the set into n contiguous, disjoint views whose sizes differ
// by at most one. The first len%n views hold the extra elements.
//
// The views borrow the storage of s. They become invalid as soon as s is
// released.
func (s *AddressSet) Partition(n int) []*AddressSet {
	if n <= 0 {
		panic("partition count must be positive")
	}

	groupSize := len(s.addrs) / n
	remainder := len(s.addrs) % n

	groups := make([]*AddressSet, n)
	start := 0

	for i := 0; i < n; i++ {
		size := groupSize
		if i < remainder {
			size++
		}

		groups[i] = &AddressSet{
			addrs:     s.addrs[start : start+size : start+size],
			capacity:  size,
			ownership: View,
			parent:    s,
		}

		start += size
	}

	return groups
}

// Valid returns false for a view whose parent set has been released.
func (s *AddressSet) Valid() bool {
	if s.ownership == Owning {
		return !s.released
	}

	return s.parent != nil && !s.parent.released
}

// WithoutGroup concatenates every group except the excluded one into a fresh
// owning set.
func WithoutGroup(groups []*AddressSet, exclude int) *AddressSet {
	size := 0

	for i, g := range groups {
		if !g.Valid() {
			panic("using a view of a released address set")
		}

		if i != exclude {
			size += g.Len()
		}
	}

	out := New(size)

	for i, g := range groups {
		if i != exclude {
			out.addrs = append(out.addrs, g.addrs...)
		}
	}

	return out
}
