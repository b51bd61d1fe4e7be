// Package addrset provides the ordered address container used throughout
// eviction set construction.
//
// An AddressSet either owns its address storage, optionally together with a
// backing memory region, or it is a view into the storage of another set.
// Views are produced by Partition and must not outlive the set they were cut
// from.
package addrset

import (
	"errors"
	"fmt"
	"strings"
)

// Ownership tells whether a set owns its storage.
type Ownership int

// Ownership kinds.
const (
	Owning Ownership = iota
	View
)

func (o Ownership) String() string {
	switch o {
	case Owning:
		return "owning"
	case View:
		return "view"
	default:
		return fmt.Sprintf("Ownership(%d)", int(o))
	}
}

var (
	// ErrCapacityExceeded is returned when appending to a full set.
	ErrCapacityExceeded = errors.New("address set capacity exceeded")

	// ErrReleaseView is returned when releasing a set that does not own its
	// storage.
	ErrReleaseView = errors.New("cannot release a view")
)

// A Backing is a memory region whose lifetime is bound to the set owning it.
type Backing interface {
	// Base returns the first address of the region.
	Base() uintptr

	// Len returns the size of the region in bytes.
	Len() int

	// Release returns the region to the system.
	Release() error
}

// An AddressSet is an ordered collection of machine addresses.
type AddressSet struct {
	addrs     []uintptr
	capacity  int
	ownership Ownership
	backing   Backing
	parent    *AddressSet
	released  bool
}

// New creates an empty owning set that can hold capacity addresses.
func New(capacity int) *AddressSet {
	if capacity < 0 {
		panic("negative address set capacity")
	}

	return &AddressSet{
		addrs:     make([]uintptr, 0, capacity),
		capacity:  capacity,
		ownership: Owning,
	}
}

// FromAddresses creates an owning set holding a copy of addrs.
func FromAddresses(addrs []uintptr) *AddressSet {
	s := New(len(addrs))
	s.addrs = append(s.addrs, addrs...)

	return s
}

// Len returns the number of addresses in the set.
func (s *AddressSet) Len() int {
	return len(s.addrs)
}

// Cap returns the declared capacity of the set.
func (s *AddressSet) Cap() int {
	return s.capacity
}

// Ownership returns whether the set owns its storage.
func (s *AddressSet) Ownership() Ownership {
	return s.ownership
}

// IsView returns true if the set borrows the storage of another set.
func (s *AddressSet) IsView() bool {
	return s.ownership == View
}

// Released returns true once Release has been called on an owning set.
func (s *AddressSet) Released() bool {
	return s.released
}

// Backing returns the memory region owned by the set, or nil.
func (s *AddressSet) Backing() Backing {
	return s.backing
}

// AttachBacking transfers the ownership of a memory region to the set. The
// region is released together with the set.
func (s *AddressSet) AttachBacking(b Backing) {
	if s.ownership != Owning {
		panic("a view cannot own a backing region")
	}

	if s.backing != nil {
		panic("address set already owns a backing region")
	}

	s.backing = b
}

// At returns the i-th address.
func (s *AddressSet) At(i int) uintptr {
	return s.addrs[i]
}

// Addresses returns the addresses of the set. The returned slice aliases the
// storage of the set and must not be modified.
func (s *AddressSet) Addresses() []uintptr {
	return s.addrs
}

// Contains returns true if addr is in the set.
func (s *AddressSet) Contains(addr uintptr) bool {
	for _, a := range s.addrs {
		if a == addr {
			return true
		}
	}

	return false
}

// Append adds an address at the end of the set.
func (s *AddressSet) Append(addr uintptr) error {
	if s.ownership != Owning {
		panic("cannot append to a view")
	}

	if len(s.addrs) >= s.capacity {
		return ErrCapacityExceeded
	}

	s.addrs = append(s.addrs, addr)

	return nil
}

// Swap exchanges the addresses at i and j.
func (s *AddressSet) Swap(i, j int) {
	s.addrs[i], s.addrs[j] = s.addrs[j], s.addrs[i]
}

// Clone returns a fresh owning copy of the addresses. The copy does not own
// the backing region of s.
func (s *AddressSet) Clone() *AddressSet {
	return FromAddresses(s.addrs)
}

// Without returns a fresh owning set with every address except the k-th.
func (s *AddressSet) Without(k int) *AddressSet {
	out := New(len(s.addrs) - 1)
	out.addrs = append(out.addrs, s.addrs[:k]...)
	out.addrs = append(out.addrs, s.addrs[k+1:]...)

	return out
}

// Release drops the addresses and returns the backing region, if any, to the
// system. Releasing an owning set twice is a no-op.
func (s *AddressSet) Release() error {
	if s.ownership != Owning {
		return ErrReleaseView
	}

	if s.released {
		return nil
	}

	s.released = true
	s.addrs = nil
	s.capacity = 0

	if s.backing == nil {
		return nil
	}

	b := s.backing
	s.backing = nil

	return b.Release()
}

// String lists the addresses in hexadecimal.
func (s *AddressSet) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s set size=%d capacity=%d [", s.ownership, len(s.addrs), s.capacity)

	for i, a := range s.addrs {
		if i > 0 {
			b.WriteString(" ")
		}

		fmt.Fprintf(&b, "0x%x", a)
	}

	b.WriteString("]")

	return b.String()
}
