package candidate

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrAllocation is returned when the memory backing a candidate pool cannot
// be obtained.
var ErrAllocation = errors.New("candidate pool allocation failed")

// A Region is a line aligned memory region. It implements addrset.Backing.
type Region struct {
	mem      []byte
	base     uintptr
	size     int
	unmap    func([]byte) error
	released bool
}

// Base returns the first aligned address of the region.
func (r *Region) Base() uintptr {
	return r.base
}

// Len returns the usable size of the region in bytes.
func (r *Region) Len() int {
	return r.size
}

// Bytes returns the usable part of the region.
func (r *Region) Bytes() []byte {
	offset := r.base - uintptr(unsafe.Pointer(unsafe.SliceData(r.mem)))
	return r.mem[offset : offset+uintptr(r.size)]
}

// Fill writes b to every byte of the region.
func (r *Region) Fill(b byte) {
	buf := r.Bytes()
	for i := range buf {
		buf[i] = b
	}
}

// Release returns the region to the system.
func (r *Region) Release() error {
	if r.released {
		return nil
	}

	r.released = true
	mem := r.mem
	r.mem = nil

	if r.unmap == nil {
		return nil
	}

	if err := r.unmap(mem); err != nil {
		return fmt.Errorf("releasing candidate pool: %w", err)
	}

	return nil
}

// An Allocator hands out line aligned memory regions.
type Allocator interface {
	Allocate(size int, align uintptr) (*Region, error)
}

// HeapAllocator allocates regions from the Go heap. The heap does not move
// objects, so addresses taken inside a region stay valid while the region is
// referenced.
type HeapAllocator struct{}

// Allocate returns a region of size bytes whose base is a multiple of align.
func (HeapAllocator) Allocate(size int, align uintptr) (*Region, error) {
	if size <= 0 || align == 0 {
		return nil, fmt.Errorf("%w: size %d align %d", ErrAllocation, size, align)
	}

	mem := make([]byte, size+int(align))

	return newRegion(mem, size, align, nil), nil
}

func newRegion(mem []byte, size int, align uintptr, unmap func([]byte) error) *Region {
	start := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	base := (start + align - 1) &^ (align - 1)

	return &Region{
		mem:   mem,
		base:  base,
		size:  size,
		unmap: unmap,
	}
}
