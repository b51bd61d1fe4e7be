//go:build unix

package candidate

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator maps anonymous private memory for each region. The memory
// lives outside of the Go heap and is unmapped when the region is released.
type MmapAllocator struct{}

// Allocate maps a region of size bytes whose base is a multiple of align.
func (MmapAllocator) Allocate(size int, align uintptr) (*Region, error) {
	if size <= 0 || align == 0 {
		return nil, fmt.Errorf("%w: size %d align %d", ErrAllocation, size, align)
	}

	mem, err := unix.Mmap(-1, 0, size+int(align),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrAllocation, size, err)
	}

	return newRegion(mem, size, align, unix.Munmap), nil
}

// DefaultAllocator returns the allocator used when none is configured.
func DefaultAllocator() Allocator {
	return MmapAllocator{}
}
