//go:build !unix

package candidate

// DefaultAllocator returns the allocator used when none is configured.
func DefaultAllocator() Allocator {
	return HeapAllocator{}
}
