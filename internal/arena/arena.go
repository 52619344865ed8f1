// Package arena provides anonymous memory regions that back physical memory
// pools, and the layout arithmetic that carves a region into a page
// descriptor table followed by page-aligned usable memory.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrBadSize indicates a zero, negative or overflowing region size.
	ErrBadSize = errors.New("arena: bad region size")

	// ErrReleased indicates use of a region after Release.
	ErrReleased = errors.New("arena: region released")
)

// Region is a contiguous block of read/write memory owned by the process.
// On unix platforms it is an anonymous private mapping; elsewhere it is a
// heap slice.
type Region struct {
	data    []byte
	release func([]byte) error
}

// Map reserves a zero-filled region of at least size bytes.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	data, release, err := mapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("arena: map %d bytes: %w", size, err)
	}
	return &Region{data: data, release: release}, nil
}

// Bytes returns the region's memory. It is nil after Release.
func (r *Region) Bytes() []byte { return r.data }

// Len returns the size of the region in bytes.
func (r *Region) Len() int { return len(r.data) }

// Addr returns the virtual address of the first byte of the region.
func (r *Region) Addr() uintptr {
	if len(r.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.data[0]))
}

// Slice returns region bytes [off, off+n).
func (r *Region) Slice(off, n int) ([]byte, error) {
	if r.data == nil {
		return nil, ErrReleased
	}
	if off < 0 || n < 0 || off > len(r.data) || n > len(r.data)-off {
		return nil, fmt.Errorf("arena: slice [%d, +%d) outside region of %d bytes", off, n, len(r.data))
	}
	return r.data[off : off+n : off+n], nil
}

// Release returns the region to the operating system. Calling Release more
// than once is a no-op.
func (r *Region) Release() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	return r.release(data)
}
