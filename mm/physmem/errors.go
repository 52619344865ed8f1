package physmem

import "errors"

var (
	// ErrBadConfig indicates a machine description the allocator cannot boot.
	ErrBadConfig = errors.New("physmem: bad config")

	// ErrClosed indicates use of a Machine after Close.
	ErrClosed = errors.New("physmem: machine closed")

	// ErrNotAllocated indicates a chunk whose memory is requested while free.
	ErrNotAllocated = errors.New("physmem: chunk not allocated")
)
