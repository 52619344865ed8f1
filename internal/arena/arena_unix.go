//go:build linux || darwin || freebsd

package arena

import (
	"errors"

	"golang.org/x/sys/unix"
)

// mapAnon creates a private anonymous mapping. Pages are zero-filled and
// only committed by the kernel on first touch, so reserving alignment slack
// costs address space, not memory.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return data, unmap, nil
}

func unmap(data []byte) error {
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

// Discard tells the kernel the contents of [off, off+n) are no longer needed.
// On Linux the range reads back as zeros afterwards.
func (r *Region) Discard(off, n int) error {
	b, err := r.Slice(off, n)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return unix.Madvise(b, unix.MADV_DONTNEED)
}
