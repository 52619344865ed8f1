//go:build !linux && !darwin && !freebsd

package arena

// mapAnon allocates the region on the Go heap when anonymous mappings are
// not available.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), func([]byte) error { return nil }, nil
}

// Discard zeroes [off, off+n).
func (r *Region) Discard(off, n int) error {
	b, err := r.Slice(off, n)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}
