package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testPoolStart is aligned to MaxChunkSize so address and index buddies agree.
const testPoolStart uint64 = 0x4000_0000

// newTestPool returns an initialized, unregistered pool of the given size.
func newTestPool(t testing.TB, pages int) *Pool {
	t.Helper()
	p := NewPool(1)
	p.Init(make([]Page, pages), testPoolStart, pages)
	return p
}

// requireFreeBytes asserts the pool's free byte count.
func requireFreeBytes(t testing.TB, p *Pool, want uint64, msgAndArgs ...any) {
	t.Helper()
	require.Equal(t, want, p.FreeBytes(), msgAndArgs...)
}

// requireConsistent runs Verify and fails the test on any violation.
func requireConsistent(t testing.TB, p *Pool) {
	t.Helper()
	require.NoError(t, p.Verify())
}

// requireChunkPages asserts every page of c carries order and allocated.
func requireChunkPages(t testing.TB, c Chunk, order int, allocated bool) {
	t.Helper()
	for i := c.Index(); i < c.Index()+(1<<order); i++ {
		pg := c.Pool().PageAt(i)
		require.Equal(t, order, pg.Order(), "page %d order", i)
		require.Equal(t, allocated, pg.Allocated(), "page %d allocated", i)
	}
}

// nrFree returns the free chunk counts for all orders.
func nrFree(p *Pool) [MaxOrder]uint64 {
	var out [MaxOrder]uint64
	for order := range MaxOrder {
		out[order] = p.areas[order].nrFree
	}
	return out
}

// orderBytes returns the size of an order-k chunk.
func orderBytes(order int) uint64 {
	return uint64(1<<order) * PageSize
}
