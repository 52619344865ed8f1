package buddy

import "sync"

// LockedPool serializes every call into a Pool behind one mutex. Splits and
// merges touch several non-adjacent descriptors, so the whole operation is
// the unit of exclusion.
//
// Chunk accessors (Order, Allocated, Pages, Size, IsHead, Page) read pool
// metadata without the lock. While other goroutines use the pool, read a
// chunk's state through Inspect, or record Size right after Allocate and
// before handing the chunk to anyone else.
type LockedPool struct {
	mu   sync.Mutex
	pool *Pool
}

// NewLockedPool wraps p. Callers must not use p directly afterwards.
func NewLockedPool(p *Pool) *LockedPool {
	return &LockedPool{pool: p}
}

// Pool returns the wrapped pool.
func (lp *LockedPool) Pool() *Pool { return lp.pool }

func (lp *LockedPool) Allocate(order int) (Chunk, error) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.pool.Allocate(order)
}

func (lp *LockedPool) Free(c Chunk) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.pool.Free(c)
}

func (lp *LockedPool) FreeBytes() uint64 {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.pool.FreeBytes()
}

func (lp *LockedPool) Stats() Stats {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.pool.Stats()
}

// Inspect returns c's order and allocated flag under the lock.
func (lp *LockedPool) Inspect(c Chunk) (order int, allocated bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return c.Order(), c.Allocated()
}

func (lp *LockedPool) Verify() error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.pool.Verify()
}
