package buddy

import "fmt"

// MaxPools is the capacity of a Registry.
const MaxPools = 8

// Registry is the table of pools address translation searches. It is filled
// once at boot and read-only afterwards; the pools it holds are still
// mutated by Allocate and Free.
type Registry struct {
	pools [MaxPools]*Pool
	n     int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an initialized pool. The pool's id must be unique and not
// NoPool, and its address range must not overlap any registered pool.
func (r *Registry) Register(p *Pool) error {
	if p == nil {
		return ErrBadPoolID
	}
	if err := r.admit(p.id, p.start, p.size); err != nil {
		return err
	}
	r.pools[r.n] = p
	r.n++
	return nil
}

// admit checks that a pool with this id and range could be registered.
func (r *Registry) admit(id PoolID, start, size uint64) error {
	if id == NoPool {
		return ErrBadPoolID
	}
	if r.n == MaxPools {
		return ErrRegistryFull
	}
	for _, q := range r.pools[:r.n] {
		if q.id == id {
			return fmt.Errorf("%w: %d", ErrDuplicatePool, id)
		}
		if size > 0 && q.size > 0 && start < q.start+q.size && q.start < start+size {
			return fmt.Errorf("%w: [0x%x, 0x%x) and %v", ErrPoolOverlap, start, start+size, q)
		}
	}
	return nil
}

// NewPool creates a pool with the next free id, initializes it over
// metadata/start/pageCount and registers it. A pool the registry would
// refuse is rejected before metadata is touched.
func (r *Registry) NewPool(metadata []Page, start uint64, pageCount int) (*Pool, error) {
	if r.n == MaxPools {
		return nil, ErrRegistryFull
	}
	id := PoolID(r.n + 1)
	for r.Lookup(id) != nil {
		id++
	}
	if err := r.admit(id, start, uint64(max(pageCount, 0))*PageSize); err != nil {
		return nil, err
	}
	p := NewPool(id)
	p.Init(metadata, start, pageCount)
	r.pools[r.n] = p
	r.n++
	return p, nil
}

// Len returns the number of registered pools.
func (r *Registry) Len() int { return r.n }

// Pools returns the registered pools in registration order.
func (r *Registry) Pools() []*Pool {
	return append([]*Pool(nil), r.pools[:r.n]...)
}

// Lookup returns the pool with the given id, or nil.
func (r *Registry) Lookup(id PoolID) *Pool {
	for _, p := range r.pools[:r.n] {
		if p.id == id {
			return p
		}
	}
	return nil
}

// PoolFor returns the pool whose usable range contains addr, or nil.
func (r *Registry) PoolFor(addr uint64) *Pool {
	for _, p := range r.pools[:r.n] {
		if p.Contains(addr) {
			return p
		}
	}
	return nil
}

// AddressToChunk returns a handle to the page containing addr. An address
// owned by no registered pool is a *CorruptionError.
func (r *Registry) AddressToChunk(addr uint64) (Chunk, error) {
	p := r.PoolFor(addr)
	if p == nil {
		return Chunk{}, newCorruption("address_to_chunk", NoPool, -1, fmt.Errorf("%w: 0x%x", ErrNoPool, addr))
	}
	return p.AddressToChunk(addr)
}

// ChunkToAddress resolves c's owner through its page back-reference and
// returns the address of its first byte.
func (r *Registry) ChunkToAddress(c Chunk) (uint64, error) {
	if c.IsNil() {
		return 0, newCorruption("chunk_to_address", NoPool, -1, ErrNoPoolRef)
	}
	id := c.Page().pool
	if id == NoPool {
		return 0, newCorruption("chunk_to_address", NoPool, c.Index(), ErrNoPoolRef)
	}
	p := r.Lookup(id)
	if p == nil {
		return 0, newCorruption("chunk_to_address", id, c.Index(), fmt.Errorf("%w: id %d", ErrNoPool, id))
	}
	return p.ChunkToAddress(c)
}

// ChunkToAddress returns the address of the first byte of c:
// index*PageSize + Start().
func (p *Pool) ChunkToAddress(c Chunk) (uint64, error) {
	if c.IsNil() || c.Page().pool == NoPool {
		return 0, newCorruption("chunk_to_address", p.id, c.Index(), ErrNoPoolRef)
	}
	if c.pool != p || c.Page().pool != p.id {
		return 0, newCorruption("chunk_to_address", p.id, c.Index(), ErrForeignChunk)
	}
	return p.start + uint64(c.index)*PageSize, nil
}

// AddressToChunk returns a handle to the page of this pool containing addr.
func (p *Pool) AddressToChunk(addr uint64) (Chunk, error) {
	if !p.Contains(addr) {
		return Chunk{}, newCorruption("address_to_chunk", p.id, -1, fmt.Errorf("%w: 0x%x", ErrNoPool, addr))
	}
	return Chunk{pool: p, index: uint32((addr - p.start) / PageSize)}, nil
}
