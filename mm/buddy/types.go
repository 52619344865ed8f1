package buddy

import "unsafe"

const (
	// PageShift is log2(PageSize).
	PageShift = 12

	// PageSize is the size of one physical page in bytes.
	PageSize = 1 << PageShift

	// MaxOrder bounds chunk orders: valid orders are 0..MaxOrder-1, so the
	// largest chunk spans 2^(MaxOrder-1) pages (32 MiB).
	MaxOrder = 14

	// MaxChunkPages is the number of pages in a chunk of order MaxOrder-1.
	MaxChunkPages = 1 << (MaxOrder - 1)

	// MaxChunkSize is the size in bytes of the largest chunk.
	MaxChunkSize = MaxChunkPages * PageSize

	// DescriptorSize is the in-memory size of one Page descriptor.
	DescriptorSize = int(unsafe.Sizeof(Page{}))
)

// nilLink terminates a free list.
const nilLink int32 = -1

// PoolID identifies a pool in a Registry. The zero value means "no pool".
type PoolID uint16

// NoPool is the absent pool back-reference.
const NoPool PoolID = 0

// Page describes one physical page. Pages live in a flat table indexed by
// their offset from the pool start. Page holds no Go pointers so the table
// can overlay raw memory in front of the pool it describes.
type Page struct {
	// prev/next link the page into its order's free list. They are only
	// meaningful while the page is the head of a free chunk.
	prev int32
	next int32

	pool      PoolID
	order     uint8
	allocated bool
}

// Allocated reports whether the page belongs to an allocated chunk.
func (pg *Page) Allocated() bool { return pg.allocated }

// Order returns the order of the chunk the page belongs to.
func (pg *Page) Order() int { return int(pg.order) }

// Pool returns the id of the pool that owns the page.
func (pg *Page) Pool() PoolID { return pg.pool }

// Chunk is a handle to 2^order contiguous pages of a pool, named by the
// index of its head page. The zero Chunk is the absent handle.
type Chunk struct {
	pool  *Pool
	index uint32
}

// IsNil reports whether c is the absent handle.
func (c Chunk) IsNil() bool { return c.pool == nil }

// Pool returns the pool the chunk was handed out by.
func (c Chunk) Pool() *Pool { return c.pool }

// Index returns the head page index within the pool.
func (c Chunk) Index() int { return int(c.index) }

// Page returns the head page descriptor, or nil for the absent handle.
func (c Chunk) Page() *Page {
	if c.IsNil() {
		return nil
	}
	return &c.pool.pages[c.index]
}

// Order returns the chunk's current order. The absent handle has order 0.
func (c Chunk) Order() int {
	if c.IsNil() {
		return 0
	}
	return c.Page().Order()
}

// Allocated reports whether the chunk is currently allocated.
func (c Chunk) Allocated() bool {
	if c.IsNil() {
		return false
	}
	return c.Page().Allocated()
}

// IsHead reports whether c names the first page of the chunk its page
// currently belongs to. Interior pages from ChunkAt or AddressToChunk are
// not heads.
func (c Chunk) IsHead() bool {
	if c.IsNil() {
		return false
	}
	return c.index&(uint32(1)<<c.Order()-1) == 0
}

// Pages returns the number of pages in the chunk, or 0 for the absent
// handle.
func (c Chunk) Pages() int {
	if c.IsNil() {
		return 0
	}
	return 1 << c.Order()
}

// Size returns the chunk size in bytes.
func (c Chunk) Size() uint64 { return uint64(c.Pages()) * PageSize }

// chunkPages returns the number of pages in a chunk of the given order.
func chunkPages(order int) int32 { return 1 << order }

// chunkBytes returns the size in bytes of a chunk of the given order.
func chunkBytes(order int) uint64 { return uint64(1) << (order + PageShift) }
