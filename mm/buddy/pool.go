package buddy

import (
	"fmt"
	"math"
)

// Pool is one contiguous range of physical memory managed as a buddy
// system. Its usable range is [Start(), Start()+Size()); page i of the
// range is described by metadata[i].
//
// Buddies are paired by page index: the buddy of the order-k chunk at
// index i is the chunk at i ^ 2^k. When Start() is a multiple of
// MaxChunkSize this is the same as pairing by address (see BuddyAddress).
// For an unaligned start the two differ, and chunks are aligned relative
// to Start() rather than to absolute addresses.
//
// A Pool is not safe for concurrent use; see LockedPool.
type Pool struct {
	id    PoolID
	start uint64
	size  uint64
	pages []Page
	areas [MaxOrder]freeArea
}

// NewPool returns an uninitialized pool carrying the given id. Pages of the
// pool record id as their owner; a pool created with NoPool cannot be
// resolved by address translation.
func NewPool(id PoolID) *Pool {
	p := &Pool{id: id}
	for order := range p.areas {
		p.areas[order].head = nilLink
	}
	return p
}

// Init sets up the pool over pageCount pages starting at start, using
// metadata[:pageCount] as the page descriptor table. Every page is released
// through the free path in increasing index order, so the free lists end up
// holding maximally coalesced chunks and FreeBytes() equals
// pageCount*PageSize. Coalescing follows index buddies, so the resulting
// chunks start at page indices that are multiples of their size, whatever
// the alignment of start.
//
// Inputs come from boot-time memory discovery and are trusted: a short
// descriptor table, a negative or oversized page count, or a start address
// that is not page aligned panics.
func (p *Pool) Init(metadata []Page, start uint64, pageCount int) {
	if pageCount < 0 || pageCount > math.MaxInt32 {
		panic(fmt.Sprintf("buddy: bad page count %d", pageCount))
	}
	if len(metadata) < pageCount {
		panic(fmt.Sprintf("buddy: descriptor table holds %d pages, need %d", len(metadata), pageCount))
	}
	if start%PageSize != 0 {
		panic(fmt.Sprintf("buddy: pool start 0x%x not page aligned", start))
	}
	if uint64(pageCount) > (math.MaxUint64-start)/PageSize {
		panic(fmt.Sprintf("buddy: pool at 0x%x with %d pages wraps the address space", start, pageCount))
	}

	p.start = start
	p.size = uint64(pageCount) * PageSize
	p.pages = metadata[:pageCount:pageCount]

	for order := range p.areas {
		p.areas[order] = freeArea{head: nilLink}
	}

	clear(p.pages)
	for i := range p.pages {
		p.pages[i] = Page{
			prev:      nilLink,
			next:      nilLink,
			pool:      p.id,
			order:     0,
			allocated: true,
		}
	}

	for i := range p.pages {
		// Every page is allocated and order 0 here, so this cannot fail.
		if err := p.free(int32(i)); err != nil {
			panic(err)
		}
	}

	logDebug("pool initialized", "pool", p.id, "start", p.start, "pages", pageCount)
}

// ID returns the pool's registry id.
func (p *Pool) ID() PoolID { return p.id }

// Start returns the address of the first usable byte.
func (p *Pool) Start() uint64 { return p.start }

// Size returns the size of the usable range in bytes.
func (p *Pool) Size() uint64 { return p.size }

// PageCount returns the number of pages in the pool.
func (p *Pool) PageCount() int { return len(p.pages) }

// Contains reports whether addr lies in the pool's usable range.
func (p *Pool) Contains(addr uint64) bool {
	return addr >= p.start && addr-p.start < p.size
}

// PageAt returns the descriptor of page idx.
func (p *Pool) PageAt(idx int) *Page { return &p.pages[idx] }

// ChunkAt returns a handle naming page idx. The page need not be a chunk
// head; Free rejects handles that are not.
func (p *Pool) ChunkAt(idx int) Chunk {
	if idx < 0 || idx >= len(p.pages) {
		return Chunk{}
	}
	return Chunk{pool: p, index: uint32(idx)}
}

func (p *Pool) String() string {
	return fmt.Sprintf("pool %d [0x%x, 0x%x) %d pages", p.id, p.start, p.start+p.size, len(p.pages))
}
