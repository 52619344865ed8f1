package buddy

import (
	"context"
	"log/slog"
	"os"

	"github.com/joshuapare/pagekit/internal/logger"
)

// Runtime debug flag for split/merge logging - controlled by PAGEKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("PAGEKIT_LOG_ALLOC") != ""

func logDebug(msg string, args ...any) {
	if logAlloc {
		logger.Debug(msg, args...)
	}
}

// BuddyAddress returns the address of the buddy of the order-k chunk at
// addr: the chunk it was split from, or would merge with. The result is
// only meaningful for pools whose start is aligned to MaxChunkSize; Pool
// itself pairs buddies by page index, which needs no such alignment.
func BuddyAddress(addr uint64, order int) uint64 {
	return addr ^ (uint64(1) << (order + PageShift))
}

// buddyOf returns the index of the buddy of the order-k chunk at idx, or
// false when the buddy would lie past the end of the pool.
func (p *Pool) buddyOf(idx int32, order int) (int32, bool) {
	b := int64(idx) ^ int64(chunkPages(order))
	if b >= int64(len(p.pages)) {
		return 0, false
	}
	return int32(b), true
}

// setChunk stamps order and allocated onto every page of the order-k chunk
// at idx.
func (p *Pool) setChunk(idx int32, order int, allocated bool) {
	chunk := p.pages[idx : idx+chunkPages(order)]
	for i := range chunk {
		chunk[i].order = uint8(order)
		chunk[i].allocated = allocated
	}
}

// Allocate hands out a chunk of 2^order contiguous pages. It takes the first
// chunk from the lowest non-empty free list at or above order and splits it
// down, returning each upper half to the free list of its order.
//
// ErrNoSpace is returned, with no state changed, when no such chunk exists;
// orders outside [0, MaxOrder) never match any list. A *CorruptionError
// means the free lists disagree with the page table.
func (p *Pool) Allocate(order int) (Chunk, error) {
	if order < 0 || order >= MaxOrder {
		return Chunk{}, ErrNoSpace
	}

	for cur := order; cur < MaxOrder; cur++ {
		head := p.areas[cur].head
		if head == nilLink {
			continue
		}
		if err := p.split(head, order); err != nil {
			return Chunk{}, err
		}
		return Chunk{pool: p, index: uint32(head)}, nil
	}

	logDebug("allocation refused", "pool", p.id, "order", order)
	return Chunk{}, ErrNoSpace
}

// split takes the free chunk headed at idx off its list and carves it down
// to order, marking the result allocated.
func (p *Pool) split(idx int32, order int) error {
	pg := &p.pages[idx]
	if pg.allocated || int(pg.order) < order {
		return newCorruption("allocate", p.id, int(idx), ErrInvariant)
	}

	p.removeChunk(idx)

	for cur := int(pg.order); cur > order; {
		cur--
		// The working chunk keeps idx as the lower half; the upper half
		// becomes a free chunk of the new order.
		pg.order = uint8(cur)
		sibling, ok := p.buddyOf(idx, cur)
		if !ok {
			return newCorruption("allocate", p.id, int(idx), ErrMissingBuddy)
		}
		p.setChunk(sibling, cur, false)
		p.insertChunk(sibling)
		logDebug("split", "pool", p.id, "page", idx, "order", cur, "sibling", sibling)
	}

	p.setChunk(idx, order, true)
	return nil
}

// Free returns c to the pool, merging it with free buddies of equal order
// for as long as possible. Freeing the nil Chunk is a no-op. Freeing a chunk
// that is already free, or a handle that does not name a chunk head of this
// pool, reports a *CorruptionError and changes nothing.
func (p *Pool) Free(c Chunk) error {
	if c.IsNil() {
		return nil
	}
	if c.pool != p || int(c.index) >= len(p.pages) {
		return newCorruption("free", p.id, int(c.index), ErrForeignChunk)
	}
	return p.free(int32(c.index))
}

func (p *Pool) free(idx int32) error {
	pg := &p.pages[idx]
	if !pg.allocated {
		return newCorruption("free", p.id, int(idx), ErrDoubleFree)
	}
	if pg.order >= MaxOrder {
		return newCorruption("free", p.id, int(idx), ErrInvariant)
	}
	if idx&(chunkPages(int(pg.order))-1) != 0 {
		return newCorruption("free", p.id, int(idx), ErrNotHead)
	}

	order := int(pg.order)
	for order < MaxOrder-1 {
		b, ok := p.buddyOf(idx, order)
		if !ok {
			break
		}
		bp := &p.pages[b]
		if bp.allocated || int(bp.order) != order {
			break
		}
		p.removeChunk(b)
		idx = min(idx, b)
		order++
		logDebug("merge", "pool", p.id, "page", idx, "order", order)
	}

	p.pages[idx].order = uint8(order)
	p.insertChunk(idx)
	p.setChunk(idx, order, false)
	return nil
}

// debugEnabled reports whether the global logger would emit debug records.
func debugEnabled() bool {
	return logger.L.Enabled(context.Background(), slog.LevelDebug)
}
