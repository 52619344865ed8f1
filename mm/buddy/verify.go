package buddy

import "github.com/cockroachdb/errors"

// Verify checks the pool's metadata against the buddy invariants:
//
//   - chunks tile the page range with no gaps or overlaps;
//   - a chunk of order k starts at an index that is a multiple of 2^k;
//   - every page of a chunk carries the chunk's order and allocated flag,
//     and the pool's id;
//   - a page is on free list k exactly when it heads a free chunk of
//     order k, and nrFree[k] counts those chunks.
//
// The first violation found is returned as a *CorruptionError wrapping
// ErrInvariant.
func (p *Pool) Verify() error {
	n := int32(len(p.pages))
	onList := make([]int8, n)
	for i := range onList {
		onList[i] = -1
	}

	for order := range MaxOrder {
		area := &p.areas[order]
		var count uint64
		prev := nilLink
		for idx := area.head; idx != nilLink; idx = p.pages[idx].next {
			if idx < 0 || idx >= n {
				return p.invariant(int(prev), "free list %d links to page %d outside the pool", order, idx)
			}
			if count >= uint64(n) || onList[idx] != -1 {
				return p.invariant(int(idx), "free list %d revisits page %d", order, idx)
			}
			pg := &p.pages[idx]
			if pg.prev != prev {
				return p.invariant(int(idx), "free list %d: prev link %d, want %d", order, pg.prev, prev)
			}
			if pg.allocated || int(pg.order) != order {
				return p.invariant(int(idx), "free list %d holds page with order %d allocated=%t", order, pg.order, pg.allocated)
			}
			onList[idx] = int8(order)
			prev = idx
			count++
		}
		if count != area.nrFree {
			return p.invariant(-1, "free list %d holds %d chunks, nr_free says %d", order, count, area.nrFree)
		}
	}

	for idx := int32(0); idx < n; {
		head := &p.pages[idx]
		order := int(head.order)
		if order >= MaxOrder {
			return p.invariant(int(idx), "order %d out of range", order)
		}
		size := chunkPages(order)
		if idx&(size-1) != 0 {
			return p.invariant(int(idx), "order %d chunk misaligned", order)
		}
		if idx+size > n || idx+size < idx {
			return p.invariant(int(idx), "order %d chunk runs past the last page", order)
		}
		for i := idx; i < idx+size; i++ {
			pg := &p.pages[i]
			if int(pg.order) != order || pg.allocated != head.allocated {
				return p.invariant(int(i), "page order %d allocated=%t inside chunk at %d with order %d allocated=%t",
					pg.order, pg.allocated, idx, order, head.allocated)
			}
			if pg.pool != p.id {
				return p.invariant(int(i), "page owned by pool %d", pg.pool)
			}
			if i != idx && onList[i] != -1 {
				return p.invariant(int(i), "interior page on free list %d", onList[i])
			}
		}
		switch {
		case !head.allocated && onList[idx] != int8(order):
			return p.invariant(int(idx), "free order %d chunk not on its free list", order)
		case head.allocated && onList[idx] != -1:
			return p.invariant(int(idx), "allocated chunk on free list %d", onList[idx])
		}
		idx += size
	}
	return nil
}

func (p *Pool) invariant(idx int, format string, args ...any) error {
	return newCorruption("verify", p.id, idx, errors.Wrapf(ErrInvariant, format, args...))
}
