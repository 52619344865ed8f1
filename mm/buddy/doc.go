// Package buddy implements a binary buddy allocator for physical pages.
//
// # Overview
//
// A Pool manages one contiguous range of physical memory, split into
// PageSize pages. Pages are handed out in chunks of 2^order pages, for
// orders 0 through MaxOrder-1. Free chunks are kept on one list per order;
// allocation takes the smallest available chunk that is large enough and
// splits it in halves until it has the requested order, and freeing merges
// a chunk with its buddy for as long as the buddy is free and of the same
// order.
//
// # Metadata
//
// Every page has a Page descriptor in a flat table owned by the pool. A
// descriptor records whether its page is allocated, the order of the chunk
// it belongs to, and the id of the owning pool. All pages of a chunk carry
// the same order and allocated flag, and a chunk of order k always starts at
// a page index that is a multiple of 2^k, so the buddy of the chunk at index
// i is simply the chunk at i ^ 2^k.
//
// Free lists are threaded through the descriptors by page index, so the
// table holds no Go pointers and can live in raw memory in front of the
// pages it describes (see package physmem).
//
// # Usage
//
//	reg := buddy.NewRegistry()
//	meta := make([]buddy.Page, pages)
//	pool, err := reg.NewPool(meta, start, pages)
//	if err != nil {
//	    return err
//	}
//
//	c, err := pool.Allocate(3) // 8 contiguous pages
//	if errors.Is(err, buddy.ErrNoSpace) {
//	    // reclaim or try a smaller order
//	}
//	addr, _ := reg.ChunkToAddress(c)
//	...
//	err = pool.Free(c)
//
// # Errors
//
// Running out of memory is ordinary: Allocate returns ErrNoSpace. Anything
// that means the metadata has been damaged (a double free, an address no
// pool owns, a page with no owner, a free list that disagrees with the page
// table) is reported as a *CorruptionError, which matches ErrCorrupt.
// Callers should treat those as fatal.
//
// # Thread Safety
//
// Pool is not safe for concurrent use. Wrap it in a LockedPool, or hold an
// external lock around every call.
package buddy
