package buddy

import (
	"fmt"
	"strings"

	"github.com/joshuapare/pagekit/internal/logger"
)

// FreeBytes returns the number of free bytes in the pool: the sum over all
// orders of nrFree[k] * 2^k * PageSize. The per-order table is logged at
// debug level.
func (p *Pool) FreeBytes() uint64 {
	var total uint64
	verbose := debugEnabled()
	for order := range MaxOrder {
		size := chunkBytes(order)
		nr := p.areas[order].nrFree
		total += nr * size
		if verbose {
			logger.Debug("buddy memory chunk", "pool", p.id, "order", order, "size", size, "num", nr)
		}
	}
	return total
}

// OrderStats is one row of Stats: the free chunks of a single order.
type OrderStats struct {
	Order     int    `json:"order"`
	ChunkSize uint64 `json:"chunk_size"`
	NrFree    uint64 `json:"nr_free"`
}

// FreeBytes returns the bytes held by this order's free chunks.
func (o OrderStats) FreeBytes() uint64 { return o.NrFree * o.ChunkSize }

// Stats is a snapshot of a pool's free-list accounting.
type Stats struct {
	Pool       PoolID               `json:"pool"`
	Start      uint64               `json:"start"`
	Pages      int                  `json:"pages"`
	TotalBytes uint64               `json:"total_bytes"`
	FreeBytes  uint64               `json:"free_bytes"`
	Orders     [MaxOrder]OrderStats `json:"orders"`
}

// UsedBytes returns the bytes currently allocated.
func (s Stats) UsedBytes() uint64 { return s.TotalBytes - s.FreeBytes }

// LargestFreeOrder returns the highest order with a free chunk, or -1 when
// the pool is exhausted.
func (s Stats) LargestFreeOrder() int {
	for order := MaxOrder - 1; order >= 0; order-- {
		if s.Orders[order].NrFree > 0 {
			return order
		}
	}
	return -1
}

// String renders the per-order table.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pool %d: %d/%d bytes free\n", s.Pool, s.FreeBytes, s.TotalBytes)
	for _, o := range s.Orders {
		fmt.Fprintf(&b, "  order %2d  size 0x%-8x  free %d\n", o.Order, o.ChunkSize, o.NrFree)
	}
	return b.String()
}

// Stats returns a snapshot of the pool's free lists.
func (p *Pool) Stats() Stats {
	s := Stats{
		Pool:       p.id,
		Start:      p.start,
		Pages:      len(p.pages),
		TotalBytes: p.size,
	}
	for order := range MaxOrder {
		s.Orders[order] = OrderStats{
			Order:     order,
			ChunkSize: chunkBytes(order),
			NrFree:    p.areas[order].nrFree,
		}
		s.FreeBytes += s.Orders[order].FreeBytes()
	}
	return s
}
