package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify_CleanPools(t *testing.T) {
	for _, pages := range []int{0, 1, 7, 64, MaxChunkPages + 3} {
		requireConsistent(t, newTestPool(t, pages))
	}
}

func TestVerify_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Pool)
	}{
		{"nr_free drift", func(p *Pool) { p.areas[4].nrFree++ }},
		{"interior page order", func(p *Pool) { p.pages[5].order = 1 }},
		{"interior page allocated", func(p *Pool) { p.pages[9].allocated = true }},
		{"foreign owner", func(p *Pool) { p.pages[3].pool = 9 }},
		{"order out of range", func(p *Pool) { p.pages[0].order = MaxOrder }},
		{"free chunk off its list", func(p *Pool) {
			p.removeChunk(16)
		}},
		{"allocated chunk on a list", func(p *Pool) {
			p.setChunk(16, 3, true)
			p.pages[16].order = 3
		}},
		{"broken prev link", func(p *Pool) {
			// Two free order-0 chunks, then point the second at itself.
			p.setChunk(0, 4, true)
			p.removeChunk(0)
			p.pages[0].order = 0
			p.pages[0].allocated = false
			p.insertChunk(0)
			p.pages[2].order = 0
			p.pages[2].allocated = false
			p.insertChunk(2)
			p.pages[0].prev = 0
		}},
		{"list cycle", func(p *Pool) { p.pages[16].next = 16 }},
		{"list link out of range", func(p *Pool) { p.pages[16].next = 1000 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPool(t, 24) // order 4 at 0, order 3 at 16
			requireConsistent(t, p)

			tc.mutate(p)

			err := p.Verify()
			require.ErrorIs(t, err, ErrInvariant)
			require.ErrorIs(t, err, ErrCorrupt)

			var ce *CorruptionError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, "verify", ce.Op)
		})
	}
}

func TestVerify_MisalignedChunk(t *testing.T) {
	p := newTestPool(t, 4)
	c0, err := p.Allocate(0)
	require.NoError(t, err)
	c1, err := p.Allocate(0)
	require.NoError(t, err)
	c2, err := p.Allocate(1)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, []int{c0.Index(), c1.Index(), c2.Index()})

	// Pages 1-2 claim to be one order-1 chunk starting at an odd index.
	p.pages[1].order = 1
	p.pages[2].order = 1

	err = p.Verify()
	require.ErrorIs(t, err, ErrInvariant)
	var ce *CorruptionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 1, ce.Index)
}

func TestVerify_ChunkPastEnd(t *testing.T) {
	p := newTestPool(t, 5)
	p.pages[4].order = 1
	require.ErrorIs(t, p.Verify(), ErrInvariant)
}

func TestAllocate_CorruptListHeadReported(t *testing.T) {
	p := newTestPool(t, 16)
	// The order-4 list head claims to be allocated.
	p.pages[0].allocated = true

	_, err := p.Allocate(0)
	require.ErrorIs(t, err, ErrCorrupt)
	require.ErrorIs(t, err, ErrInvariant)
}
