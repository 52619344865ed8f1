package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/internal/writer"
	"github.com/joshuapare/pagekit/mm/buddy"
)

func TestStatsCommand(t *testing.T) {
	tests := []struct {
		name           string
		alloc          []int
		verbose        bool
		wantErr        error
		wantContain    []string
		wantNotContain []string
	}{
		{
			name: "fresh pool",
			wantContain: []string{
				"Pool 1 (region0):",
				"Pages:  300",
				"Total:  1,228,800 bytes",
				"Free:   1,228,800 bytes",
				"Used:   0 bytes",
				"Largest free chunk: order 8 (1 MiB)",
			},
			wantNotContain: []string{"    13  "},
		},
		{
			name:  "after allocations",
			alloc: []int{0, 3},
			wantContain: []string{
				"Free:   1,191,936 bytes",
				"Used:   36,864 bytes",
			},
		},
		{
			name:        "verbose lists every order",
			verbose:     true,
			wantContain: []string{"    13  "},
		},
		{
			name:    "order too large",
			alloc:   []int{9},
			wantErr: buddy.ErrNoSpace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			statsAlloc = tt.alloc
			verbose = tt.verbose

			output, err := captureOutput(t, runStats)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assertContains(t, output, tt.wantContain)
			assertNotContains(t, output, tt.wantNotContain)
		})
	}
}

func TestStatsCommand_JSON(t *testing.T) {
	resetFlags(t)
	regionsFlag = 2
	pagesFlag = 64
	jsonOut = true
	// 64 pages fill the first region exactly.
	statsAlloc = []int{6, 1}

	output, err := captureOutput(t, runStats)
	require.NoError(t, err)

	var stats []buddy.Stats
	decodeJSON(t, output, &stats)
	require.Len(t, stats, 2)

	require.Equal(t, buddy.PoolID(1), stats[0].Pool)
	require.Zero(t, stats[0].FreeBytes)
	require.Equal(t, -1, stats[0].LargestFreeOrder())

	require.Equal(t, buddy.PoolID(2), stats[1].Pool)
	require.Equal(t, uint64(62*buddy.PageSize), stats[1].FreeBytes)
	for order, want := range map[int]uint64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 6: 0} {
		require.Equal(t, want, stats[1].Orders[order].NrFree, "order %d", order)
	}
}

func TestStatsCommand_Out(t *testing.T) {
	resetFlags(t)
	outPath = filepath.Join(t.TempDir(), "stats.json")

	output, err := captureOutput(t, runStats)
	require.NoError(t, err)
	require.Empty(t, output)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var stats []buddy.Stats
	decodeJSON(t, string(data), &stats)
	require.Len(t, stats, 1)
	require.Equal(t, uint64(300*buddy.PageSize), stats[0].FreeBytes)
}

func TestStatsCommand_ReportSink(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	statsAlloc = []int{0}
	sink := &writer.MemWriter{}
	reportSink = sink

	output, err := captureOutput(t, runStats)
	require.NoError(t, err)
	require.Empty(t, output)
	require.Len(t, sink.Reports, 1)

	var stats []buddy.Stats
	decodeJSON(t, string(sink.Last()), &stats)
	require.Len(t, stats, 1)
	require.Equal(t, uint64(299*buddy.PageSize), stats[0].FreeBytes)
}
