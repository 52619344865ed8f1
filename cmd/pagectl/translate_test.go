package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/mm/buddy"
)

func TestTranslateCommand(t *testing.T) {
	tests := []struct {
		name          string
		offset        string
		alloc         []int
		wantPage      int
		wantOrder     int
		wantAllocated bool
		wantBuddy     uint64 // offset of the buddy within the pool
		wantInPool    bool
	}{
		{
			name:       "fresh pool",
			offset:     "0x2345",
			wantPage:   2,
			wantOrder:  6,
			wantBuddy:  64 * buddy.PageSize,
			wantInPool: false,
		},
		{
			name:          "interior page of allocated chunk",
			offset:        "0x1000",
			alloc:         []int{2},
			wantPage:      1,
			wantOrder:     2,
			wantAllocated: true,
			wantBuddy:     4 * buddy.PageSize,
			wantInPool:    true,
		},
		{
			name:       "split sibling",
			offset:     "16384",
			alloc:      []int{2},
			wantPage:   4,
			wantOrder:  2,
			wantBuddy:  0,
			wantInPool: true,
		},
		{
			name:       "upper half after split",
			offset:     "0x3f000",
			alloc:      []int{0},
			wantPage:   63,
			wantOrder:  5,
			wantBuddy:  0,
			wantInPool: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			pagesFlag = 64
			jsonOut = true
			translateAlloc = tt.alloc

			output, err := captureOutput(t, func() error {
				return runTranslate([]string{tt.offset})
			})
			require.NoError(t, err)

			var tr Translation
			decodeJSON(t, output, &tr)
			start := tr.Address &^ (buddy.MaxChunkSize - 1)

			require.Equal(t, uint16(1), tr.Pool)
			require.Equal(t, "region0", tr.Region)
			require.Equal(t, tt.wantPage, tr.Page)
			require.Equal(t, start+uint64(tt.wantPage)*buddy.PageSize, tr.PageAddress)
			require.Equal(t, tt.wantOrder, tr.Order)
			require.Equal(t, tt.wantAllocated, tr.Allocated)
			require.Equal(t, start+tt.wantBuddy, tr.BuddyAddress)
			require.Equal(t, tt.wantInPool, tr.BuddyInPool)
		})
	}
}

func TestTranslateCommand_Text(t *testing.T) {
	resetFlags(t)
	pagesFlag = 64
	regionsFlag = 2
	translateRegion = "region1"

	output, err := captureOutput(t, func() error {
		return runTranslate([]string{"0x8000"})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{
		"Pool:      2 (region1)",
		"Page:      8 at",
		"Order:     6",
		"Allocated: false",
		"(outside pool)",
	})
}

func TestTranslateCommand_UnalignedPool(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	pagesFlag = 64
	translateAlloc = []int{3}

	cfgPath := writeConfig(t, "regions:\n  - pages: 64\nalign_pages: 1\n")
	configPath = cfgPath

	output, err := captureOutput(t, func() error {
		return runTranslate([]string{"0x1000"})
	})
	require.NoError(t, err)

	var tr Translation
	decodeJSON(t, output, &tr)
	start := tr.PageAddress - buddy.PageSize
	require.Equal(t, 1, tr.Page)
	require.Equal(t, 3, tr.Order)
	require.True(t, tr.Allocated)
	require.Equal(t, start+8*buddy.PageSize, tr.BuddyAddress)
	require.True(t, tr.BuddyInPool)
}

func TestTranslateCommand_Errors(t *testing.T) {
	resetFlags(t)
	pagesFlag = 64

	_, err := captureOutput(t, func() error { return runTranslate([]string{"page-one"}) })
	require.Error(t, err)

	_, err = captureOutput(t, func() error { return runTranslate([]string{"0x40000"}) })
	require.ErrorContains(t, err, "outside region")

	translateRegion = "nowhere"
	_, err = captureOutput(t, func() error { return runTranslate([]string{"0"}) })
	require.ErrorContains(t, err, `no region named "nowhere"`)

	resetFlags(t)
	pagesFlag = 64
	translateAbsolute = true
	_, err = captureOutput(t, func() error { return runTranslate([]string{"0"}) })
	require.ErrorIs(t, err, buddy.ErrNoPool)
	require.ErrorIs(t, err, buddy.ErrCorrupt)
}
