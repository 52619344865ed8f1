package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/mm/buddy"
)

func TestLayoutCommand(t *testing.T) {
	resetFlags(t)
	regionsFlag = 2

	output, err := captureOutput(t, runLayout)
	require.NoError(t, err)
	assertContains(t, output, []string{
		"Region region0 (pool 1):",
		"Region region1 (pool 2):",
		"(300 descriptors of 12 bytes)",
		"(300 pages, 1,200 KiB)",
	})
}

func TestLayoutCommand_JSON(t *testing.T) {
	resetFlags(t)
	regionsFlag = 2
	jsonOut = true

	output, err := captureOutput(t, runLayout)
	require.NoError(t, err)

	var layouts []RegionLayout
	decodeJSON(t, output, &layouts)
	require.Len(t, layouts, 2)

	for i, l := range layouts {
		require.Equal(t, uint16(i+1), l.Pool)
		require.Equal(t, 300, l.Pages)
		require.Equal(t, buddy.DescriptorSize, l.DescriptorSize)
		require.Equal(t, 300*buddy.DescriptorSize, l.MetadataSize)
		require.Zero(t, l.UsableStart%buddy.MaxChunkSize)
		require.Equal(t, uint64(300*buddy.PageSize), l.UsableEnd-l.UsableStart)
		require.Equal(t, l.MetadataAddr+uint64(l.MetadataSize+l.PadSize), l.UsableStart)
	}
}

func TestLayoutCommand_Config(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	configPath = writeConfig(t, `
regions:
  - name: dma
    pages: 16
  - name: normal
    pages: 1000
align_pages: 1
`)

	output, err := captureOutput(t, runLayout)
	require.NoError(t, err)

	var layouts []RegionLayout
	decodeJSON(t, output, &layouts)
	require.Len(t, layouts, 2)
	require.Equal(t, "dma", layouts[0].Name)
	require.Equal(t, "normal", layouts[1].Name)
	require.Less(t, layouts[1].PadSize, buddy.PageSize)
}

func TestLayoutCommand_BadConfig(t *testing.T) {
	resetFlags(t)
	configPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := captureOutput(t, runLayout)
	require.ErrorIs(t, err, os.ErrNotExist)

	resetFlags(t)
	regionsFlag = 0
	_, err = captureOutput(t, runLayout)
	require.Error(t, err)

	resetFlags(t)
	regionsFlag = buddy.MaxPools + 1
	_, err = captureOutput(t, runLayout)
	require.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{4096, "4 KiB"},
		{4097, "4,097 B"},
		{2 << 20, "2 MiB"},
		{32 << 20, "32 MiB"},
		{3 << 30, "3 GiB"},
		{1536 << 10, "1,536 KiB"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatBytes(tt.n), "formatBytes(%d)", tt.n)
	}
}
