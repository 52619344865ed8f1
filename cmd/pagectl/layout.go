package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/internal/arena"
	"github.com/joshuapare/pagekit/mm/buddy"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show how each region is carved into metadata and pages",
		Long: `The layout command boots the machine and prints, for every region, where
the page descriptor table lives, how much padding aligns the usable pages,
and the usable address range handed to the allocator.

Example:
  pagectl layout
  pagectl layout --regions 2 --pages 4096
  pagectl layout --config machine.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout()
		},
	}
	return cmd
}

// RegionLayout is the JSON form of one region's layout.
type RegionLayout struct {
	Name           string `json:"name"`
	Pool           uint16 `json:"pool"`
	MetadataAddr   uint64 `json:"metadata_addr"`
	MetadataSize   int    `json:"metadata_size"`
	DescriptorSize int    `json:"descriptor_size"`
	PadSize        int    `json:"pad_size"`
	UsableStart    uint64 `json:"usable_start"`
	UsableEnd      uint64 `json:"usable_end"`
	Pages          int    `json:"pages"`
	MappedSize     int    `json:"mapped_size"`
}

func runLayout() (err error) {
	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer closeMachine(m, &err)

	layouts := make([]RegionLayout, 0, len(m.Regions()))
	for _, r := range m.Regions() {
		layouts = append(layouts, regionLayout(r.Name, r.Pool, uint64(r.MetadataAddr()), r.Layout))
	}

	if wantJSON() {
		return printJSON(layouts)
	}

	for _, l := range layouts {
		printInfo("\nRegion %s (pool %d):\n", l.Name, l.Pool)
		printInfo("  Metadata: %#x-%#x (%d descriptors of %d bytes)\n",
			l.MetadataAddr, l.MetadataAddr+uint64(l.MetadataSize), l.Pages, l.DescriptorSize)
		printInfo("  Padding:  %s\n", formatBytes(uint64(l.PadSize)))
		printInfo("  Usable:   %#x-%#x (%d pages, %s)\n",
			l.UsableStart, l.UsableEnd, l.Pages, formatBytes(l.UsableEnd-l.UsableStart))
		printInfo("  Mapped:   %s\n", formatBytes(uint64(l.MappedSize)))
	}
	return nil
}

func regionLayout(name string, p *buddy.Pool, metaAddr uint64, l arena.Layout) RegionLayout {
	return RegionLayout{
		Name:           name,
		Pool:           uint16(p.ID()),
		MetadataAddr:   metaAddr,
		MetadataSize:   l.MetadataSize,
		DescriptorSize: l.DescriptorSize,
		PadSize:        l.PadSize,
		UsableStart:    p.Start(),
		UsableEnd:      p.Start() + p.Size(),
		Pages:          p.PageCount(),
		MappedSize:     l.Total,
	}
}
