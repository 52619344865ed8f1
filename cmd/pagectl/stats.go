package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mm/buddy"
)

var (
	statsAlloc []int
)

func init() {
	cmd := newStatsCmd()
	cmd.Flags().IntSliceVar(&statsAlloc, "alloc", nil, "Allocate chunks of these orders before reporting")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-order free-list statistics",
		Long: `The stats command boots the machine, optionally allocates a sequence of
chunks, and prints every pool's free-list table: the number of free chunks
of each order and the bytes they hold.

Example:
  pagectl stats
  pagectl stats --alloc 0,0,3,7
  pagectl stats --regions 2 --pages 1000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

func runStats() (err error) {
	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer closeMachine(m, &err)

	if _, err := allocateOrders(m, statsAlloc); err != nil {
		return err
	}

	stats := make([]buddy.Stats, 0, len(m.Regions()))
	for _, r := range m.Regions() {
		if err := r.Pool.Verify(); err != nil {
			return err
		}
		stats = append(stats, r.Pool.Stats())
	}

	if wantJSON() {
		return printJSON(stats)
	}

	for i, s := range stats {
		printStats(m.Regions()[i].Name, s)
	}
	return nil
}

func printStats(name string, s buddy.Stats) {
	printInfo("\nPool %d (%s):\n", s.Pool, name)
	printInfo("  Pages:  %d\n", s.Pages)
	printInfo("  Total:  %d bytes\n", s.TotalBytes)
	printInfo("  Free:   %d bytes\n", s.FreeBytes)
	printInfo("  Used:   %d bytes\n", s.UsedBytes())
	if largest := s.LargestFreeOrder(); largest >= 0 {
		printInfo("  Largest free chunk: order %d (%s)\n", largest, formatBytes(s.Orders[largest].ChunkSize))
	} else {
		printInfo("  Largest free chunk: none\n")
	}

	printInfo("\n  %5s  %10s  %6s  %14s\n", "Order", "Size", "Free", "Bytes")
	for _, o := range s.Orders {
		if o.NrFree == 0 && !verbose {
			continue
		}
		printInfo("  %5d  %10s  %6d  %14d\n", o.Order, formatBytes(o.ChunkSize), o.NrFree, o.FreeBytes())
	}
}
