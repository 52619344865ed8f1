package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mm/buddy"
)

var (
	translateRegion   string
	translateAbsolute bool
	translateAlloc    []int
)

func init() {
	cmd := newTranslateCmd()
	cmd.Flags().StringVar(&translateRegion, "region", "", "Region the offset is relative to (default: first region)")
	cmd.Flags().BoolVar(&translateAbsolute, "absolute", false, "Treat the argument as an absolute address")
	cmd.Flags().IntSliceVar(&translateAlloc, "alloc", nil, "Allocate chunks of these orders before translating")
	rootCmd.AddCommand(cmd)
}

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <offset>",
		Short: "Translate an address to its pool, page and chunk",
		Long: `The translate command boots the machine and resolves an address to the
pool that contains it, the page descriptor for that address, and the buddy
of the chunk the page currently belongs to.

The argument is a byte offset into a region's usable range (decimal or 0x
hex). With --absolute it is a full address.

Example:
  pagectl translate 0x3000
  pagectl translate 0x3000 --alloc 2,0
  pagectl translate 8192 --region region1 --regions 2 --pages 64`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(args)
		},
	}
	return cmd
}

// Translation is the JSON form of a resolved address.
type Translation struct {
	Address      uint64 `json:"address"`
	Pool         uint16 `json:"pool"`
	Region       string `json:"region"`
	Page         int    `json:"page"`
	PageAddress  uint64 `json:"page_address"`
	Order        int    `json:"order"`
	Allocated    bool   `json:"allocated"`
	BuddyAddress uint64 `json:"buddy_address"`
	BuddyInPool  bool   `json:"buddy_in_pool"`
}

func runTranslate(args []string) (err error) {
	value, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", args[0], err)
	}

	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer closeMachine(m, &err)

	if _, err := allocateOrders(m, translateAlloc); err != nil {
		return err
	}

	addr := value
	if !translateAbsolute {
		r := m.Regions()[0]
		if translateRegion != "" {
			if r = m.Region(translateRegion); r == nil {
				return fmt.Errorf("no region named %q", translateRegion)
			}
		}
		if value >= r.Pool.Size() {
			return fmt.Errorf("offset %#x is outside region %s (%d bytes)", value, r.Name, r.Pool.Size())
		}
		addr = r.Pool.Start() + value
	}

	reg := m.Registry()
	c, err := reg.AddressToChunk(addr)
	if err != nil {
		return fmt.Errorf("failed to translate %#x: %w", addr, err)
	}
	pageAddr, err := reg.ChunkToAddress(c)
	if err != nil {
		return err
	}

	t := Translation{
		Address:     addr,
		Pool:        uint16(c.Pool().ID()),
		Page:        c.Index(),
		PageAddress: pageAddr,
		Order:       c.Order(),
		Allocated:   c.Allocated(),
	}
	for _, r := range m.Regions() {
		if r.Pool == c.Pool() {
			t.Region = r.Name
		}
	}
	t.BuddyAddress, t.BuddyInPool = buddyOfPage(c)

	if wantJSON() {
		return printJSON(t)
	}

	printInfo("\nAddress %#x:\n", t.Address)
	printInfo("  Pool:      %d (%s)\n", t.Pool, t.Region)
	printInfo("  Page:      %d at %#x\n", t.Page, t.PageAddress)
	printInfo("  Order:     %d\n", t.Order)
	printInfo("  Allocated: %t\n", t.Allocated)
	if t.BuddyInPool {
		printInfo("  Buddy:     %#x\n", t.BuddyAddress)
	} else {
		printInfo("  Buddy:     %#x (outside pool)\n", t.BuddyAddress)
	}
	return nil
}

// buddyOfPage returns the address of the buddy of the chunk containing c's
// page. Pools whose start is not aligned to the largest chunk pair buddies
// by page index, so the address form only applies to aligned pools.
func buddyOfPage(c buddy.Chunk) (uint64, bool) {
	p := c.Pool()
	head := c.Index() &^ (c.Pages() - 1)
	if p.Start()%buddy.MaxChunkSize == 0 {
		addr := buddy.BuddyAddress(p.Start()+uint64(head)*buddy.PageSize, c.Order())
		return addr, p.Contains(addr)
	}
	idx := head ^ c.Pages()
	return p.Start() + uint64(idx)*buddy.PageSize, idx < p.PageCount()
}
