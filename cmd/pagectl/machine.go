package main

import (
	"errors"
	"fmt"

	"github.com/joshuapare/pagekit/mm/buddy"
	"github.com/joshuapare/pagekit/mm/physmem"
)

const defaultPages = 2 * buddy.MaxChunkPages

// machineConfig builds the machine description from --config, or from
// --pages and --regions when no file is given.
func machineConfig() (physmem.Config, error) {
	if configPath != "" {
		printVerbose("Loading config: %s\n", configPath)
		return physmem.LoadConfig(configPath)
	}
	if regionsFlag <= 0 {
		return physmem.Config{}, fmt.Errorf("--regions must be positive, got %d", regionsFlag)
	}
	cfg := physmem.Config{}
	for range regionsFlag {
		cfg.Regions = append(cfg.Regions, physmem.RegionConfig{Pages: pagesFlag})
	}
	return cfg, nil
}

// bootMachine boots the configured machine. The caller must Close it.
func bootMachine() (*physmem.Machine, error) {
	cfg, err := machineConfig()
	if err != nil {
		return nil, err
	}
	m, err := physmem.Boot(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to boot machine: %w", err)
	}
	for _, r := range m.Regions() {
		printVerbose("Booted region %s: %d pages at %#x\n", r.Name, r.Pool.PageCount(), r.Pool.Start())
	}
	return m, nil
}

// closeMachine releases m, folding a release failure into err.
func closeMachine(m *physmem.Machine, err *error) {
	if cerr := m.Close(); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("failed to release machine: %w", cerr))
	}
}

// allocateOrders allocates one chunk per entry of orders, in sequence,
// from the first region with space.
func allocateOrders(m *physmem.Machine, orders []int) ([]buddy.Chunk, error) {
	chunks := make([]buddy.Chunk, 0, len(orders))
	for _, order := range orders {
		c, err := m.Allocate(order)
		if err != nil {
			return chunks, fmt.Errorf("allocate order %d: %w", order, err)
		}
		printVerbose("Allocated order %d chunk at page %d of pool %d\n", order, c.Index(), c.Pool().ID())
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return printer.Sprintf("%d GiB", n>>30)
	case n >= 1<<20 && n%(1<<20) == 0:
		return printer.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return printer.Sprintf("%d KiB", n>>10)
	default:
		return printer.Sprintf("%d B", n)
	}
}
