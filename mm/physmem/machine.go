// Package physmem stands in for boot-time memory discovery: it reserves one
// anonymous arena per configured region, lays each arena out as a page
// descriptor table followed by page-aligned usable memory, and hands the
// result to the buddy allocator.
package physmem

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/pagekit/internal/arena"
	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/mm/buddy"
)

// Region is one booted memory region and the pool that manages it.
type Region struct {
	Name   string
	Layout arena.Layout
	Pool   *buddy.Pool

	mem *arena.Region
}

// MetadataAddr returns the address of the page descriptor table.
func (r *Region) MetadataAddr() uintptr { return r.mem.Addr() }

// Machine owns every booted region and the registry that translates
// addresses across them.
type Machine struct {
	reg     *buddy.Registry
	regions []*Region
	closed  bool
}

// Boot maps and initializes every region in cfg.
func Boot(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{reg: buddy.NewRegistry()}
	for _, rc := range cfg.Regions {
		r, err := bootRegion(m.reg, rc, cfg.alignBytes())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("physmem: boot region %q: %w", rc.Name, err), m.Close())
		}
		m.regions = append(m.regions, r)
	}
	return m, nil
}

func bootRegion(reg *buddy.Registry, rc RegionConfig, align int) (*Region, error) {
	plan, err := arena.PlanLayout(rc.Pages, buddy.DescriptorSize, buddy.PageSize, align)
	if err != nil {
		return nil, err
	}
	mem, err := arena.Map(plan.Total)
	if err != nil {
		return nil, err
	}
	layout := plan.Place(mem.Addr())

	metaBytes, err := mem.Slice(0, layout.MetadataSize)
	if err != nil {
		return nil, errors.Join(err, mem.Release())
	}
	// Page holds no Go pointers, so the descriptor table may live in the
	// arena itself, directly in front of the pages it describes.
	metadata := unsafe.Slice((*buddy.Page)(unsafe.Pointer(unsafe.SliceData(metaBytes))), rc.Pages)

	start := uint64(mem.Addr()) + uint64(layout.UsableOffset)
	pool, err := reg.NewPool(metadata, start, rc.Pages)
	if err != nil {
		return nil, errors.Join(err, mem.Release())
	}

	logger.Info("region booted",
		"region", rc.Name,
		"pool", pool.ID(),
		"pages", rc.Pages,
		"start", fmt.Sprintf("0x%x", start),
		"pad", layout.PadSize,
	)
	return &Region{Name: rc.Name, Layout: layout, Pool: pool, mem: mem}, nil
}

// Registry returns the registry holding every region's pool.
func (m *Machine) Registry() *buddy.Registry { return m.reg }

// Regions returns the booted regions in config order.
func (m *Machine) Regions() []*Region { return m.regions }

// Region returns the region with the given name, or nil.
func (m *Machine) Region(name string) *Region {
	for _, r := range m.regions {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// FreeBytes returns the free bytes summed across all regions.
func (m *Machine) FreeBytes() uint64 {
	var total uint64
	for _, r := range m.regions {
		total += r.Pool.FreeBytes()
	}
	return total
}

// Allocate takes a chunk of the given order from the first region that has
// one.
func (m *Machine) Allocate(order int) (buddy.Chunk, error) {
	if m.closed {
		return buddy.Chunk{}, ErrClosed
	}
	for _, r := range m.regions {
		c, err := r.Pool.Allocate(order)
		if errors.Is(err, buddy.ErrNoSpace) {
			continue
		}
		return c, err
	}
	return buddy.Chunk{}, buddy.ErrNoSpace
}

// Free returns c to its pool and drops the contents of its pages.
func (m *Machine) Free(c buddy.Chunk) error {
	if c.IsNil() {
		return nil
	}
	if m.closed {
		return ErrClosed
	}
	r, off, err := m.locate(c)
	if err != nil {
		return err
	}
	size := int(c.Size())
	if err := c.Pool().Free(c); err != nil {
		return err
	}
	return r.mem.Discard(off, size)
}

// Bytes returns the memory backing an allocated chunk. c must name the
// chunk's head page.
func (m *Machine) Bytes(c buddy.Chunk) ([]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if c.IsNil() || !c.Allocated() {
		return nil, ErrNotAllocated
	}
	if !c.IsHead() {
		return nil, fmt.Errorf("physmem: page %d of %v: %w", c.Index(), c.Pool(), buddy.ErrNotHead)
	}
	r, off, err := m.locate(c)
	if err != nil {
		return nil, err
	}
	return r.mem.Slice(off, int(c.Size()))
}

// locate returns the region owning c and c's offset within that region's
// arena.
func (m *Machine) locate(c buddy.Chunk) (*Region, int, error) {
	addr, err := m.reg.ChunkToAddress(c)
	if err != nil {
		return nil, 0, err
	}
	for _, r := range m.regions {
		if r.Pool == c.Pool() {
			return r, int(addr - uint64(r.mem.Addr())), nil
		}
	}
	return nil, 0, fmt.Errorf("physmem: %v has no region", c.Pool())
}

// Close releases every arena. Pools and chunks must not be used afterwards.
func (m *Machine) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	for _, r := range m.regions {
		errs = append(errs, r.mem.Release())
	}
	return errors.Join(errs...)
}
