package arena

import (
	"fmt"
	"math"
)

// Layout describes how a region is carved up for one pool:
//
//	| descriptor table | alignment pad | usable pages |
//
// Offsets are relative to the start of the region.
type Layout struct {
	PageCount      int
	DescriptorSize int
	PageSize       int
	Align          int // alignment of the usable start address

	MetadataSize int // PageCount * DescriptorSize
	PadSize      int
	UsableOffset int
	UsableSize   int // PageCount * PageSize

	// Total is the number of bytes a region must span so that the usable
	// range can be aligned to Align regardless of where the region lands.
	Total int
}

// PlanLayout computes the worst-case layout for pageCount pages. The usable
// offset is only final once Place is called with the region's base address.
func PlanLayout(pageCount, descSize, pageSize, align int) (Layout, error) {
	if pageCount <= 0 || descSize <= 0 {
		return Layout{}, fmt.Errorf("%w: %d pages of %d-byte descriptors", ErrBadSize, pageCount, descSize)
	}
	if !isPow2(pageSize) || !isPow2(align) || align < pageSize {
		return Layout{}, fmt.Errorf("arena: page size %d and alignment %d must be powers of two with align >= page size", pageSize, align)
	}
	if pageCount > math.MaxInt/pageSize || pageCount > math.MaxInt/descSize {
		return Layout{}, fmt.Errorf("%w: %d pages overflow", ErrBadSize, pageCount)
	}

	l := Layout{
		PageCount:      pageCount,
		DescriptorSize: descSize,
		PageSize:       pageSize,
		Align:          align,
		MetadataSize:   pageCount * descSize,
		UsableSize:     pageCount * pageSize,
	}
	if l.MetadataSize > math.MaxInt-l.UsableSize-align {
		return Layout{}, fmt.Errorf("%w: %d pages overflow", ErrBadSize, pageCount)
	}
	l.Total = l.MetadataSize + (align - 1) + l.UsableSize
	l.UsableOffset = alignUp(l.MetadataSize, align)
	l.PadSize = l.UsableOffset - l.MetadataSize
	return l, nil
}

// Place fixes the usable offset for a region mapped at base.
func (l Layout) Place(base uintptr) Layout {
	metaEnd := base + uintptr(l.MetadataSize)
	usable := (metaEnd + uintptr(l.Align) - 1) &^ (uintptr(l.Align) - 1)
	l.UsableOffset = int(usable - base)
	l.PadSize = l.UsableOffset - l.MetadataSize
	return l
}

// String renders the layout on one line.
func (l Layout) String() string {
	return fmt.Sprintf("meta=[0x0,0x%x) pad=%d usable=[0x%x,0x%x) pages=%d",
		l.MetadataSize, l.PadSize, l.UsableOffset, l.UsableOffset+l.UsableSize, l.PageCount)
}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

func isPow2(v int) bool {
	return v > 0 && v&(v-1) == 0
}
