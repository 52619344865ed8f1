package buddy

// freeArea is the free list for one order: a doubly linked list threaded
// through the prev/next fields of each free chunk's head page, plus the
// number of chunks on it.
type freeArea struct {
	head   int32
	nrFree uint64
}

// insertChunk pushes the chunk headed at idx onto the list for the head
// page's current order.
func (p *Pool) insertChunk(idx int32) {
	pg := &p.pages[idx]
	area := &p.areas[pg.order]

	pg.prev = nilLink
	pg.next = area.head
	if area.head != nilLink {
		p.pages[area.head].prev = idx
	}
	area.head = idx
	area.nrFree++
}

// removeChunk unlinks the chunk headed at idx from the list for the head
// page's current order. The order field must not have changed since the
// matching insertChunk.
func (p *Pool) removeChunk(idx int32) {
	pg := &p.pages[idx]
	area := &p.areas[pg.order]

	if pg.prev != nilLink {
		p.pages[pg.prev].next = pg.next
	} else {
		area.head = pg.next
	}
	if pg.next != nilLink {
		p.pages[pg.next].prev = pg.prev
	}
	pg.prev, pg.next = nilLink, nilLink
	area.nrFree--
}

// freeHeads returns the head indices on the list for order, front first.
func (p *Pool) freeHeads(order int) []int {
	var heads []int
	for idx := p.areas[order].head; idx != nilLink; idx = p.pages[idx].next {
		heads = append(heads, int(idx))
		if len(heads) > len(p.pages) {
			// Cycle; Verify reports it.
			break
		}
	}
	return heads
}
