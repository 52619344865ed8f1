package buddy_test

import (
	"errors"
	"fmt"

	"github.com/joshuapare/pagekit/mm/buddy"
)

func Example() {
	const pages = 16
	reg := buddy.NewRegistry()
	pool, err := reg.NewPool(make([]buddy.Page, pages), 0x4000_0000, pages)
	if err != nil {
		panic(err)
	}

	c, err := pool.Allocate(2)
	if err != nil {
		panic(err)
	}
	addr, err := reg.ChunkToAddress(c)
	if err != nil {
		panic(err)
	}
	fmt.Printf("pool %d: %d pages at %#x, %d bytes free\n", pool.ID(), c.Pages(), addr, pool.FreeBytes())

	_, err = pool.Allocate(4)
	fmt.Println(errors.Is(err, buddy.ErrNoSpace))

	if err := pool.Free(c); err != nil {
		panic(err)
	}
	fmt.Println(pool.FreeBytes())

	err = pool.Free(c)
	fmt.Println(errors.Is(err, buddy.ErrDoubleFree), errors.Is(err, buddy.ErrCorrupt))
	// Output:
	// pool 1: 4 pages at 0x40000000, 49152 bytes free
	// true
	// 65536
	// true true
}
