package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mm/buddy"
	"github.com/joshuapare/pagekit/mm/physmem"
)

var (
	exerciseScenario string
	exerciseSeed     uint64
	exerciseOps      int
	exerciseMaxOrder int
	exerciseVerify   int
)

func init() {
	cmd := newExerciseCmd()
	cmd.Flags().StringVar(&exerciseScenario, "scenario", "all",
		"Scenario to run: roundtrip, exhaust, coalesce, random or all")
	cmd.Flags().Uint64Var(&exerciseSeed, "seed", 1, "Seed for the random workload")
	cmd.Flags().IntVar(&exerciseOps, "ops", 2000, "Operations in the random workload")
	cmd.Flags().IntVar(&exerciseMaxOrder, "max-order", 6, "Largest order the random workload requests")
	cmd.Flags().IntVar(&exerciseVerify, "verify-every", 1, "Verify pool metadata every N operations (0 disables)")
	rootCmd.AddCommand(cmd)
}

func newExerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Run allocation workloads and verify the allocator",
		Long: `The exercise command boots the machine and runs allocation scenarios
against every pool. After each step the pool's metadata is verified, every
allocated chunk's memory is stamped and checked before it is freed, and
the free-list statistics must return to their boot-time values once all
chunks are released.

Scenarios:
  roundtrip  allocate and free one chunk of every order, then hold them all
  exhaust    allocate every page as order 0, check the next request fails
  coalesce   free buddy pairs in both orders and check they merge
  random     seeded mix of allocations and frees

Example:
  pagectl exercise
  pagectl exercise --scenario random --seed 42 --ops 10000
  pagectl exercise --regions 3 --pages 5000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise()
		},
	}
	return cmd
}

// ScenarioResult is the outcome of one scenario against one pool.
type ScenarioResult struct {
	Scenario string        `json:"scenario"`
	Region   string        `json:"region"`
	Pool     uint16        `json:"pool"`
	Allocs   int           `json:"allocs"`
	Frees    int           `json:"frees"`
	Refused  int           `json:"refused"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

type scenario struct {
	name string
	run  func(w *workload) error
}

var scenarios = []scenario{
	{"roundtrip", runRoundTrip},
	{"exhaust", runExhaust},
	{"coalesce", runCoalesce},
	{"random", runRandom},
}

func selectScenarios(name string) ([]scenario, error) {
	if name == "all" {
		return scenarios, nil
	}
	for _, s := range scenarios {
		if s.name == name {
			return []scenario{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}

func runExercise() (err error) {
	selected, err := selectScenarios(exerciseScenario)
	if err != nil {
		return err
	}

	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer closeMachine(m, &err)

	var results []ScenarioResult
	failed := 0
	for _, r := range m.Regions() {
		for _, s := range selected {
			res := runScenario(m, r, s)
			if res.Error != "" {
				failed++
			}
			results = append(results, res)
			if !wantJSON() {
				printResult(res)
			}
		}
	}

	if wantJSON() {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		printInfo("\n%d scenario(s) run, %d failed\n", len(results), failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

func runScenario(m *physmem.Machine, r *physmem.Region, s scenario) ScenarioResult {
	w := &workload{m: m, pool: r.Pool, baseline: r.Pool.Stats()}
	start := time.Now()
	err := s.run(w)
	if err == nil {
		err = w.releaseAll()
	}
	if err == nil {
		err = w.checkRestored()
	}
	res := ScenarioResult{
		Scenario: s.name,
		Region:   r.Name,
		Pool:     uint16(r.Pool.ID()),
		Allocs:   w.allocs,
		Frees:    w.frees,
		Refused:  w.refused,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Error = err.Error()
		// Leave the pool usable for the next scenario where possible.
		_ = w.releaseAll()
	}
	return res
}

func printResult(r ScenarioResult) {
	status := "ok"
	if r.Error != "" {
		status = "FAIL"
	}
	printInfo("%-4s  %-9s  %-8s  allocs=%d frees=%d refused=%d  %v\n",
		status, r.Scenario, r.Region, r.Allocs, r.Frees, r.Refused, r.Duration.Round(time.Microsecond))
	if r.Error != "" {
		printInfo("      %s\n", r.Error)
	}
}

// held is an allocated chunk and the byte its memory was stamped with.
type held struct {
	c     buddy.Chunk
	stamp byte
}

// workload drives one pool and tracks what it holds.
type workload struct {
	m        *physmem.Machine
	pool     *buddy.Pool
	baseline buddy.Stats
	held     []held

	allocs  int
	frees   int
	refused int
}

// verify checks the pool's metadata every exerciseVerify operations.
func (w *workload) verify() error {
	if exerciseVerify <= 0 || (w.allocs+w.frees)%exerciseVerify != 0 {
		return nil
	}
	return w.pool.Verify()
}

// alloc allocates a chunk of order, stamps its memory and verifies the pool.
// A refusal is reported as buddy.ErrNoSpace and counted.
func (w *workload) alloc(order int) (buddy.Chunk, error) {
	before := w.pool.FreeBytes()
	c, err := w.pool.Allocate(order)
	if errors.Is(err, buddy.ErrNoSpace) {
		w.refused++
		if after := w.pool.FreeBytes(); after != before {
			return c, fmt.Errorf("refused order %d changed free bytes %d -> %d", order, before, after)
		}
		return c, err
	}
	if err != nil {
		return c, err
	}
	w.allocs++

	if c.Order() != order || !c.Allocated() {
		return c, fmt.Errorf("order %d allocation returned order %d allocated=%t", order, c.Order(), c.Allocated())
	}
	if got, want := before-w.pool.FreeBytes(), c.Size(); got != want {
		return c, fmt.Errorf("order %d allocation took %d bytes, want %d", order, got, want)
	}

	mem, err := w.m.Bytes(c)
	if err != nil {
		return c, err
	}
	stamp := byte(c.Index()*31 + order + 1)
	for i := range mem {
		mem[i] = stamp
	}
	w.held = append(w.held, held{c: c, stamp: stamp})
	return c, w.verify()
}

// free checks the chunk's stamp, frees it and verifies the pool.
func (w *workload) free(i int) error {
	h := w.held[i]
	w.held = slices.Delete(w.held, i, i+1)

	mem, err := w.m.Bytes(h.c)
	if err != nil {
		return err
	}
	if mem[0] != h.stamp || mem[len(mem)-1] != h.stamp {
		return fmt.Errorf("chunk at page %d overwritten: stamp %#x, found %#x/%#x",
			h.c.Index(), h.stamp, mem[0], mem[len(mem)-1])
	}

	before := w.pool.FreeBytes()
	size := h.c.Size()
	if err := w.m.Free(h.c); err != nil {
		return err
	}
	w.frees++
	if got := w.pool.FreeBytes() - before; got != size {
		return fmt.Errorf("free of page %d returned %d bytes, want %d", h.c.Index(), got, size)
	}
	return w.verify()
}

// releaseAll frees every held chunk, oldest first.
func (w *workload) releaseAll() error {
	for len(w.held) > 0 {
		if err := w.free(0); err != nil {
			return err
		}
	}
	return nil
}

func (w *workload) checkRestored() error {
	if err := w.pool.Verify(); err != nil {
		return err
	}
	if got := w.pool.Stats(); got != w.baseline {
		return fmt.Errorf("free lists not restored:\n%s\nwant:\n%s", got, w.baseline)
	}
	return nil
}

func runRoundTrip(w *workload) error {
	largest := w.baseline.LargestFreeOrder()

	oneAtATime := func(order int) error {
		_, err := w.alloc(order)
		if order > largest {
			if !errors.Is(err, buddy.ErrNoSpace) {
				return fmt.Errorf("order %d above largest free order %d: got %v", order, largest, err)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.free(len(w.held) - 1); err != nil {
			return err
		}
		return w.checkRestored()
	}

	for order := range buddy.MaxOrder {
		if err := oneAtATime(order); err != nil {
			return err
		}
	}
	for order := buddy.MaxOrder - 1; order >= 0; order-- {
		if err := oneAtATime(order); err != nil {
			return err
		}
	}

	// Hold one of every order that fits at once.
	for order := range largest + 1 {
		if _, err := w.alloc(order); err != nil && !errors.Is(err, buddy.ErrNoSpace) {
			return err
		}
	}
	for _, order := range []int{buddy.MaxOrder, buddy.MaxOrder + 1, -1, math.MaxInt} {
		if _, err := w.alloc(order); !errors.Is(err, buddy.ErrNoSpace) {
			return fmt.Errorf("invalid order %d: got %v, want %v", order, err, buddy.ErrNoSpace)
		}
	}
	return nil
}

func runExhaust(w *workload) error {
	pages := w.pool.PageCount()
	for range pages {
		if _, err := w.alloc(0); err != nil {
			return fmt.Errorf("allocation %d of %d: %w", w.allocs+1, pages, err)
		}
	}
	if w.pool.FreeBytes() != 0 {
		return fmt.Errorf("%d bytes free after allocating every page", w.pool.FreeBytes())
	}
	if _, err := w.alloc(0); !errors.Is(err, buddy.ErrNoSpace) {
		return fmt.Errorf("allocation %d of %d: got %v, want %v", pages+1, pages, err, buddy.ErrNoSpace)
	}
	return nil
}

func runCoalesce(w *workload) error {
	for order := range min(w.baseline.LargestFreeOrder(), buddy.MaxOrder-1) {
		// A free chunk of this order would be handed out before the
		// parent's halves.
		if w.baseline.Orders[order].NrFree > 0 {
			continue
		}
		parent, err := w.alloc(order + 1)
		if err != nil {
			return err
		}
		head, pages := parent.Index(), parent.Pages()
		if err := w.free(len(w.held) - 1); err != nil {
			return err
		}

		// With no free chunk of this order, the parent's halves are the
		// next two allocations.
		for _, lowFirst := range []bool{true, false} {
			a, err := w.alloc(order)
			if err != nil {
				return err
			}
			b, err := w.alloc(order)
			if err != nil {
				return err
			}
			if a.Index()^b.Index() != a.Pages() {
				return fmt.Errorf("order %d chunks at pages %d and %d are not buddies", order, a.Index(), b.Index())
			}
			if a.Index()&^(pages-1) != head || b.Index()&^(pages-1) != head {
				return fmt.Errorf("order %d chunks at pages %d and %d are not inside parent at page %d",
					order, a.Index(), b.Index(), head)
			}

			first, second := len(w.held)-2, len(w.held)-2
			if !lowFirst {
				first = len(w.held) - 1
			}
			if err := w.free(first); err != nil {
				return err
			}
			if err := w.free(second); err != nil {
				return err
			}

			merged := w.pool.ChunkAt(head)
			if merged.Order() < order+1 || merged.Allocated() {
				return fmt.Errorf("order %d buddies at page %d did not merge: head order %d allocated=%t",
					order, head, merged.Order(), merged.Allocated())
			}
			if err := w.checkRestored(); err != nil {
				return err
			}
		}
	}
	return nil
}

func runRandom(w *workload) error {
	rng := rand.New(rand.NewPCG(exerciseSeed, exerciseSeed^0x9e3779b97f4a7c15))
	maxOrder := min(max(exerciseMaxOrder, 0), buddy.MaxOrder-1)

	for range exerciseOps {
		if len(w.held) > 0 && rng.IntN(3) == 0 {
			if err := w.free(rng.IntN(len(w.held))); err != nil {
				return err
			}
			continue
		}
		order := rng.IntN(maxOrder + 1)
		if _, err := w.alloc(order); err != nil {
			if !errors.Is(err, buddy.ErrNoSpace) {
				return err
			}
			if largest := w.pool.Stats().LargestFreeOrder(); largest >= order {
				return fmt.Errorf("order %d refused with a free order %d chunk", order, largest)
			}
		}
	}
	return nil
}
