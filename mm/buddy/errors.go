package buddy

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/pagekit/internal/logger"
)

var (
	// ErrNoSpace indicates that no free chunk of the requested order or
	// larger exists. Orders outside [0, MaxOrder) always report it.
	ErrNoSpace = errors.New("buddy: no free chunk large enough")

	// ErrRegistryFull indicates the registry already holds MaxPools pools.
	ErrRegistryFull = errors.New("buddy: pool registry full")

	// ErrDuplicatePool indicates a pool id is already registered.
	ErrDuplicatePool = errors.New("buddy: duplicate pool id")

	// ErrPoolOverlap indicates a pool's address range overlaps a registered pool.
	ErrPoolOverlap = errors.New("buddy: pool address range overlaps")

	// ErrBadPoolID indicates a nil pool or the reserved id NoPool.
	ErrBadPoolID = errors.New("buddy: bad pool id")
)

// Metadata corruption causes. Every one of them is reported wrapped in a
// *CorruptionError.
var (
	// ErrCorrupt matches any *CorruptionError via errors.Is.
	ErrCorrupt = errors.New("buddy: metadata corruption")

	// ErrDoubleFree indicates a free of a page that is already free.
	ErrDoubleFree = errors.New("double free")

	// ErrNoPool indicates an address or pool id that resolves to no registered pool.
	ErrNoPool = errors.New("no pool owns address")

	// ErrNoPoolRef indicates a page with no pool back-reference.
	ErrNoPoolRef = errors.New("page has no pool back-reference")

	// ErrMissingBuddy indicates a split that found no sibling chunk.
	ErrMissingBuddy = errors.New("split sibling missing")

	// ErrForeignChunk indicates a chunk handed to a pool that did not issue it.
	ErrForeignChunk = errors.New("chunk belongs to another pool")

	// ErrNotHead indicates a handle that does not name the head page of a chunk.
	ErrNotHead = errors.New("page is not a chunk head")

	// ErrInvariant indicates a metadata invariant found broken by Verify or
	// by a consistency check on the allocation path.
	ErrInvariant = errors.New("invariant violated")
)

// CorruptionError reports a broken allocator invariant. It means the page
// metadata can no longer be trusted; callers must treat it as fatal.
type CorruptionError struct {
	Op    string // operation that detected the corruption
	Pool  PoolID
	Index int // page index, or -1 when not page-specific
	Err   error
}

func (e *CorruptionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("buddy: corruption in %s (pool %d): %v", e.Op, e.Pool, e.Err)
	}
	return fmt.Sprintf("buddy: corruption in %s (pool %d, page %d): %v", e.Op, e.Pool, e.Index, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// Is makes every CorruptionError match ErrCorrupt.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupt }

// newCorruption builds a CorruptionError with a stack trace attached to its
// cause and logs it.
func newCorruption(op string, pool PoolID, index int, cause error) *CorruptionError {
	err := &CorruptionError{
		Op:    op,
		Pool:  pool,
		Index: index,
		Err:   errors.WithStackDepth(cause, 1),
	}
	logger.Error("buddy metadata corruption", "op", op, "pool", pool, "page", index, "cause", cause)
	return err
}
