package zone

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	// ErrOutOfMemory is reported when a segment allocator cannot satisfy a
	// request. It is never returned from zone operations; it reaches the
	// process-wide out-of-memory handler instead.
	ErrOutOfMemory = errors.New("zone: out of memory")

	// ErrInvariantViolation is raised (as a panic) on contract violations
	// such as negative sizes or allocating under AssertNoAllocation.
	ErrInvariantViolation = errors.New("zone: invariant violation")

	// ErrForbiddenOperation is raised (as a panic) when a zone object is
	// released individually.
	ErrForbiddenOperation = errors.New("zone: objects cannot be released individually")
)

// OutOfMemoryError describes a failed segment allocation.
type OutOfMemoryError struct {
	Location string
	Size     int
	Err      error
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("%s: cannot allocate %d byte segment: %v", e.Location, e.Size, e.Err)
}

func (e *OutOfMemoryError) Unwrap() error { return e.Err }

func (e *OutOfMemoryError) Is(target error) bool { return target == ErrOutOfMemory }

// OutOfMemoryHandler is invoked with the failure before the zone gives up.
// Handlers are expected not to return; if one does, the zone panics with
// the error anyway.
type OutOfMemoryHandler func(err *OutOfMemoryError)

var oomHandler atomic.Value

// SetOutOfMemoryHandler installs the process-wide out-of-memory handler and
// returns the previous one. A nil handler restores the default, which panics.
func SetOutOfMemoryHandler(h OutOfMemoryHandler) OutOfMemoryHandler {
	prev, _ := oomHandler.Swap(h).(OutOfMemoryHandler)
	return prev
}

func fatalOutOfMemory(location string, size int, cause error) {
	err := &OutOfMemoryError{Location: location, Size: size, Err: cause}
	if h, _ := oomHandler.Load().(OutOfMemoryHandler); h != nil {
		h(err)
	}
	panic(err)
}

func invariantViolation(format string, args ...interface{}) {
	panic(errors.Wrapf(ErrInvariantViolation, format, args...))
}

func forbiddenOperation(what string) {
	panic(errors.Wrap(ErrForbiddenOperation, what))
}
