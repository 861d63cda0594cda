//go:build unix

package zone

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MmapAllocator maps every segment anonymously from the operating system
// and unmaps it on release, so memory goes back to the OS immediately after
// DeleteAll instead of waiting for the garbage collector.
//
// Segments live outside the Go heap: values stored in them must not be the
// only reference to Go heap memory.
type MmapAllocator struct{}

func (MmapAllocator) Allocate(size int) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, &OutOfMemoryError{Location: "MmapAllocator.Allocate", Size: size, Err: err}
	}
	return buf, nil
}

func (MmapAllocator) Free(buf []byte) error {
	return errors.Wrap(unix.Munmap(buf), "munmap segment")
}
