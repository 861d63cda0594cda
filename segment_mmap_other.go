//go:build !unix

package zone

import "github.com/pkg/errors"

// MmapAllocator is only available on unix platforms.
type MmapAllocator struct{}

func (MmapAllocator) Allocate(size int) ([]byte, error) {
	return nil, &OutOfMemoryError{
		Location: "MmapAllocator.Allocate",
		Size:     size,
		Err:      errors.New("mmap segments are not supported on this platform"),
	}
}

func (MmapAllocator) Free([]byte) error { return nil }
