package zone

import (
	"flag"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	SegmentAllocatorHeap = "heap"
	SegmentAllocatorMmap = "mmap"
)

// Config configures the zone of an Owner. Segment size limits are fixed
// design parameters and are not configurable.
type Config struct {
	// ExcessLimit is the number of segment bytes above which the zone
	// reports excess allocation.
	ExcessLimit ByteSize `yaml:"excess_limit"`
	// SegmentAllocator selects where segments come from: "heap" or "mmap".
	SegmentAllocator string `yaml:"segment_allocator"`
}

// DefaultConfig returns the configuration RegisterFlags would produce.
func DefaultConfig() Config {
	return Config{
		ExcessLimit:      DefaultExcessLimit,
		SegmentAllocator: SegmentAllocatorHeap,
	}
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.ExcessLimit = DefaultExcessLimit
	f.Var(&cfg.ExcessLimit, "zone.excess-limit", "Segment bytes above which a zone reports excess allocation, e.g. 256MiB.")
	f.StringVar(&cfg.SegmentAllocator, "zone.segment-allocator", SegmentAllocatorHeap, "Where zone segments come from: heap or mmap.")
}

func (cfg *Config) Validate() error {
	switch cfg.SegmentAllocator {
	case SegmentAllocatorHeap, SegmentAllocatorMmap:
	default:
		return errors.Errorf("unknown segment allocator %q", cfg.SegmentAllocator)
	}
	if cfg.ExcessLimit == 0 {
		return errors.New("excess limit must be positive")
	}
	if uint64(cfg.ExcessLimit) > uint64(maxRequestSize) {
		return errors.Errorf("excess limit %s is too large", cfg.ExcessLimit)
	}
	return nil
}

func (cfg *Config) segmentAllocator() SegmentAllocator {
	if cfg.SegmentAllocator == SegmentAllocatorMmap {
		return MmapAllocator{}
	}
	return HeapAllocator{}
}

// ByteSize is a byte count that reads and prints human readable sizes
// such as "64KiB" or "1.5 GB". It can be used as a flag and in YAML.
type ByteSize uint64

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

func (b *ByteSize) Set(s string) error {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return errors.Wrapf(err, "invalid byte size %q", s)
	}
	*b = ByteSize(v)
	return nil
}

func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return b.Set(s)
}

func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}
