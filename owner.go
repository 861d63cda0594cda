package zone

import (
	"strconv"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

var ownerSeq = atomic.NewUint64(0)

// Owner is the execution context a zone belongs to. Each owner has exactly
// one zone, and scopes are opened against the owner.
type Owner struct {
	name      string
	cfg       Config
	logger    log.Logger
	allocator SegmentAllocator
	zone      *Zone
}

// Option customizes an Owner.
type Option func(*Owner)

// WithName sets the name the owner's metrics and logs are labelled with.
// Owners sharing a registerer must have distinct names.
func WithName(name string) Option {
	return func(o *Owner) {
		o.name = name
	}
}

// WithSegmentAllocator overrides the allocator chosen by the configuration.
func WithSegmentAllocator(a SegmentAllocator) Option {
	return func(o *Owner) {
		o.allocator = a
	}
}

// NewOwner creates an owner and its zone. The logger may be nil; reg may be
// nil to skip metric registration. Owners without WithName are named
// "owner-1", "owner-2" and so on.
func NewOwner(cfg Config, logger log.Logger, reg prometheus.Registerer, opts ...Option) (*Owner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid zone config")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	o := &Owner{
		name:      "owner-" + strconv.FormatUint(ownerSeq.Inc(), 10),
		cfg:       cfg,
		logger:    logger,
		allocator: cfg.segmentAllocator(),
	}
	for _, opt := range opts {
		opt(o)
	}
	m, err := newMetrics(reg, o.name)
	if err != nil {
		return nil, err
	}
	o.zone = newZone(o, o.allocator, int(cfg.ExcessLimit), log.With(logger, "component", "zone", "owner", o.name), m)
	return o, nil
}

// Name returns the label the owner's metrics and logs carry.
func (o *Owner) Name() string { return o.name }

// Zone returns the owner's zone.
func (o *Owner) Zone() *Zone { return o.zone }

func (o *Owner) Logger() log.Logger { return o.logger }

func (o *Owner) Config() Config { return o.cfg }

// WithScope runs fn inside a scope of the given mode. The scope is exited
// on every path out of fn, including errors and panics. A panic also
// unwinds scopes fn opened and left behind, and is then propagated
// unchanged.
func (o *Owner) WithScope(mode ScopeMode, fn func(z *Zone) error) error {
	s := NewScope(o, mode)
	defer func() {
		if r := recover(); r != nil {
			s.unwind()
			panic(r)
		}
		s.Exit()
	}()
	return fn(o.zone)
}

// Close releases every segment of the owner's zone, the kept one included.
// It fails if scopes are still open.
func (o *Owner) Close() error {
	if n := o.zone.ScopeNesting(); n != 0 {
		return errors.Errorf("closing zone owner with %d open scopes", n)
	}
	o.zone.DeleteAll()
	o.zone.DeleteKeptSegment()
	return nil
}
