package zone

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeNesting(t *testing.T) {
	o := newTestOwner(t)
	z := o.Zone()

	g1 := NewScope(o, DeleteOnExit)
	g2 := NewScope(o, DontDeleteOnExit)
	assert.Equal(t, 2, g1.Nesting())
	assert.Equal(t, 2, z.ScopeNesting())
	z.New(100)

	g2.Exit()
	assert.Equal(t, 1, z.ScopeNesting())
	assert.Zero(t, z.Metrics().BulkDeletions, "inner scope must not delete")
	assert.Equal(t, alignUp(100), z.SizeInUse())

	g1.Exit()
	assert.Zero(t, z.ScopeNesting())
	assert.Equal(t, uint64(1), z.Metrics().BulkDeletions)
	assert.Zero(t, z.SizeInUse())
}

func TestScopeInnerDeleteOnExitDoesNotDelete(t *testing.T) {
	o := newTestOwner(t)
	z := o.Zone()

	outer := NewScope(o, DontDeleteOnExit)
	inner := NewScope(o, DeleteOnExit)
	assert.False(t, inner.ShouldDeleteOnExit())
	inner.Exit()
	outer.Exit()

	assert.Zero(t, z.Metrics().BulkDeletions)
}

func TestScopeDeleteOnExitUpgrade(t *testing.T) {
	o := newTestOwner(t)
	s := NewScope(o, DontDeleteOnExit)
	assert.False(t, s.ShouldDeleteOnExit())

	s.DeleteOnExit()
	assert.Equal(t, DeleteOnExit, s.Mode())
	assert.True(t, s.ShouldDeleteOnExit())

	s.Exit()
	assert.Equal(t, uint64(1), o.Zone().Metrics().BulkDeletions)
}

func TestScopeMisuse(t *testing.T) {
	t.Run("exit twice", func(t *testing.T) {
		o := newTestOwner(t)
		s := NewScope(o, DontDeleteOnExit)
		s.Exit()
		requirePanicsWith(t, ErrInvariantViolation, s.Exit)
		assert.Zero(t, o.Zone().ScopeNesting())
	})

	t.Run("out of order", func(t *testing.T) {
		o := newTestOwner(t)
		outer := NewScope(o, DeleteOnExit)
		inner := NewScope(o, DontDeleteOnExit)
		requirePanicsWith(t, ErrInvariantViolation, outer.Exit)
		assert.Equal(t, 2, o.Zone().ScopeNesting())

		inner.Exit()
		outer.Exit()
		assert.Zero(t, o.Zone().ScopeNesting())
	})
}

func TestWithScope(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		o := newTestOwner(t)
		errParse := errors.New("parse failed")
		err := o.WithScope(DeleteOnExit, func(z *Zone) error {
			z.New(64)
			assert.Equal(t, 1, z.ScopeNesting())
			return errParse
		})
		require.ErrorIs(t, err, errParse)
		assert.Zero(t, o.Zone().ScopeNesting())
		assert.Equal(t, uint64(1), o.Zone().Metrics().BulkDeletions)
	})

	t.Run("panic", func(t *testing.T) {
		o := newTestOwner(t)
		assert.Panics(t, func() {
			_ = o.WithScope(DeleteOnExit, func(z *Zone) error {
				z.New(64)
				panic("boom")
			})
		})
		assert.Zero(t, o.Zone().ScopeNesting())
		assert.Equal(t, uint64(1), o.Zone().Metrics().BulkDeletions)
	})

	t.Run("panic with abandoned inner scope", func(t *testing.T) {
		o := newTestOwner(t)
		assert.PanicsWithValue(t, "boom", func() {
			_ = o.WithScope(DeleteOnExit, func(z *Zone) error {
				z.New(64)
				NewScope(o, DontDeleteOnExit)
				panic("boom")
			})
		})
		assert.Zero(t, o.Zone().ScopeNesting())
		assert.Equal(t, uint64(1), o.Zone().Metrics().BulkDeletions)
		assert.Zero(t, o.Zone().SizeInUse())
	})

	t.Run("nested panic", func(t *testing.T) {
		o := newTestOwner(t)
		assert.PanicsWithValue(t, "boom", func() {
			_ = o.WithScope(DeleteOnExit, func(z *Zone) error {
				return o.WithScope(DontDeleteOnExit, func(z *Zone) error {
					NewScope(o, DeleteOnExit)
					panic("boom")
				})
			})
		})
		assert.Zero(t, o.Zone().ScopeNesting())
		assert.Equal(t, uint64(1), o.Zone().Metrics().BulkDeletions)
	})

	t.Run("nested", func(t *testing.T) {
		o := newTestOwner(t)
		err := o.WithScope(DeleteOnExit, func(z *Zone) error {
			b := z.New(8)
			copy(b, "outerval")
			err := o.WithScope(DeleteOnExit, func(z *Zone) error {
				z.New(8)
				return nil
			})
			assert.Equal(t, "outerval", string(b), "inner phase must not delete outer memory")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), o.Zone().Metrics().BulkDeletions)
	})
}

func TestScopeModeString(t *testing.T) {
	assert.Equal(t, "delete-on-exit", DeleteOnExit.String())
	assert.Equal(t, "dont-delete-on-exit", DontDeleteOnExit.String())
	assert.Equal(t, "unknown", ScopeMode(7).String())
}
