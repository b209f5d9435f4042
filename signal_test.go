package cortex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	t.Run("fresh signal is empty", func(t *testing.T) {
		s := NewSignal()

		assert.True(t, IsUndef(s.Value()))
		assert.False(t, s.IsComputed())
		assert.False(t, s.IsPending())
		assert.Equal(t, 0, s.DependencyCount())
		assert.Equal(t, 0, s.ListenerCount())
	})

	t.Run("initial value marks computed", func(t *testing.T) {
		s := NewSignal(WithValue(42))

		assert.Equal(t, 42, s.Value())
		assert.True(t, s.IsComputed())
		assert.False(t, s.IsPending())
	})

	t.Run("set and get round trip", func(t *testing.T) {
		s := NewSignal()
		require.NoError(t, s.SetValue("hello"))

		assert.Equal(t, "hello", s.Value())
		assert.True(t, s.IsComputed())
	})

	t.Run("metadata", func(t *testing.T) {
		s := NewSignal(WithMetadata("edge"))
		assert.Equal(t, "edge", s.Metadata())

		s.SetMetadata(7)
		assert.Equal(t, 7, s.Metadata())

		assert.True(t, IsUndef(NewSignal().Metadata()))
	})
}

func TestSignalVariant(t *testing.T) {
	t.Run("set once from unspecified", func(t *testing.T) {
		s := NewSignal()
		require.NoError(t, s.SetVariant(MessageToFactor))
		assert.Equal(t, MessageToFactor, s.Variant())
	})

	t.Run("same tag again is a no-op", func(t *testing.T) {
		s := NewSignal(WithVariant(JointMarginal))
		assert.NoError(t, s.SetVariant(JointMarginal))
	})

	t.Run("different tag is rejected", func(t *testing.T) {
		s := NewSignal(WithVariant(IndividualMarginal))

		err := s.SetVariant(MessageToVariable)
		var mismatch *VariantMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "IndividualMarginal", mismatch.Expected)
		assert.Equal(t, "MessageToVariable", mismatch.Actual)
		assert.Equal(t, IndividualMarginal, s.Variant())
	})
}

func TestTypedSignal(t *testing.T) {
	t.Run("pins the value type", func(t *testing.T) {
		s := NewTypedSignal(1.5)
		require.NoError(t, s.SetValue(2.5))

		err := s.SetValue("nope")
		var mismatch *VariantMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 2.5, s.Value())
	})

	t.Run("rejects mixing incompatible typed signals", func(t *testing.T) {
		a := NewTypedSignal(1.5)
		b := NewTypedSignal("text")

		_, err := a.AddDependency(b)
		var mismatch *VariantMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 0, a.DependencyCount())
		assert.Equal(t, 0, b.ListenerCount())
	})

	t.Run("untyped peers are fine", func(t *testing.T) {
		a := NewTypedSignal(1.5)
		b := NewSignal(WithValue("text"))

		_, err := a.AddDependency(b)
		assert.NoError(t, err)
	})
}

func TestAddDependency(t *testing.T) {
	t.Run("links both directions", func(t *testing.T) {
		a := NewSignal()
		b := NewSignal()

		i, err := b.AddDependency(a)
		require.NoError(t, err)
		assert.Equal(t, 0, i)

		assert.Equal(t, 1, b.DependencyCount())
		assert.Same(t, a, b.DependencyAt(0))
		assert.Equal(t, 1, a.ListenerCount())
		assert.Same(t, b, a.ListenerAt(0))
		assert.True(t, a.IsListening(0))
	})

	t.Run("self dependency is a no-op", func(t *testing.T) {
		s := NewSignal()

		i, err := s.AddDependency(s)
		require.NoError(t, err)
		assert.Equal(t, -1, i)
		assert.Equal(t, 0, s.DependencyCount())
		assert.Equal(t, 0, s.ListenerCount())
	})

	t.Run("computed dependency initializes fresh", func(t *testing.T) {
		a := NewSignal(WithValue(1))
		b := NewSignal()

		_, err := b.AddDependency(a)
		require.NoError(t, err)

		props := b.DependencyPropsAt(0)
		assert.True(t, props.Computed)
		assert.True(t, props.Fresh)
		assert.True(t, b.IsPending())
	})

	t.Run("without computed check stays cold until set", func(t *testing.T) {
		a := NewSignal(WithValue(1))
		b := NewSignal()

		_, err := b.AddDependency(a, WithoutComputedCheck())
		require.NoError(t, err)
		assert.False(t, b.IsPending())

		require.NoError(t, a.SetValue(2))
		assert.True(t, b.IsPending())
	})

	t.Run("uncomputed dependency lowers pending", func(t *testing.T) {
		a := NewSignal(WithValue(1))
		b := NewSignal()

		_, err := b.AddDependency(a)
		require.NoError(t, err)
		require.True(t, b.IsPending())

		_, err = b.AddDependency(NewSignal())
		require.NoError(t, err)
		assert.False(t, b.IsPending())
	})

	t.Run("flag options land in the slot", func(t *testing.T) {
		a := NewSignal()
		b := NewSignal()

		_, err := b.AddDependency(a, AsWeak(), AsIntermediate())
		require.NoError(t, err)

		props := b.DependencyPropsAt(0)
		assert.True(t, props.Weak)
		assert.True(t, props.Intermediate)
	})

	t.Run("dependency and listener iterators agree", func(t *testing.T) {
		a := NewSignal()
		b := NewSignal()
		c := NewSignal()
		_, err := c.AddDependency(a)
		require.NoError(t, err)
		_, err = c.AddDependency(b)
		require.NoError(t, err)

		var deps []*Signal
		for d := range c.Dependencies() {
			deps = append(deps, d)
		}
		assert.Equal(t, []*Signal{a, b}, deps)

		for _, dep := range deps {
			found := false
			for l := range dep.Listeners() {
				if l == c {
					found = true
				}
			}
			assert.True(t, found)
		}
	})
}

func TestPendingPropagation(t *testing.T) {
	t.Run("chain of three", func(t *testing.T) {
		s1 := NewSignal(WithValue(1))
		s2 := NewSignal()
		s3 := NewSignal()

		_, err := s2.AddDependency(s1)
		require.NoError(t, err)
		_, err = s3.AddDependency(s2)
		require.NoError(t, err)

		assert.True(t, s2.IsPending())
		assert.False(t, s3.IsPending())

		require.NoError(t, s2.SetValue(s1.Value().(int)*2))
		assert.Equal(t, 2, s2.Value())
		assert.False(t, s2.IsPending())
		assert.True(t, s3.IsPending())

		require.NoError(t, s3.SetValue(s2.Value().(int)+1))
		assert.Equal(t, 3, s3.Value())
		assert.False(t, s2.IsPending())
		assert.False(t, s3.IsPending())
	})

	t.Run("set value consumes own inputs", func(t *testing.T) {
		a := NewSignal(WithValue(1))
		b := NewSignal()
		_, err := b.AddDependency(a)
		require.NoError(t, err)

		require.True(t, b.DependencyPropsAt(0).Fresh)
		require.NoError(t, b.SetValue(10))
		assert.False(t, b.DependencyPropsAt(0).Fresh)
		assert.True(t, b.DependencyPropsAt(0).Computed)
	})

	t.Run("zero dependencies never pending", func(t *testing.T) {
		s := NewSignal()
		require.NoError(t, s.SetValue(1))
		assert.False(t, s.IsPending())
	})

	t.Run("propagation is not transitive", func(t *testing.T) {
		a := NewSignal()
		b := NewSignal()
		c := NewSignal()
		_, err := b.AddDependency(a)
		require.NoError(t, err)
		_, err = c.AddDependency(b)
		require.NoError(t, err)

		require.NoError(t, a.SetValue(1))
		assert.True(t, b.IsPending())
		assert.False(t, c.IsPending())

		require.NoError(t, b.SetValue(2))
		assert.False(t, b.IsPending())
		assert.True(t, c.IsPending())
	})

	t.Run("weak dependency blocks until first computation, never again", func(t *testing.T) {
		weak := NewSignal(WithValue(1))
		strong := NewSignal(WithValue(2))
		derived := NewSignal()

		_, err := derived.AddDependency(weak, AsWeak())
		require.NoError(t, err)
		_, err = derived.AddDependency(strong)
		require.NoError(t, err)
		assert.True(t, derived.IsPending())

		require.NoError(t, derived.SetValue(0))
		assert.False(t, derived.IsPending())

		require.NoError(t, strong.SetValue(3))
		assert.True(t, derived.IsPending())

		require.NoError(t, derived.SetValue(1))
		require.NoError(t, weak.SetValue(4))
		assert.False(t, derived.IsPending())
	})

	t.Run("circular pair alternates", func(t *testing.T) {
		s1 := NewSignal()
		s2 := NewSignal()

		_, err := s1.AddDependency(s2)
		require.NoError(t, err)
		_, err = s2.AddDependency(s1)
		require.NoError(t, err)

		require.NoError(t, s1.SetValue(1))
		assert.True(t, s2.IsPending())
		assert.False(t, s1.IsPending())

		require.NoError(t, s2.SetValue(2))
		assert.True(t, s1.IsPending())
		assert.False(t, s2.IsPending())

		require.NoError(t, s1.SetValue(3))
		assert.True(t, s2.IsPending())
		assert.False(t, s1.IsPending())
	})

	t.Run("non-listening edge never notifies", func(t *testing.T) {
		quiet := NewSignal()
		loud := NewSignal()
		derived := NewSignal()

		_, err := derived.AddDependency(quiet, WithoutListen())
		require.NoError(t, err)
		_, err = derived.AddDependency(loud)
		require.NoError(t, err)

		require.NoError(t, quiet.SetValue(1))
		assert.False(t, derived.IsPending())

		// the quiet slot was initialized cold, so the other edge alone
		// cannot complete the predicate either
		require.NoError(t, loud.SetValue(2))
		assert.False(t, derived.IsPending())
	})

	t.Run("non-listening computed edge leaves the rest in charge", func(t *testing.T) {
		quiet := NewSignal(WithValue(1))
		loud := NewSignal()
		derived := NewSignal()

		_, err := derived.AddDependency(quiet, WithoutListen())
		require.NoError(t, err)
		_, err = derived.AddDependency(loud)
		require.NoError(t, err)
		assert.False(t, derived.IsPending())

		require.NoError(t, loud.SetValue(2))
		assert.True(t, derived.IsPending())
	})
}

func TestDuplicateDependencies(t *testing.T) {
	t.Run("two slots, one notification path", func(t *testing.T) {
		dep := NewSignal(WithValue(1))
		sub := NewSignal()

		_, err := sub.AddDependency(dep)
		require.NoError(t, err)
		_, err = sub.AddDependency(dep)
		require.NoError(t, err)

		assert.Equal(t, 2, sub.DependencyCount())
		assert.Equal(t, 2, dep.ListenerCount())
		assert.True(t, sub.IsPending())

		// both slots were initialized fresh at insertion, so computing the
		// subscriber consumes both
		require.NoError(t, sub.SetValue(10))
		assert.False(t, sub.IsPending())

		// only the first slot is ever notified; the stale duplicate keeps
		// the predicate from holding again
		require.NoError(t, dep.SetValue(2))
		assert.True(t, sub.DependencyPropsAt(0).Fresh)
		assert.False(t, sub.DependencyPropsAt(1).Fresh)
		assert.False(t, sub.IsPending())
	})
}
