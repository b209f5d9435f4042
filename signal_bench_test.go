package cortex

import "testing"

// BenchmarkSignal_SetValue measures write performance without listeners
func BenchmarkSignal_SetValue(b *testing.B) {
	s := NewSignal()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.SetValue(i)
	}
}

// BenchmarkSignal_SetValueWithListeners measures propagation to 16 listeners
func BenchmarkSignal_SetValueWithListeners(b *testing.B) {
	s := NewSignal()
	for i := 0; i < 16; i++ {
		_, _ = NewSignal().AddDependency(s)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.SetValue(i)
	}
}

// BenchmarkPendingPredicate measures the packed predicate over a wide fan-in,
// re-evaluated on every notification
func BenchmarkPendingPredicate(b *testing.B) {
	deps := make([]*Signal, 256)
	s := NewSignal()
	for i := range deps {
		deps[i] = NewSignal(WithValue(i))
		_, _ = s.AddDependency(deps[i])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = deps[i%len(deps)].SetValue(i)
	}
}

// BenchmarkAddDependency measures edge insertion
func BenchmarkAddDependency(b *testing.B) {
	dep := NewSignal(WithValue(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NewSignal().AddDependency(dep)
	}
}
