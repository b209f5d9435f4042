// Package cortex is a runtime for message-passing inference on bipartite
// factor graphs.
//
// The substrate is a reactive dependency graph of [Signal] nodes. Each
// signal holds a runtime-typed value and four packed flag bits per
// dependency; a signal is pending, ready to be recomputed, once every
// dependency slot is computed and either weak or fresh. Writing a value
// through [Signal.SetValue] consumes the signal's own inputs and notifies
// its listeners, which is how staleness travels through a model.
//
// An [InferenceEngine] binds three collaborators: a [ModelEngine] adapter
// over the container holding variables, factors and edges; a
// [DependencyResolver] that wires message and marginal signals into a
// dependency graph (belief propagation by default, mean-field and
// structured variational schemes are wired the same way); and a [Processor]
// callback that computes actual values. [InferenceEngine.UpdateMarginals]
// scans the pending frontier of the requested variables in rounds,
// dependencies before dependents, and drives the callback until every
// target marginal is computed.
//
// The engine is single-threaded and cooperative. Concurrent entry from two
// goroutines is a programming error that the engine detects; wrap the
// engine in a mutex if you need to share it.
package cortex
