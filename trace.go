package cortex

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cortexgraph/cortex/internal/humantime"
)

// defaultTraceCapacity bounds the request ring so long-lived engines do not
// accumulate traces without limit.
const defaultTraceCapacity = 64

// ExecutionTrace records one processor invocation.
type ExecutionTrace struct {
	Variable VariableID
	Signal   *Signal
	Variant  Variant
	Metadata any
	Before   any
	After    any
	Elapsed  time.Duration
}

// RoundTrace records one executed round.
type RoundTrace struct {
	Elapsed    time.Duration
	Executions []ExecutionTrace
}

// RequestTrace records one UpdateMarginals call.
type RequestTrace struct {
	ID        uuid.UUID
	Targets   []VariableID
	StartedAt time.Time
	Rounds    []RoundTrace
}

// Tracer keeps a bounded ring of request traces. When the engine is built
// without tracing, no tracer exists and the per-signal cost is a nil check
// before and after each execution.
type Tracer struct {
	capacity int
	requests []*RequestTrace
	next     int
}

// NewTracer creates a tracer with the default ring capacity.
func NewTracer() *Tracer {
	return &Tracer{capacity: defaultTraceCapacity}
}

func (t *Tracer) beginRequest(targets []VariableID) *RequestTrace {
	rt := &RequestTrace{
		ID:        uuid.New(),
		Targets:   append([]VariableID(nil), targets...),
		StartedAt: time.Now(),
	}

	if len(t.requests) < t.capacity {
		t.requests = append(t.requests, rt)
	} else {
		t.requests[t.next] = rt
		t.next = (t.next + 1) % t.capacity
	}

	return rt
}

// Requests returns the recorded traces, oldest first.
func (t *Tracer) Requests() []*RequestTrace {
	out := make([]*RequestTrace, 0, len(t.requests))
	for i := range t.requests {
		out = append(out, t.requests[(t.next+i)%len(t.requests)])
	}
	return out
}

// Last returns the most recent trace, or nil when nothing was recorded.
func (t *Tracer) Last() *RequestTrace {
	if len(t.requests) == 0 {
		return nil
	}
	i := t.next - 1
	if i < 0 {
		i = len(t.requests) - 1
	}
	return t.requests[i]
}

// Dump writes every recorded request in a human-readable form.
func (t *Tracer) Dump(w io.Writer) error {
	for _, rt := range t.Requests() {
		if err := rt.dump(w); err != nil {
			return err
		}
	}
	return nil
}

func (rt *RequestTrace) dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "request %s targets=%v rounds=%d\n", rt.ID, rt.Targets, len(rt.Rounds)); err != nil {
		return err
	}
	for i, round := range rt.Rounds {
		if _, err := fmt.Fprintf(w, "  round %d (%s)\n", i+1, humantime.Format(round.Elapsed.Nanoseconds())); err != nil {
			return err
		}
		for _, exec := range round.Executions {
			if _, err := fmt.Fprintf(w, "    [%s] %v: %v -> %v (%s)\n",
				exec.Variant, exec.Metadata, exec.Before, exec.After,
				humantime.Format(exec.Elapsed.Nanoseconds())); err != nil {
				return err
			}
		}
	}
	return nil
}
