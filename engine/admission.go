package engine

import "github.com/jptmoore/beingdb"

// AdmissionGate bounds the number of concurrently executing query
// handlers, grounded on the teacher's executor.WorkerPool job-channel
// idiom (datalog/executor/worker_pool.go) — adapted here from a
// parallel-map pool into a simple buffered-channel counting semaphore
// (spec.md §5, "Shared-resource policy").
type AdmissionGate struct {
	tokens chan struct{}
}

// NewAdmissionGate creates a gate that admits up to maxConcurrent
// handlers at once. A non-positive maxConcurrent disables the gate.
func NewAdmissionGate(maxConcurrent int) *AdmissionGate {
	if maxConcurrent <= 0 {
		return &AdmissionGate{}
	}
	return &AdmissionGate{tokens: make(chan struct{}, maxConcurrent)}
}

// Acquire reserves a slot, returning beingdb.ErrOverloaded immediately
// (never blocking) if the gate is full — spec.md §5: "new requests get
// a server overloaded response rather than queueing indefinitely."
func (g *AdmissionGate) Acquire() (release func(), err error) {
	if g.tokens == nil {
		return func() {}, nil
	}
	select {
	case g.tokens <- struct{}{}:
		return func() { <-g.tokens }, nil
	default:
		return nil, beingdb.ErrOverloaded
	}
}
