package dag

import (
	"github.com/specialistvlad/dwiflow/internal/task"
)

// BatchResult is the outcome of one batch.
type BatchResult struct {
	Batch task.Batch
	Kind  task.Kind
	// State is Succeeded, SkippedExists or Failed.
	State State
	// Node is the requested node; nil when the batch was dropped while
	// planning.
	Node *Node
	// Err is the root cause of a failure.
	Err error
}

// Report summarises a run.
type Report struct {
	Batches []BatchResult
	// Nodes counts nodes per final state.
	Nodes map[State]int
}

func newReport(plan *Plan) *Report {
	r := &Report{Nodes: make(map[State]int)}
	for _, n := range plan.Nodes {
		r.Nodes[n.State()]++
	}
	for _, bp := range plan.Batches {
		res := BatchResult{Batch: bp.Request.Batch, Kind: bp.Request.Kind, Node: bp.Root}
		switch {
		case bp.Root == nil:
			res.State, res.Err = Failed, bp.Err
		case bp.Root.State() == Failed:
			res.State, res.Err = Failed, rootCause(bp.Root.Err())
		default:
			res.State = bp.Root.State()
		}
		r.Batches = append(r.Batches, res)
	}
	return r
}

// Failed counts the failed batches.
func (r *Report) Failed() int {
	n := 0
	for _, b := range r.Batches {
		if b.State == Failed {
			n++
		}
	}
	return n
}

func (r *Report) firstCause() error {
	for _, b := range r.Batches {
		if b.State == Failed {
			return b.Err
		}
	}
	return nil
}
