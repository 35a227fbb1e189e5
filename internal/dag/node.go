package dag

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/provenance"
	"github.com/specialistvlad/dwiflow/internal/task"
)

// State is the lifecycle stage of a node.
type State int32

const (
	Pending State = iota
	Running
	SkippedExists
	Succeeded
	Failed
	// Pruned nodes are ancestors only of complete nodes and never run.
	Pruned
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case SkippedExists:
		return "skipped_exists"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Pruned:
		return "pruned"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Done reports whether dependents may start.
func (s State) Done() bool {
	return s == Succeeded || s == SkippedExists
}

// Node is one fully resolved task of the plan. Its id is the fingerprint of
// its spec and of its dependencies.
type Node struct {
	ID   string
	Spec task.Spec
	Def  *task.Definition
	// Deps are ordered as the definition declared them and may contain the
	// same node twice.
	Deps       []*Node
	Dependents []*Node
	// Batches lists every batch whose tree contains the node.
	Batches []task.Batch
	Inputs  []artifact.Set
	Outputs artifact.Set
	Tree    *provenance.Tree

	depCount atomic.Int32
	state    atomic.Int32
	err      error
	skipOnce sync.Once
}

// Name is a short label for logs.
func (n *Node) Name() string {
	return fmt.Sprintf("%s[%s]", n.Spec.Kind, n.ID[:min(len(n.ID), 12)])
}

// State returns the current state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// Err returns why the node failed. It is only meaningful once the executor
// has finished.
func (n *Node) Err() error {
	return n.err
}

func (n *Node) setState(s State) {
	n.state.Store(int32(s))
}

// Declared lists the declared outputs of the node.
func (n *Node) Declared() []string {
	return n.Def.Declared(n.Outputs)
}

// uniqueDeps returns Deps without repeats, in order.
func (n *Node) uniqueDeps() []*Node {
	seen := make(map[*Node]bool, len(n.Deps))
	out := make([]*Node, 0, len(n.Deps))
	for _, d := range n.Deps {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// SkippedError marks a node that never ran because an ancestor failed.
type SkippedError struct {
	Cause *Node
}

func (e *SkippedError) Error() string {
	return fmt.Sprintf("skipped: upstream %s failed", e.Cause.Name())
}

// Unwrap exposes the ancestor's failure.
func (e *SkippedError) Unwrap() error {
	return e.Cause.err
}

// rootCause follows skipped errors back to the node that actually failed.
func rootCause(err error) error {
	var skipped *SkippedError
	for errors.As(err, &skipped) {
		err = skipped.Cause.err
	}
	return err
}
