package dag

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/provenance"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

// Recorder writes the provenance of a produced node beside its primary
// output.
type Recorder interface {
	Record(ctx context.Context, t *provenance.Tree, primary string) error
}

// Executor runs a plan.
type Executor struct {
	plan       *Plan
	runner     runner.Runner
	cache      *artifact.Cache
	recorder   Recorder
	numWorkers int

	// scheduled is written by prune before any worker starts and only read
	// afterwards.
	scheduled map[*Node]bool
	wg        sync.WaitGroup
}

// NewExecutor returns an executor running plan with at most workers nodes in
// flight.
func NewExecutor(plan *Plan, r runner.Runner, cache *artifact.Cache, rec Recorder, workers int) *Executor {
	return &Executor{
		plan:       plan,
		runner:     r,
		cache:      cache,
		recorder:   rec,
		numWorkers: max(workers, 1),
	}
}

// Run executes every node of the plan that some batch still needs and
// reports the outcome per batch. The error is non-nil when some batch did
// not complete.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	nodes := e.prune(ctx)

	readyChan := make(chan *Node, len(nodes))
	for _, node := range nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
		}
	}
	logger.Debug("Found root nodes.", "count", len(readyChan), "scheduled", len(nodes), "planned", len(e.plan.Nodes))

	e.wg.Add(len(nodes))
	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes completed.")

	report := newReport(e.plan)
	if failed := report.Failed(); failed > 0 {
		return report, fmt.Errorf("%d of %d batches failed: %w", failed, len(report.Batches), report.firstCause())
	}
	return report, nil
}

// prune walks down from every batch root and returns the nodes to schedule.
// A produced node whose declared outputs all exist is marked SkippedExists
// and its ancestors are not visited through it. Nodes left unvisited are
// marked Pruned. Dependency counters are reset to the number of scheduled
// dependencies.
func (e *Executor) prune(ctx context.Context) []*Node {
	logger := ctxlog.FromContext(ctx)
	e.scheduled = make(map[*Node]bool, len(e.plan.Nodes))
	visited := make(map[*Node]bool, len(e.plan.Nodes))
	var order []*Node

	var visit func(n *Node)
	visit = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		if !n.Def.IsSource() {
			decision, err := e.cache.Lookup(ctx, n.Declared())
			if err != nil {
				logger.Warn("Completion lookup failed, scheduling node.", "node", n.Name(), "error", err)
			} else if decision.Complete {
				logger.Info("Outputs exist, skipping subtree.", "node", n.Name(), "primary", n.Def.Primary(n.Outputs))
				n.setState(SkippedExists)
				return
			}
		}
		e.scheduled[n] = true
		order = append(order, n)
		for _, d := range n.uniqueDeps() {
			visit(d)
		}
	}
	for _, bp := range e.plan.Batches {
		if bp.Root != nil {
			visit(bp.Root)
		}
	}

	for _, n := range e.plan.Nodes {
		if !visited[n] {
			n.setState(Pruned)
		}
	}
	for _, n := range order {
		count := 0
		for _, d := range n.uniqueDeps() {
			if e.scheduled[d] {
				count++
			}
		}
		n.depCount.Store(int32(count))
	}
	return order
}

// skipDependents marks every transitive dependent of cause as failed.
func (e *Executor) skipDependents(ctx context.Context, node, cause *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		if !e.scheduled[dependent] {
			continue
		}
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "node", dependent.Name(), "dependency", node.Name())
			dependent.err = &SkippedError{Cause: cause}
			dependent.setState(Failed)
			e.wg.Done()
			e.skipDependents(ctx, dependent, cause)
		})
	}
}

func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "worker", workerID)

	for node := range readyChan {
		nctx := ctxlog.With(ctx, "node", node.Name(), "kind", node.Spec.Kind, "batch", node.Batches[0].String())
		nlog := ctxlog.FromContext(nctx)

		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				nlog.Warn("Context canceled, skipping node execution.")
				node.err = ctx.Err()
				node.setState(Failed)
				e.skipDependents(nctx, node, node)
				e.wg.Done()
			})
			continue
		}

		node.setState(Running)
		state, err := e.execute(nctx, node)
		if err != nil {
			nlog.Error("Node failed.", "error", err)
			node.err = err
			node.setState(Failed)
			e.skipDependents(nctx, node, node)
			e.wg.Done()
			continue
		}
		node.setState(state)

		for _, dependent := range node.Dependents {
			if e.scheduled[dependent] && dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
	logger.Debug("Worker finished.", "worker", workerID)
}

// execute brings one node's outputs into existence.
func (e *Executor) execute(ctx context.Context, node *Node) (State, error) {
	logger := ctxlog.FromContext(ctx)
	declared := node.Declared()

	decision, err := e.cache.Lookup(ctx, declared)
	if err != nil {
		return Failed, faults.Execution(node.Name(), "checking outputs", err)
	}
	if decision.Complete {
		logger.Info("Outputs exist, skipping.", "primary", node.Def.Primary(node.Outputs))
		return SkippedExists, nil
	}
	if node.Def.IsSource() {
		return Failed, faults.Discoveryf(node.Name(), "inputs missing: %v", decision.Missing)
	}
	if err := e.checkInputs(ctx, node); err != nil {
		return Failed, err
	}

	primary := node.Def.Primary(node.Outputs)
	written := slices.Concat(declared, provenance.Paths(primary))
	if err := e.cache.Prepare(written); err != nil {
		return Failed, faults.Execution(node.Name(), "preparing output directories", err)
	}

	logger.Info("Running task.", "primary", primary)
	for _, cmd := range node.Def.Commands(node.Spec, node.Inputs, node.Outputs) {
		code, err := e.runner.Execute(ctx, cmd)
		if err == nil && code != 0 {
			err = fmt.Errorf("exit status %d", code)
		}
		if err != nil {
			e.discard(ctx, declared)
			return Failed, faults.Execution(node.Name(), cmd.String(), err)
		}
	}

	decision, err = e.cache.Lookup(ctx, declared)
	if err != nil {
		e.discard(ctx, declared)
		return Failed, faults.Execution(node.Name(), "checking outputs", err)
	}
	if !decision.Complete {
		e.discard(ctx, declared)
		return Failed, faults.Execution(node.Name(), fmt.Sprintf("declared outputs missing after run: %v", decision.Missing), nil)
	}

	if err := e.recorder.Record(ctx, node.Tree, primary); err != nil {
		e.discard(ctx, written)
		return Failed, faults.Execution(node.Name(), "recording provenance", err)
	}
	logger.Info("Task succeeded.", "primary", primary)
	return Succeeded, nil
}

// checkInputs requires every file handed over by the dependencies to exist,
// along with the files passed through to the outputs. A passed through file,
// such as a manually corrected mask, may have no producer in the graph.
func (e *Executor) checkInputs(ctx context.Context, node *Node) error {
	groups := make([][]string, 0, len(node.Inputs)+1)
	for _, in := range node.Inputs {
		groups = append(groups, in.Files())
	}
	groups = append(groups, node.Def.Passthrough(node.Outputs))
	for _, files := range groups {
		if len(files) == 0 {
			continue
		}
		decision, err := e.cache.Lookup(ctx, files)
		if err != nil {
			return faults.Execution(node.Name(), "checking inputs", err)
		}
		if !decision.Complete {
			return faults.Discoveryf(node.Name(), "inputs missing: %v", decision.Missing)
		}
	}
	return nil
}

func (e *Executor) discard(ctx context.Context, paths []string) {
	if err := e.cache.Discard(ctx, paths); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to remove partial outputs.", "error", err)
	}
}
