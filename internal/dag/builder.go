package dag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/provenance"
	"github.com/specialistvlad/dwiflow/internal/task"
	"golang.org/x/sync/errgroup"
)

// Plan is the deduplicated task graph of a run.
type Plan struct {
	// Nodes is keyed by fingerprint.
	Nodes map[string]*Node
	// Batches holds one entry per requested batch, in request order.
	Batches []BatchPlan

	graph *Graph
}

// BatchPlan is the requested node of one batch, or why none could be built.
type BatchPlan struct {
	Request task.Request
	Root    *Node
	// Err is a discovery error that dropped the batch.
	Err error
}

// Graph returns the dependency structure of the plan.
func (p *Plan) Graph() *Graph {
	return p.graph
}

// Builder turns batch requests into a Plan.
type Builder struct {
	env     *task.Env
	workers int
}

// NewBuilder returns a builder resolving parameters from env. Up to workers
// batches are planned concurrently.
func NewBuilder(env *task.Env, workers int) *Builder {
	return &Builder{env: env, workers: max(workers, 1)}
}

// draft is a node of one batch's tree before deduplication.
type draft struct {
	req         task.Request
	def         *task.Definition
	spec        task.Spec
	deps        []*draft
	inputs      []artifact.Set
	outputs     artifact.Set
	fingerprint string
}

// Build plans every request. Configuration errors in any batch abort the
// build and are returned joined; discovery errors drop only their batch.
func (b *Builder) Build(ctx context.Context, reqs []task.Request) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Planning batches.", "batches", len(reqs), "workers", b.workers)

	drafts := make([]*draft, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, req := range reqs {
		g.Go(func() error {
			bctx := ctxlog.With(ctx, "batch", req.Batch.String())
			drafts[i], errs[i] = b.planBatch(bctx, req)
			return nil
		})
	}
	_ = g.Wait()

	plan := &Plan{Nodes: make(map[string]*Node), graph: New()}
	var fatal []error
	for i, req := range reqs {
		switch err := errs[i]; {
		case err == nil:
		case errors.Is(err, faults.ErrDiscovery):
			logger.Warn("Dropping batch.", "batch", req.Batch.String(), "error", err)
			plan.Batches = append(plan.Batches, BatchPlan{Request: req, Err: err})
			continue
		default:
			fatal = append(fatal, fmt.Errorf("%s: %w", req.Batch, err))
			continue
		}
		root := plan.materialize(drafts[i], req.Batch)
		plan.Batches = append(plan.Batches, BatchPlan{Request: req, Root: root})
	}
	if len(fatal) > 0 {
		return nil, errors.Join(fatal...)
	}

	if err := plan.checkCollisions(); err != nil {
		return nil, err
	}
	if err := plan.link(); err != nil {
		return nil, err
	}
	logger.Info("Planned task graph.", "nodes", len(plan.Nodes), "batches", len(plan.Batches))
	return plan, nil
}

// planBatch expands req depth first. Requests repeated within the batch
// resolve once.
func (b *Builder) planBatch(ctx context.Context, req task.Request) (*draft, error) {
	memo := make(map[task.Request]*draft)

	var resolve func(req task.Request) (*draft, error)
	resolve = func(req task.Request) (*draft, error) {
		if d, ok := memo[req]; ok {
			return d, nil
		}
		def, err := task.Lookup(req.Kind)
		if err != nil {
			return nil, err
		}
		spec, err := def.Spec(ctx, b.env, req)
		if err != nil {
			return nil, err
		}
		reqs, err := def.Deps(spec, req)
		if err != nil {
			return nil, err
		}

		d := &draft{req: req, def: def, spec: spec}
		fps := make([]string, 0, len(reqs))
		for _, r := range reqs {
			dep, err := resolve(r)
			if err != nil {
				return nil, err
			}
			d.deps = append(d.deps, dep)
			d.inputs = append(d.inputs, dep.outputs)
			fps = append(fps, dep.fingerprint)
		}
		if d.outputs, err = def.Outputs(spec, d.inputs); err != nil {
			return nil, err
		}
		d.fingerprint = spec.Fingerprint(fps)
		memo[req] = d
		return d, nil
	}

	d, err := resolve(req)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Planned batch.", "kind", req.Kind, "nodes", len(memo))
	return d, nil
}

// materialize adds d and its ancestors to the plan, reusing nodes that
// already exist under the same fingerprint.
func (p *Plan) materialize(d *draft, batch task.Batch) *Node {
	if n, ok := p.Nodes[d.fingerprint]; ok {
		if !slices.Contains(n.Batches, batch) {
			n.Batches = append(n.Batches, batch)
		}
		return n
	}
	n := &Node{
		ID:      d.fingerprint,
		Spec:    d.spec,
		Def:     d.def,
		Batches: []task.Batch{batch},
		Inputs:  d.inputs,
		Outputs: d.outputs,
		Tree: &provenance.Tree{
			Kind:        string(d.spec.Kind),
			Fingerprint: d.fingerprint,
			Params:      d.spec.Snapshot(),
		},
	}
	for _, dep := range d.deps {
		dn := p.materialize(dep, batch)
		n.Deps = append(n.Deps, dn)
		n.Tree.Deps = append(n.Tree.Deps, dn.Tree)
	}
	p.Nodes[n.ID] = n
	return n
}

// checkCollisions rejects distinct nodes that would write the same file.
func (p *Plan) checkCollisions() error {
	owner := make(map[string]*Node)
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(p.Nodes)) {
		n := p.Nodes[id]
		if n.Def.IsSource() {
			continue
		}
		files := append(n.Declared(), provenance.Paths(n.Def.Primary(n.Outputs))...)
		for _, f := range files {
			if other, ok := owner[f]; ok {
				errs = append(errs, faults.Configurationf(f, "written by both %s and %s", other.Name(), n.Name()))
				continue
			}
			owner[f] = n
		}
	}
	return errors.Join(errs...)
}

// link wires dependents and counters and checks the result is acyclic.
func (p *Plan) link() error {
	ids := slices.Sorted(maps.Keys(p.Nodes))
	for _, id := range ids {
		p.graph.AddNode(id)
	}
	for _, id := range ids {
		n := p.Nodes[id]
		deps := n.uniqueDeps()
		for _, d := range deps {
			if err := p.graph.AddEdge(d.ID, n.ID); err != nil {
				return err
			}
			d.Dependents = append(d.Dependents, n)
		}
		n.depCount.Store(int32(len(deps)))
	}
	if err := p.graph.DetectCycles(); err != nil {
		return fmt.Errorf("validating task graph: %w", err)
	}
	return nil
}
