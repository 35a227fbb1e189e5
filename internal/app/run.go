package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/dag"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/provenance"
	"github.com/specialistvlad/dwiflow/internal/task"
)

// Run plans and executes the configured task for every case and session.
// The report is nil when the run failed before execution started.
func (a *App) Run(ctx context.Context) (*dag.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	run, err := a.prepare(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := task.ParseKind(run.Task)
	if err != nil {
		return nil, err
	}
	reqs := requests(kind, run)

	env := &task.Env{Run: run, Finder: a.finder}
	plan, err := dag.NewBuilder(env, run.Workers).Build(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("failed to build task graph: %w", err)
	}

	fp := a.fingerprinterFor(run.Params.Environment)
	defer func() {
		if err := fp.Cleanup(); err != nil {
			a.logger.Warn("Failed to remove environment snapshot files.", "error", err)
		}
	}()

	a.logger.Info("Starting concurrent execution.", "task", kind, "batches", len(reqs), "workers", run.Workers)
	exec := dag.NewExecutor(plan, a.runner, artifact.NewCache(a.fs), provenance.NewRecorder(a.fs, fp), run.Workers)
	report, err := exec.Run(ctx)
	a.summarize(report)
	a.logger.Debug("App.Run method finished.")
	return report, err
}

// prepare loads the parameter file, applies defaults and validates the
// complete run configuration.
func (a *App) prepare(ctx context.Context) (*config.Run, error) {
	run := a.config.Run
	params, err := a.loader.Load(ctx, a.config.ParamsPath, config.Variables{
		BidsDataDir:    run.BidsDataDir,
		DerivativesDir: run.DerivativesDir(),
		Nproc:          a.config.Nproc,
	})
	if err != nil {
		return nil, err
	}
	if err := params.ApplyDefaults(a.config.Nproc); err != nil {
		return nil, faults.Configurationf("parameters", "%v", err)
	}
	run.Params = *params
	if err := run.Validate(); err != nil {
		return nil, err
	}
	a.logger.Debug("Configuration loaded.", "params", a.config.ParamsPath, "derivatives", run.DerivativesDir())
	return &run, nil
}

// requests expands every case and session into a request for kind.
func requests(kind task.Kind, run *config.Run) []task.Request {
	reqs := make([]task.Request, 0, len(run.Cases)*len(run.Sessions))
	for _, c := range run.Cases {
		for _, s := range run.Sessions {
			reqs = append(reqs, task.Request{Kind: kind, Batch: task.Batch{Case: c, Session: s}})
		}
	}
	return reqs
}

func (a *App) summarize(report *dag.Report) {
	for _, b := range report.Batches {
		if !b.State.Done() {
			a.logger.Error("Batch failed.", "batch", b.Batch.String(), "kind", b.Kind, "fault", faults.KindOf(b.Err), "error", b.Err)
			continue
		}
		a.logger.Info("Batch complete.", "batch", b.Batch.String(), "kind", b.Kind, "state", b.State.String())
	}
	a.logger.Info("Execution finished.",
		"succeeded", report.Nodes[dag.Succeeded],
		"skipped", report.Nodes[dag.SkippedExists],
		"pruned", report.Nodes[dag.Pruned],
		"failed", report.Nodes[dag.Failed],
		"batches_failed", report.Failed())
}
