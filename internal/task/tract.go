package task

import (
	"context"
	"path/filepath"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/lineage"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

type ukfParams struct {
	ID          string `cty:"id"`
	Ses         string `cty:"ses"`
	EddyEpiTask string `cty:"eddy_epi_task"`
	UkfParams   string `cty:"ukf_params"`
	Bhigh       int    `cty:"bhigh"`
}

var ukf = define(stage[ukfParams]{
	kind:     Ukf,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleTract},
	produces: []artifact.Role{artifact.RoleTract},
	params: func(_ context.Context, env *Env, req Request) (ukfParams, error) {
		u := env.Run.Params.Ukf
		return ukfParams{
			ID:          req.Batch.Case,
			Ses:         req.Batch.Session,
			EddyEpiTask: u.EddyEpiTask,
			UkfParams:   u.UkfParams,
			Bhigh:       u.Bhigh,
		}, nil
	},
	deps: func(p ukfParams, req Request) ([]Request, error) {
		kind, err := resolve(Ukf, "eddy_epi_task", p.EddyEpiTask)
		if err != nil {
			return nil, err
		}
		return []Request{req.with(kind)}, nil
	},
	outputs: func(_ ukfParams, in []artifact.Set) (artifact.Set, error) {
		dwi, err := parseRole(in[0], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		tract, err := tractOf(dwi)
		if err != nil {
			return nil, err
		}
		return artifact.Set{artifact.RoleTract: artifact.FromName(tract)}, nil
	},
	commands: func(p ukfParams, in []artifact.Set, out artifact.Set) []runner.Command {
		dwi := in[0][artifact.RoleDWI]
		return []runner.Command{
			runner.New("ukf.py").
				Flag("-i", dwi.Path).
				Flag("--bvals", dwi.Sidecar(".bval")).
				Flag("--bvecs", dwi.Sidecar(".bvec")).
				Flag("-m", in[0].Path(artifact.RoleMask)).
				Flag("-o", out.Path(artifact.RoleTract)).
				FlagIf(p.Bhigh > 0, "--bhigh", itoa(p.Bhigh)).
				FlagIf(p.UkfParams != "", "--params", p.UkfParams).
				Writing(out.Path(artifact.RoleTract)),
		}
	},
})

// tractOf names the tractography of dwi: same entities and chain, kept in the
// sibling tracts directory.
func tractOf(dwi lineage.Name) (lineage.Name, error) {
	return lineage.DeriveOutput(dwi, "", lineage.Rule{
		Role: string(artifact.RoleTract),
		Dir:  filepath.Join(filepath.Dir(dwi.Dir), "tracts"),
		Ext:  ".vtk",
	})
}

type wma800Params struct {
	ID                     string `cty:"id"`
	Ses                    string `cty:"ses"`
	SlicerExec             string `cty:"slicer_exec"`
	FiberTractMeasurements string `cty:"fiber_tract_measurements"`
	Atlas                  string `cty:"atlas"`
	WmaNproc               int    `cty:"wma_nproc"`
	Xvfb                   bool   `cty:"xvfb"`
	WmaCleanup             int    `cty:"wma_cleanup"`
}

var wma800 = define(stage[wma800Params]{
	kind:     Wma800,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleAtlas},
	produces: []artifact.Role{artifact.RoleAtlas},
	params: func(_ context.Context, env *Env, req Request) (wma800Params, error) {
		w := env.Run.Params.Wma800
		p := wma800Params{
			ID:                     req.Batch.Case,
			Ses:                    req.Batch.Session,
			SlicerExec:             w.SlicerExec,
			FiberTractMeasurements: w.FiberTractMeasurements,
			Atlas:                  w.Atlas,
			WmaNproc:               w.WmaNproc,
			Xvfb:                   !w.NoXvfb,
			WmaCleanup:             w.WmaCleanup,
		}
		switch {
		case p.SlicerExec == "":
			return p, faults.MissingParameter("slicer_exec")
		case p.FiberTractMeasurements == "":
			return p, faults.MissingParameter("fiber_tract_measurements")
		case p.Atlas == "":
			return p, faults.MissingParameter("atlas")
		}
		return p, nil
	},
	deps: func(_ wma800Params, req Request) ([]Request, error) {
		return []Request{req.with(Ukf)}, nil
	},
	outputs: func(_ wma800Params, in []artifact.Set) (artifact.Set, error) {
		tract, err := in[0].Get(artifact.RoleTract)
		if err != nil {
			return nil, err
		}
		return artifact.Set{
			artifact.RoleAtlas: artifact.New(filepath.Join(filepath.Dir(tract.Path), "wma800")),
		}, nil
	},
	commands: func(p wma800Params, in []artifact.Set, out artifact.Set) []runner.Command {
		xvfb := "0"
		if p.Xvfb {
			xvfb = "1"
		}
		return []runner.Command{
			runner.New("wm_apply_ORG_atlas_to_subject.sh").
				Flag("-i", in[0].Path(artifact.RoleTract)).
				Flag("-a", p.Atlas).
				Flag("-s", p.SlicerExec).
				Flag("-m", p.FiberTractMeasurements).
				Flag("-x", xvfb).
				Flag("-n", itoa(p.WmaNproc)).
				Flag("-c", itoa(p.WmaCleanup)).
				Flag("-d", "1").
				Flag("-o", out.Path(artifact.RoleAtlas)).
				Writing(out.Path(artifact.RoleAtlas)),
		}
	},
})
