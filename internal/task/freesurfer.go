package task

import (
	"context"
	"path/filepath"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

type fs2DwiParams struct {
	ID    string `cty:"id"`
	Ses   string `cty:"ses"`
	Mode  string `cty:"mode"`
	Debug bool   `cty:"debug"`
}

func newFs2DwiParams(env *Env, req Request, mode string) fs2DwiParams {
	return fs2DwiParams{
		ID:    req.Batch.Case,
		Ses:   req.Batch.Session,
		Mode:  mode,
		Debug: env.Run.Params.Fs2Dwi.Debug,
	}
}

var fs2Dwi = define(stage[fs2DwiParams]{
	kind:     Fs2Dwi,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleWmparc, artifact.RoleDWI},
	produces: []artifact.Role{artifact.RoleWmparc},
	params: func(_ context.Context, env *Env, req Request) (fs2DwiParams, error) {
		return newFs2DwiParams(env, req, "direct"), nil
	},
	deps: func(_ fs2DwiParams, req Request) ([]Request, error) {
		return []Request{req.with(SelectFsDwiFiles)}, nil
	},
	outputs:  fs2DwiOutputs,
	commands: fs2DwiCommands,
})

var fs2DwiT2 = define(stage[fs2DwiParams]{
	kind:     Fs2DwiT2,
	arity:    2,
	roles:    []artifact.Role{artifact.RoleWmparc, artifact.RoleDWI},
	produces: []artifact.Role{artifact.RoleWmparc},
	params: func(_ context.Context, env *Env, req Request) (fs2DwiParams, error) {
		return newFs2DwiParams(env, req, "witht2"), nil
	},
	deps: func(_ fs2DwiParams, req Request) ([]Request, error) {
		return []Request{req.with(SelectFsDwiFiles), req.with(StructMask)}, nil
	},
	outputs:  fs2DwiOutputs,
	commands: fs2DwiCommands,
})

// fs2DwiOutputs places wmparc in the fs2dwi directory next to the dwi
// directory and passes the dwi through for downstream tract lookup.
func fs2DwiOutputs(_ fs2DwiParams, in []artifact.Set) (artifact.Set, error) {
	dwi, err := in[0].Get(artifact.RoleDWI)
	if err != nil {
		return nil, err
	}
	return artifact.Set{
		artifact.RoleWmparc: artifact.New(filepath.Join(filepath.Dir(filepath.Dir(dwi.Path)), "fs2dwi", "wmparcInDwi.nii.gz")),
		artifact.RoleDWI:    dwi,
	}, nil
}

func fs2DwiCommands(p fs2DwiParams, in []artifact.Set, out artifact.Set) []runner.Command {
	fs, wmparc := in[0], out.Path(artifact.RoleWmparc)
	cmd := runner.New("fs2dwi.py").
		Flag("-f", fs.Path(artifact.RoleFsDir)).
		Flag("--bse", fs.Path(artifact.RoleBSE)).
		Flag("--dwimask", fs.Path(artifact.RoleMask)).
		Flag("-o", filepath.Dir(wmparc)).
		FlagIf(p.Debug, "-d").
		Arg(p.Mode)
	if len(in) > 1 {
		cmd = cmd.Flag("--t2", in[1].Path(artifact.RoleAligned)).Flag("--t2mask", in[1].Path(artifact.RoleMask))
	}
	return []runner.Command{cmd.Writing(wmparc)}
}

type wmqlParams struct {
	ID         string `cty:"id"`
	Ses        string `cty:"ses"`
	Fs2DwiMode string `cty:"fs2dwi_mode"`
	Query      string `cty:"query"`
	WmqlNproc  int    `cty:"wmql_nproc"`
}

var wmql = define(stage[wmqlParams]{
	kind:     Wmql,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleWmql},
	produces: []artifact.Role{artifact.RoleWmql},
	params: func(_ context.Context, env *Env, req Request) (wmqlParams, error) {
		return wmqlParams{
			ID:         req.Batch.Case,
			Ses:        req.Batch.Session,
			Fs2DwiMode: env.Run.Params.Fs2Dwi.Mode,
			Query:      env.Run.Params.Wmql.Query,
			WmqlNproc:  env.Run.Params.Wmql.WmqlNproc,
		}, nil
	},
	deps: func(p wmqlParams, req Request) ([]Request, error) {
		kind, err := resolve(Wmql, "fs2dwi_mode", p.Fs2DwiMode)
		if err != nil {
			return nil, err
		}
		return []Request{req.with(kind)}, nil
	},
	outputs: func(_ wmqlParams, in []artifact.Set) (artifact.Set, error) {
		wmparc, err := in[0].Get(artifact.RoleWmparc)
		if err != nil {
			return nil, err
		}
		return artifact.Set{
			artifact.RoleWmql: artifact.New(filepath.Join(filepath.Dir(filepath.Dir(wmparc.Path)), "wmql")),
		}, nil
	},
	commands: func(p wmqlParams, in []artifact.Set, out artifact.Set) []runner.Command {
		// The tract is located from the dwi name; nothing in this graph
		// produces it.
		dwi, _ := parseRole(in[0], artifact.RoleDWI)
		tract, _ := tractOf(dwi)
		return []runner.Command{
			runner.New("wmql.py").
				Flag("-f", in[0].Path(artifact.RoleWmparc)).
				Flag("-i", tract.Path()).
				Flag("-o", out.Path(artifact.RoleWmql)).
				FlagIf(p.Query != "", "-q", p.Query).
				FlagIf(p.WmqlNproc > 0, "-n", itoa(p.WmqlNproc)).
				Writing(out.Path(artifact.RoleWmql)),
		}
	},
})

type tractMeasuresParams struct {
	ID  string `cty:"id"`
	Ses string `cty:"ses"`
	Exe string `cty:"exe"`
}

var tractMeasures = define(stage[tractMeasuresParams]{
	kind:     TractMeasures,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleMeasures},
	produces: []artifact.Role{artifact.RoleMeasures},
	params: func(_ context.Context, env *Env, req Request) (tractMeasuresParams, error) {
		p := tractMeasuresParams{ID: req.Batch.Case, Ses: req.Batch.Session, Exe: env.Run.Params.TractMeasures.Exe}
		if p.Exe == "" {
			return p, faults.MissingParameter("exe")
		}
		return p, nil
	},
	deps: func(_ tractMeasuresParams, req Request) ([]Request, error) {
		return []Request{req.with(Wmql)}, nil
	},
	outputs: func(_ tractMeasuresParams, in []artifact.Set) (artifact.Set, error) {
		return besideWmql(in[0], artifact.RoleMeasures, "tractMeasures.csv")
	},
	commands: func(p tractMeasuresParams, in []artifact.Set, out artifact.Set) []runner.Command {
		return []runner.Command{
			runner.New(p.Exe).
				Flag("--inputtype", "Fibers_File_Folder").
				Flag("--format", "Column_Hierarchy").
				Flag("--separator", "Comma").
				Flag("--inputdirectory", in[0].Path(artifact.RoleWmql)).
				Flag("--outputfile", out.Path(artifact.RoleMeasures)).
				Writing(out.Path(artifact.RoleMeasures)),
		}
	},
})

type wmqlqcParams struct {
	ID  string `cty:"id"`
	Ses string `cty:"ses"`
}

var wmqlqc = define(stage[wmqlqcParams]{
	kind:     Wmqlqc,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleQC},
	produces: []artifact.Role{artifact.RoleQC},
	params: func(_ context.Context, _ *Env, req Request) (wmqlqcParams, error) {
		return wmqlqcParams{ID: req.Batch.Case, Ses: req.Batch.Session}, nil
	},
	deps: func(_ wmqlqcParams, req Request) ([]Request, error) {
		return []Request{req.with(Wmql)}, nil
	},
	outputs: func(_ wmqlqcParams, in []artifact.Set) (artifact.Set, error) {
		return besideWmql(in[0], artifact.RoleQC, "wmqlqc")
	},
	commands: func(p wmqlqcParams, in []artifact.Set, out artifact.Set) []runner.Command {
		return []runner.Command{
			runner.New("wmqlqc.py").
				Flag("-i", in[0].Path(artifact.RoleWmql)).
				Flag("-s", p.ID).
				Flag("-o", out.Path(artifact.RoleQC)).
				Writing(out.Path(artifact.RoleQC)),
		}
	},
})

func besideWmql(in artifact.Set, role artifact.Role, base string) (artifact.Set, error) {
	dir, err := in.Get(artifact.RoleWmql)
	if err != nil {
		return nil, err
	}
	return artifact.Set{role: artifact.New(filepath.Join(filepath.Dir(dir.Path), base))}, nil
}
