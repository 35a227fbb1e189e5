package task

import (
	"context"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/lineage"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

type alignParams struct {
	ID             string `cty:"id"`
	Ses            string `cty:"ses"`
	BidsDataDir    string `cty:"bids_data_dir"`
	DerivativesDir string `cty:"derivatives_dir"`
}

var dwiAlign = define(stage[alignParams]{
	kind:     DwiAlign,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleDWI},
	produces: []artifact.Role{artifact.RoleDWI},
	params: func(_ context.Context, env *Env, req Request) (alignParams, error) {
		return alignParams{
			ID:             req.Batch.Case,
			Ses:            req.Batch.Session,
			BidsDataDir:    env.Run.BidsDataDir,
			DerivativesDir: env.Run.DerivativesDir(),
		}, nil
	},
	deps: func(_ alignParams, req Request) ([]Request, error) {
		return []Request{req.with(SelectDwiFiles)}, nil
	},
	outputs: func(p alignParams, in []artifact.Set) (artifact.Set, error) {
		raw, err := parseRole(in[0], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		dir, err := config.Relocate(p.BidsDataDir, p.DerivativesDir, raw.Dir)
		if err != nil {
			return nil, err
		}
		out, err := lineage.DeriveOutput(raw, lineage.TokenAlign, lineage.Rule{Dir: dir})
		if err != nil {
			return nil, err
		}
		return artifact.Set{artifact.RoleDWI: dwiArtifact(out)}, nil
	},
	commands: func(_ alignParams, in []artifact.Set, out artifact.Set) []runner.Command {
		src, dst := in[0][artifact.RoleDWI], out[artifact.RoleDWI]
		return []runner.Command{
			runner.New("align.py").
				Flag("-i", src.Path).
				Flag("--bvals", src.Sidecar(".bval")).
				Flag("--bvecs", src.Sidecar(".bvec")).
				Flag("-o", prefix(dst.Path)).
				Writing(dst.Files()...),
		}
	},
})

type gibbsUnParams struct {
	ID          string `cty:"id"`
	Ses         string `cty:"ses"`
	UnringNproc int    `cty:"unring_nproc"`
}

var gibbsUn = define(stage[gibbsUnParams]{
	kind:     GibbsUn,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleDWI},
	produces: []artifact.Role{artifact.RoleDWI},
	params: func(_ context.Context, env *Env, req Request) (gibbsUnParams, error) {
		return gibbsUnParams{
			ID:          req.Batch.Case,
			Ses:         req.Batch.Session,
			UnringNproc: env.Run.Params.GibbsUn.UnringNproc,
		}, nil
	},
	deps: func(_ gibbsUnParams, req Request) ([]Request, error) {
		return []Request{req.with(DwiAlign)}, nil
	},
	outputs: func(_ gibbsUnParams, in []artifact.Set) (artifact.Set, error) {
		return deriveDwi(in[0], lineage.TokenUnring)
	},
	commands: func(p gibbsUnParams, in []artifact.Set, out artifact.Set) []runner.Command {
		src, dst := in[0][artifact.RoleDWI], out[artifact.RoleDWI]
		return []runner.Command{
			runner.New("unring.py").
				Arg(src.Path, prefix(dst.Path), itoa(p.UnringNproc)).
				Writing(dst.Files()...),
		}
	},
})

type cnnMaskParams struct {
	ID          string `cty:"id"`
	Ses         string `cty:"ses"`
	ModelFolder string `cty:"model_folder"`
	Percentile  int    `cty:"percentile"`
	Filter      string `cty:"filter"`
}

var cnnMask = define(stage[cnnMaskParams]{
	kind:     CnnMask,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleBSE, artifact.RoleMask},
	produces: []artifact.Role{artifact.RoleMask, artifact.RoleBSE},
	params: func(_ context.Context, env *Env, req Request) (cnnMaskParams, error) {
		c := env.Run.Params.CnnMask
		return cnnMaskParams{
			ID:          req.Batch.Case,
			Ses:         req.Batch.Session,
			ModelFolder: c.ModelFolder,
			Percentile:  c.Percentile,
			Filter:      c.Filter,
		}, nil
	},
	deps: func(_ cnnMaskParams, req Request) ([]Request, error) {
		return []Request{req.with(GibbsUn)}, nil
	},
	outputs: func(_ cnnMaskParams, in []artifact.Set) (artifact.Set, error) {
		dwi, err := parseRole(in[0], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		names, err := lineage.DeriveRoles(dwi, lineage.TokenCNN, lineage.Rule{Prefix: true},
			string(artifact.RoleBSE), string(artifact.RoleMask))
		if err != nil {
			return nil, err
		}
		return artifact.Set{
			artifact.RoleBSE:  artifact.FromName(names[string(artifact.RoleBSE)]),
			artifact.RoleMask: artifact.FromName(names[string(artifact.RoleMask)]),
		}, nil
	},
	commands: func(p cnnMaskParams, in []artifact.Set, out artifact.Set) []runner.Command {
		src := in[0][artifact.RoleDWI]
		bse, mask := out.Path(artifact.RoleBSE), out.Path(artifact.RoleMask)
		return []runner.Command{
			runner.New("dwi_masking.py").
				Flag("-i", src.Path).
				Flag("--bvals", src.Sidecar(".bval")).
				FlagIf(p.ModelFolder != "", "-f", p.ModelFolder).
				Flag("-p", itoa(p.Percentile)).
				FlagIf(p.Filter != "", "-filter", p.Filter).
				Flag("--bse", bse).
				Flag("--mask", mask).
				Writing(bse, mask),
			maskB0(bse, mask),
		}
	},
})

type bseExtractParams struct {
	ID          string  `cty:"id"`
	Ses         string  `cty:"ses"`
	B0Threshold float64 `cty:"b0_threshold"`
	WhichBse    string  `cty:"which_bse"`
}

var bseExtract = define(stage[bseExtractParams]{
	kind:     BseExtract,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleBSE},
	produces: []artifact.Role{artifact.RoleBSE},
	params: func(_ context.Context, env *Env, req Request) (bseExtractParams, error) {
		b := env.Run.Params.Bse
		return bseExtractParams{
			ID:          req.Batch.Case,
			Ses:         req.Batch.Session,
			B0Threshold: b.B0Threshold,
			WhichBse:    b.WhichBse,
		}, nil
	},
	deps: func(_ bseExtractParams, req Request) ([]Request, error) {
		return []Request{req.with(GibbsUn)}, nil
	},
	outputs: func(_ bseExtractParams, in []artifact.Set) (artifact.Set, error) {
		dwi, err := parseRole(in[0], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		bse, err := lineage.DeriveOutput(dwi, "", lineage.Rule{Role: string(artifact.RoleBSE), Prefix: true})
		if err != nil {
			return nil, err
		}
		return artifact.Set{artifact.RoleBSE: artifact.FromName(bse)}, nil
	},
	commands: func(p bseExtractParams, in []artifact.Set, out artifact.Set) []runner.Command {
		return []runner.Command{extractB0(in[0][artifact.RoleDWI], out.Path(artifact.RoleBSE), p.B0Threshold, p.WhichBse)}
	},
})

type bseMaskParams struct {
	ID           string  `cty:"id"`
	Ses          string  `cty:"ses"`
	BetThreshold float64 `cty:"bet_threshold"`
}

var bseMask = define(stage[bseMaskParams]{
	kind:     BseMask,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleBSE, artifact.RoleMask},
	produces: []artifact.Role{artifact.RoleMask},
	params: func(_ context.Context, env *Env, req Request) (bseMaskParams, error) {
		return bseMaskParams{
			ID:           req.Batch.Case,
			Ses:          req.Batch.Session,
			BetThreshold: env.Run.Params.Bse.BetThreshold,
		}, nil
	},
	deps: func(_ bseMaskParams, req Request) ([]Request, error) {
		return []Request{req.with(BseExtract)}, nil
	},
	outputs: func(_ bseMaskParams, in []artifact.Set) (artifact.Set, error) {
		bse, err := parseRole(in[0], artifact.RoleBSE)
		if err != nil {
			return nil, err
		}
		mask, err := lineage.DeriveOutput(bse, lineage.TokenBet, lineage.Rule{Role: string(artifact.RoleMask), Prefix: true})
		if err != nil {
			return nil, err
		}
		return artifact.Set{
			artifact.RoleBSE:  in[0][artifact.RoleBSE],
			artifact.RoleMask: artifact.FromName(mask),
		}, nil
	},
	commands: func(p bseMaskParams, in []artifact.Set, out artifact.Set) []runner.Command {
		bse, mask := in[0].Path(artifact.RoleBSE), out.Path(artifact.RoleMask)
		return []runner.Command{
			runner.New("bet_mask.py").
				Flag("-i", bse).
				Flag("-o", prefix(mask)).
				Flag("-f", ftoa(p.BetThreshold)).
				Writing(mask),
			maskB0(bse, mask),
		}
	},
})

// deriveDwi appends token to the dwi of in, keeping its gradient sidecars.
func deriveDwi(in artifact.Set, token string) (artifact.Set, error) {
	dwi, err := parseRole(in, artifact.RoleDWI)
	if err != nil {
		return nil, err
	}
	out, err := lineage.DeriveOutput(dwi, token, lineage.Rule{})
	if err != nil {
		return nil, err
	}
	return artifact.Set{artifact.RoleDWI: dwiArtifact(out)}, nil
}

func extractB0(dwi artifact.Artifact, bse string, threshold float64, which string) runner.Command {
	return runner.New("bse.py").
		Flag("-i", dwi.Path).
		Flag("--bvals", dwi.Sidecar(".bval")).
		Flag("-o", bse).
		FlagIf(threshold > 0, "-t", ftoa(threshold)).
		FlagIf(which != "", which).
		Writing(bse)
}

// maskB0 zeroes the b0 image outside the mask.
func maskB0(bse, mask string) runner.Command {
	return runner.New("ImageMath").Arg("3", bse, "m", bse, mask).Writing(bse)
}

func prefix(path string) string {
	return lineage.Sidecar(path, "")
}
