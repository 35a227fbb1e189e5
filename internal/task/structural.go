package task

import (
	"context"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/lineage"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

type structMaskParams struct {
	ID             string `cty:"id"`
	Ses            string `cty:"ses"`
	BidsDataDir    string `cty:"bids_data_dir"`
	DerivativesDir string `cty:"derivatives_dir"`
	MabsTrainCsv   string `cty:"mabs_train_csv"`
	MabsNproc      int    `cty:"mabs_nproc"`
}

var structMask = define(stage[structMaskParams]{
	kind:     StructMask,
	arity:    1,
	roles:    []artifact.Role{artifact.RoleAligned, artifact.RoleMask},
	produces: []artifact.Role{artifact.RoleAligned, artifact.RoleMask},
	params: func(_ context.Context, env *Env, req Request) (structMaskParams, error) {
		return structMaskParams{
			ID:             req.Batch.Case,
			Ses:            req.Batch.Session,
			BidsDataDir:    env.Run.BidsDataDir,
			DerivativesDir: env.Run.DerivativesDir(),
			MabsTrainCsv:   env.Run.Params.StructMask.MabsTrainCsv,
			MabsNproc:      env.Run.Params.StructMask.MabsNproc,
		}, nil
	},
	deps: func(_ structMaskParams, req Request) ([]Request, error) {
		return []Request{req.with(SelectStructFiles)}, nil
	},
	outputs: func(p structMaskParams, in []artifact.Set) (artifact.Set, error) {
		raw, err := parseRole(in[0], artifact.RoleStruct)
		if err != nil {
			return nil, err
		}
		dir, err := config.Relocate(p.BidsDataDir, p.DerivativesDir, raw.Dir)
		if err != nil {
			return nil, err
		}
		aligned, err := lineage.DeriveOutput(raw, lineage.TokenAlign, lineage.Rule{Dir: dir})
		if err != nil {
			return nil, err
		}
		mask, err := lineage.DeriveOutput(aligned, lineage.TokenMabs, lineage.Rule{Role: string(artifact.RoleMask), Prefix: true})
		if err != nil {
			return nil, err
		}
		return artifact.Set{
			artifact.RoleAligned: artifact.FromName(aligned),
			artifact.RoleMask:    artifact.FromName(mask),
		}, nil
	},
	commands: func(p structMaskParams, in []artifact.Set, out artifact.Set) []runner.Command {
		aligned, mask := out.Path(artifact.RoleAligned), out.Path(artifact.RoleMask)
		return []runner.Command{
			runner.New("align.py").
				Flag("-i", in[0].Path(artifact.RoleStruct)).
				Flag("-o", prefix(aligned)).
				Writing(aligned),
			runner.New("atlas.py").
				Flag("-t", aligned).
				FlagIf(p.MabsTrainCsv != "", "--train", p.MabsTrainCsv).
				Flag("-n", itoa(p.MabsNproc)).
				Flag("-o", prefix(mask)).
				Writing(mask),
		}
	},
})
