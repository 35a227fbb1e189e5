package task

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/discovery"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/lineage"
)

type selectDwiParams struct {
	ID          string `cty:"id"`
	Ses         string `cty:"ses"`
	BidsDataDir string `cty:"bids_data_dir"`
	DwiTemplate string `cty:"dwi_template"`
	Dwi         string `cty:"dwi"`
}

var selectDwiFiles = define(stage[selectDwiParams]{
	kind:  SelectDwiFiles,
	roles: []artifact.Role{artifact.RoleDWI},
	params: func(ctx context.Context, env *Env, req Request) (selectDwiParams, error) {
		p := selectDwiParams{
			ID:          req.Batch.Case,
			Ses:         req.Batch.Session,
			BidsDataDir: env.Run.BidsDataDir,
			DwiTemplate: req.dwiTemplate(env.Run),
		}
		path, err := env.Finder.Find(ctx, discovery.Query{
			Param:    "dwi_template",
			Root:     p.BidsDataDir,
			Template: p.DwiTemplate,
			Subject:  p.ID,
			Session:  p.Ses,
		})
		p.Dwi = path
		return p, err
	},
	outputs: func(p selectDwiParams, _ []artifact.Set) (artifact.Set, error) {
		return artifact.Set{artifact.RoleDWI: artifact.New(p.Dwi, artifact.DWISidecars...)}, nil
	},
})

type selectStructParams struct {
	ID             string `cty:"id"`
	Ses            string `cty:"ses"`
	BidsDataDir    string `cty:"bids_data_dir"`
	StructTemplate string `cty:"struct_template"`
	Struct         string `cty:"struct"`
}

var selectStructFiles = define(stage[selectStructParams]{
	kind:  SelectStructFiles,
	roles: []artifact.Role{artifact.RoleStruct},
	params: func(ctx context.Context, env *Env, req Request) (selectStructParams, error) {
		p := selectStructParams{
			ID:             req.Batch.Case,
			Ses:            req.Batch.Session,
			BidsDataDir:    env.Run.BidsDataDir,
			StructTemplate: env.Run.StructTemplate,
		}
		path, err := env.Finder.Find(ctx, discovery.Query{
			Param:    "struct_template",
			Root:     p.BidsDataDir,
			Template: p.StructTemplate,
			Subject:  p.ID,
			Session:  p.Ses,
		})
		p.Struct = path
		return p, err
	},
	outputs: func(p selectStructParams, _ []artifact.Set) (artifact.Set, error) {
		return artifact.Set{artifact.RoleStruct: artifact.New(p.Struct)}, nil
	},
})

type selectFsDwiParams struct {
	ID             string `cty:"id"`
	Ses            string `cty:"ses"`
	DerivativesDir string `cty:"derivatives_dir"`
	DwiTemplate    string `cty:"dwi_template"`
	FsDirname      string `cty:"fs_dirname"`
	Dwi            string `cty:"dwi"`
	Bse            string `cty:"bse"`
	Mask           string `cty:"mask"`
	FsDir          string `cty:"fsdir"`
}

var selectFsDwiFiles = define(stage[selectFsDwiParams]{
	kind:  SelectFsDwiFiles,
	roles: []artifact.Role{artifact.RoleDWI, artifact.RoleBSE, artifact.RoleMask, artifact.RoleFsDir},
	params: func(ctx context.Context, env *Env, req Request) (selectFsDwiParams, error) {
		p := selectFsDwiParams{
			ID:             req.Batch.Case,
			Ses:            req.Batch.Session,
			DerivativesDir: env.Run.DerivativesDir(),
			DwiTemplate:    req.dwiTemplate(env.Run),
			FsDirname:      env.Run.Params.Fs2Dwi.FsDirname,
		}
		dwi, err := env.Finder.Find(ctx, discovery.Query{
			Param:    "dwi_template",
			Root:     p.DerivativesDir,
			Template: p.DwiTemplate,
			Subject:  p.ID,
			Session:  p.Ses,
		})
		if err != nil {
			return p, err
		}
		p.Dwi = dwi
		p.FsDir = filepath.Join(filepath.Dir(filepath.Dir(dwi)), "anat", p.FsDirname)

		name, err := lineage.Parse(dwi)
		if err != nil {
			return p, faults.Configurationf(dwi, "%v", err)
		}
		masks, err := companions(ctx, env.Finder, name, "mask")
		if err != nil {
			return p, err
		}
		mask, err := pickCompanion(name, masks, nil, "mask")
		if err != nil {
			return p, err
		}
		bses, err := companions(ctx, env.Finder, name, "bse")
		if err != nil {
			return p, err
		}
		bse, err := pickCompanion(name, bses, mask.Chain, "bse")
		if err != nil {
			return p, err
		}
		p.Mask, p.Bse = mask.Path(), bse.Path()
		return p, nil
	},
	outputs: func(p selectFsDwiParams, _ []artifact.Set) (artifact.Set, error) {
		return artifact.Set{
			artifact.RoleDWI:   artifact.New(p.Dwi, artifact.DWISidecars...),
			artifact.RoleBSE:   artifact.New(p.Bse),
			artifact.RoleMask:  artifact.New(p.Mask),
			artifact.RoleFsDir: artifact.New(p.FsDir),
		}, nil
	},
})

// companions lists the files of role next to dwi that belong to the same
// acquisition.
func companions(ctx context.Context, finder discovery.Finder, dwi lineage.Name, role string) ([]lineage.Name, error) {
	paths, err := finder.Glob(ctx, dwi.Dir, "*_"+role+dwi.Ext)
	if err != nil {
		return nil, err
	}
	var out []lineage.Name
	for _, path := range paths {
		n, err := lineage.Parse(path)
		if err != nil || !slices.Equal(n.Entities, dwi.Entities) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// pickCompanion chooses the mask or b0 image matching the history of dwi.
// Ignoring masking stages, a candidate's chain must be a prefix of dwi's;
// the longest such prefix wins. A manually corrected mask beats an automated
// one of the same history, and ties among b0 images are broken by how much
// history they share with the chosen mask. Remaining ties are ambiguous.
func pickCompanion(dwi lineage.Name, cands []lineage.Name, mask []string, role string) (lineage.Name, error) {
	type scored struct {
		name  lineage.Name
		score [3]int
	}
	var best []scored
	for _, c := range cands {
		stripped := lineage.StripMaskTokens(c.Chain)
		if len(stripped) > len(dwi.Chain) || !slices.Equal(stripped, dwi.Chain[:len(stripped)]) {
			continue
		}
		s := scored{name: c, score: [3]int{len(stripped), 0, commonPrefix(c.Chain, mask)}}
		if slices.Contains(c.Chain, lineage.TokenQC) {
			s.score[1] = 1
		}
		switch {
		case len(best) == 0 || compareScores(s.score, best[0].score) > 0:
			best = []scored{s}
		case compareScores(s.score, best[0].score) == 0:
			best = append(best, s)
		}
	}
	switch len(best) {
	case 0:
		return lineage.Name{}, faults.Discoveryf(role, "no %s matching %s in %s", role, dwi.Base(), dwi.Dir)
	case 1:
		return best[0].name, nil
	default:
		names := make([]string, len(best))
		for i, b := range best {
			names[i] = b.name.Base()
		}
		return lineage.Name{}, faults.Discoveryf(role, "ambiguous %s for %s: %v", role, dwi.Base(), names)
	}
}

func compareScores(a, b [3]int) int {
	for i := range a {
		if a[i] != b[i] {
			return a[i] - b[i]
		}
	}
	return 0
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
