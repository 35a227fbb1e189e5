package task

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/lineage"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

var eddyRoles = []artifact.Role{artifact.RoleDWI, artifact.RoleBSE, artifact.RoleMask}

type pnlEddyParams struct {
	ID        string `cty:"id"`
	Ses       string `cty:"ses"`
	MaskTask  string `cty:"mask_task"`
	MaskQc    bool   `cty:"mask_qc"`
	Debug     bool   `cty:"debug"`
	EddyNproc int    `cty:"eddy_nproc"`
}

var pnlEddy = define(stage[pnlEddyParams]{
	kind:     PnlEddy,
	arity:    2,
	roles:    eddyRoles,
	produces: []artifact.Role{artifact.RoleDWI},
	params: func(_ context.Context, env *Env, req Request) (pnlEddyParams, error) {
		e := env.Run.Params.Eddy
		return pnlEddyParams{
			ID:        req.Batch.Case,
			Ses:       req.Batch.Session,
			MaskTask:  e.MaskTask,
			MaskQc:    e.MaskQc,
			Debug:     e.Debug,
			EddyNproc: e.EddyNproc,
		}, nil
	},
	deps: func(p pnlEddyParams, req Request) ([]Request, error) {
		return maskedDeps(PnlEddy, p.MaskTask, req)
	},
	outputs: func(p pnlEddyParams, in []artifact.Set) (artifact.Set, error) {
		return eddyOutputs(in, p.MaskQc)
	},
	commands: func(p pnlEddyParams, in []artifact.Set, out artifact.Set) []runner.Command {
		src, dst := in[0][artifact.RoleDWI], out[artifact.RoleDWI]
		return []runner.Command{
			runner.New("pnl_eddy.py").
				Flag("-i", src.Path).
				Flag("--bvals", src.Sidecar(".bval")).
				Flag("--bvecs", src.Sidecar(".bvec")).
				Flag("-o", prefix(dst.Path)).
				FlagIf(p.Debug, "-d").
				FlagIf(p.EddyNproc > 0, "-n", itoa(p.EddyNproc)).
				Writing(dst.Files()...),
		}
	},
})

type fslEddyParams struct {
	ID       string `cty:"id"`
	Ses      string `cty:"ses"`
	MaskTask string `cty:"mask_task"`
	MaskQc   bool   `cty:"mask_qc"`
	Acqp     string `cty:"acqp"`
	Index    string `cty:"index"`
	Config   string `cty:"config"`
	UseGpu   bool   `cty:"use_gpu"`
}

var fslEddy = define(stage[fslEddyParams]{
	kind:     FslEddy,
	arity:    2,
	roles:    eddyRoles,
	produces: []artifact.Role{artifact.RoleDWI},
	params: func(_ context.Context, env *Env, req Request) (fslEddyParams, error) {
		e, f := env.Run.Params.Eddy, env.Run.Params.FslEddy
		p := fslEddyParams{
			ID:       req.Batch.Case,
			Ses:      req.Batch.Session,
			MaskTask: e.MaskTask,
			MaskQc:   e.MaskQc,
			Acqp:     f.Acqp,
			Index:    f.Index,
			Config:   f.Config,
			UseGpu:   f.UseGpu,
		}
		switch {
		case p.Acqp == "":
			return p, faults.MissingParameter("acqp")
		case p.Index == "":
			return p, faults.MissingParameter("index")
		}
		return p, nil
	},
	deps: func(p fslEddyParams, req Request) ([]Request, error) {
		return maskedDeps(FslEddy, p.MaskTask, req)
	},
	outputs: func(p fslEddyParams, in []artifact.Set) (artifact.Set, error) {
		return eddyOutputs(in, p.MaskQc)
	},
	commands: func(p fslEddyParams, in []artifact.Set, out artifact.Set) []runner.Command {
		src, dst := in[0][artifact.RoleDWI], out[artifact.RoleDWI]
		return []runner.Command{
			runner.New("fsl_eddy.py").
				Flag("--dwi", src.Path).
				Flag("--bvals", src.Sidecar(".bval")).
				Flag("--bvecs", src.Sidecar(".bvec")).
				Flag("--mask", out.Path(artifact.RoleMask)).
				Flag("--acqp", p.Acqp).
				Flag("--index", p.Index).
				FlagIf(p.Config != "", "--config", p.Config).
				FlagIf(p.UseGpu, "--eddy-cuda").
				Flag("--out", prefix(dst.Path)).
				Writing(dst.Files()...),
		}
	},
})

// maskedDeps requests the unringed dwi and the mask chosen by maskTask.
func maskedDeps(owner Kind, maskTask string, req Request) ([]Request, error) {
	mask, err := resolve(owner, "mask_task", maskTask)
	if err != nil {
		return nil, err
	}
	return []Request{req.with(GibbsUn), req.with(mask)}, nil
}

// eddyOutputs appends the eddy token to the dwi and passes the mask stage's
// outputs through.
func eddyOutputs(in []artifact.Set, maskQc bool) (artifact.Set, error) {
	out, err := deriveDwi(in[0], lineage.TokenEddy)
	if err != nil {
		return nil, err
	}
	mask, err := maskOf(in[1], maskQc)
	if err != nil {
		return nil, err
	}
	out[artifact.RoleBSE] = in[1][artifact.RoleBSE]
	out[artifact.RoleMask] = artifact.FromName(mask)
	return out, nil
}

// maskOf returns the mask of in, or its manually corrected version.
func maskOf(in artifact.Set, qc bool) (lineage.Name, error) {
	mask, err := parseRole(in, artifact.RoleMask)
	if err != nil || !qc {
		return mask, err
	}
	return lineage.DeriveOutput(mask, lineage.TokenQC, lineage.Rule{})
}

type eddyEpiParams struct {
	ID       string `cty:"id"`
	Ses      string `cty:"ses"`
	EddyTask string `cty:"eddy_task"`
	Debug    bool   `cty:"debug"`
	EpiNproc int    `cty:"epi_nproc"`
}

var eddyEpi = define(stage[eddyEpiParams]{
	kind:     EddyEpi,
	arity:    2,
	roles:    eddyRoles,
	produces: eddyRoles,
	params: func(_ context.Context, env *Env, req Request) (eddyEpiParams, error) {
		return eddyEpiParams{
			ID:       req.Batch.Case,
			Ses:      req.Batch.Session,
			EddyTask: env.Run.Params.Eddy.EddyTask,
			Debug:    env.Run.Params.Eddy.Debug,
			EpiNproc: env.Run.Params.EddyEpi.EpiNproc,
		}, nil
	},
	deps: func(p eddyEpiParams, req Request) ([]Request, error) {
		eddy, err := resolve(EddyEpi, "eddy_task", p.EddyTask)
		if err != nil {
			return nil, err
		}
		return []Request{req.with(eddy), req.with(StructMask)}, nil
	},
	outputs: func(_ eddyEpiParams, in []artifact.Set) (artifact.Set, error) {
		out, err := deriveDwi(in[0], lineage.TokenEPI)
		if err != nil {
			return nil, err
		}
		for _, role := range []artifact.Role{artifact.RoleMask, artifact.RoleBSE} {
			n, err := parseRole(in[0], role)
			if err != nil {
				return nil, err
			}
			if n, err = lineage.Apply(n, lineage.Rule{}, lineage.TokenEddy, lineage.TokenEPI); err != nil {
				return nil, err
			}
			out[role] = artifact.FromName(n)
		}
		return out, nil
	},
	commands: func(p eddyEpiParams, in []artifact.Set, out artifact.Set) []runner.Command {
		eddy, t2 := in[0], in[1]
		src, dst := eddy[artifact.RoleDWI], out[artifact.RoleDWI]
		epiMask := prefix(dst.Path) + "_mask.nii.gz"
		return []runner.Command{
			runner.New("pnl_epi.py").
				Flag("--dwi", src.Path).
				Flag("--bvals", src.Sidecar(".bval")).
				Flag("--bvecs", src.Sidecar(".bvec")).
				Flag("--dwimask", eddy.Path(artifact.RoleMask)).
				Flag("--bse", eddy.Path(artifact.RoleBSE)).
				Flag("--t2", t2.Path(artifact.RoleAligned)).
				Flag("--t2mask", t2.Path(artifact.RoleMask)).
				Flag("-o", prefix(dst.Path)).
				FlagIf(p.Debug, "-d").
				FlagIf(p.EpiNproc > 0, "-n", itoa(p.EpiNproc)).
				Writing(append(dst.Files(), epiMask)...),
			runner.New("mv").Arg(epiMask, out.Path(artifact.RoleMask)).Writing(out.Path(artifact.RoleMask)),
			extractB0(dst, out.Path(artifact.RoleBSE), 0, ""),
		}
	},
})

type topupEddyParams struct {
	ID         string `cty:"id"`
	Ses        string `cty:"ses"`
	MaskTask   string `cty:"mask_task"`
	MaskQc     bool   `cty:"mask_qc"`
	PaTemplate string `cty:"pa_template"`
	ApTemplate string `cty:"ap_template"`
	Acqp       string `cty:"acqp"`
	Config     string `cty:"config"`
	UseGpu     bool   `cty:"use_gpu"`
	Numb0      int    `cty:"numb0"`
	WhichVol   string `cty:"which_vol"`
	Scale      int    `cty:"scale"`
}

var topupEddy = define(stage[topupEddyParams]{
	kind:     TopupEddy,
	arity:    4,
	roles:    eddyRoles,
	produces: eddyRoles,
	params: func(_ context.Context, env *Env, req Request) (topupEddyParams, error) {
		pr := env.Run.Params
		p := topupEddyParams{
			ID:       req.Batch.Case,
			Ses:      req.Batch.Session,
			MaskTask: pr.Eddy.MaskTask,
			MaskQc:   pr.Eddy.MaskQc,
			Acqp:     pr.FslEddy.Acqp,
			Config:   pr.FslEddy.Config,
			UseGpu:   pr.FslEddy.UseGpu,
			Numb0:    pr.TopupEddy.Numb0,
			WhichVol: pr.TopupEddy.WhichVol,
			Scale:    pr.TopupEddy.Scale,
		}
		templates := env.Run.PaApTemplate
		if templates == "" && strings.Contains(req.dwiTemplate(env.Run), ",") {
			templates = req.dwiTemplate(env.Run)
		}
		if templates == "" {
			return p, faults.MissingParameter("pa_ap_template")
		}
		pa, ap, ok := strings.Cut(templates, ",")
		if !ok || pa == "" || ap == "" || strings.Contains(ap, ",") {
			return p, faults.Configurationf("pa_ap_template", "want two comma separated templates, got %q", templates)
		}
		p.PaTemplate, p.ApTemplate = pa, ap
		if p.WhichVol != "1" && p.WhichVol != "1,2" {
			return p, faults.Configurationf("which_vol", "want 1 or 1,2, got %q", p.WhichVol)
		}
		if p.Acqp == "" {
			return p, faults.MissingParameter("acqp")
		}
		return p, nil
	},
	deps: func(p topupEddyParams, req Request) ([]Request, error) {
		mask, err := resolve(TopupEddy, "mask_task", p.MaskTask)
		if err != nil {
			return nil, err
		}
		pa, ap := req, req
		pa.DwiTemplate, ap.DwiTemplate = p.PaTemplate, p.ApTemplate
		return []Request{pa.with(GibbsUn), pa.with(mask), ap.with(GibbsUn), ap.with(mask)}, nil
	},
	outputs: func(p topupEddyParams, in []artifact.Set) (artifact.Set, error) {
		rule := lineage.MergeRule{Qualifier: "acq", Count: "dir", SumCounts: p.WhichVol == "1,2"}

		pa, err := parseRole(in[0], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		ap, err := parseRole(in[2], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		merged, err := lineage.Merge(pa, ap, rule)
		if err != nil {
			return nil, err
		}
		dwi, err := lineage.Apply(merged, lineage.Rule{}, lineage.TokenEddy, lineage.TokenEPI)
		if err != nil {
			return nil, err
		}

		paMask, err := maskOf(in[1], p.MaskQc)
		if err != nil {
			return nil, err
		}
		apMask, err := maskOf(in[3], p.MaskQc)
		if err != nil {
			return nil, err
		}
		mergedMask, err := lineage.Merge(paMask, apMask, rule)
		if err != nil {
			return nil, err
		}
		mask, err := lineage.Apply(mergedMask, lineage.Rule{}, lineage.TokenEddy, lineage.TokenEPI)
		if err != nil {
			return nil, err
		}

		bse, err := lineage.DeriveOutput(dwi, "", lineage.Rule{Role: string(artifact.RoleBSE), Prefix: true})
		if err != nil {
			return nil, err
		}
		return artifact.Set{
			artifact.RoleDWI:  dwiArtifact(dwi),
			artifact.RoleMask: artifact.FromName(mask),
			artifact.RoleBSE:  artifact.FromName(bse),
		}, nil
	},
	commands: func(p topupEddyParams, in []artifact.Set, out artifact.Set) []runner.Command {
		pa, ap := in[0][artifact.RoleDWI], in[2][artifact.RoleDWI]
		paMask, _ := maskOf(in[1], p.MaskQc)
		apMask, _ := maskOf(in[3], p.MaskQc)
		dst := out[artifact.RoleDWI]
		pair := func(a, b string) string { return a + "," + b }
		return []runner.Command{
			runner.New("fsl_topup_epi_eddy.py").
				Flag("--imain", pair(pa.Path, ap.Path)).
				Flag("--bvals", pair(pa.Sidecar(".bval"), ap.Sidecar(".bval"))).
				Flag("--bvecs", pair(pa.Sidecar(".bvec"), ap.Sidecar(".bvec"))).
				Flag("--mask", pair(paMask.Path(), apMask.Path())).
				Flag("--acqp", p.Acqp).
				FlagIf(p.Config != "", "--config", p.Config).
				FlagIf(p.UseGpu, "--eddy-cuda").
				Flag("--whichVol", p.WhichVol).
				Flag("--numb0", itoa(p.Numb0)).
				Flag("--scale", itoa(p.Scale)).
				Flag("--out", prefix(dst.Path)).
				Flag("--out-mask", out.Path(artifact.RoleMask)).
				Flag("--out-bse", out.Path(artifact.RoleBSE)).
				Writing(out.Files()...),
		}
	},
})

type hcpPipeParams struct {
	ID             string `cty:"id"`
	Ses            string `cty:"ses"`
	BidsDataDir    string `cty:"bids_data_dir"`
	DerivativesDir string `cty:"derivatives_dir"`
	HcpOutDir      string `cty:"hcp_outdir"`
}

var hcpPipe = define(stage[hcpPipeParams]{
	kind:     HcpPipe,
	arity:    1,
	roles:    eddyRoles,
	produces: eddyRoles,
	params: func(_ context.Context, env *Env, req Request) (hcpPipeParams, error) {
		p := hcpPipeParams{
			ID:             req.Batch.Case,
			Ses:            req.Batch.Session,
			BidsDataDir:    env.Run.BidsDataDir,
			DerivativesDir: env.Run.DerivativesDir(),
			HcpOutDir:      env.Run.Params.HcpPipe.HcpOutDir,
		}
		if p.HcpOutDir == "" {
			return p, faults.MissingParameter("hcp_outdir")
		}
		return p, nil
	},
	deps: func(_ hcpPipeParams, req Request) ([]Request, error) {
		return []Request{req.with(SelectDwiFiles)}, nil
	},
	outputs: func(p hcpPipeParams, in []artifact.Set) (artifact.Set, error) {
		raw, err := parseRole(in[0], artifact.RoleDWI)
		if err != nil {
			return nil, err
		}
		dir, err := config.Relocate(p.BidsDataDir, p.DerivativesDir, raw.Dir)
		if err != nil {
			return nil, err
		}
		dwi, err := lineage.Apply(raw.Without("acq"), lineage.Rule{Dir: dir},
			lineage.TokenAlign, lineage.TokenUnring, lineage.TokenEddy, lineage.TokenEPI)
		if err != nil {
			return nil, err
		}
		out := artifact.Set{artifact.RoleDWI: dwiArtifact(dwi)}
		for _, role := range []artifact.Role{artifact.RoleMask, artifact.RoleBSE} {
			n, err := lineage.DeriveOutput(dwi, "", lineage.Rule{Role: string(role), Prefix: true})
			if err != nil {
				return nil, err
			}
			out[role] = artifact.FromName(n)
		}
		return out, nil
	},
	commands: func(p hcpPipeParams, _ []artifact.Set, out artifact.Set) []runner.Command {
		dwi := out[artifact.RoleDWI]
		hcp := filepath.Join(filepath.Dir(dwi.Path), p.HcpOutDir, "Diffusion")
		link := func(src, dst string) runner.Command {
			return runner.New("ln").Arg("-sf", src, dst).Writing(dst)
		}
		return []runner.Command{
			link(filepath.Join(hcp, "eddy", "eddy_unwarped_images.nii.gz"), dwi.Path),
			link(filepath.Join(hcp, "eddy", "Pos_Neg.bvals"), dwi.Sidecar(".bval")),
			link(filepath.Join(hcp, "eddy", "eddy_unwarped_images.eddy_rotated_bvecs"), dwi.Sidecar(".bvec")),
			link(filepath.Join(hcp, "eddy", "nodif_brain_mask.nii.gz"), out.Path(artifact.RoleMask)),
			link(filepath.Join(hcp, "topup", "hifib0.nii.gz"), out.Path(artifact.RoleBSE)),
		}
	},
})
