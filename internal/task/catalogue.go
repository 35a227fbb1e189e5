package task

import (
	"strconv"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/lineage"
	"github.com/specialistvlad/dwiflow/internal/variant"
)

var (
	definitions map[Kind]*Definition
	strategies  *variant.Resolver[Kind]
)

func init() {
	definitions = make(map[Kind]*Definition, len(kinds))
	for _, d := range []*Definition{
		selectDwiFiles, selectStructFiles, selectFsDwiFiles,
		dwiAlign, gibbsUn, cnnMask, bseExtract, bseMask,
		pnlEddy, fslEddy, structMask, eddyEpi, topupEddy, hcpPipe,
		ukf, wma800, fs2Dwi, fs2DwiT2, wmql, tractMeasures, wmqlqc,
	} {
		definitions[d.Kind] = d
	}

	masks := map[string]Kind{"cnnmask": CnnMask, "bsemask": BseMask}
	eddies := map[string]Kind{"pnleddy": PnlEddy, "fsleddy": FslEddy}
	r, err := variant.New(contract,
		variant.Table[Kind]{Owner: EddyEpi, Param: "eddy_task", Options: eddies},
		variant.Table[Kind]{Owner: Ukf, Param: "eddy_epi_task", Options: map[string]Kind{
			"pnleddy":   PnlEddy,
			"fsleddy":   FslEddy,
			"eddyepi":   EddyEpi,
			"topupeddy": TopupEddy,
			"hcppipe":   HcpPipe,
		}},
		variant.Table[Kind]{Owner: PnlEddy, Param: "mask_task", Options: masks},
		variant.Table[Kind]{Owner: FslEddy, Param: "mask_task", Options: masks},
		variant.Table[Kind]{Owner: TopupEddy, Param: "mask_task", Options: masks},
		variant.Table[Kind]{Owner: Wmql, Param: "fs2dwi_mode", Options: map[string]Kind{"direct": Fs2Dwi, "witht2": Fs2DwiT2}},
	)
	if err != nil {
		panic(err)
	}
	strategies = r
}

// Strategies lists the accepted names of owner's strategy parameter.
func Strategies(owner Kind, param string) []string {
	return strategies.Options(owner, param)
}

func resolve(owner Kind, param, name string) (Kind, error) {
	return strategies.Resolve(owner, param, name)
}

func parseRole(set artifact.Set, role artifact.Role) (lineage.Name, error) {
	a, err := set.Get(role)
	if err != nil {
		return lineage.Name{}, err
	}
	n, err := lineage.Parse(a.Path)
	if err != nil {
		return lineage.Name{}, faults.Configurationf(a.Path, "%v", err)
	}
	return n, nil
}

func dwiArtifact(n lineage.Name) artifact.Artifact {
	return artifact.FromName(n, artifact.DWISidecars...)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
