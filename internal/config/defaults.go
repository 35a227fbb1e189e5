package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
)

// DefaultParams returns the built-in defaults for nproc workers per tool.
func DefaultParams(nproc int) Params {
	return Params{
		GibbsUn:    GibbsUn{UnringNproc: nproc},
		CnnMask:    CnnMask{Percentile: 99},
		Bse:        Bse{B0Threshold: 50, BetThreshold: 0.25},
		Eddy:       Eddy{EddyTask: "pnleddy", MaskTask: "cnnmask", EddyNproc: nproc},
		TopupEddy:  TopupEddy{Numb0: 1, WhichVol: "1", Scale: 2},
		EddyEpi:    EddyEpi{EpiNproc: nproc},
		HcpPipe:    HcpPipe{HcpOutDir: "hcppipe"},
		StructMask: StructMask{MabsNproc: nproc},
		Ukf:        Ukf{EddyEpiTask: "eddyepi"},
		Wma800:     Wma800{WmaNproc: nproc},
		Fs2Dwi:     Fs2Dwi{Mode: "direct", FsDirname: "freesurfer"},
		Wmql:       Wmql{WmqlNproc: nproc},
		Environment: Environment{
			HashCommand:   []string{"getenv.sh"},
			ExportCommand: []string{"conda", "env", "export", "--file"},
			TempDir:       os.TempDir(),
		},
	}
}

// ApplyDefaults fills every zero field of p from DefaultParams. A knob whose
// meaningful value is its zero value (such as Debug) has a zero default, so
// it is never overridden.
func (p *Params) ApplyDefaults(nproc int) error {
	if err := mergo.Merge(p, DefaultParams(nproc)); err != nil {
		return fmt.Errorf("applying parameter defaults: %w", err)
	}
	return nil
}
