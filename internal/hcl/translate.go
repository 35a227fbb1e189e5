package hcl

import "github.com/specialistvlad/dwiflow/internal/config"

// translate converts the decoded file into the format-agnostic model.
// Absent blocks leave zero values for ApplyDefaults.
func translate(root *fileRoot) *config.Params {
	p := &config.Params{}
	if b := root.GibbsUn; b != nil {
		p.GibbsUn = config.GibbsUn{UnringNproc: b.UnringNproc}
	}
	if b := root.CnnMask; b != nil {
		p.CnnMask = config.CnnMask{ModelFolder: b.ModelFolder, Percentile: b.Percentile, Filter: b.Filter}
	}
	if b := root.Bse; b != nil {
		p.Bse = config.Bse{B0Threshold: b.B0Threshold, WhichBse: b.WhichBse, BetThreshold: b.BetThreshold}
	}
	if b := root.Eddy; b != nil {
		p.Eddy = config.Eddy{EddyTask: b.EddyTask, MaskTask: b.MaskTask, MaskQc: b.MaskQc, Debug: b.Debug, EddyNproc: b.EddyNproc}
	}
	if b := root.FslEddy; b != nil {
		p.FslEddy = config.FslEddy{Acqp: b.Acqp, Index: b.Index, Config: b.Config, UseGpu: b.UseGpu}
	}
	if b := root.TopupEddy; b != nil {
		p.TopupEddy = config.TopupEddy{Numb0: b.Numb0, WhichVol: b.WhichVol, Scale: b.Scale}
	}
	if b := root.EddyEpi; b != nil {
		p.EddyEpi = config.EddyEpi{EpiNproc: b.EpiNproc}
	}
	if b := root.HcpPipe; b != nil {
		p.HcpPipe = config.HcpPipe{HcpOutDir: b.HcpOutDir}
	}
	if b := root.StructMask; b != nil {
		p.StructMask = config.StructMask{MabsTrainCsv: b.MabsTrainCsv, MabsNproc: b.MabsNproc}
	}
	if b := root.Ukf; b != nil {
		p.Ukf = config.Ukf{EddyEpiTask: b.EddyEpiTask, UkfParams: b.UkfParams, Bhigh: b.Bhigh}
	}
	if b := root.Wma800; b != nil {
		p.Wma800 = config.Wma800{
			SlicerExec:             b.SlicerExec,
			FiberTractMeasurements: b.FiberTractMeasurements,
			Atlas:                  b.Atlas,
			WmaNproc:               b.WmaNproc,
			NoXvfb:                 b.NoXvfb,
			WmaCleanup:             b.WmaCleanup,
		}
	}
	if b := root.Fs2Dwi; b != nil {
		p.Fs2Dwi = config.Fs2Dwi{Mode: b.Mode, FsDirname: b.FsDirname, Debug: b.Debug}
	}
	if b := root.Wmql; b != nil {
		p.Wmql = config.Wmql{Query: b.Query, WmqlNproc: b.WmqlNproc}
	}
	if b := root.TractMeasures; b != nil {
		p.TractMeasures = config.TractMeasures{Exe: b.Exe}
	}
	if b := root.Environment; b != nil {
		p.Environment = config.Environment{HashCommand: b.HashCommand, ExportCommand: b.ExportCommand, TempDir: b.TempDir}
	}
	return p
}
