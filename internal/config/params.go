package config

// Params holds the per-task knobs. Zero values mean "use the default"; see
// ApplyDefaults.
type Params struct {
	GibbsUn       GibbsUn
	CnnMask       CnnMask
	Bse           Bse
	Eddy          Eddy
	FslEddy       FslEddy
	TopupEddy     TopupEddy
	EddyEpi       EddyEpi
	HcpPipe       HcpPipe
	StructMask    StructMask
	Ukf           Ukf
	Wma800        Wma800
	Fs2Dwi        Fs2Dwi
	Wmql          Wmql
	TractMeasures TractMeasures
	Environment   Environment
}

type GibbsUn struct {
	UnringNproc int `validate:"gte=1"`
}

type CnnMask struct {
	ModelFolder string
	Percentile  int `validate:"gte=1,lte=100"`
	Filter      string
}

// Bse covers b0 extraction and the BET mask computed from it.
type Bse struct {
	B0Threshold  float64 `validate:"gte=0"`
	WhichBse     string
	BetThreshold float64 `validate:"gte=0,lte=1"`
}

// Eddy holds the strategy choices and knobs shared by the eddy stages.
type Eddy struct {
	EddyTask string
	MaskTask string
	// MaskQc makes eddy stages consume the manually corrected mask (Qc)
	// instead of the automated one.
	MaskQc    bool
	Debug     bool
	EddyNproc int `validate:"gte=1"`
}

type FslEddy struct {
	Acqp   string
	Index  string
	Config string
	UseGpu bool
}

type TopupEddy struct {
	Numb0    int `validate:"gte=1"`
	WhichVol string
	Scale    int `validate:"gte=1"`
}

type EddyEpi struct {
	EpiNproc int `validate:"gte=1"`
}

type HcpPipe struct {
	HcpOutDir string
}

type StructMask struct {
	MabsTrainCsv string
	MabsNproc    int `validate:"gte=1"`
}

type Ukf struct {
	EddyEpiTask string
	UkfParams   string
	Bhigh       int `validate:"gte=0"`
}

type Wma800 struct {
	SlicerExec             string
	FiberTractMeasurements string
	Atlas                  string
	WmaNproc               int `validate:"gte=1"`
	NoXvfb                 bool
	WmaCleanup             int `validate:"gte=0,lte=2"`
}

type Fs2Dwi struct {
	Mode      string
	FsDirname string
	Debug     bool
}

type Wmql struct {
	Query     string
	WmqlNproc int `validate:"gte=1"`
}

type TractMeasures struct {
	Exe string
}

// Environment configures the environment fingerprint. Each command receives
// its output file as the final argument.
type Environment struct {
	HashCommand   []string `validate:"min=1"`
	ExportCommand []string `validate:"min=1"`
	TempDir       string   `validate:"required"`
}
