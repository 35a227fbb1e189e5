package hcl

// fileRoot is the top level of a parameter file.
type fileRoot struct {
	GibbsUn       *gibbsUnBlock       `hcl:"gibbs_un,block"`
	CnnMask       *cnnMaskBlock       `hcl:"cnn_mask,block"`
	Bse           *bseBlock           `hcl:"bse,block"`
	Eddy          *eddyBlock          `hcl:"eddy,block"`
	FslEddy       *fslEddyBlock       `hcl:"fsl_eddy,block"`
	TopupEddy     *topupEddyBlock     `hcl:"topup_eddy,block"`
	EddyEpi       *eddyEpiBlock       `hcl:"eddy_epi,block"`
	HcpPipe       *hcpPipeBlock       `hcl:"hcp_pipe,block"`
	StructMask    *structMaskBlock    `hcl:"struct_mask,block"`
	Ukf           *ukfBlock           `hcl:"ukf,block"`
	Wma800        *wma800Block        `hcl:"wma800,block"`
	Fs2Dwi        *fs2DwiBlock        `hcl:"fs2dwi,block"`
	Wmql          *wmqlBlock          `hcl:"wmql,block"`
	TractMeasures *tractMeasuresBlock `hcl:"tract_measures,block"`
	Environment   *environmentBlock   `hcl:"environment,block"`
}

type gibbsUnBlock struct {
	UnringNproc int `hcl:"unring_nproc,optional"`
}

type cnnMaskBlock struct {
	ModelFolder string `hcl:"model_folder,optional"`
	Percentile  int    `hcl:"percentile,optional"`
	Filter      string `hcl:"filter,optional"`
}

type bseBlock struct {
	B0Threshold  float64 `hcl:"b0_threshold,optional"`
	WhichBse     string  `hcl:"which_bse,optional"`
	BetThreshold float64 `hcl:"bet_threshold,optional"`
}

type eddyBlock struct {
	EddyTask  string `hcl:"eddy_task,optional"`
	MaskTask  string `hcl:"mask_task,optional"`
	MaskQc    bool   `hcl:"mask_qc,optional"`
	Debug     bool   `hcl:"debug,optional"`
	EddyNproc int    `hcl:"eddy_nproc,optional"`
}

type fslEddyBlock struct {
	Acqp   string `hcl:"acqp,optional"`
	Index  string `hcl:"index,optional"`
	Config string `hcl:"config,optional"`
	UseGpu bool   `hcl:"use_gpu,optional"`
}

type topupEddyBlock struct {
	Numb0    int    `hcl:"numb0,optional"`
	WhichVol string `hcl:"which_vol,optional"`
	Scale    int    `hcl:"scale,optional"`
}

type eddyEpiBlock struct {
	EpiNproc int `hcl:"epi_nproc,optional"`
}

type hcpPipeBlock struct {
	HcpOutDir string `hcl:"hcp_outdir,optional"`
}

type structMaskBlock struct {
	MabsTrainCsv string `hcl:"mabs_train_csv,optional"`
	MabsNproc    int    `hcl:"mabs_nproc,optional"`
}

type ukfBlock struct {
	EddyEpiTask string `hcl:"eddy_epi_task,optional"`
	UkfParams   string `hcl:"ukf_params,optional"`
	Bhigh       int    `hcl:"bhigh,optional"`
}

type wma800Block struct {
	SlicerExec             string `hcl:"slicer_exec,optional"`
	FiberTractMeasurements string `hcl:"fiber_tract_measurements,optional"`
	Atlas                  string `hcl:"atlas,optional"`
	WmaNproc               int    `hcl:"wma_nproc,optional"`
	NoXvfb                 bool   `hcl:"no_xvfb,optional"`
	WmaCleanup             int    `hcl:"wma_cleanup,optional"`
}

type fs2DwiBlock struct {
	Mode      string `hcl:"mode,optional"`
	FsDirname string `hcl:"fs_dirname,optional"`
	Debug     bool   `hcl:"debug,optional"`
}

type wmqlBlock struct {
	Query     string `hcl:"query,optional"`
	WmqlNproc int    `hcl:"wmql_nproc,optional"`
}

type tractMeasuresBlock struct {
	Exe string `hcl:"exe,optional"`
}

type environmentBlock struct {
	HashCommand   []string `hcl:"hash_command,optional"`
	ExportCommand []string `hcl:"export_command,optional"`
	TempDir       string   `hcl:"temp_dir,optional"`
}
