package hcl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVars = config.Variables{
	BidsDataDir:    "/bids",
	DerivativesDir: "/bids/derivatives/pnlpipe",
	Nproc:          6,
}

func load(t *testing.T, src string) (*config.Params, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/params.hcl", []byte(src), 0o644))
	return NewLoader(fs).Load(context.Background(), "/params.hcl", testVars)
}

func TestLoadEmptyPath(t *testing.T) {
	p, err := NewLoader(afero.NewMemMapFs()).Load(context.Background(), "", testVars)
	require.NoError(t, err)
	assert.Equal(t, &config.Params{}, p)
}

func TestLoadWithVariablesAndFunctions(t *testing.T) {
	t.Setenv("DWIFLOW_MODELS", "/opt/models")

	p, err := load(t, `
eddy {
  eddy_task  = upper("fsleddy")
  debug      = true
  eddy_nproc = nproc
}

fsl_eddy {
  acqp  = "${bids_data_dir}/acqp.txt"
  index = format("%s/index.txt", bids_data_dir)
}

cnn_mask {
  model_folder = env("DWIFLOW_MODELS")
  percentile   = 97
}

environment {
  hash_command = ["sh", join("/", ["", "opt", "getenv.sh"])]
}
`)
	require.NoError(t, err)

	want := &config.Params{
		Eddy:        config.Eddy{EddyTask: "FSLEDDY", Debug: true, EddyNproc: 6},
		FslEddy:     config.FslEddy{Acqp: "/bids/acqp.txt", Index: "/bids/index.txt"},
		CnnMask:     config.CnnMask{ModelFolder: "/opt/models", Percentile: 97},
		Environment: config.Environment{HashCommand: []string{"sh", "/opt/getenv.sh"}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadThenDefaults(t *testing.T) {
	p, err := load(t, `
ukf {
  eddy_epi_task = "topupeddy"
}
`)
	require.NoError(t, err)
	require.NoError(t, p.ApplyDefaults(testVars.Nproc))

	assert.Equal(t, "topupeddy", p.Ukf.EddyEpiTask)
	assert.Equal(t, "pnleddy", p.Eddy.EddyTask)
	assert.Equal(t, 6, p.GibbsUn.UnringNproc)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `eddy {`, "Unclosed configuration block"},
		{"unknown block", `bogus {}`, "Unsupported block type"},
		{"unknown attribute", "eddy {\n  speed = 1\n}", "Unsupported argument"},
		{"wrong type", "gibbs_un {\n  unring_nproc = \"many\"\n}", "Unsuitable value type"},
		{"unknown variable", "eddy {\n  eddy_task = nope\n}", "Unknown variable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.src)
			require.ErrorIs(t, err, faults.ErrConfiguration)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs()).Load(context.Background(), "/nope.hcl", testVars)
	assert.ErrorIs(t, err, faults.ErrConfiguration)
}
