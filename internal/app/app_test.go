package app_test

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/dwiflow/internal/app"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/dag"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bids = "/data/rawdata"

type harness struct {
	app    *app.App
	fs     afero.Fs
	runner *testutil.Runner
	fp     *testutil.Fingerprinter
	logs   *testutil.SafeBuffer
}

func newHarness(t *testing.T, mutate func(*app.Config), cases ...string) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.Dataset(t, fs, bids, "1", cases...)

	cfg := app.Config{
		Run: config.Run{
			BidsDataDir:     bids,
			DerivativesName: "pnlpipe",
			Task:            "GibbsUn",
			Cases:           cases,
			Sessions:        []string{"1"},
			DwiTemplate:     "sub-*/ses-*/dwi/*_dwi.nii.gz",
			StructTemplate:  "sub-*/ses-*/anat/*_T2w.nii.gz",
			Workers:         2,
		},
		Nproc:    4,
		LogLevel: "debug",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	valid, err := app.NewConfig(cfg)
	require.NoError(t, err)

	h := &harness{fs: fs, runner: testutil.NewRunner(fs), fp: testutil.NewFingerprinter(), logs: &testutil.SafeBuffer{}}
	h.app = app.NewApp(h.logs, valid, app.WithFs(fs), app.WithRunner(h.runner), app.WithFingerprinter(h.fp))
	t.Cleanup(func() {
		if os.Getenv("DWIFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.logs.String())
		}
	})
	return h
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{})
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Positive(t, cfg.Nproc)
	assert.Equal(t, 1, cfg.Run.Workers)
}

func TestNewConfigRejectsUnknownLogFormat(t *testing.T) {
	_, err := app.NewConfig(app.Config{LogFormat: "xml"})
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, "Config.LogFormat must satisfy oneof=auto text json")
}

func TestRunProducesOutputs(t *testing.T) {
	h := newHarness(t, nil, "01", "02")
	report, err := h.app.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Batches, 2)
	for _, b := range report.Batches {
		assert.Equal(t, dag.Succeeded, b.State, b.Batch.String())
	}
	assert.Equal(t, 4, h.runner.Count("align.py")+h.runner.Count("unring.py"))
	assert.Equal(t, 1, h.fp.Captures())
	assert.Equal(t, 1, h.fp.Cleanups())

	ok, err := afero.Exists(h.fs, bids+"/derivatives/pnlpipe/sub-02/ses-1/dwi/sub-02_ses-1_desc-XcUn_dwi.log.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, h.logs.String(), "Execution finished.")
}

func TestRunReadsParameterFile(t *testing.T) {
	h := newHarness(t, func(c *app.Config) { c.ParamsPath = "/params.hcl" }, "01")
	require.NoError(t, afero.WriteFile(h.fs, "/params.hcl", []byte(`
gibbs_un {
  unring_nproc = nproc * 2
}
`), 0o644))

	_, err := h.app.Run(context.Background())
	require.NoError(t, err)
	records := h.runner.Records()
	require.NotEmpty(t, records)
	unring := records[len(records)-1].Command
	assert.Equal(t, "unring.py", unring.Program)
	assert.Equal(t, "8", unring.Args[len(unring.Args)-1])
}

func TestRunRejectsUnknownTask(t *testing.T) {
	h := newHarness(t, func(c *app.Config) { c.Run.Task = "SelectDwiFiles" }, "01")
	report, err := h.app.Run(context.Background())
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, `unknown task "SelectDwiFiles"`)
	assert.Nil(t, report)
}

func TestRunValidatesRun(t *testing.T) {
	h := newHarness(t, func(c *app.Config) { c.Run.Cases = nil }, "01")
	_, err := h.app.Run(context.Background())
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, "Run.Cases must satisfy min=1")
	assert.Empty(t, h.runner.Records())
}

func TestRunReportsFailedBatches(t *testing.T) {
	h := newHarness(t, nil, "01")
	h.runner.FailWith("unring.py", 2)

	report, err := h.app.Run(context.Background())
	require.ErrorIs(t, err, faults.ErrExecution)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, h.fp.Cleanups(), "snapshot files are removed after a failed run")
	assert.Contains(t, h.logs.String(), "Batch failed.")
}

func TestRunStopsOnConfigurationError(t *testing.T) {
	h := newHarness(t, func(c *app.Config) {
		c.Run.Task = "FslEddy"
	}, "01")

	report, err := h.app.Run(context.Background())
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, "acqp")
	assert.Nil(t, report)
	assert.Zero(t, h.fp.Captures())
}
