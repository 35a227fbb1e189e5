package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func base(extra ...string) []string {
	return append([]string{"--bids-data-dir", "/data/rawdata", "-c", "01", "--task", "gibbsun"}, extra...)
}

func TestParseDefaults(t *testing.T) {
	cfg, exit, err := ParseFs(afero.NewMemMapFs(), base(), &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "/data/rawdata", cfg.Run.BidsDataDir)
	assert.Equal(t, "GibbsUn", cfg.Run.Task, "task names are case insensitive")
	assert.Equal(t, []string{"01"}, cfg.Run.Cases)
	assert.Equal(t, []string{"1"}, cfg.Run.Sessions)
	assert.Equal(t, "pnlpipe", cfg.Run.DerivativesName)
	assert.Equal(t, "sub-*/ses-*/dwi/*_dwi.nii.gz", cfg.Run.DwiTemplate)
	assert.Equal(t, "sub-*/ses-*/anat/*_T2w.nii.gz", cfg.Run.StructTemplate)
	assert.Equal(t, 1, cfg.Run.Workers)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseReadsIDLists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cases.txt", []byte("01\n\n# pilot\n02\n 03 \n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/sessions.txt", []byte("1\n2\n"), 0o644))

	cfg, _, err := ParseFs(fs, []string{"--bids-data-dir", "/d", "-c", "/cases.txt", "-s", "/sessions.txt", "--task", "CnnMask"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02", "03"}, cfg.Run.Cases)
	assert.Equal(t, []string{"1", "2"}, cfg.Run.Sessions)
}

func TestParseT1Template(t *testing.T) {
	cfg, _, err := ParseFs(afero.NewMemMapFs(), base("--t1-template", "sub-*/anat/*_T1w.nii.gz"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "sub-*/anat/*_T1w.nii.gz", cfg.Run.StructTemplate)

	cfg, _, err = ParseFs(afero.NewMemMapFs(), base("--t1-template", "t1", "--t2-template", "t2"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "t2", cfg.Run.StructTemplate)
}

func TestParseHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}} {
		out := &bytes.Buffer{}
		cfg, exit, err := ParseFs(afero.NewMemMapFs(), args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
		assert.Contains(t, out.String(), "EddyEpi")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"--grid", "x"}, "flag provided but not defined: -grid"},
		{"missing bids dir", []string{"-c", "01", "--task", "GibbsUn"}, "missing required flag -bids-data-dir"},
		{"missing case", []string{"--bids-data-dir", "/d", "--task", "GibbsUn"}, "missing required flag -c"},
		{"missing task", []string{"--bids-data-dir", "/d", "-c", "01"}, "missing required flag -task"},
		{"source task", base("--task", "SelectDwiFiles"), `unknown task "SelectDwiFiles"`},
		{"positional", base("extra"), `unexpected argument "extra"`},
		{"log format", base("--log-format", "xml"), "invalid log-format"},
		{"log level", base("--log-level", "trace"), "invalid log-level"},
		{"workers", base("--workers", "0"), "invalid workers"},
		{"missing list", base("-s", "/nope.txt"), "reading id list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, exit, err := ParseFs(afero.NewMemMapFs(), tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, ExitUsage, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.wantMsg)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(&ExitError{Code: ExitUsage}))
	assert.Equal(t, ExitUsage, ExitCode(fmt.Errorf("build: %w", faults.MissingParameter("acqp"))))
	assert.Equal(t, ExitFailure, ExitCode(faults.Execution("n", "cmd", errors.New("exit status 1"))))
	assert.Equal(t, ExitFailure, ExitCode(faults.Discoveryf("dwi_template", "no file")))
}
