package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/dwiflow/internal/app"
	"github.com/specialistvlad/dwiflow/internal/cli"
	"github.com/specialistvlad/dwiflow/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
	require.Equal(t, cli.ExitUsage, cli.ExitCode(err))
}

func TestRun_BadParameterFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	params := filepath.Join(dir, "params.hcl")
	require.NoError(t, os.WriteFile(params, []byte("gibbs_un {\n  unring_nproc = \n"), 0o600))

	args := []string{"--bids-data-dir", dir, "-c", "01", "--task", "GibbsUn", "--params", params, "--log-format", "json"}
	err := run(context.Background(), &bytes.Buffer{}, args)

	require.Error(t, err)
	require.Equal(t, cli.ExitUsage, cli.ExitCode(err), "a malformed parameter file is a configuration error")
}

func TestRun_TaskFailureExitCode(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	testutil.Dataset(t, fs, "/data/rawdata", "1", "01")
	r := testutil.NewRunner(fs).FailWith("align.py", 1)

	args := []string{"--bids-data-dir", "/data/rawdata", "-c", "01", "--task", "DwiAlign", "--log-format", "json"}
	err := run(context.Background(), &bytes.Buffer{}, args,
		app.WithFs(fs), app.WithRunner(r), app.WithFingerprinter(testutil.NewFingerprinter()))

	require.Error(t, err)
	require.Equal(t, cli.ExitFailure, cli.ExitCode(err))
}
