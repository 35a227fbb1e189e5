package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/dwiflow/internal/runner"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerWritesDeclaredOutputs(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewRunner(fs)

	code, err := r.Execute(context.Background(), runner.New("tool").Arg("a").Writing("/out/a.txt", "/out/b.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	data, err := afero.ReadFile(fs, "/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "tool a", string(data))
	ok, err := afero.Exists(fs, "/out/b.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"tool"}, r.Programs())
}

func TestRunnerFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := errors.New("boom")
	r := NewRunner(fs).FailWith("bad", 3).ErrorWith("missing", boom).WriteNothing("lazy").Output("cat", "hello")
	ctx := context.Background()

	code, err := r.Execute(ctx, runner.New("bad").Writing("/bad"))
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	ok, _ := afero.Exists(fs, "/bad")
	assert.True(t, ok, "failing commands still leave partial output")

	_, err = r.Execute(ctx, runner.New("missing").Writing("/missing"))
	assert.ErrorIs(t, err, boom)

	code, err = r.Execute(ctx, runner.New("lazy").Writing("/lazy"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	ok, _ = afero.Exists(fs, "/lazy")
	assert.False(t, ok)

	_, err = r.Execute(ctx, runner.New("cat").Writing("/cat"))
	require.NoError(t, err)
	data, _ := afero.ReadFile(fs, "/cat")
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, 1, r.Count("bad"))
	assert.Len(t, r.Records(), 4)
	assert.Equal(t, 1, r.MaxConcurrent())
}

func TestRawDwi(t *testing.T) {
	assert.Equal(t, []string{
		"/bids/sub-01/ses-1/dwi/sub-01_ses-1_acq-PA_dwi.nii.gz",
		"/bids/sub-01/ses-1/dwi/sub-01_ses-1_acq-PA_dwi.bval",
		"/bids/sub-01/ses-1/dwi/sub-01_ses-1_acq-PA_dwi.bvec",
	}, RawDwi("/bids", "01", "1", "acq-PA"))
	assert.Equal(t, "/bids/sub-01/ses-1/anat/sub-01_ses-1_T2w.nii.gz", RawT2w("/bids", "01", "1"))
}

func TestFingerprinterCounts(t *testing.T) {
	f := NewFingerprinter()
	env, err := f.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pnlpipe3", env.Name)
	require.NoError(t, f.Cleanup())
	assert.Equal(t, 1, f.Captures())
	assert.Equal(t, 1, f.Cleanups())
}
