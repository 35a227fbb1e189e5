package config

import (
	"testing"

	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRun() *Run {
	r := &Run{
		BidsDataDir:     "/bids",
		DerivativesName: "pnlpipe",
		Task:            "GibbsUn",
		Cases:           []string{"01"},
		Sessions:        []string{"1"},
		Workers:         2,
	}
	_ = r.Params.ApplyDefaults(4)
	return r
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	p := Params{
		Eddy:    Eddy{EddyTask: "fsleddy", Debug: true},
		CnnMask: CnnMask{Percentile: 90},
	}
	require.NoError(t, p.ApplyDefaults(8))

	assert.Equal(t, "fsleddy", p.Eddy.EddyTask)
	assert.Equal(t, "cnnmask", p.Eddy.MaskTask)
	assert.True(t, p.Eddy.Debug)
	assert.Equal(t, 8, p.Eddy.EddyNproc)
	assert.Equal(t, 90, p.CnnMask.Percentile)
	assert.Equal(t, 0.25, p.Bse.BetThreshold)
	assert.Equal(t, []string{"conda", "env", "export", "--file"}, p.Environment.ExportCommand)
}

func TestMaskQcIsOptIn(t *testing.T) {
	var p Params
	require.NoError(t, p.ApplyDefaults(4))
	assert.False(t, p.Eddy.MaskQc, "unattended runs use the uncorrected mask")

	p = Params{Eddy: Eddy{MaskQc: true}}
	require.NoError(t, p.ApplyDefaults(4))
	assert.True(t, p.Eddy.MaskQc)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validRun().Validate())

	r := validRun()
	r.Cases = nil
	r.Workers = 0
	r.Params.CnnMask.Percentile = 101
	err := r.Validate()
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, "Run.Cases must satisfy min=1")
	assert.ErrorContains(t, err, "Run.Workers must satisfy gte=1")
	assert.ErrorContains(t, err, "Run.Params.CnnMask.Percentile must satisfy lte=100")
}

func TestRelocate(t *testing.T) {
	r := validRun()

	dir, err := r.Relocate("/bids/sub-01/ses-1/dwi")
	require.NoError(t, err)
	assert.Equal(t, "/bids/derivatives/pnlpipe/sub-01/ses-1/dwi", dir)

	dir, err = r.Relocate("/bids/derivatives/pnlpipe/sub-01/ses-1/dwi")
	require.NoError(t, err)
	assert.Equal(t, "/bids/derivatives/pnlpipe/sub-01/ses-1/dwi", dir)

	_, err = r.Relocate("/elsewhere/sub-01")
	assert.ErrorIs(t, err, faults.ErrConfiguration)
}
