package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// WriteFiles creates each path with placeholder content.
func WriteFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}
}

// RawDwi returns the raw diffusion image of a case and session, with its
// gradient tables, laid out as a BIDS dataset under root. Qualifiers such as
// "acq-PA" are inserted before the role.
func RawDwi(root, sub, ses string, qualifiers ...string) []string {
	stem := entities(sub, ses, qualifiers) + "_dwi"
	dir := filepath.Join(root, "sub-"+sub, "ses-"+ses, "dwi")
	return []string{
		filepath.Join(dir, stem+".nii.gz"),
		filepath.Join(dir, stem+".bval"),
		filepath.Join(dir, stem+".bvec"),
	}
}

// RawT2w returns the raw T2 weighted image of a case and session.
func RawT2w(root, sub, ses string) string {
	return filepath.Join(root, "sub-"+sub, "ses-"+ses, "anat", entities(sub, ses, nil)+"_T2w.nii.gz")
}

// Dataset writes a raw dwi and T2w image for every case of session ses.
func Dataset(t *testing.T, fs afero.Fs, root, ses string, cases ...string) {
	t.Helper()
	for _, c := range cases {
		WriteFiles(t, fs, RawDwi(root, c, ses)...)
		WriteFiles(t, fs, RawT2w(root, c, ses))
	}
}

func entities(sub, ses string, qualifiers []string) string {
	s := fmt.Sprintf("sub-%s_ses-%s", sub, ses)
	for _, q := range qualifiers {
		s += "_" + q
	}
	return s
}
