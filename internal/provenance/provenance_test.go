package provenance_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/provenance"
	"github.com/specialistvlad/dwiflow/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const condaExport = `name: pnlpipe3
dependencies:
  - python=3.9
  - pip:
      - nibabel==3.0.0
      - dipy==1.4.1
`

func history() *provenance.Tree {
	raw := &provenance.Tree{
		Kind:        "SelectDwiFiles",
		Fingerprint: "aaaaaaaaaaaaaaaa",
		Params:      map[string]string{"id": "01", "dwi": "/data/sub-01_dwi.nii.gz"},
	}
	return &provenance.Tree{
		Kind:        "DwiAlign",
		Fingerprint: "bbbbbbbbbbbbbbbb",
		Params:      map[string]string{"id": "01", "ses": ""},
		Deps:        []*provenance.Tree{raw},
	}
}

func environmentConfig() config.Environment {
	return config.Environment{
		HashCommand:   []string{"getenv.sh"},
		ExportCommand: []string{"conda", "env", "export", "--file"},
		TempDir:       "/tmp",
	}
}

func TestTreeText(t *testing.T) {
	text := history().Text()
	lines := strings.Split(text, "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "DwiAlign bbbbbbbbbbbb", strings.TrimSpace(lines[0]))
	assert.Contains(t, text, "id=01")
	assert.Contains(t, text, "ses=")
	assert.Contains(t, text, "SelectDwiFiles aaaaaaaaaaaa")
	assert.Less(t, strings.Index(text, "ses="), strings.Index(text, "SelectDwiFiles"), "params come before deps")
}

func TestNewRecordStampsEveryNode(t *testing.T) {
	env := testutil.NewFingerprinter().Env
	rec := provenance.NewRecord(history(), env)

	assert.Equal(t, "DwiAlign", rec.Name)
	assert.Equal(t, env.Digest(), rec.EnvDigest)
	assert.Same(t, env, rec.Env)
	require.Len(t, rec.Deps, 1)
	assert.Equal(t, env.Digest(), rec.Deps[0].EnvDigest)
	assert.Nil(t, rec.Deps[0].Env)
	assert.NotNil(t, rec.Deps[0].Deps, "leaves encode an empty list")
}

func TestEnvironmentDigest(t *testing.T) {
	a := &provenance.Environment{Hashes: map[string]string{"a": "1", "b": "2"}, Export: "x"}
	b := &provenance.Environment{Hashes: map[string]string{"b": "2", "a": "1"}, Export: "x"}
	c := &provenance.Environment{Hashes: map[string]string{"a": "1", "b": "3"}, Export: "x"}
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), c.Digest())
	assert.Len(t, a.Digest(), 64)

	var none *provenance.Environment
	assert.Empty(t, none.Digest())
}

func TestCommandFingerprinterCapture(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := testutil.NewRunner(fs).
		Output("getenv.sh", "dwiflow,0123 unring,4567\n").
		Output("conda", condaExport)
	fp := provenance.NewCommandFingerprinter(fs, r, environmentConfig(), 42)

	env, err := fp.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dwiflow": "0123", "unring": "4567"}, env.Hashes)
	assert.Equal(t, "pnlpipe3", env.Name)
	assert.Equal(t, []string{"python=3.9", "pip:nibabel==3.0.0", "pip:dipy==1.4.1"}, env.Dependencies)
	assert.Equal(t, condaExport, env.Export)

	records := r.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "getenv.sh /tmp/hashes-42.txt", records[0].Command.String())
	assert.Equal(t, "conda env export --file /tmp/env-42.yml", records[1].Command.String())

	require.NoError(t, fp.Cleanup())
	for _, p := range []string{"/tmp/hashes-42.txt", "/tmp/env-42.yml"} {
		ok, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
	assert.NoError(t, fp.Cleanup(), "cleanup tolerates missing files")
}

func TestCommandFingerprinterFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *testutil.Runner)
		wantMsg string
	}{
		{
			name:    "malformed hashes",
			setup:   func(r *testutil.Runner) { r.Output("getenv.sh", "dwiflow 0123") },
			wantMsg: `malformed hash entry "dwiflow"`,
		},
		{
			name:    "hash command fails",
			setup:   func(r *testutil.Runner) { r.FailWith("getenv.sh", 3) },
			wantMsg: "exit status 3",
		},
		{
			name: "export command cannot start",
			setup: func(r *testutil.Runner) {
				r.Output("getenv.sh", "a,1").ErrorWith("conda", errors.New("executable file not found"))
			},
			wantMsg: "executable file not found",
		},
		{
			name: "export is not yaml",
			setup: func(r *testutil.Runner) {
				r.Output("getenv.sh", "a,1").Output("conda", "name: [unclosed")
			},
			wantMsg: "parsing /tmp/env-7.yml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			r := testutil.NewRunner(fs)
			tt.setup(r)

			_, err := provenance.NewCommandFingerprinter(fs, r, environmentConfig(), 7).Capture(context.Background())
			require.ErrorIs(t, err, faults.ErrProvenance)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestCommandFingerprinterRequiresCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := environmentConfig()
	cfg.HashCommand = nil

	_, err := provenance.NewCommandFingerprinter(fs, testutil.NewRunner(fs), cfg, 1).Capture(context.Background())
	require.ErrorIs(t, err, faults.ErrProvenance)
	assert.ErrorContains(t, err, "no command configured for hashes-1.txt")
}

func TestRecorderWritesJSONAndHTML(t *testing.T) {
	fs := afero.NewMemMapFs()
	fp := testutil.NewFingerprinter()
	rec := provenance.NewRecorder(fs, fp)
	primary := "/out/sub-01_desc-Xc_dwi.nii.gz"

	require.NoError(t, rec.Record(context.Background(), history(), primary))
	assert.Equal(t, []string{"/out/sub-01_desc-Xc_dwi.log.json", "/out/sub-01_desc-Xc_dwi.log.html"}, provenance.Paths(primary))

	data, err := afero.ReadFile(fs, "/out/sub-01_desc-Xc_dwi.log.json")
	require.NoError(t, err)
	var got provenance.Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "DwiAlign", got.Name)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", got.Fingerprint)
	require.NotNil(t, got.Env)
	assert.Equal(t, "pnlpipe3", got.Env.Name)
	assert.Equal(t, "/data/sub-01_dwi.nii.gz", got.Deps[0].Params["dwi"])

	html, err := afero.ReadFile(fs, "/out/sub-01_desc-Xc_dwi.log.html")
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "<h1>sub-01_desc-Xc_dwi.nii.gz</h1>")
	assert.Contains(t, page, "<summary>SelectDwiFiles <code>aaaaaaaaaaaa</code></summary>")
	assert.Contains(t, page, "conda environment <code>pnlpipe3</code>")
	assert.Contains(t, page, "/data/sub-01_dwi.nii.gz")

	require.NoError(t, rec.Record(context.Background(), history(), "/out/other_dwi.nii.gz"))
	assert.Equal(t, 1, fp.Captures(), "the environment is captured once per recorder")
}

func TestRecorderKeepsCaptureFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	fp := testutil.NewFingerprinter()
	fp.Err = faults.Provenance("environment", errors.New("conda missing"))
	rec := provenance.NewRecorder(fs, fp)

	for range 2 {
		err := rec.Record(context.Background(), history(), "/out/x_dwi.nii.gz")
		require.ErrorIs(t, err, faults.ErrProvenance)
	}
	assert.Equal(t, 1, fp.Captures())
	ok, err := afero.Exists(fs, "/out/x_dwi.log.json")
	require.NoError(t, err)
	assert.False(t, ok)
}
