package provenance

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"path/filepath"
	"sync"

	"github.com/Masterminds/sprig/v3"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/lineage"
	"github.com/spf13/afero"
)

const (
	JSONSuffix = ".log.json"
	HTMLSuffix = ".log.html"
)

//go:embed provenance.html.tmpl
var pageSource string

var page = template.Must(template.New("provenance").Funcs(sprig.HtmlFuncMap()).Parse(pageSource))

// Recorder writes provenance beside produced outputs. The environment is
// captured on first use and shared by every record of the run.
type Recorder struct {
	fs afero.Fs
	fp Fingerprinter

	once sync.Once
	env  *Environment
	err  error
}

// NewRecorder returns a recorder writing to fs.
func NewRecorder(fs afero.Fs, fp Fingerprinter) *Recorder {
	return &Recorder{fs: fs, fp: fp}
}

// Environment returns the run's environment, capturing it on the first call.
// A failed capture is not retried.
func (r *Recorder) Environment(ctx context.Context) (*Environment, error) {
	r.once.Do(func() {
		r.env, r.err = r.fp.Capture(ctx)
	})
	return r.env, r.err
}

// Paths returns the files Record writes for primary.
func Paths(primary string) []string {
	return []string{
		lineage.ProvenancePath(primary, JSONSuffix),
		lineage.ProvenancePath(primary, HTMLSuffix),
	}
}

// Record writes the JSON and HTML views of t beside primary. All failures
// are provenance errors.
func (r *Recorder) Record(ctx context.Context, t *Tree, primary string) error {
	env, err := r.Environment(ctx)
	if err != nil {
		return err
	}
	rec := NewRecord(t, env)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return faults.Provenance("encoding record", err)
	}

	var html bytes.Buffer
	err = page.Execute(&html, struct {
		Output string
		Text   string
		Record Record
	}{filepath.Base(primary), t.Text(), rec})
	if err != nil {
		return faults.Provenance("rendering record", err)
	}

	paths := Paths(primary)
	for i, content := range [][]byte{data, html.Bytes()} {
		if err := afero.WriteFile(r.fs, paths[i], content, 0o644); err != nil {
			return faults.Provenance("writing "+paths[i], err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Wrote provenance.", "path", paths[0])
	return nil
}
