package hcl

import (
	"context"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/spf13/afero"
)

// Loader implements config.Loader for HCL parameter files.
type Loader struct {
	fs afero.Fs
}

// NewLoader returns a loader reading from fs.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string, vars config.Variables) (*config.Params, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		logger.Debug("No parameter file given, using defaults.")
		return &config.Params{}, nil
	}
	logger.Debug("HCL loader started.", "path", path)

	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, faults.Configurationf(path, "reading parameter file: %v", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, faults.Configurationf(path, "%s", diags.Error())
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalContext(vars), &root); diags.HasErrors() {
		return nil, faults.Configurationf(path, "%s", diags.Error())
	}

	params := translate(&root)
	logger.Debug("HCL loading complete.", "path", path)
	return params, nil
}

var _ config.Loader = (*Loader)(nil)
