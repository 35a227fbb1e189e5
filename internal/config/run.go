package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/specialistvlad/dwiflow/internal/faults"
)

// Run is the broad configuration of one pipeline invocation. Task
// definitions pick from it the parameters they recognise.
type Run struct {
	BidsDataDir     string   `validate:"required"`
	DerivativesName string   `validate:"required,excludesall=/\\"`
	Task            string   `validate:"required"`
	Cases           []string `validate:"min=1,dive,required"`
	Sessions        []string `validate:"min=1"`
	DwiTemplate     string
	StructTemplate  string
	PaApTemplate    string
	Workers         int `validate:"gte=1"`
	Params          Params
}

// DerivativesDir is the root all derived outputs live under.
func (r *Run) DerivativesDir() string {
	return filepath.Join(r.BidsDataDir, "derivatives", r.DerivativesName)
}

// Relocate maps a directory of the raw dataset to its mirror under the
// derivatives root.
func (r *Run) Relocate(dir string) (string, error) {
	return Relocate(r.BidsDataDir, r.DerivativesDir(), dir)
}

// Relocate maps dir under bids to the same relative location under deriv.
// Directories already under deriv are returned unchanged.
func Relocate(bids, deriv, dir string) (string, error) {
	if rel, err := filepath.Rel(deriv, dir); err == nil && !strings.HasPrefix(rel, "..") {
		return dir, nil
	}
	rel, err := filepath.Rel(bids, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", faults.Configurationf(dir, "not inside bids_data_dir %s", bids)
	}
	return filepath.Join(deriv, rel), nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the run and its parameters.
func (r *Run) Validate() error {
	return Validate(r)
}

// Validate checks v's struct tags and reports every violation as a single
// configuration error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag()))
		}
	}
	return faults.Configurationf("run configuration", "%s", strings.Join(msgs, "; "))
}
