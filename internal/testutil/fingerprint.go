package testutil

import (
	"context"
	"sync/atomic"

	"github.com/specialistvlad/dwiflow/internal/provenance"
)

// Fingerprinter is a provenance.Fingerprinter returning a fixed environment.
type Fingerprinter struct {
	Env *provenance.Environment
	Err error

	captures atomic.Int32
	cleanups atomic.Int32
}

// NewFingerprinter returns a fingerprinter with a small fixed environment.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{Env: &provenance.Environment{
		Hashes: map[string]string{"dwiflow": "0123abcd"},
		Name:   "pnlpipe3",
		Export: "name: pnlpipe3\n",
	}}
}

// Capture implements provenance.Fingerprinter.
func (f *Fingerprinter) Capture(context.Context) (*provenance.Environment, error) {
	f.captures.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Env, nil
}

// Cleanup implements provenance.Fingerprinter.
func (f *Fingerprinter) Cleanup() error {
	f.cleanups.Add(1)
	return nil
}

// Captures returns how many times Capture was called.
func (f *Fingerprinter) Captures() int {
	return int(f.captures.Load())
}

// Cleanups returns how many times Cleanup was called.
func (f *Fingerprinter) Cleanups() int {
	return int(f.cleanups.Load())
}
