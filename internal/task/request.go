package task

import (
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/discovery"
)

// Batch is one case/session pair. Session may be empty.
type Batch struct {
	Case    string
	Session string
}

func (b Batch) String() string {
	if b.Session == "" {
		return "sub-" + b.Case
	}
	return "sub-" + b.Case + "/ses-" + b.Session
}

// Request asks for a kind on behalf of a batch.
type Request struct {
	Kind  Kind
	Batch Batch
	// DwiTemplate overrides the run's dwi template for one branch, as when a
	// merging stage asks for each acquisition direction separately.
	DwiTemplate string
}

func (r Request) with(kind Kind) Request {
	r.Kind = kind
	return r
}

func (r Request) dwiTemplate(run *config.Run) string {
	if r.DwiTemplate != "" {
		return r.DwiTemplate
	}
	return run.DwiTemplate
}

// Env is what definitions read while resolving parameters.
type Env struct {
	Run    *config.Run
	Finder discovery.Finder
}
