package task

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/dwiflow/internal/artifact"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/runner"
)

// Definition describes one kind. Instances come from Lookup.
type Definition struct {
	Kind Kind
	// Arity is the number of dependencies every node of this kind has.
	Arity int
	// Roles is the full output contract, including artifacts passed through
	// from dependencies.
	Roles []artifact.Role
	// Produces are the roles this kind writes itself. Sources produce
	// nothing; their outputs must already exist.
	Produces []artifact.Role

	params   func(context.Context, *Env, Request) (any, error)
	deps     func(any, Request) ([]Request, error)
	outputs  func(any, []artifact.Set) (artifact.Set, error)
	commands func(any, []artifact.Set, artifact.Set) []runner.Command
}

// stage is the typed form of a Definition.
type stage[P any] struct {
	kind     Kind
	roles    []artifact.Role
	produces []artifact.Role
	arity    int
	params   func(ctx context.Context, env *Env, req Request) (P, error)
	deps     func(p P, req Request) ([]Request, error)
	outputs  func(p P, in []artifact.Set) (artifact.Set, error)
	commands func(p P, in []artifact.Set, out artifact.Set) []runner.Command
}

func define[P any](s stage[P]) *Definition {
	d := &Definition{
		Kind:     s.kind,
		Arity:    s.arity,
		Roles:    s.roles,
		Produces: s.produces,
		params: func(ctx context.Context, env *Env, req Request) (any, error) {
			return s.params(ctx, env, req)
		},
		deps: func(p any, req Request) ([]Request, error) {
			if s.deps == nil {
				return nil, nil
			}
			return s.deps(p.(P), req)
		},
		outputs: func(p any, in []artifact.Set) (artifact.Set, error) {
			return s.outputs(p.(P), in)
		},
		commands: func(p any, in []artifact.Set, out artifact.Set) []runner.Command {
			if s.commands == nil {
				return nil
			}
			return s.commands(p.(P), in, out)
		},
	}
	return d
}

// IsSource reports whether the kind only locates existing files.
func (d *Definition) IsSource() bool {
	return len(d.Produces) == 0
}

// Spec resolves the parameters of req.
func (d *Definition) Spec(ctx context.Context, env *Env, req Request) (Spec, error) {
	p, err := d.params(ctx, env, req)
	if err != nil {
		return Spec{}, err
	}
	return NewSpec(d.Kind, p)
}

// Deps returns the dependency requests of a node in order.
func (d *Definition) Deps(spec Spec, req Request) ([]Request, error) {
	reqs, err := d.deps(spec.Params, req)
	if err != nil {
		return nil, err
	}
	if len(reqs) != d.Arity {
		return nil, fmt.Errorf("%s declares %d dependencies, want %d", d.Kind, len(reqs), d.Arity)
	}
	return reqs, nil
}

// Outputs derives the output set from the dependency outputs. The result
// always satisfies the kind's role contract.
func (d *Definition) Outputs(spec Spec, in []artifact.Set) (artifact.Set, error) {
	if len(in) != d.Arity {
		return nil, fmt.Errorf("%s got %d inputs, want %d", d.Kind, len(in), d.Arity)
	}
	out, err := d.outputs(spec.Params, in)
	if err != nil {
		return nil, err
	}
	for _, r := range d.Roles {
		if _, ok := out[r]; !ok {
			return nil, faults.Configurationf(string(d.Kind), "outputs lack role %q", r)
		}
	}
	return out, nil
}

// Declared lists the files whose presence marks the node complete: the
// produced roles, or every role for sources.
func (d *Definition) Declared(out artifact.Set) []string {
	if d.IsSource() {
		return out.Files(d.Roles...)
	}
	return out.Files(d.Produces...)
}

// Passthrough lists the files of roles handed over from dependencies
// without being produced here.
func (d *Definition) Passthrough(out artifact.Set) []string {
	if d.IsSource() {
		return nil
	}
	var roles []artifact.Role
	for _, r := range d.Roles {
		if !slices.Contains(d.Produces, r) {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return nil
	}
	return out.Files(roles...)
}

// Primary returns the file provenance is recorded beside.
func (d *Definition) Primary(out artifact.Set) string {
	roles := d.Produces
	if len(roles) == 0 {
		roles = d.Roles
	}
	return out.Path(roles[0])
}

// Commands returns the external invocations that produce the outputs.
func (d *Definition) Commands(spec Spec, in []artifact.Set, out artifact.Set) []runner.Command {
	return d.commands(spec.Params, in, out)
}

// Lookup returns the definition of kind.
func Lookup(kind Kind) (*Definition, error) {
	d, ok := definitions[kind]
	if !ok {
		return nil, faults.Configurationf("task", "unknown kind %q", kind)
	}
	return d, nil
}

func contract(k Kind) []string {
	d, ok := definitions[k]
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(d.Roles))
	for _, r := range d.Roles {
		roles = append(roles, string(r))
	}
	return roles
}
