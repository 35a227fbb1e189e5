// Package variant resolves user-facing strategy names to the task kind that
// satisfies a dependency slot.
//
// Every option of a table must produce the same output roles, so a consumer
// never has to know which option was chosen. New checks that once, when the
// tables are registered, rather than on every resolution.
package variant

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/dwiflow/internal/faults"
)

// Table maps the names accepted by one parameter to task kinds.
type Table[K ~string] struct {
	// Owner is the kind whose dependency slot the table fills.
	Owner K
	// Param is the parameter that carries the strategy name.
	Param string
	// Options maps lower-case names to kinds.
	Options map[string]K
}

// Resolver looks strategies up by owner and parameter.
type Resolver[K ~string] struct {
	tables map[K]map[string]Table[K]
}

// New validates tables against contract, which returns the output roles of
// a kind, and builds a resolver.
func New[K ~string](contract func(K) []string, tables ...Table[K]) (*Resolver[K], error) {
	r := &Resolver[K]{tables: make(map[K]map[string]Table[K])}
	for _, t := range tables {
		if len(t.Options) == 0 {
			return nil, fmt.Errorf("variant table %s.%s has no options", t.Owner, t.Param)
		}
		byParam, ok := r.tables[t.Owner]
		if !ok {
			byParam = make(map[string]Table[K])
			r.tables[t.Owner] = byParam
		}
		if _, dup := byParam[t.Param]; dup {
			return nil, fmt.Errorf("variant table %s.%s registered twice", t.Owner, t.Param)
		}

		var want []string
		var first K
		for _, name := range sortedKeys(t.Options) {
			if name != strings.ToLower(name) {
				return nil, fmt.Errorf("variant table %s.%s: option %q must be lower case", t.Owner, t.Param, name)
			}
			kind := t.Options[name]
			roles := slices.Sorted(slices.Values(contract(kind)))
			if want == nil {
				want, first = roles, kind
				continue
			}
			if !slices.Equal(want, roles) {
				return nil, fmt.Errorf("variant table %s.%s: %s produces %v but %s produces %v",
					t.Owner, t.Param, kind, roles, first, want)
			}
		}
		byParam[t.Param] = t
	}
	return r, nil
}

// Resolve returns the kind named by name for owner's param. Matching is case
// insensitive.
func (r *Resolver[K]) Resolve(owner K, param, name string) (K, error) {
	var zero K
	t, ok := r.tables[owner][param]
	if !ok {
		return zero, faults.Configurationf(string(owner), "no strategy parameter %q", param)
	}
	if name == "" {
		return zero, faults.MissingParameter(param)
	}
	kind, ok := t.Options[strings.ToLower(name)]
	if !ok {
		return zero, faults.Configurationf(param, "unknown strategy %q, valid options are %s",
			name, strings.Join(sortedKeys(t.Options), ", "))
	}
	return kind, nil
}

// Options lists the accepted names for owner's param in sorted order.
func (r *Resolver[K]) Options(owner K, param string) []string {
	return sortedKeys(r.tables[owner][param].Options)
}

func sortedKeys[K ~string](m map[string]K) []string {
	return slices.Sorted(maps.Keys(m))
}
