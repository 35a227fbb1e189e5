package lineage

import (
	"slices"
	"strconv"

	"github.com/specialistvlad/dwiflow/internal/faults"
)

// Rule describes how a stage reshapes its input name besides appending its
// token.
type Rule struct {
	// Role replaces the role suffix when set.
	Role string
	// Prefix records the input role as the source prefix when the role
	// changes and no prefix is present yet.
	Prefix bool
	// Dir replaces the directory when set.
	Dir string
	// Ext replaces the extension when set.
	Ext string
}

// DeriveOutput appends token to the stage chain of in and applies rule. An
// empty token only relocates or renames.
func DeriveOutput(in Name, token string, rule Rule) (Name, error) {
	if token != "" && !IsToken(token) {
		return Name{}, faults.Configurationf(in.Base(), "unknown stage token %q", token)
	}
	out := in.clone()
	if token != "" {
		out.Chain = append(out.Chain, token)
	}
	if rule.Role != "" && rule.Role != in.Role {
		if rule.Prefix && out.Source == "" {
			out.Source = in.Role
		}
		out.Role = rule.Role
	}
	if rule.Dir != "" {
		out.Dir = rule.Dir
	}
	if rule.Ext != "" {
		out.Ext = rule.Ext
	}
	return out, nil
}

// Apply derives through several tokens in order, applying rule once at the
// first step.
func Apply(in Name, rule Rule, tokens ...string) (Name, error) {
	out, err := DeriveOutput(in, "", rule)
	if err != nil {
		return Name{}, err
	}
	for _, tok := range tokens {
		if out, err = DeriveOutput(out, tok, Rule{}); err != nil {
			return Name{}, err
		}
	}
	return out, nil
}

// DeriveRoles derives one output per role from the same input, for stages
// that write several files at once.
func DeriveRoles(in Name, token string, rule Rule, roles ...string) (map[string]Name, error) {
	out := make(map[string]Name, len(roles))
	for _, role := range roles {
		r := rule
		r.Role = role
		n, err := DeriveOutput(in, token, r)
		if err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, nil
}

// MergeRule describes how two acquisition-direction inputs combine.
type MergeRule struct {
	// Qualifier is the entity that distinguishes the inputs and is dropped
	// from the result, such as acq.
	Qualifier string
	// Count is an integer entity, such as dir, that may be summed.
	Count string
	// SumCounts replaces Count with the sum of both inputs' values when
	// both carry it.
	SumCounts bool
}

// Merge combines two names that differ only in rule.Qualifier (and
// rule.Count). The result keeps a's entity order.
func Merge(a, b Name, rule MergeRule) (Name, error) {
	op := a.Base() + " + " + b.Base()

	qa, okA := a.Get(rule.Qualifier)
	qb, okB := b.Get(rule.Qualifier)
	if !okA || !okB {
		return Name{}, faults.Configurationf(op, "both inputs must carry %s", rule.Qualifier)
	}
	if qa == qb {
		return Name{}, faults.Configurationf(op, "inputs share %s-%s", rule.Qualifier, qa)
	}
	if a.Dir != b.Dir || a.Role != b.Role || a.Ext != b.Ext || a.Source != b.Source {
		return Name{}, faults.Configurationf(op, "inputs differ beyond %s", rule.Qualifier)
	}
	if !slices.Equal(a.Chain, b.Chain) {
		return Name{}, faults.Configurationf(op, "stage chains differ: %q vs %q", a.Desc(), b.Desc())
	}

	ignored := func(e Entity) bool { return e.Key == rule.Qualifier || e.Key == rule.Count }
	restA := slices.DeleteFunc(slices.Clone(a.Entities), ignored)
	restB := slices.DeleteFunc(slices.Clone(b.Entities), ignored)
	if !slices.Equal(restA, restB) {
		return Name{}, faults.Configurationf(op, "entities differ beyond %s", rule.Qualifier)
	}

	out := a.Without(rule.Qualifier)
	if rule.Count == "" {
		return out, nil
	}
	ca, okA := a.Get(rule.Count)
	cb, okB := b.Get(rule.Count)
	if !rule.SumCounts || !okA || !okB {
		return out, nil
	}
	na, errA := strconv.Atoi(ca)
	nb, errB := strconv.Atoi(cb)
	if errA != nil || errB != nil {
		return Name{}, faults.Configurationf(op, "%s must be an integer, got %q and %q", rule.Count, ca, cb)
	}
	return out.With(rule.Count, strconv.Itoa(na+nb)), nil
}
