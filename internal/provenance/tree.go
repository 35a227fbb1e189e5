// Package provenance reconstructs how an artifact was produced. Every
// produced node gets a JSON record and an HTML page beside its primary
// output, holding the parameter tree of the node and all of its ancestors
// plus a fingerprint of the software environment.
package provenance

import (
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss/tree"
)

// Tree is the parameter history of one node. It mirrors the node graph:
// shared ancestors appear once per path that reaches them.
type Tree struct {
	Kind        string
	Fingerprint string
	Params      map[string]string
	Deps        []*Tree
}

// Record is the persisted form of a Tree.
type Record struct {
	Name        string            `json:"name"`
	Params      map[string]string `json:"params"`
	Fingerprint string            `json:"fingerprint"`
	EnvDigest   string            `json:"env_digest"`
	Deps        []Record          `json:"deps"`
	// Env is only set on the root.
	Env *Environment `json:"env,omitempty"`
}

// NewRecord converts t into a record stamped with env.
func NewRecord(t *Tree, env *Environment) Record {
	rec := record(t, env.Digest())
	rec.Env = env
	return rec
}

func record(t *Tree, digest string) Record {
	rec := Record{
		Name:        t.Kind,
		Params:      t.Params,
		Fingerprint: t.Fingerprint,
		EnvDigest:   digest,
		Deps:        make([]Record, 0, len(t.Deps)),
	}
	if rec.Params == nil {
		rec.Params = map[string]string{}
	}
	for _, d := range t.Deps {
		rec.Deps = append(rec.Deps, record(d, digest))
	}
	return rec
}

// Text renders the history as an indented tree, one parameter per line.
func (t *Tree) Text() string {
	return t.node().String()
}

func (t *Tree) node() *tree.Tree {
	n := tree.Root(fmt.Sprintf("%s %s", t.Kind, short(t.Fingerprint))).
		Enumerator(tree.RoundedEnumerator)
	for _, k := range slices.Sorted(maps.Keys(t.Params)) {
		n.Child(k + "=" + t.Params[k])
	}
	for _, d := range t.Deps {
		n.Child(d.node())
	}
	return n
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
