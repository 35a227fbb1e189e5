package lineage

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

const descKey = "desc"

// Entity is one key-value pair of a BIDS name, such as sub-01.
type Entity struct {
	Key   string
	Value string
}

// Name is a parsed BIDS-style file name. Entities keep their original order
// and never include desc, which is rebuilt from Source and Chain.
type Name struct {
	Dir      string
	Entities []Entity
	Source   string
	Chain    []string
	Role     string
	Ext      string
}

// Parse splits a path into a Name. The extension starts at the first dot of
// the base name, so double extensions such as .nii.gz stay whole.
func Parse(path string) (Name, error) {
	n := Name{Dir: filepath.Dir(path)}
	base := filepath.Base(path)
	stem := base
	if i := strings.IndexByte(base, '.'); i >= 0 {
		stem, n.Ext = base[:i], base[i:]
	}

	parts := strings.Split(stem, "_")
	last := parts[len(parts)-1]
	if last == "" || strings.Contains(last, "-") {
		return Name{}, fmt.Errorf("parsing %s: missing role suffix", base)
	}
	n.Role = last

	for _, part := range parts[:len(parts)-1] {
		key, value, ok := strings.Cut(part, "-")
		if !ok || key == "" {
			return Name{}, fmt.Errorf("parsing %s: malformed entity %q", base, part)
		}
		if key == descKey {
			source, chain, err := splitDesc(value)
			if err != nil {
				return Name{}, fmt.Errorf("parsing %s: %w", base, err)
			}
			n.Source, n.Chain = source, chain
			continue
		}
		n.Entities = append(n.Entities, Entity{Key: key, Value: value})
	}
	return n, nil
}

// Desc renders the desc value, or "" when the name carries no history.
func (n Name) Desc() string {
	return n.Source + strings.Join(n.Chain, "")
}

// Base renders the file name without its directory.
func (n Name) Base() string {
	return n.Stem() + n.Ext
}

// Stem renders the file name without directory or extension.
func (n Name) Stem() string {
	parts := make([]string, 0, len(n.Entities)+2)
	for _, e := range n.Entities {
		parts = append(parts, e.Key+"-"+e.Value)
	}
	if desc := n.Desc(); desc != "" {
		parts = append(parts, descKey+"-"+desc)
	}
	parts = append(parts, n.Role)
	return strings.Join(parts, "_")
}

// Path renders the full path.
func (n Name) Path() string {
	return filepath.Join(n.Dir, n.Base())
}

func (n Name) String() string {
	return n.Path()
}

// Get returns the value of entity key.
func (n Name) Get(key string) (string, bool) {
	for _, e := range n.Entities {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// With returns a copy of n with entity key set to value. A new entity is
// appended after the existing ones.
func (n Name) With(key, value string) Name {
	out := n.clone()
	for i := range out.Entities {
		if out.Entities[i].Key == key {
			out.Entities[i].Value = value
			return out
		}
	}
	out.Entities = append(out.Entities, Entity{Key: key, Value: value})
	return out
}

// Without returns a copy of n with entity key removed.
func (n Name) Without(key string) Name {
	out := n.clone()
	out.Entities = slices.DeleteFunc(out.Entities, func(e Entity) bool { return e.Key == key })
	return out
}

// WithExt returns the path of a file sharing n's stem but with ext.
func (n Name) WithExt(ext string) string {
	return filepath.Join(n.Dir, n.Stem()+ext)
}

// Prefix returns the path without extension. Several tools take an output
// prefix and append their own extensions.
func (n Name) Prefix() string {
	return filepath.Join(n.Dir, n.Stem())
}

func (n Name) clone() Name {
	out := n
	out.Entities = slices.Clone(n.Entities)
	out.Chain = slices.Clone(n.Chain)
	return out
}

// Sidecar returns the path of a file sharing path's stem but with ext. It
// does not require path to be a BIDS name.
func Sidecar(path, ext string) string {
	return trimExt(path) + ext
}

// ProvenancePath returns where the provenance record with suffix is written
// for a primary output. Directory outputs get a sibling file.
func ProvenancePath(path, suffix string) string {
	return trimExt(filepath.Clean(path)) + suffix
}

func trimExt(path string) string {
	dir, base := filepath.Split(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return dir + base
}
