package task

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Spec is a kind plus its fully resolved parameters. Two specs with the same
// kind and parameters whose dependencies also match are the same node.
type Spec struct {
	Kind   Kind
	Params any

	canonical []byte
	snapshot  map[string]string
}

// NewSpec snapshots params, a struct whose fields carry cty tags.
func NewSpec(kind Kind, params any) (Spec, error) {
	ty, err := gocty.ImpliedType(params)
	if err != nil {
		return Spec{}, fmt.Errorf("%s parameters: %w", kind, err)
	}
	val, err := gocty.ToCtyValue(params, ty)
	if err != nil {
		return Spec{}, fmt.Errorf("%s parameters: %w", kind, err)
	}
	// Object attributes marshal in name order, so the encoding is canonical.
	canonical, err := ctyjson.Marshal(val, ty)
	if err != nil {
		return Spec{}, fmt.Errorf("%s parameters: %w", kind, err)
	}
	snapshot, err := flatten(val)
	if err != nil {
		return Spec{}, fmt.Errorf("%s parameters: %w", kind, err)
	}
	return Spec{Kind: kind, Params: params, canonical: canonical, snapshot: snapshot}, nil
}

// Snapshot returns the parameters as strings, keyed by parameter name.
func (s Spec) Snapshot() map[string]string {
	out := make(map[string]string, len(s.snapshot))
	for k, v := range s.snapshot {
		out[k] = v
	}
	return out
}

// Canonical returns the canonical JSON encoding of the parameters.
func (s Spec) Canonical() []byte {
	return s.canonical
}

// Fingerprint hashes the kind, the canonical parameters and the ordered
// fingerprints of the dependencies. Fields are length-prefixed so adjacent
// values cannot run together.
func (s Spec) Fingerprint(deps []string) string {
	h := sha256.New()
	writeField(h, []byte(s.Kind))
	writeField(h, s.canonical)
	for _, d := range deps {
		writeField(h, []byte(d))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

func flatten(val cty.Value) (map[string]string, error) {
	attrs := val.AsValueMap()
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = s.AsString()
	}
	return out, nil
}
