// Package task holds the closed catalogue of pipeline stages. Each kind has
// a typed parameter struct, a fixed dependency arity, an output contract and
// the external commands that produce its outputs.
package task

import (
	"slices"
	"strings"

	"github.com/specialistvlad/dwiflow/internal/faults"
)

// Kind names a pipeline stage.
type Kind string

const (
	SelectDwiFiles    Kind = "SelectDwiFiles"
	SelectStructFiles Kind = "SelectStructFiles"
	SelectFsDwiFiles  Kind = "SelectFsDwiFiles"
	DwiAlign          Kind = "DwiAlign"
	GibbsUn           Kind = "GibbsUn"
	CnnMask           Kind = "CnnMask"
	BseExtract        Kind = "BseExtract"
	BseMask           Kind = "BseMask"
	PnlEddy           Kind = "PnlEddy"
	FslEddy           Kind = "FslEddy"
	StructMask        Kind = "StructMask"
	EddyEpi           Kind = "EddyEpi"
	TopupEddy         Kind = "TopupEddy"
	HcpPipe           Kind = "HcpPipe"
	Ukf               Kind = "Ukf"
	Wma800            Kind = "Wma800"
	Fs2Dwi            Kind = "Fs2Dwi"
	Fs2DwiT2          Kind = "Fs2DwiT2"
	Wmql              Kind = "Wmql"
	TractMeasures     Kind = "TractMeasures"
	Wmqlqc            Kind = "Wmqlqc"
)

var kinds = []Kind{
	SelectDwiFiles, SelectStructFiles, SelectFsDwiFiles,
	DwiAlign, GibbsUn, CnnMask, BseExtract, BseMask,
	PnlEddy, FslEddy, StructMask, EddyEpi, TopupEddy, HcpPipe,
	Ukf, Wma800, Fs2Dwi, Fs2DwiT2, Wmql, TractMeasures, Wmqlqc,
}

// Kinds lists every kind in pipeline order.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// Runnable lists the kinds a user may request. Sources only locate inputs.
func Runnable() []Kind {
	return slices.DeleteFunc(Kinds(), Kind.IsSource)
}

// IsSource reports whether k locates existing files instead of producing
// new ones.
func (k Kind) IsSource() bool {
	return strings.HasPrefix(string(k), "Select")
}

// ParseKind accepts the runnable kind names, case insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range Runnable() {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	names := make([]string, 0, len(kinds))
	for _, k := range Runnable() {
		names = append(names, string(k))
	}
	return "", faults.Configurationf("task", "unknown task %q, valid tasks are %s", s, strings.Join(names, ", "))
}
