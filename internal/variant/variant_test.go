package variant

import (
	"testing"

	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kind string

var roles = map[kind][]string{
	"PnlEddy": {"dwi", "bse", "mask"},
	"FslEddy": {"mask", "dwi", "bse"},
	"CnnMask": {"bse", "mask"},
	"Ukf":     {"tract"},
}

func contract(k kind) []string { return roles[k] }

func eddyTable() Table[kind] {
	return Table[kind]{
		Owner:   "EddyEpi",
		Param:   "eddy_task",
		Options: map[string]kind{"pnleddy": "PnlEddy", "fsleddy": "FslEddy"},
	}
}

func TestResolve(t *testing.T) {
	r, err := New(contract, eddyTable())
	require.NoError(t, err)

	got, err := r.Resolve("EddyEpi", "eddy_task", "FslEddy")
	require.NoError(t, err)
	assert.Equal(t, kind("FslEddy"), got)

	got, err = r.Resolve("EddyEpi", "eddy_task", "pnleddy")
	require.NoError(t, err)
	assert.Equal(t, kind("PnlEddy"), got)

	assert.Equal(t, []string{"fsleddy", "pnleddy"}, r.Options("EddyEpi", "eddy_task"))
}

func TestResolveUnknownListsOptions(t *testing.T) {
	r, err := New(contract, eddyTable())
	require.NoError(t, err)

	_, err = r.Resolve("EddyEpi", "eddy_task", "bogusEddy")
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, `unknown strategy "bogusEddy", valid options are fsleddy, pnleddy`)
}

func TestResolveMissing(t *testing.T) {
	r, err := New(contract, eddyTable())
	require.NoError(t, err)

	_, err = r.Resolve("EddyEpi", "eddy_task", "")
	require.ErrorIs(t, err, faults.ErrConfiguration)
	assert.ErrorContains(t, err, "missing required parameter")

	_, err = r.Resolve("Ukf", "eddy_task", "pnleddy")
	assert.ErrorContains(t, err, `no strategy parameter "eddy_task"`)
}

func TestNewRejectsContractMismatch(t *testing.T) {
	_, err := New(contract, Table[kind]{
		Owner:   "EddyEpi",
		Param:   "eddy_task",
		Options: map[string]kind{"pnleddy": "PnlEddy", "cnnmask": "CnnMask"},
	})
	assert.ErrorContains(t, err, "produces")
}

func TestNewRejectsBadTables(t *testing.T) {
	_, err := New(contract, Table[kind]{Owner: "EddyEpi", Param: "eddy_task"})
	assert.ErrorContains(t, err, "no options")

	_, err = New(contract, eddyTable(), eddyTable())
	assert.ErrorContains(t, err, "registered twice")

	_, err = New(contract, Table[kind]{Owner: "EddyEpi", Param: "eddy_task", Options: map[string]kind{"PnlEddy": "PnlEddy"}})
	assert.ErrorContains(t, err, "lower case")
}
