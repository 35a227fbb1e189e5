package faults

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKind(t *testing.T) {
	cause := errors.New("disk full")

	err := Execution("GibbsUn@abc", "unring.py exited 1", cause)
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "execution error in GibbsUn@abc: unring.py exited 1: disk full", err.Error())
}

func TestEscalatedProvenanceMatchesBoth(t *testing.T) {
	prov := Provenance("capturing environment", errors.New("conda not found"))
	err := Execution("CnnMask@def", "recording provenance", prov)

	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, ErrProvenance)
	assert.Equal(t, "execution", KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "", KindOf(nil))
	assert.Equal(t, "configuration", KindOf(MissingParameter("acqp")))
	assert.Equal(t, "discovery", KindOf(Discoveryf("dwi_template", "no file matches %q", "x")))
	assert.Equal(t, "provenance", KindOf(Provenance("writing", nil)))
	assert.Equal(t, "unknown", KindOf(errors.New("plain")))
}

func TestMissingParameterMessage(t *testing.T) {
	assert.EqualError(t, MissingParameter("struct_template"), "configuration error in struct_template: missing required parameter")
}
