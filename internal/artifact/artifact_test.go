package artifact

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesSidecars(t *testing.T) {
	a := New("/d/sub-01_desc-Xc_dwi.nii.gz", DWISidecars...)
	assert.Equal(t, []string{
		"/d/sub-01_desc-Xc_dwi.nii.gz",
		"/d/sub-01_desc-Xc_dwi.bval",
		"/d/sub-01_desc-Xc_dwi.bvec",
	}, a.Files())
	assert.Equal(t, "/d/sub-01_desc-Xc_dwi.bval", a.Sidecar(".bval"))
	assert.Empty(t, a.Sidecar(".json"))
}

func TestSet(t *testing.T) {
	s := Set{
		RoleMask: New("/d/mask.nii.gz"),
		RoleDWI:  New("/d/dwi.nii.gz", ".bval"),
	}
	assert.Equal(t, []Role{RoleDWI, RoleMask}, s.Roles())
	assert.Equal(t, []string{"/d/dwi.nii.gz", "/d/dwi.bval", "/d/mask.nii.gz"}, s.Files())
	assert.Equal(t, []string{"/d/mask.nii.gz"}, s.Files(RoleMask))

	_, err := s.Get(RoleTract)
	assert.ErrorContains(t, err, `no "tract" artifact`)

	roles := []Role{RoleWmql, RoleBSE, RoleDWI, RoleAtlas}
	SortRoles(roles)
	assert.Equal(t, []Role{RoleAtlas, RoleBSE, RoleDWI, RoleWmql}, roles)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	c := NewCache(fs)
	paths := []string{"/out/a/x.nii.gz", "/out/a/x.bval"}

	d, err := c.Lookup(ctx, paths)
	require.NoError(t, err)
	assert.False(t, d.Complete)
	assert.Equal(t, paths, d.Missing)

	require.NoError(t, c.Prepare(paths))
	require.NoError(t, afero.WriteFile(fs, paths[0], []byte("x"), 0o644))

	d, err = c.Lookup(ctx, paths)
	require.NoError(t, err)
	assert.False(t, d.Complete, "a partial set is not complete")

	require.NoError(t, afero.WriteFile(fs, paths[1], []byte("x"), 0o644))
	d, err = c.Lookup(ctx, paths)
	require.NoError(t, err)
	assert.True(t, d.Complete)

	require.NoError(t, c.Discard(ctx, append(paths, "/out/never")))
	d, err = c.Lookup(ctx, paths)
	require.NoError(t, err)
	assert.Empty(t, d.Present)
}

func TestCacheNoOutputsIsNeverComplete(t *testing.T) {
	d, err := NewCache(afero.NewMemMapFs()).Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, d.Complete)
}
