// Package artifact models the files a task reads and writes, keyed by role.
package artifact

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/dwiflow/internal/lineage"
)

// Role names what an artifact is to its consumers.
type Role string

const (
	RoleDWI      Role = "dwi"
	RoleBSE      Role = "bse"
	RoleMask     Role = "mask"
	RoleStruct   Role = "struct"
	RoleAligned  Role = "aligned"
	RoleTract    Role = "tract"
	RoleAtlas    Role = "atlas"
	RoleFsDir    Role = "fsdir"
	RoleWmparc   Role = "wmparc"
	RoleWmql     Role = "wmql"
	RoleMeasures Role = "measures"
	RoleQC       Role = "qc"
)

// DWISidecars are the gradient tables travelling with every diffusion image.
var DWISidecars = []string{".bval", ".bvec"}

// Artifact is a primary file plus the sidecars that travel with it.
type Artifact struct {
	Path     string
	Sidecars []string
}

// New returns an artifact for path with sidecars derived from its stem.
func New(path string, sidecarExts ...string) Artifact {
	a := Artifact{Path: path}
	for _, ext := range sidecarExts {
		a.Sidecars = append(a.Sidecars, lineage.Sidecar(path, ext))
	}
	return a
}

// FromName is New for a derived name.
func FromName(n lineage.Name, sidecarExts ...string) Artifact {
	return New(n.Path(), sidecarExts...)
}

// Sidecar returns the sidecar with extension ext, or "".
func (a Artifact) Sidecar(ext string) string {
	want := lineage.Sidecar(a.Path, ext)
	if slices.Contains(a.Sidecars, want) {
		return want
	}
	return ""
}

// Files lists the primary followed by its sidecars.
func (a Artifact) Files() []string {
	return append([]string{a.Path}, a.Sidecars...)
}

// Set maps roles to artifacts.
type Set map[Role]Artifact

// Get returns the artifact for role or an error naming the available roles.
func (s Set) Get(role Role) (Artifact, error) {
	a, ok := s[role]
	if !ok {
		return Artifact{}, fmt.Errorf("no %q artifact among %v", role, s.Roles())
	}
	return a, nil
}

// Path returns the primary file of role, or "" when absent.
func (s Set) Path(role Role) string {
	return s[role].Path
}

// Roles returns the roles in sorted order.
func (s Set) Roles() []Role {
	roles := make([]Role, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	SortRoles(roles)
	return roles
}

// Files lists every file of the given roles, or of all roles when none are
// named.
func (s Set) Files(roles ...Role) []string {
	if len(roles) == 0 {
		roles = s.Roles()
	}
	var files []string
	for _, r := range roles {
		if a, ok := s[r]; ok {
			files = append(files, a.Files()...)
		}
	}
	return files
}

// SortRoles sorts roles in place.
func SortRoles(roles []Role) {
	slices.Sort(roles)
}
