// Package discovery locates raw input files in a dataset tree from a glob
// template and a case/session pair.
package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/spf13/afero"
)

// Query names one input to locate. Template is relative to Root and may use
// sub-* and ses-* placeholders plus any doublestar syntax.
type Query struct {
	Param    string
	Root     string
	Template string
	Subject  string
	Session  string
}

// Finder locates files.
type Finder interface {
	// Find returns the single file matching q.
	Find(ctx context.Context, q Query) (string, error)
	// Glob returns every file matching pattern under root, sorted.
	Glob(ctx context.Context, root, pattern string) ([]string, error)
}

// GlobFinder implements Finder over an afero filesystem.
type GlobFinder struct {
	fs afero.Fs
}

// NewGlobFinder returns a finder over fs.
func NewGlobFinder(fs afero.Fs) *GlobFinder {
	return &GlobFinder{fs: fs}
}

// Expand substitutes the case and session into a template.
func Expand(template, subject, session string) string {
	out := strings.ReplaceAll(template, "sub-*", "sub-"+subject)
	if session != "" {
		out = strings.ReplaceAll(out, "ses-*", "ses-"+session)
	}
	return out
}

// Find implements Finder. Zero or several matches are discovery errors.
func (g *GlobFinder) Find(ctx context.Context, q Query) (string, error) {
	if q.Template == "" {
		return "", faults.MissingParameter(q.Param)
	}
	pattern := Expand(q.Template, q.Subject, q.Session)
	matches, err := g.Glob(ctx, q.Root, pattern)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", faults.Discoveryf(q.Param, "no file matches %s under %s", pattern, q.Root)
	case 1:
		ctxlog.FromContext(ctx).Debug("Discovered input.", "param", q.Param, "path", matches[0])
		return matches[0], nil
	default:
		return "", faults.Discoveryf(q.Param, "%d files match %s: %s", len(matches), pattern, strings.Join(matches, ", "))
	}
}

// Glob implements Finder.
func (g *GlobFinder) Glob(_ context.Context, root, pattern string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, faults.Configurationf(pattern, "invalid glob pattern")
	}
	fsys := afero.NewIOFS(afero.NewBasePathFs(g.fs, root))
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s under %s: %w", pattern, root, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}
