package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/spf13/afero"
)

// Decision is the outcome of a completion lookup.
type Decision struct {
	Complete bool
	Present  []string
	Missing  []string
}

// Cache decides whether a node's work is already done from the presence of
// its declared outputs alone. It never inspects file contents or times.
type Cache struct {
	fs afero.Fs
}

// NewCache returns a cache over fs.
func NewCache(fs afero.Fs) *Cache {
	return &Cache{fs: fs}
}

// Lookup checks every path. A node with no declared outputs is never
// complete.
func (c *Cache) Lookup(ctx context.Context, paths []string) (Decision, error) {
	var d Decision
	for _, p := range paths {
		ok, err := afero.Exists(c.fs, p)
		if err != nil {
			return Decision{}, fmt.Errorf("checking %s: %w", p, err)
		}
		if ok {
			d.Present = append(d.Present, p)
		} else {
			d.Missing = append(d.Missing, p)
		}
	}
	d.Complete = len(paths) > 0 && len(d.Missing) == 0
	ctxlog.FromContext(ctx).Debug("Completion lookup.", "complete", d.Complete, "present", len(d.Present), "missing", d.Missing)
	return d, nil
}

// Prepare creates the parent directories of every path.
func (c *Cache) Prepare(paths []string) error {
	for _, p := range paths {
		if err := c.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", p, err)
		}
	}
	return nil
}

// Discard removes whatever exists of paths, so a failed node never leaves a
// partial result that a later run would mistake for a finished one.
func (c *Cache) Discard(ctx context.Context, paths []string) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, p := range paths {
		err := c.fs.RemoveAll(p)
		switch {
		case err == nil:
			logger.Debug("Discarded partial output.", "path", p)
		case errors.Is(err, os.ErrNotExist):
		default:
			errs = append(errs, fmt.Errorf("removing %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
