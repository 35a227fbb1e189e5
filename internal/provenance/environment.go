package provenance

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/ctxlog"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/runner"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Environment fingerprints the software a run used: the hashes of the
// pipeline's own sources and tools plus the exported package environment.
type Environment struct {
	Hashes       map[string]string `json:"hashes"`
	Name         string            `json:"name,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Export       string            `json:"export"`
}

// Digest is a stable hash of the environment.
func (e *Environment) Digest() string {
	if e == nil {
		return ""
	}
	h := sha256.New()
	for _, k := range slices.Sorted(maps.Keys(e.Hashes)) {
		fmt.Fprintf(h, "%s,%s\n", k, e.Hashes[k])
	}
	h.Write([]byte(e.Export))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprinter captures the environment.
type Fingerprinter interface {
	Capture(ctx context.Context) (*Environment, error)
	// Cleanup removes any temporary files Capture left behind.
	Cleanup() error
}

// CommandFingerprinter captures the environment by running two external
// commands, each writing to a temp file named after the process id.
type CommandFingerprinter struct {
	fs     afero.Fs
	runner runner.Runner
	cfg    config.Environment
	pid    int
}

// NewCommandFingerprinter returns a fingerprinter that runs the commands of
// cfg through r and reads their output from fs.
func NewCommandFingerprinter(fs afero.Fs, r runner.Runner, cfg config.Environment, pid int) *CommandFingerprinter {
	return &CommandFingerprinter{fs: fs, runner: r, cfg: cfg, pid: pid}
}

func (c *CommandFingerprinter) hashFile() string {
	return filepath.Join(c.cfg.TempDir, fmt.Sprintf("hashes-%d.txt", c.pid))
}

func (c *CommandFingerprinter) envFile() string {
	return filepath.Join(c.cfg.TempDir, fmt.Sprintf("env-%d.yml", c.pid))
}

// Capture implements Fingerprinter.
func (c *CommandFingerprinter) Capture(ctx context.Context) (*Environment, error) {
	raw, err := c.produce(ctx, c.cfg.HashCommand, c.hashFile())
	if err != nil {
		return nil, err
	}
	hashes, err := parseHashes(raw)
	if err != nil {
		return nil, faults.Provenance("parsing "+c.hashFile(), err)
	}

	export, err := c.produce(ctx, c.cfg.ExportCommand, c.envFile())
	if err != nil {
		return nil, err
	}
	var doc struct {
		Name         string `yaml:"name"`
		Dependencies []any  `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal(export, &doc); err != nil {
		return nil, faults.Provenance("parsing "+c.envFile(), err)
	}

	env := &Environment{
		Hashes:       hashes,
		Name:         doc.Name,
		Dependencies: flattenDeps(doc.Dependencies),
		Export:       string(export),
	}
	ctxlog.FromContext(ctx).Info("Captured environment fingerprint.",
		"hashes", len(env.Hashes), "dependencies", len(env.Dependencies), "digest", short(env.Digest()))
	return env, nil
}

// produce runs argv with out appended and returns what it wrote.
func (c *CommandFingerprinter) produce(ctx context.Context, argv []string, out string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, faults.Provenance("environment", fmt.Errorf("no command configured for %s", filepath.Base(out)))
	}
	cmd := runner.New(argv[0]).Arg(argv[1:]...).Arg(out).Writing(out)
	code, err := c.runner.Execute(ctx, cmd)
	if err != nil {
		return nil, faults.Provenance(cmd.String(), err)
	}
	if code != 0 {
		return nil, faults.Provenance(cmd.String(), fmt.Errorf("exit status %d", code))
	}
	data, err := afero.ReadFile(c.fs, out)
	if err != nil {
		return nil, faults.Provenance(cmd.String(), err)
	}
	return data, nil
}

// Cleanup implements Fingerprinter.
func (c *CommandFingerprinter) Cleanup() error {
	var errs []error
	for _, f := range []string{c.hashFile(), c.envFile()} {
		if err := c.fs.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// parseHashes reads whitespace separated key,value pairs.
func parseHashes(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ",")
		if !ok || key == "" || strings.Contains(value, ",") {
			return nil, fmt.Errorf("malformed hash entry %q, want key,value", sc.Text())
		}
		out[key] = value
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// flattenDeps lists package specs, expanding nested lists such as
// {pip: [...]} into "pip:<spec>".
func flattenDeps(deps []any) []string {
	var out []string
	for _, d := range deps {
		switch v := d.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			for _, k := range slices.Sorted(maps.Keys(v)) {
				items, _ := v[k].([]any)
				for _, item := range items {
					out = append(out, fmt.Sprintf("%s:%v", k, item))
				}
			}
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
