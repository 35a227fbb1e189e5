// Package runner executes external tools. The pipeline core only builds
// Commands with fully resolved paths; what the tools do with them is opaque.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/dwiflow/internal/ctxlog"
)

// Command is one external tool invocation.
type Command struct {
	Program string
	Args    []string
	// Writes lists the files the invocation is expected to create.
	Writes []string
}

// New starts a command for program.
func New(program string) Command {
	return Command{Program: program}
}

// Arg appends positional arguments.
func (c Command) Arg(values ...string) Command {
	c.Args = append(slices.Clip(c.Args), values...)
	return c
}

// Flag appends a flag followed by its values.
func (c Command) Flag(name string, values ...string) Command {
	return c.Arg(append([]string{name}, values...)...)
}

// FlagIf appends the flag only when cond holds.
func (c Command) FlagIf(cond bool, name string, values ...string) Command {
	if !cond {
		return c
	}
	return c.Flag(name, values...)
}

// Writing records files the command creates.
func (c Command) Writing(paths ...string) Command {
	c.Writes = append(slices.Clip(c.Writes), paths...)
	return c
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.Program}, c.Args...) {
		if p == "" || strings.ContainsAny(p, " \t\"'") {
			p = strconv.Quote(p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Runner executes a command and reports its exit code. An error means the
// command could not be run at all.
type Runner interface {
	Execute(ctx context.Context, cmd Command) (int, error)
}

// Exec runs commands as child processes.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns a runner that forwards tool output to the given writers.
func NewExec(stdout, stderr io.Writer) *Exec {
	return &Exec{Stdout: stdout, Stderr: stderr}
}

// Execute implements Runner.
func (e *Exec) Execute(ctx context.Context, cmd Command) (int, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executing command.", "command", cmd.String())

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	start := time.Now()
	err := c.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("Command exited.", "program", cmd.Program, "code", exitErr.ExitCode(), "duration", time.Since(start))
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("running %s: %w", cmd.Program, err)
	}
	logger.Debug("Command exited.", "program", cmd.Program, "code", 0, "duration", time.Since(start))
	return 0, nil
}
