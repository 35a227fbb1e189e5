package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/dwiflow/internal/runner"
	"github.com/spf13/afero"
)

// ExecutionRecord holds the start and end times of one command.
type ExecutionRecord struct {
	Command runner.Command
	Start   time.Time
	End     time.Time
}

// Runner is a fake runner.Runner. By default every command succeeds and
// creates each file it declares in Writes.
type Runner struct {
	fs    afero.Fs
	delay time.Duration

	mu        sync.Mutex
	records   []ExecutionRecord
	exitCodes map[string]int
	errs      map[string]error
	silent    map[string]bool
	contents  map[string]string
	matchers  []matcher
	active    int
	maxActive int
}

// NewRunner returns a fake that writes outputs to fs.
func NewRunner(fs afero.Fs) *Runner {
	return &Runner{
		fs:        fs,
		exitCodes: make(map[string]int),
		errs:      make(map[string]error),
		silent:    make(map[string]bool),
		contents:  make(map[string]string),
	}
}

// FailWith makes program exit with code after writing its outputs, leaving
// a partial result behind.
func (r *Runner) FailWith(program string, code int) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exitCodes[program] = code
	return r
}

type matcher struct {
	match func(runner.Command) bool
	code  int
}

// FailWhen makes every command accepted by match exit with code after
// writing its outputs.
func (r *Runner) FailWhen(match func(runner.Command) bool, code int) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers = append(r.matchers, matcher{match: match, code: code})
	return r
}

// ErrorWith makes program fail to start.
func (r *Runner) ErrorWith(program string, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[program] = err
	return r
}

// WriteNothing makes program exit 0 without creating its outputs.
func (r *Runner) WriteNothing(program string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silent[program] = true
	return r
}

// Output sets what program writes into its outputs.
func (r *Runner) Output(program, content string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents[program] = content
	return r
}

// Delay makes every command take d.
func (r *Runner) Delay(d time.Duration) *Runner {
	r.delay = d
	return r
}

// Execute implements runner.Runner.
func (r *Runner) Execute(ctx context.Context, cmd runner.Command) (int, error) {
	r.mu.Lock()
	r.active++
	r.maxActive = max(r.maxActive, r.active)
	code, err, silent := r.exitCodes[cmd.Program], r.errs[cmd.Program], r.silent[cmd.Program]
	content, ok := r.contents[cmd.Program]
	for _, m := range r.matchers {
		if m.match(cmd) {
			code = m.code
		}
	}
	r.mu.Unlock()
	if !ok {
		content = cmd.String()
	}

	start := time.Now()
	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.active--
		r.records = append(r.records, ExecutionRecord{Command: cmd, Start: start, End: time.Now()})
	}()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
	if err != nil {
		return -1, err
	}
	if !silent {
		for _, p := range cmd.Writes {
			if werr := afero.WriteFile(r.fs, p, []byte(content), 0o644); werr != nil {
				return -1, werr
			}
		}
	}
	return code, nil
}

// Records returns every command executed so far, in completion order.
func (r *Runner) Records() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ExecutionRecord(nil), r.records...)
}

// Programs lists the program of every executed command in completion order.
func (r *Runner) Programs() []string {
	var out []string
	for _, rec := range r.Records() {
		out = append(out, rec.Command.Program)
	}
	return out
}

// Count returns how many times program ran.
func (r *Runner) Count(program string) int {
	n := 0
	for _, p := range r.Programs() {
		if p == program {
			n++
		}
	}
	return n
}

// MaxConcurrent is the highest number of commands seen running at once.
func (r *Runner) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxActive
}
