package cli

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/dwiflow/internal/app"
	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/faults"
	"github.com/specialistvlad/dwiflow/internal/task"
	"github.com/spf13/afero"
)

// Exit codes of the dwiflow binary.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode maps an error returned by a run to the process exit code:
// configuration problems are usage errors, everything else a failure.
func ExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, faults.ErrConfiguration):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Parse processes command-line arguments, reading case and session lists
// from the OS filesystem.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return ParseFs(afero.NewOsFs(), args, output)
}

// ParseFs processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func ParseFs(fs afero.Fs, args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("dwiflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
dwiflow - A dependency-driven diffusion MRI pipeline runner.

Usage:
  dwiflow --bids-data-dir DIR -c CASE --task TASK [options]

Tasks:
  `+strings.Join(taskNames(), ", ")+`

Options:
`)
		flagSet.PrintDefaults()
	}

	bidsFlag := flagSet.String("bids-data-dir", "", "Root of the BIDS dataset.")
	caseFlag := flagSet.String("c", "", "Case id, or a .txt file listing one case id per line.")
	sessionFlag := flagSet.String("s", "1", "Session id, or a .txt file listing one session id per line. Empty means no session level.")
	taskFlag := flagSet.String("task", "", "Task to run.")
	dwiTemplateFlag := flagSet.String("dwi-template", "sub-*/ses-*/dwi/*_dwi.nii.gz", "Glob locating the raw dwi relative to the BIDS root.")
	t1TemplateFlag := flagSet.String("t1-template", "", "Glob locating the raw T1w image. Used when --t2-template is not given.")
	t2TemplateFlag := flagSet.String("t2-template", "sub-*/ses-*/anat/*_T2w.nii.gz", "Glob locating the raw T2w image.")
	paApTemplateFlag := flagSet.String("pa-ap-template", "", "Comma separated PA and AP dwi globs for TopupEddy.")
	derivativesFlag := flagSet.String("derivatives-name", "pnlpipe", "Name of the directory under <bids>/derivatives receiving outputs.")
	paramsFlag := flagSet.String("params", "", "Path to an HCL parameter file.")
	workersFlag := flagSet.Int("workers", 1, "Number of tasks run concurrently.")
	logFormatFlag := flagSet.String("log-format", "auto", "Log output format. Options: 'auto', 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if len(args) == 0 {
		slog.Debug("No arguments provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unexpected argument %q", flagSet.Arg(0))}
	}
	for _, required := range []struct{ name, value string }{
		{"bids-data-dir", *bidsFlag},
		{"c", *caseFlag},
		{"task", *taskFlag},
	} {
		if required.value == "" {
			return nil, false, &ExitError{Code: ExitUsage, Message: "missing required flag -" + required.name}
		}
	}

	kind, err := task.ParseKind(*taskFlag)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	cases, err := readList(fs, *caseFlag)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	sessions, err := readList(fs, *sessionFlag)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	structTemplate := *t2TemplateFlag
	if *t1TemplateFlag != "" && !isSet(flagSet, "t2-template") {
		structTemplate = *t1TemplateFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	switch logFormat {
	case "auto", "text", "json":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'auto', 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid workers: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		Run: config.Run{
			BidsDataDir:     *bidsFlag,
			DerivativesName: *derivativesFlag,
			Task:            string(kind),
			Cases:           cases,
			Sessions:        sessions,
			DwiTemplate:     *dwiTemplateFlag,
			StructTemplate:  structTemplate,
			PaApTemplate:    *paApTemplateFlag,
			Workers:         *workersFlag,
		},
		ParamsPath: *paramsFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "task", kind, "cases", len(cases), "sessions", len(sessions))
	return cfg, false, nil
}

// readList returns value itself, or the non-blank lines of value when it
// names a .txt file. Lines starting with # are comments.
func readList(fs afero.Fs, value string) ([]string, error) {
	if !strings.HasSuffix(value, ".txt") {
		return []string{value}, nil
	}
	data, err := afero.ReadFile(fs, value)
	if err != nil {
		return nil, fmt.Errorf("reading id list: %w", err)
	}
	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading id list %s: %w", value, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("id list %s is empty", value)
	}
	return ids, nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func taskNames() []string {
	var names []string
	for _, k := range task.Runnable() {
		names = append(names, string(k))
	}
	return names
}
