package cli

import (
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/taskgraph/internal/app"
	"github.com/vk/taskgraph/internal/scheduler"
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

// Command names the action selected on the command line.
type Command string

const (
	CommandRun     Command = "run"
	CommandInspect Command = "inspect"
)

// Invocation is a parsed command line.
type Invocation struct {
	Command Command
	Config  *app.Config
}

type flags struct {
	logFormat       string
	logLevel        string
	healthcheckPort int
	concurrency     int
	force           bool
	allowDirty      bool
	dashboardURL    string
	traceFile       string
	targets         []string
}

// Parse processes command-line arguments. It returns the invocation, a
// boolean indicating if the program should exit cleanly (help was shown), or
// an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	var inv *Invocation
	root := newRootCommand(func(cmd Command, cfg *app.Config) {
		inv = &Invocation{Command: cmd, Config: cfg}
	})
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if inv == nil {
		return nil, true, nil
	}
	return inv, false, nil
}

func newRootCommand(accept func(Command, *app.Config)) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "taskgraph",
		Short: "Run dependent tasks declared in HCL taskfiles",
		Long: `taskgraph runs the tasks declared in HCL taskfiles in dependency order,
processing independent tasks concurrently and skipping the dependants of
failed tasks.

EXAMPLES:
  # Run every task declared under ./ci
  taskgraph run ./ci

  # Run one task and its dependencies, four at a time
  taskgraph run --target push.api --concurrency 4 ./ci

  # Show what would be scheduled
  taskgraph inspect ./ci`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&f.concurrency, "concurrency", scheduler.DefaultConcurrency, "Maximum number of tasks processed at once.")
	pf.BoolVar(&f.force, "force", false, "Process tasks even when a cached result is valid.")
	pf.BoolVar(&f.allowDirty, "allow-dirty", false, "Allow tasks whose sources carry uncommitted changes.")
	pf.StringSliceVarP(&f.targets, "target", "t", nil, "Base key of a task to run (repeatable). Default: all tasks.")

	runCmd := &cobra.Command{
		Use:   "run [TASKFILE_PATH...]",
		Short: "Run tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args)
			if err != nil {
				return err
			}
			accept(CommandRun, cfg)
			return nil
		},
	}
	runCmd.Flags().IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	runCmd.Flags().StringVar(&f.dashboardURL, "dashboard-url", "", "socket.io URL receiving task events.")
	runCmd.Flags().StringVar(&f.traceFile, "trace-file", "", "Write OpenTelemetry spans to this file.")

	inspectCmd := &cobra.Command{
		Use:   "inspect [TASKFILE_PATH...]",
		Short: "Print the scheduled graph as YAML without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args)
			if err != nil {
				return err
			}
			accept(CommandInspect, cfg)
			return nil
		},
	}

	root.AddCommand(runCmd, inspectCmd)
	return root
}

// config validates the flags and builds the app configuration. Without
// positional arguments the current directory is searched for taskfiles.
func (f *flags) config(paths []string) (*app.Config, error) {
	logFormat := strings.ToLower(f.logFormat)
	if !slices.Contains(app.LogFormats, logFormat) {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(f.logLevel)
	if _, err := app.ParseLevel(logLevel); err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, err := app.NewConfig(app.Config{
		TaskfilePaths:   paths,
		Targets:         f.targets,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: f.healthcheckPort,
		Concurrency:     f.concurrency,
		Force:           f.force,
		AllowDirty:      f.allowDirty,
		DashboardURL:    f.dashboardURL,
		TraceFile:       f.traceFile,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}
