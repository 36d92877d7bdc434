package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
)

// DefaultTimeout bounds a command that declares no timeout.
const DefaultTimeout = 10 * time.Minute

// Command is one shell invocation.
type Command struct {
	Line    string
	Dir     string
	Env     map[string]string
	Timeout time.Duration
}

// Runner executes shell commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// Output is what a command task produces.
type Output struct {
	Stdout string `json:"stdout" yaml:"stdout"`
	Status int    `json:"status" yaml:"status"`
}

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	Status int
	Output string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return "exit status " + strconv.Itoa(e.Status)
	}
	return fmt.Sprintf("exit status %d\n%s", e.Status, e.Output)
}

// ShellRunner runs commands in a local gosh shell session. Each command gets
// its own session so that environments never leak between tasks.
type ShellRunner struct{}

// NewShellRunner creates a ShellRunner.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

// Run executes cmd and returns its combined output. A non-zero exit status is
// returned as an *ExitError alongside the output.
func (r *ShellRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	var options []runner.Option
	if len(cmd.Env) > 0 {
		options = append(options, runner.WithEnvironment(cmd.Env))
	}
	service, err := gosh.New(ctx, local.New(options...))
	if err != nil {
		return Output{}, fmt.Errorf("failed to start shell: %w", err)
	}
	defer service.Close()

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if cmd.Dir != "" {
		_, status, err := service.Run(ctx, "cd "+shellQuote(cmd.Dir))
		if err != nil {
			return Output{}, fmt.Errorf("failed to change directory to %s: %w", cmd.Dir, err)
		}
		if status != 0 {
			return Output{Status: status}, fmt.Errorf("failed to change directory to %s: exit status %d", cmd.Dir, status)
		}
	}

	started := time.Now()
	stdout, status, err := service.Run(ctx, cmd.Line, runner.WithTimeout(int(timeout.Milliseconds())))
	if elapsed := time.Since(started); elapsed > timeout && err == nil {
		err = fmt.Errorf("command timed out after %s", elapsed)
	}
	out := Output{Stdout: strings.TrimSpace(stdout), Status: status}
	if err != nil {
		return out, err
	}
	if status != 0 {
		return out, &ExitError{Status: status, Output: out.Stdout}
	}
	return out, nil
}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
