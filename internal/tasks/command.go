// Package tasks provides the task kind the command line schedules: shell
// commands declared in taskfiles.
package tasks

import (
	"context"
	"regexp"
	"strings"

	"github.com/viant/afs/url"
	"github.com/vk/taskgraph/internal/config"
	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/task"
)

// CommandTask runs a declared shell command.
type CommandTask struct {
	def     *config.TaskDef
	key     string
	version task.Version
	force   bool
	catalog *Catalog
}

var _ task.Task = (*CommandTask)(nil)

func (t *CommandTask) Key() string           { return t.key }
func (t *CommandTask) BaseKey() string       { return t.def.BaseKey() }
func (t *CommandTask) Type() string          { return t.def.Type }
func (t *CommandTask) Version() task.Version { return t.version }
func (t *CommandTask) Force() bool           { return t.force }
func (t *CommandTask) Description() string   { return t.def.Description }

// Definition returns the declaration the task was built from.
func (t *CommandTask) Definition() *config.TaskDef {
	return t.def
}

// Dependencies returns the catalog's instances of the declared dependencies.
func (t *CommandTask) Dependencies(ctx context.Context) ([]task.Task, error) {
	deps := make([]task.Task, 0, len(t.def.DependsOn))
	for _, baseKey := range t.def.DependsOn {
		dep, err := t.catalog.Task(ctx, baseKey)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// Process runs the command. The standard output of every dependency that
// produced an Output is exported as DEP_<BASE_KEY>, upper-cased with
// non-alphanumerics replaced by underscores.
func (t *CommandTask) Process(ctx context.Context, deps task.Results) (any, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running command.", "task", t.key, "command", t.def.Command)

	env := make(map[string]string, len(t.def.Env)+len(deps))
	for baseKey, res := range deps {
		if out, ok := res.Output.(Output); ok {
			env[DependencyEnvName(baseKey)] = out.Stdout
		}
	}
	for k, v := range t.def.Env {
		env[k] = v
	}

	out, err := t.catalog.runner.Run(ctx, Command{
		Line:    t.def.Command,
		Dir:     localPath(t.def.Dir),
		Env:     env,
		Timeout: t.def.Timeout,
	})
	if err != nil {
		logger.Debug("Command failed.", "task", t.key, "status", out.Status, "error", err)
		return nil, err
	}
	logger.Debug("Command finished.", "task", t.key, "status", out.Status)
	return out, nil
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// DependencyEnvName is the environment variable carrying a dependency's
// output.
func DependencyEnvName(baseKey string) string {
	return "DEP_" + strings.ToUpper(nonAlnum.ReplaceAllString(baseKey, "_"))
}

// localPath turns a file URL into a path a local shell understands.
func localPath(location string) string {
	if location == "" || !strings.Contains(location, "://") {
		return location
	}
	return url.Path(location)
}
