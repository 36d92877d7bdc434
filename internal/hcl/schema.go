package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is the top level of a taskfile. Unknown blocks are tolerated so
// that other tools can share the file.
type fileRoot struct {
	Tasks  []*taskBlock `hcl:"task,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type taskBlock struct {
	Type        string            `hcl:"type,label"`
	Name        string            `hcl:"name,label"`
	Description *string           `hcl:"description,optional"`
	Command     string            `hcl:"command"`
	Dir         *string           `hcl:"dir,optional"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	Sources     []string          `hcl:"sources,optional"`
	Version     *string           `hcl:"version,optional"`
	Dirty       *bool             `hcl:"dirty,optional"`
	Force       *bool             `hcl:"force,optional"`
	Timeout     *string           `hcl:"timeout,optional"`
	Env         map[string]string `hcl:"env,optional"`
}
