// Package hcl loads taskfiles written in HCL into the config model.
//
// A taskfile declares tasks as labelled blocks:
//
//	task "build" "api" {
//	  command    = "go build ./cmd/api"
//	  sources    = ["go.mod", "go.sum"]
//	  depends_on = ["generate.api"]
//	  env        = { CGO_ENABLED = "0" }
//	}
//
// Expressions may read the process environment through the env object and
// call a few string functions (upper, lower, join, trimspace, format).
package hcl
