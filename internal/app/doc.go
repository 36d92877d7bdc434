// Package app wires the taskfile loader, the task catalog and the scheduler
// into the run and inspect flows of the command line.
package app
