package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/vk/taskgraph/internal/task"
	"github.com/vk/taskgraph/internal/tasks"
)

// Status is the outcome of one task in a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusCancelled marks a task skipped because a dependency failed.
	StatusCancelled Status = "cancelled"
	// StatusCached marks a task whose cached result made processing
	// unnecessary.
	StatusCached Status = "cached"
)

// Entry is one line of the summary.
type Entry struct {
	BaseKey     string
	Description string
	Status      Status
	Result      *task.Result
}

// Summary lists the outcome of every task in the plan, dependencies first.
type Summary struct {
	Entries []Entry
}

func newSummary(closure []*tasks.CommandTask, registered map[string]bool, results task.Results) *Summary {
	s := &Summary{Entries: make([]Entry, 0, len(closure))}
	for _, t := range closure {
		e := Entry{BaseKey: t.BaseKey(), Description: t.Description()}
		res, ok := results[t.BaseKey()]
		switch {
		case ok && res.Failed():
			e.Status, e.Result = StatusFailed, res
		case ok:
			e.Status, e.Result = StatusSucceeded, res
		case registered[t.BaseKey()]:
			e.Status = StatusCancelled
		default:
			e.Status = StatusCached
		}
		s.Entries = append(s.Entries, e)
	}
	return s
}

// Count returns how many entries have status st.
func (s *Summary) Count(st Status) int {
	n := 0
	for _, e := range s.Entries {
		if e.Status == st {
			n++
		}
	}
	return n
}

// Print writes a colored, human-readable summary.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.CyanString("Summary"))
	for _, e := range s.Entries {
		switch e.Status {
		case StatusSucceeded:
			fmt.Fprintf(w, "  %s %s  %s\n", color.GreenString("✔"), e.BaseKey, e.Description)
		case StatusFailed:
			fmt.Fprintf(w, "  %s %s  %s\n", color.RedString("✘"), e.BaseKey, color.RedString(firstLine(e.Result.Err.Error())))
		case StatusCancelled:
			fmt.Fprintf(w, "  %s %s  %s\n", color.YellowString("-"), e.BaseKey, color.YellowString("cancelled"))
		case StatusCached:
			fmt.Fprintf(w, "  %s %s  %s\n", color.BlueString("="), e.BaseKey, "cached")
		}
	}
	fmt.Fprintf(w, "%d succeeded, %d failed, %d cancelled, %d cached\n",
		s.Count(StatusSucceeded), s.Count(StatusFailed), s.Count(StatusCancelled), s.Count(StatusCached))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
