package scheduler

import (
	"fmt"
	"strings"

	"github.com/vk/taskgraph/internal/logentry"
	"github.com/vk/taskgraph/internal/node"
	"gopkg.in/yaml.v3"
)

const sectionTasks = "tasks"

var (
	doneInfo = logentry.DoneOptions{Symbol: "info"}
	divider  = strings.Repeat("—", 80)
)

// logIndex dumps the pending graph at debug level before a run.
func (s *Scheduler) logIndex() {
	out, err := yaml.Marshal(s.index.Inspect())
	if err != nil {
		s.log.Error(logEntryFor(fmt.Errorf("encoding task index: %w", err)))
		return
	}
	s.log.Debug(logentry.Entry{
		Section: sectionTasks,
		Msg:     "Task index before processing:\n" + string(out),
	})
}

// initLogging writes the run header and the two progress lines the first time
// a run launches work.
func (s *Scheduler) initLogging() {
	if s.counterEntry != nil {
		return
	}
	s.log.Debug(logentry.Entry{Section: sectionTasks, Msg: "Processing tasks..."})
	s.counterEntry = s.log.Debug(logentry.Entry{
		Section: sectionTasks,
		Msg:     s.remainingState(),
		Status:  logentry.StatusActive,
	})
	s.inProgressEntry = s.log.Debug(logentry.Entry{
		Section: sectionTasks,
		Msg:     s.inProgressState(),
	})
}

func (s *Scheduler) resetLogging() {
	s.counterEntry = nil
	s.inProgressEntry = nil
	clear(s.logEntries)
}

func (s *Scheduler) logTask(n *node.Node) {
	s.logEntries[n.Key()] = s.log.Debug(logentry.Entry{
		Section: sectionTasks,
		Msg:     "Processing task " + n.Key(),
		Status:  logentry.StatusActive,
	})
}

func (s *Scheduler) logTaskComplete(n *node.Node, success bool) {
	if h, ok := s.logEntries[n.Key()]; ok {
		if success {
			h.SetSuccess()
		} else {
			h.SetError()
		}
		delete(s.logEntries, n.Key())
	}
	if s.counterEntry != nil {
		s.counterEntry.SetState(s.remainingState())
		s.inProgressEntry.SetState(s.inProgressState())
	}
}

func (s *Scheduler) logTaskError(n *node.Node, err error) {
	s.log.Error(logentry.Entry{
		Section: sectionTasks,
		Msg: fmt.Sprintf("\nFailed %s. Here is the output:\n%s\n%s\n%s\n",
			n.Description(), divider, err.Error(), divider),
		Status: logentry.StatusError,
		Err:    err,
	})
}

func (s *Scheduler) remainingState() string {
	return fmt.Sprintf("Remaining tasks %d", s.index.Len())
}

func (s *Scheduler) inProgressState() string {
	return fmt.Sprintf("Currently in progress [%s]", strings.Join(s.inProgress.Keys(), ", "))
}

func logEntryFor(err error) logentry.Entry {
	return logentry.Entry{
		Section: sectionTasks,
		Msg:     err.Error(),
		Status:  logentry.StatusError,
		Err:     err,
	}
}
