package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// TaskID identifies one operation of the fixed task registry. The zero
// value NoTask means "no task" and is used for tasks without a dependency.
type TaskID int

const (
	NoTask TaskID = iota
	TaskMetadata
	TaskTextAnalysis
	TaskImages
	TaskKeywords
	TaskFormatting
	TaskNavigation
	TaskChapters
	TaskStyles
	TaskLibrary
	TaskTranslation
	taskEnd
)

// NumTasks is the number of registered task identifiers.
const NumTasks = int(taskEnd) - 1

var taskNames = [NumTasks]string{
	"extract_metadata",
	"analyze_text",
	"extract_images",
	"search_keywords",
	"format_text",
	"generate_toc",
	"split_chapters",
	"process_styles",
	"add_to_library",
	"translate_first_chapter",
}

var taskLabels = [NumTasks]string{
	"metadata",
	"text analysis",
	"images",
	"keyword search",
	"formatting",
	"navigation",
	"chapters",
	"styles",
	"library",
	"translation",
}

// AllTasks returns every TaskID in report order.
func AllTasks() []TaskID {
	ids := make([]TaskID, 0, NumTasks)
	for id := TaskMetadata; id < taskEnd; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Valid reports whether id names a registered task.
func (id TaskID) Valid() bool {
	return id > NoTask && id < taskEnd
}

func (id TaskID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("task(%d)", int(id))
	}
	return taskNames[id.index()]
}

// Label returns a short human-readable name, e.g. "navigation".
func (id TaskID) Label() string {
	if !id.Valid() {
		return id.String()
	}
	return taskLabels[id.index()]
}

func (id TaskID) index() int {
	return int(id) - 1
}

// Status is the terminal state of a task in a run.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// RunFunc is a task body. upstream is the value of the task named by
// DependsOn, or nil for independent tasks.
type RunFunc func(ctx context.Context, src *Source, upstream any) (any, error)

// Task is one entry of the registry.
type Task struct {
	ID TaskID
	// DependsOn names the producer whose successful value this task consumes.
	DependsOn TaskID
	// NeedsStructure marks tasks that cannot run without a resolved package.
	NeedsStructure bool
	Run            RunFunc
}

// Registry is the complete task set of a run: every TaskID exactly once.
type Registry []Task

var ErrInvalidRegistry = errors.New("pipeline: invalid task registry")

// Validate checks that the registry covers each TaskID exactly once and
// that dependencies point at registered tasks without cycles.
func (r Registry) Validate() error {
	if len(r) != NumTasks {
		return fmt.Errorf("%w: %d tasks registered, want %d", ErrInvalidRegistry, len(r), NumTasks)
	}

	var seen [NumTasks]bool
	for _, t := range r {
		if !t.ID.Valid() {
			return fmt.Errorf("%w: unknown task id %d", ErrInvalidRegistry, int(t.ID))
		}
		if seen[t.ID.index()] {
			return fmt.Errorf("%w: %s registered twice", ErrInvalidRegistry, t.ID)
		}
		seen[t.ID.index()] = true
		if t.Run == nil {
			return fmt.Errorf("%w: %s has no body", ErrInvalidRegistry, t.ID)
		}
		if t.DependsOn != NoTask && !t.DependsOn.Valid() {
			return fmt.Errorf("%w: %s depends on unknown task %d", ErrInvalidRegistry, t.ID, int(t.DependsOn))
		}
	}

	byID := r.byID()
	for _, t := range r {
		dep := t.DependsOn
		for steps := 0; dep != NoTask; steps++ {
			if steps >= NumTasks || dep == t.ID {
				return fmt.Errorf("%w: dependency cycle through %s", ErrInvalidRegistry, t.ID)
			}
			dep = byID[dep.index()].DependsOn
		}
	}
	return nil
}

func (r Registry) byID() [NumTasks]Task {
	var out [NumTasks]Task
	for _, t := range r {
		if t.ID.Valid() {
			out[t.ID.index()] = t
		}
	}
	return out
}

// dependents returns the tasks that consume id's value, in registry order.
func (r Registry) dependents(id TaskID) []Task {
	var out []Task
	for _, t := range r {
		if t.DependsOn == id {
			out = append(out, t)
		}
	}
	return out
}
