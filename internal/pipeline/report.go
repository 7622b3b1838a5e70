package pipeline

import "time"

// TaskResult is the outcome of one task in one run. Err is set for failed
// and skipped tasks; for skipped tasks it wraps ErrDependencyFailed and
// names the producer. Duration is only meaningful when the task ran.
type TaskResult struct {
	Task     TaskID
	Status   Status
	Err      error
	Duration time.Duration
	Value    any
}

// Ran reports whether the task body was started.
func (r TaskResult) Ran() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

// Report holds exactly one result per TaskID, indexed by the enumeration.
type Report struct {
	Results [NumTasks]TaskResult
	Elapsed time.Duration
}

// Len returns the number of results, which always equals NumTasks.
func (r *Report) Len() int {
	return len(r.Results)
}

// Result returns the result recorded for id.
func (r *Report) Result(id TaskID) TaskResult {
	if !id.Valid() {
		return TaskResult{Task: id}
	}
	return r.Results[id.index()]
}

// Count returns how many tasks ended with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) set(res TaskResult) {
	r.Results[res.Task.index()] = res
}
