// Package pipeline runs the fixed task registry over one source archive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNilSource        = errors.New("pipeline: nil source")
	ErrDependencyFailed = errors.New("pipeline: dependency did not succeed")
	ErrTaskPanicked     = errors.New("pipeline: task panicked")
)

// Options configures an Orchestrator.
type Options struct {
	// Workers bounds concurrently running tasks. Zero or less uses runtime.NumCPU.
	Workers int
	Logger  *slog.Logger
}

// Orchestrator schedules a Registry onto a bounded worker pool.
type Orchestrator struct {
	Tasks   Registry
	Options Options
}

// New creates an orchestrator for tasks.
func New(tasks Registry, opts Options) *Orchestrator {
	return &Orchestrator{Tasks: tasks, Options: opts}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Options.Logger == nil {
		return slog.Default()
	}
	return o.Options.Logger
}

func (o *Orchestrator) workers() int {
	if o.Options.Workers > 0 {
		return o.Options.Workers
	}
	return runtime.NumCPU()
}

// Run executes every registered task once and returns the report. Task
// failures are recorded in the report; Run itself fails only when the
// registry or the source prevent scheduling.
//
// Independent tasks are submitted up front. A dependent task is submitted
// by the collecting goroutine once its producer has succeeded, and recorded
// as skipped otherwise. Workers send results on a channel sized for the
// whole registry, so a pool of one worker cannot deadlock.
func (o *Orchestrator) Run(ctx context.Context, src *Source) (*Report, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if err := o.Tasks.Validate(); err != nil {
		return nil, err
	}

	log := o.logger()
	start := time.Now()
	report := &Report{}
	for _, id := range AllTasks() {
		report.set(TaskResult{Task: id, Status: StatusPending})
	}

	var g errgroup.Group
	g.SetLimit(o.workers())
	results := make(chan TaskResult, NumTasks)
	inFlight := 0

	submit := func(t Task, upstream any) {
		inFlight++
		log.Debug("task submitted", "task", t.ID.String())
		g.Go(func() error {
			results <- o.execute(ctx, t, src, upstream)
			return nil
		})
	}

	for _, t := range o.Tasks {
		if t.DependsOn == NoTask {
			submit(t, nil)
		}
	}

	for inFlight > 0 {
		res := <-results
		inFlight--
		report.set(res)
		o.logResult(res)

		for _, dep := range o.Tasks.dependents(res.Task) {
			if res.Status == StatusSucceeded {
				submit(dep, res.Value)
				continue
			}
			o.skip(report, dep, res)
		}
	}

	// All results are collected; Wait only reaps the worker goroutines.
	_ = g.Wait()
	report.Elapsed = time.Since(start)

	log.Info("pipeline finished",
		"elapsed", report.Elapsed,
		"succeeded", report.Count(StatusSucceeded),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped))
	return report, nil
}

// skip records t and, transitively, its own dependents as skipped.
func (o *Orchestrator) skip(report *Report, t Task, producer TaskResult) {
	reason := producer.Err
	if reason == nil {
		reason = fmt.Errorf("status %s", producer.Status)
	}
	res := TaskResult{
		Task:   t.ID,
		Status: StatusSkipped,
		Err:    fmt.Errorf("%w: %s (%s) did not succeed: %w", ErrDependencyFailed, producer.Task, producer.Task.Label(), reason),
	}
	report.set(res)
	o.logResult(res)

	for _, next := range o.Tasks.dependents(t.ID) {
		o.skip(report, next, res)
	}
}

// execute runs one task body on a worker. Panics are converted to failures.
// Duration is measured from the moment the worker starts the task.
func (o *Orchestrator) execute(ctx context.Context, t Task, src *Source, upstream any) (res TaskResult) {
	start := time.Now()
	res.Task = t.ID

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Value = nil
			res.Err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
		res.Duration = time.Since(start)
	}()

	if t.NeedsStructure {
		if _, err := src.RequirePackage(); err != nil {
			res.Status = StatusFailed
			res.Err = err
			return res
		}
	}

	value, err := t.Run(ctx, src, upstream)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Status = StatusSucceeded
	res.Value = value
	return res
}

func (o *Orchestrator) logResult(res TaskResult) {
	log := o.logger()
	switch res.Status {
	case StatusFailed:
		log.Warn("task failed", "task", res.Task.String(), "duration", res.Duration, "err", res.Err)
	case StatusSkipped:
		log.Warn("task skipped", "task", res.Task.String(), "reason", res.Err)
	default:
		log.Info("task finished", "task", res.Task.String(), "duration", res.Duration)
	}
}
