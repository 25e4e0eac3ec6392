// Package cron runs config-declared goals through the step loop on a
// schedule.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"lxagent/internal/agent/types"
	"lxagent/internal/config"
)

// RunFunc executes one scheduled goal and returns the loop result.
type RunFunc func(ctx context.Context, job config.CronJob) (types.Result, error)

// Scheduler triggers configured jobs. Runs for the same session are
// serialized by the caller's run queue, so an overrunning job simply
// queues behind itself.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []config.CronJob
	run     RunFunc
	timeout time.Duration
}

// NewScheduler creates a scheduler for the given jobs.
func NewScheduler(jobs []config.CronJob, run RunFunc) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		run:     run,
		timeout: 10 * time.Minute,
	}
}

// Start registers the jobs and starts the ticker. Invalid schedules are
// skipped with a warning; a fully empty schedule is not an error.
func (s *Scheduler) Start() error {
	registered := 0
	for _, job := range s.jobs {
		if job.Schedule == "" || job.Command == "" {
			slog.Warn("cron: skipping job without schedule or command", "name", job.Name)
			continue
		}
		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() { s.execute(job) })
		if err != nil {
			slog.Warn("cron: invalid schedule, job skipped",
				"name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		registered++
	}

	s.cron.Start()
	slog.Info("cron scheduler started", "jobs", registered)
	return nil
}

func (s *Scheduler) execute(job config.CronJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	slog.Info("cron: running job", "name", job.Name)
	result, err := s.run(ctx, job)
	if err != nil {
		slog.Error("cron: job failed", "name", job.Name, "error", err)
		return
	}
	slog.Info("cron: job finished",
		"name", job.Name,
		"status", result.Status,
		"steps", len(result.Results))
}

// Stop halts the ticker and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		slog.Warn("cron: stop timed out waiting for running jobs")
	}
}

// SessionID returns the session a job's runs accumulate under.
func SessionID(job config.CronJob) string {
	return fmt.Sprintf("cron:%s", job.Name)
}
