package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxagent/internal/agent/types"
	"lxagent/internal/config"
)

func TestSessionIDStable(t *testing.T) {
	job := config.CronJob{Name: "nightly"}
	assert.Equal(t, "cron:nightly", SessionID(job))
	assert.Equal(t, SessionID(job), SessionID(job))
}

func TestStartSkipsInvalidJobs(t *testing.T) {
	jobs := []config.CronJob{
		{Name: "ok", Schedule: "0 3 * * *", Command: "tidy up"},
		{Name: "no-schedule", Command: "x"},
		{Name: "no-command", Schedule: "* * * * *"},
		{Name: "bad-schedule", Schedule: "not a cron line", Command: "x"},
	}

	ran := make(chan string, 8)
	s := NewScheduler(jobs, func(ctx context.Context, job config.CronJob) (types.Result, error) {
		ran <- job.Name
		return types.Result{Status: types.RunSuccess}, nil
	})

	require.NoError(t, s.Start())
	s.Stop()

	// Nothing fires synchronously and invalid jobs never register.
	select {
	case name := <-ran:
		t.Fatalf("job %s ran unexpectedly", name)
	default:
	}
}
