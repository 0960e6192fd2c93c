package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"inventoryflow/internal/jobs"
	"inventoryflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	calls   atomic.Int32
	trigger atomic.Value
	err     error
	running atomic.Bool
}

func (r *stubRunner) Run(ctx context.Context, trigger models.SweepTrigger) (*models.SweepResult, error) {
	r.calls.Add(1)
	r.trigger.Store(trigger)
	if r.err != nil {
		return nil, r.err
	}
	return &models.SweepResult{Trigger: trigger}, nil
}

func (r *stubRunner) Running() bool {
	return r.running.Load()
}

func TestNewJobScheduler_InvalidCron(t *testing.T) {
	js, err := NewJobScheduler(&stubRunner{}, "every morning", time.UTC, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, js)
	assert.Contains(t, err.Error(), LowStockJobName)
}

func TestJobScheduler_NextRunUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	js, err := NewJobScheduler(&stubRunner{}, "0 9 * * *", loc, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, js.Start())
	defer func() { _ = js.Stop() }()

	var status JobStatus
	require.Eventually(t, func() bool {
		jobs := js.GetJobStatus()["jobs"].([]JobStatus)
		if len(jobs) != 1 || jobs[0].NextRun == nil {
			return false
		}
		status = jobs[0]
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, LowStockJobName, status.Name)
	assert.Equal(t, 9, status.NextRun.Hour())
	assert.Equal(t, 0, status.NextRun.Minute())
	assert.Equal(t, "Asia/Kolkata", status.NextRun.Location().String())
	assert.Equal(t, "Asia/Kolkata", js.GetJobStatus()["timezone"])
}

func TestJobScheduler_RunNowTriggersScheduledSweep(t *testing.T) {
	runner := &stubRunner{}
	js, err := NewJobScheduler(runner, "0 9 * * *", time.UTC, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, js.Start())
	defer func() { _ = js.Stop() }()

	require.NoError(t, js.RunNow(LowStockJobName))

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, models.SweepTriggerScheduled, runner.trigger.Load())
}

func TestJobScheduler_RunNowUnknownJob(t *testing.T) {
	js, err := NewJobScheduler(&stubRunner{}, "0 9 * * *", time.UTC, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = js.Stop() }()

	err = js.RunNow("nightly-export")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobScheduler_StatusReportsRunning(t *testing.T) {
	runner := &stubRunner{}
	runner.running.Store(true)
	js, err := NewJobScheduler(runner, "0 9 * * *", time.UTC, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = js.Stop() }()

	status := js.GetJobStatus()
	assert.Equal(t, 1, status["total_jobs"])
	jobs := status["jobs"].([]JobStatus)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Running)
}

func TestRunLowStockSweep_IgnoresInProgress(t *testing.T) {
	js := &JobScheduler{runner: &stubRunner{err: jobs.ErrSweepInProgress}, logger: zap.NewNop()}
	assert.NoError(t, js.runLowStockSweep(context.Background()))

	failure := errors.New("list administrators: timeout")
	js.runner = &stubRunner{err: failure}
	assert.ErrorIs(t, js.runLowStockSweep(context.Background()), failure)
}
