package background

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventoryflow/internal/jobs"
	"inventoryflow/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const LowStockJobName = "low-stock-alerts"

var ErrJobNotFound = errors.New("job not found")

// SweepRunner is the part of jobs.SweepRunner the scheduler drives.
type SweepRunner interface {
	Run(ctx context.Context, trigger models.SweepTrigger) (*models.SweepResult, error)
	Running() bool
}

type JobStatus struct {
	Name    string     `json:"name"`
	NextRun *time.Time `json:"next_run,omitempty"`
	LastRun *time.Time `json:"last_run,omitempty"`
	Running bool       `json:"running"`
}

// JobScheduler owns the recurring low stock sweep.
type JobScheduler struct {
	scheduler gocron.Scheduler
	runner    SweepRunner
	logger    *zap.Logger
	location  *time.Location
	jobs      map[string]gocron.Job
	mu        sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobScheduler registers the low stock job for cronExpr evaluated in loc.
// Nothing runs until Start is called.
func NewJobScheduler(runner SweepRunner, cronExpr string, loc *time.Location, logger *zap.Logger) (*JobScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.Named("scheduler")

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithLogger(zapGocronLogger{logger.Sugar()}),
		gocron.WithStopTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		runner:    runner,
		logger:    logger,
		location:  loc,
		jobs:      make(map[string]gocron.Job),
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := js.registerJobs(cronExpr); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() error {
	js.logger.Info("Starting background job scheduler", zap.String("timezone", js.location.String()))
	js.scheduler.Start()
	return nil
}

// Stop cancels the context handed to running sweeps and waits for them.
func (js *JobScheduler) Stop() error {
	js.logger.Info("Stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(cronExpr string) error {
	job, err := js.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(js.runLowStockSweep, js.ctx),
		gocron.WithName(LowStockJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
				js.logger.Error("Scheduled job failed", zap.String("job", jobName), zap.Error(err))
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("register %s job with cron %q: %w", LowStockJobName, cronExpr, err)
	}

	js.mu.Lock()
	js.jobs[LowStockJobName] = job
	js.mu.Unlock()

	js.logger.Info("Registered background job", zap.String("job", LowStockJobName), zap.String("cron", cronExpr))
	return nil
}

func (js *JobScheduler) runLowStockSweep(ctx context.Context) error {
	_, err := js.runner.Run(ctx, models.SweepTriggerScheduled)
	if errors.Is(err, jobs.ErrSweepInProgress) {
		return nil
	}
	return err
}

// RunNow queues an immediate run of name without changing its schedule.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return job.RunNow()
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(js.jobs))
	for name, job := range js.jobs {
		status := JobStatus{Name: name}
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			next = next.In(js.location)
			status.NextRun = &next
		}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			last = last.In(js.location)
			status.LastRun = &last
		}
		if name == LowStockJobName {
			status.Running = js.runner.Running()
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	return map[string]interface{}{
		"total_jobs": len(statuses),
		"timezone":   js.location.String(),
		"jobs":       statuses,
	}
}

// zapGocronLogger routes gocron's key/value logs into zap.
type zapGocronLogger struct {
	s *zap.SugaredLogger
}

func (l zapGocronLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapGocronLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapGocronLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapGocronLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
