package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"inventoryflow/internal/metrics"
	"inventoryflow/internal/models"

	"go.uber.org/zap"
)

// ErrSweepInProgress is returned when a trigger arrives while a sweep runs.
var ErrSweepInProgress = errors.New("low stock sweep already in progress")

const (
	DefaultSweepLockKey = "inventoryflow:low-stock-sweep"
	defaultSweepLockTTL = 10 * time.Minute
)

type Sweeper interface {
	RunSweep(ctx context.Context) (*models.SweepResult, error)
}

// Locker serialises sweeps across processes sharing the same database. The
// returned func releases the lock and is nil when acquired is false.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

type runState int32

const (
	stateIdle runState = iota
	stateRunning
)

type RunnerOption func(*SweepRunner)

// WithLocker makes every run hold key in locker for its duration.
func WithLocker(locker Locker, key string, ttl time.Duration) RunnerOption {
	return func(r *SweepRunner) {
		r.locker = locker
		if key != "" {
			r.lockKey = key
		}
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// SweepRunner is the single entry point for both the cron job and the HTTP
// trigger. At most one sweep runs per process at a time.
type SweepRunner struct {
	sweeper Sweeper
	metrics *metrics.SweepMetrics
	logger  *zap.Logger

	locker  Locker
	lockKey string
	lockTTL time.Duration

	state atomic.Int32

	mu   sync.RWMutex
	last *models.SweepResult
}

func NewSweepRunner(sweeper Sweeper, m *metrics.SweepMetrics, logger *zap.Logger, opts ...RunnerOption) *SweepRunner {
	r := &SweepRunner{
		sweeper: sweeper,
		metrics: m,
		logger:  logger.Named("sweep-runner"),
		lockKey: DefaultSweepLockKey,
		lockTTL: defaultSweepLockTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SweepRunner) Run(ctx context.Context, trigger models.SweepTrigger) (*models.SweepResult, error) {
	if !r.state.CompareAndSwap(int32(stateIdle), int32(stateRunning)) {
		r.skipped(trigger, "local")
		return nil, ErrSweepInProgress
	}
	defer r.state.Store(int32(stateIdle))

	if r.locker != nil {
		release, acquired, err := r.locker.TryLock(ctx, r.lockKey, r.lockTTL)
		if err != nil {
			r.observe(trigger, nil)
			r.logger.Error("Failed to acquire sweep lock", zap.String("key", r.lockKey), zap.Error(err))
			return nil, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !acquired {
			r.skipped(trigger, "distributed")
			return nil, ErrSweepInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("Failed to release sweep lock", zap.String("key", r.lockKey), zap.Error(err))
			}
		}()
	}

	result, err := r.sweeper.RunSweep(ctx)
	if err != nil {
		r.observe(trigger, nil)
		r.logger.Error("Low stock sweep aborted", zap.String("trigger", string(trigger)), zap.Error(err))
		return nil, err
	}
	result.Trigger = trigger
	r.observe(trigger, result)

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()
	return result, nil
}

// Running reports whether a sweep is currently executing in this process.
func (r *SweepRunner) Running() bool {
	return runState(r.state.Load()) == stateRunning
}

// LastResult returns the most recent completed sweep, or nil.
func (r *SweepRunner) LastResult() *models.SweepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

func (r *SweepRunner) observe(trigger models.SweepTrigger, result *models.SweepResult) {
	if r.metrics != nil {
		r.metrics.Observe(trigger, result)
	}
}

func (r *SweepRunner) skipped(trigger models.SweepTrigger, scope string) {
	if r.metrics != nil {
		r.metrics.Skipped(trigger)
	}
	r.logger.Warn("Skipping low stock sweep, another run holds the lock",
		zap.String("trigger", string(trigger)),
		zap.String("scope", scope))
}
