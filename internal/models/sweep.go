package models

import (
	"time"

	"github.com/google/uuid"
)

// SweepTrigger identifies what started a sweep.
type SweepTrigger string

const (
	SweepTriggerScheduled SweepTrigger = "scheduled"
	SweepTriggerManual    SweepTrigger = "manual"
)

// SweepStage names the pipeline step a failure belongs to.
type SweepStage string

const (
	SweepStageNotify       SweepStage = "notify"
	SweepStageNotification SweepStage = "notification"
	SweepStageReconcile    SweepStage = "reconcile"
)

type SweepFailure struct {
	Stage  SweepStage `json:"stage"`
	Target string     `json:"target"`
	Error  string     `json:"error"`
}

// SweepResult summarises one scan, notify, reconcile pass.
type SweepResult struct {
	ID                   uuid.UUID      `json:"id"`
	Trigger              SweepTrigger   `json:"trigger"`
	StartedAt            time.Time      `json:"started_at"`
	FinishedAt           time.Time      `json:"finished_at"`
	Threshold            int            `json:"threshold"`
	Scanned              int            `json:"scanned"`
	Recipients           int            `json:"recipients"`
	EmailsSent           int            `json:"emails_sent"`
	EmailsFailed         int            `json:"emails_failed"`
	NotificationsCreated int            `json:"notifications_created"`
	Reconciled           int            `json:"reconciled"`
	ReconcileFailed      int            `json:"reconcile_failed"`
	Failures             []SweepFailure `json:"failures,omitempty"`
}

func (r *SweepResult) Failed() int {
	return len(r.Failures)
}

func (r *SweepResult) OK() bool {
	return len(r.Failures) == 0
}

func (r *SweepResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *SweepResult) AddFailure(stage SweepStage, target string, err error) {
	r.Failures = append(r.Failures, SweepFailure{Stage: stage, Target: target, Error: err.Error()})
}
