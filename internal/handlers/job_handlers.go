package handlers

import (
	"errors"
	"net/http"

	"inventoryflow/internal/common"
	"inventoryflow/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

type JobScheduler interface {
	GetJobStatus() map[string]interface{}
	RunNow(name string) error
}

type JobHandlers struct {
	scheduler JobScheduler
}

func NewJobHandlers(scheduler JobScheduler) *JobHandlers {
	return &JobHandlers{scheduler: scheduler}
}

func (h *JobHandlers) ListJobs(c echo.Context) error {
	return common.SendSuccess(c, http.StatusOK, "Jobs retrieved successfully", h.scheduler.GetJobStatus())
}

// RunJob queues the named job and returns without waiting for it.
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.scheduler.RunNow(name); err != nil {
		if errors.Is(err, background.ErrJobNotFound) {
			return common.SendNotFoundError(c, "Job")
		}
		return common.SendServerError(c, "Failed to queue job")
	}
	return common.SendSuccess(c, http.StatusAccepted, "Job queued", map[string]string{"name": name})
}
