package handlers

import (
	"context"
	"errors"
	"net/http"

	"inventoryflow/internal/common"
	"inventoryflow/internal/jobs"
	"inventoryflow/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type SweepRunner interface {
	Run(ctx context.Context, trigger models.SweepTrigger) (*models.SweepResult, error)
	LastResult() *models.SweepResult
}

type LowStockScanner interface {
	CheckLowStock(ctx context.Context) ([]models.LowStockItem, error)
	Threshold() int
}

// AlertHandlers exposes the low stock sweep over HTTP.
type AlertHandlers struct {
	runner  SweepRunner
	scanner LowStockScanner
	logger  *zap.Logger
}

func NewAlertHandlers(runner SweepRunner, scanner LowStockScanner, logger *zap.Logger) *AlertHandlers {
	return &AlertHandlers{runner: runner, scanner: scanner, logger: logger.Named("alerts")}
}

type LowStockPreview struct {
	Threshold int                   `json:"threshold"`
	Count     int                   `json:"count"`
	Items     []models.LowStockItem `json:"items"`
}

// TriggerLowStockAlerts runs a full sweep and answers once it has finished.
func (h *AlertHandlers) TriggerLowStockAlerts(c echo.Context) error {
	// A client disconnect must not cut the sweep short.
	ctx := context.WithoutCancel(c.Request().Context())

	result, err := h.runner.Run(ctx, models.SweepTriggerManual)
	switch {
	case errors.Is(err, jobs.ErrSweepInProgress):
		return common.SendError(c, http.StatusConflict, "A low stock sweep is already in progress")
	case err != nil:
		h.logger.Error("Manual low stock sweep failed", zap.Error(err))
		return common.SendServerError(c, "Failed to run low stock sweep")
	case !result.OK():
		return common.SendErrorWithData(c, http.StatusMultiStatus, "Low stock sweep completed with failures", result)
	}
	return common.SendSuccess(c, http.StatusOK, "Low stock alerts sent successfully", result)
}

// PreviewLowStock lists what the next sweep would pick up without sending anything.
func (h *AlertHandlers) PreviewLowStock(c echo.Context) error {
	items, err := h.scanner.CheckLowStock(c.Request().Context())
	if err != nil {
		return common.SendServerError(c, "Failed to check low stock products")
	}
	if items == nil {
		items = []models.LowStockItem{}
	}
	return common.SendSuccess(c, http.StatusOK, "Low stock products retrieved successfully", LowStockPreview{
		Threshold: h.scanner.Threshold(),
		Count:     len(items),
		Items:     items,
	})
}

func (h *AlertHandlers) LastSweep(c echo.Context) error {
	result := h.runner.LastResult()
	if result == nil {
		return common.SendError(c, http.StatusNotFound, "No low stock sweep has completed yet")
	}
	return common.SendSuccess(c, http.StatusOK, "Last low stock sweep retrieved successfully", result)
}
