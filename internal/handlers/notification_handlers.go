package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"inventoryflow/internal/common"
	"inventoryflow/internal/models"
	"inventoryflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotificationHandlers serves the caller's in-app notifications. Every query is
// scoped to the authenticated user.
type NotificationHandlers struct {
	notificationRepo repositories.NotificationRepository
	logger           *zap.Logger
}

func NewNotificationHandlers(notificationRepo repositories.NotificationRepository, logger *zap.Logger) *NotificationHandlers {
	return &NotificationHandlers{notificationRepo: notificationRepo, logger: logger.Named("notifications")}
}

func callerID(c echo.Context) (uuid.UUID, error) {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return userID, nil
}

func (h *NotificationHandlers) ListNotifications(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	notifications, err := h.notificationRepo.ListByRecipient(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.String("user_id", userID.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to retrieve notifications")
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return common.SendSuccess(c, http.StatusOK, "Notifications retrieved successfully", map[string]interface{}{
		"notifications": notifications,
	})
}

func (h *NotificationHandlers) MarkRead(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error())
	}

	notification, err := h.notificationRepo.MarkRead(c.Request().Context(), id, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return common.SendNotFoundError(c, "Notification")
	}
	if err != nil {
		h.logger.Error("Failed to mark notification read", zap.String("id", id.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to mark notification as read")
	}
	return common.SendSuccess(c, http.StatusOK, "Notification marked as read", map[string]interface{}{
		"notification": notification,
	})
}

func (h *NotificationHandlers) MarkAllRead(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	n, err := h.notificationRepo.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Failed to mark notifications read", zap.String("user_id", userID.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to mark all notifications as read")
	}
	if n == 0 {
		return common.SendError(c, http.StatusNotFound, "No unread notifications found for this user")
	}
	return common.SendSuccess(c, http.StatusOK, fmt.Sprintf("Marked %d notifications as sent", n), map[string]interface{}{
		"modified_count": n,
		"status":         models.NotificationStatusSent,
	})
}

func (h *NotificationHandlers) ClearNotifications(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	n, err := h.notificationRepo.DeleteAll(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Failed to delete notifications", zap.String("user_id", userID.String()), zap.Error(err))
		return common.SendServerError(c, "Failed to delete notifications")
	}
	if n == 0 {
		return common.SendError(c, http.StatusNotFound, "No notifications found for this user")
	}
	return common.SendSuccess(c, http.StatusOK, fmt.Sprintf("Deleted %d notifications for this user", n), map[string]interface{}{
		"deleted_count": n,
	})
}
