package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func SendSuccess(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func SendError(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

// SendErrorWithData is used when a request partially succeeded.
func SendErrorWithData(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{Success: false, Message: message, Data: data})
}

func SendValidationError(c echo.Context, message string) error {
	return SendError(c, http.StatusBadRequest, message)
}

func SendNotFoundError(c echo.Context, resource string) error {
	return SendError(c, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

func SendServerError(c echo.Context, message string) error {
	return SendError(c, http.StatusInternalServerError, message)
}

// HTTPErrorHandler renders errors escaping handlers in the Response envelope.
// Anything that is not an *echo.HTTPError becomes a 500 and is logged.
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			logger.Error("Unhandled request error",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = SendError(c, status, message)
		}
		if writeErr != nil {
			logger.Warn("Failed to write error response", zap.Error(writeErr))
		}
	}
}
