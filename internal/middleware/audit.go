package middleware

import (
	"net/http"
	"strings"
	"time"

	"inventoryflow/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditMiddleware writes an audit line for state-changing requests and for
// any request that failed.
type AuditMiddleware struct {
	logger *zap.Logger
}

func NewAuditMiddleware(logger *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{logger: logger.Named("audit")}
}

func (m *AuditMiddleware) AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			method := c.Request().Method
			path := c.Path()
			if !shouldAudit(method, path, err) {
				return err
			}

			fields := []zap.Field{
				zap.String("action", method+" "+path),
				zap.String("uri", c.Request().RequestURI),
				zap.String("ip", c.RealIP()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			}
			ctx := c.Request().Context()
			if userID, ok := common.GetUserIDFromContext(ctx); ok {
				fields = append(fields, zap.String("user_id", userID.String()))
			}
			if role, ok := common.GetRoleFromContext(ctx); ok {
				fields = append(fields, zap.String("role", string(role)))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			m.logger.Info("audit", fields...)
			return err
		}
	}
}

func shouldAudit(method, path string, reqErr error) bool {
	if reqErr != nil {
		return true
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return !strings.HasPrefix(path, "/health")
	}
	return false
}
