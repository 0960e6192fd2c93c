package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

type VersionMiddleware struct {
	appName           string
	supportedVersions map[string]APIVersion
}

func NewVersionMiddleware(appName string) *VersionMiddleware {
	return &VersionMiddleware{
		appName: appName,
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Current stable API version"},
		},
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)

			if ver, exists := vm.supportedVersions[version]; exists {
				if ver.Status == "deprecated" && ver.SunsetDate != nil {
					h.Set("X-API-Deprecated", "true")
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					h.Set("Warning", "299 "+vm.appName+" \"This API version is deprecated and will be removed on "+ver.SunsetDate.Format("2006-01-02")+"\"")
				}
				if ver.Message != "" {
					h.Set("X-API-Message", ver.Message)
				}
			}
			return next(c)
		}
	}
}

// VersionRoute creates a version-specific route group
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string, m ...echo.MiddlewareFunc) *echo.Group {
	group := e.Group("/"+version, m...)
	group.Use(vm.VersionHeader(version))
	return group
}

func (vm *VersionMiddleware) Deprecate(version string, sunset time.Time, message string) {
	vm.supportedVersions[version] = APIVersion{
		Version:    version,
		Status:     "deprecated",
		SunsetDate: &sunset,
		Message:    message,
	}
}
