package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inventoryflow/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIdentityRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := WithIdentity(context.Background(), id, models.RoleAdmin)

	gotID, ok := GetUserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, gotID)

	role, ok := GetRoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, role)

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestValidateUUID(t *testing.T) {
	id := uuid.New()
	got, err := ValidateUUID(" "+id.String()+" ", "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ValidateUUID("", "id")
	assert.EqualError(t, err, "id is required")

	_, err = ValidateUUID("not-a-uuid", "product_id")
	assert.EqualError(t, err, "product_id must be a valid UUID")
}

func TestValidatePaginationParams(t *testing.T) {
	limit, offset, err := ValidatePaginationParams(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, _, err = ValidatePaginationParams(500, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, limit)

	_, _, err = ValidatePaginationParams(10, -1)
	assert.Error(t, err)
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"http error", echo.NewHTTPError(http.StatusForbidden, "Admin access required"), http.StatusForbidden, "Admin access required"},
		{"route not found", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			HTTPErrorHandler(zap.NewNop())(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
