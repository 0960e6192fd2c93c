package middleware

import (
	"net/http"
	"strings"

	"inventoryflow/internal/common"
	"inventoryflow/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TokenCookie is the session cookie set by the login flow.
const TokenCookie = "token"

// JWTMiddleware validates an HS256 token from the session cookie or the
// Authorization header and stores the caller's id and role on the request context.
func JWTMiddleware(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := extractToken(c)
			if err != nil {
				return err
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing user id in token")
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user id format")
			}

			role, _ := claims["role"].(string)
			if role == "" {
				role = string(models.RoleEmployee)
			}

			ctx := common.WithIdentity(c.Request().Context(), userID, models.Role(role))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func extractToken(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
	}
	return tokenString, nil
}
