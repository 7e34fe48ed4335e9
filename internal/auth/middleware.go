package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	adminIDKey    = "admin_id"
	adminEmailKey = "admin_email"
)

// Middleware validates the bearer token and stashes the admin's identity on
// the request context.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
		}

		secretKey, err := jwtSecretFromEnv()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server auth configuration error")
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secretKey, nil
		})

		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
		}

		sub, err := claims.GetSubject()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token subject")
		}

		adminID, err := uuid.Parse(sub)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin ID in token")
		}

		email, _ := claims["email"].(string)

		c.Set(adminIDKey, adminID)
		c.Set(adminEmailKey, email)
		return next(c)
	}
}

// AdminIDFromContext returns the authenticated admin's ID.
func AdminIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(adminIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("admin ID not found in context")
	}
	return id, nil
}

// AdminEmailFromContext returns the authenticated admin's email. Used to
// record who approved a submission.
func AdminEmailFromContext(c echo.Context) string {
	email, _ := c.Get(adminEmailKey).(string)
	return email
}
