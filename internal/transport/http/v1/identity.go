package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// Identity resolves the caller from a HS256 bearer token carrying a user_id claim.
// The token is read from the Authorization header, then the token query parameter,
// then the access_token cookie. With auth disabled every caller is the default user.
func (h *Handler) Identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.config.AuthDisabled {
			c.Set(userIDKey, h.config.DefaultUserID)
			return next(c)
		}

		token, err := bearerToken(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
		}
		userID, err := h.parseUserID(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token: " + err.Error()})
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", errors.New("invalid authorization header, expected Bearer token")
		}
		return strings.TrimSpace(token), nil
	}
	if token := c.QueryParam("token"); token != "" {
		return token, nil
	}
	if cookie, err := c.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", errors.New("not authenticated: provide a Bearer token in the Authorization header")
}

func (h *Handler) parseUserID(token string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.config.SecretKey), nil
	}); err != nil {
		return "", err
	}

	switch v := claims[userIDKey].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	}
	return "", errors.New("missing user_id")
}

// userID returns the caller resolved by Identity.
func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
