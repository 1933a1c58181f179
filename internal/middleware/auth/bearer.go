package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_catalog/internal/logging"
)

const userIDKey = "user_id"

type Verifier interface {
	VerifyAccessToken(token string) (uint, error)
}

type BearerAuth struct {
	Tokens Verifier
}

func NewBearerAuth(v Verifier) *BearerAuth {
	return &BearerAuth{Tokens: v}
}

// RequireAuth answers 403 when no Authorization header is sent at all and
// 401 for anything else that does not verify.
func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusForbidden, "no token provided")
		}

		token, ok := BearerToken(header)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		userID, err := m.Tokens.VerifyAccessToken(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userIDKey, userID)
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("user_id", userID)
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))

		return next(c)
	}
}

func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// UserID returns the identity attached by RequireAuth.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDKey).(uint)
	return id, ok && id != 0
}
