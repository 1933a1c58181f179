package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_catalog/internal/logging"
	"github.com/Skotchmaster/car_catalog/internal/middleware/metrics"
	"github.com/Skotchmaster/car_catalog/internal/service"
	"github.com/Skotchmaster/car_catalog/internal/transport"
)

type AuthHTTP struct {
	Svc        *service.AuthService
	Cookies    CookiePolicy
	RefreshTTL time.Duration
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("register_failed", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	if err := h.Svc.Register(ctx, req.Username, req.Password, req.Role); err != nil {
		metrics.RecordAuthAttempt("register", false)
		code := statusFor(err)
		switch code {
		case http.StatusBadRequest:
			l.Warn("register_failed", "status", code, "reason", "validation", "error", err)
			return echo.NewHTTPError(code, "username, password and a valid role are required")
		case http.StatusConflict:
			l.Warn("register_failed", "status", code, "reason", "user_exists")
			return echo.NewHTTPError(code, "username already taken")
		default:
			l.Error("register_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot register user")
		}
	}

	metrics.RecordAuthAttempt("register", true)
	l.Info("register_successful", "username", req.Username)
	return c.JSON(http.StatusCreated, transport.Result{
		Success: true,
		Message: "user registered",
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("login_failed", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		metrics.RecordAuthAttempt("login", false)
		code := statusFor(err)
		switch code {
		case http.StatusBadRequest:
			l.Warn("login_failed", "status", code, "reason", "validation")
			return echo.NewHTTPError(code, "username and password are required")
		case http.StatusUnauthorized:
			l.Warn("login_failed", "status", code, "reason", "invalid credentials")
			return echo.NewHTTPError(code, "invalid username or password")
		default:
			l.Error("login_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot log in")
		}
	}

	c.SetCookie(h.Cookies.CreateCookie(RefreshCookie, res.RefreshToken, "/", h.RefreshTTL, res.RefreshExp))

	metrics.RecordAuthAttempt("login", true)
	l.Info("login_successful", "user_id", res.UserID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		Message: "authorized",
		Data: transport.AuthData{
			AccessToken: res.AccessToken,
			UserID:      res.UserID,
		},
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var token string
	if cookie, err := c.Cookie(RefreshCookie); err == nil {
		token = cookie.Value
	}

	res, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		metrics.RecordAuthAttempt("refresh", false)
		if errors.Is(err, service.ErrMissingToken) || errors.Is(err, service.ErrInvalidRefreshToken) {
			l.Warn("refresh_failed", "status", 401, "reason", err.Error())
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing refresh token")
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot refresh token")
	}

	metrics.RecordAuthAttempt("refresh", true)
	return c.JSON(http.StatusOK, transport.RefreshResponse{AccessToken: res.AccessToken})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	h.Svc.LogOut(ctx)
	c.SetCookie(h.Cookies.DeleteCookie(RefreshCookie, "/"))
	c.SetCookie(h.Cookies.DeleteCookie(SessionCookie, "/"))

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}
