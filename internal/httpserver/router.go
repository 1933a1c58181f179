package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	authmw "github.com/Skotchmaster/car_catalog/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/car_catalog/internal/middleware/logging"
	"github.com/Skotchmaster/car_catalog/internal/middleware/metrics"
)

type Deps struct {
	AuthHandler *AuthHTTP
	CarHandler  *CarHTTP
	Auth        *authmw.BearerAuth
	Ready       func(ctx context.Context) error

	CORSOrigins   []string
	AuthRateLimit float64
	AuthRateBurst int
}

func New(base *slog.Logger, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(base),
		metrics.Middleware(),
	)
	if len(d.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")

	var limited []echo.MiddlewareFunc
	if d.AuthRateLimit > 0 {
		limited = append(limited, authLimiter(d.AuthRateLimit, d.AuthRateBurst))
	}
	api.POST("/register", d.AuthHandler.Register, limited...)
	api.POST("/login", d.AuthHandler.Login, limited...)
	api.POST("/auth/refresh", d.AuthHandler.Refresh)
	api.POST("/auth/logout", d.AuthHandler.LogOut)

	car := api.Group("/car", d.Auth.RequireAuth)

	car.GET("", d.CarHandler.GetCars)
	car.POST("", d.CarHandler.CreateCar)
	car.GET("/search", d.CarHandler.SearchCars)
	car.PUT("/:car_id", d.CarHandler.UpdateCar)
	car.PATCH("/:car_id/position", d.CarHandler.UpdatePosition)
	car.DELETE("/:car_id", d.CarHandler.DeleteCar)
}

// authLimiter caps register and login attempts per client IP.
func authLimiter(limit float64, burst int) echo.MiddlewareFunc {
	if burst < 1 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts")
		},
	})
}
