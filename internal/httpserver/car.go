package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/car_catalog/internal/logging"
	authmw "github.com/Skotchmaster/car_catalog/internal/middleware/auth"
	"github.com/Skotchmaster/car_catalog/internal/service"
	"github.com/Skotchmaster/car_catalog/internal/transport"
	"github.com/Skotchmaster/car_catalog/internal/util"
)

type CarHTTP struct {
	Svc *service.CarService
}

func identity(c echo.Context) (uint, error) {
	id, ok := authmw.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return id, nil
}

func carID(c echo.Context) (uint, error) {
	id, ok := util.ParseID(c.Param("car_id"))
	if !ok {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "car_id must be a positive integer")
	}
	return id, nil
}

func input(req transport.CarRequest) service.CarInput {
	return service.CarInput{
		LicensePlate: req.LicensePlate,
		Brand:        req.Brand,
		Color:        req.Color,
		Model:        req.Model,
		Latitude:     req.Latitude.Ptr(),
		Longitude:    req.Longitude.Ptr(),
	}
}

func carError(l *slog.Logger, event string, err error) error {
	code := statusFor(err)
	switch code {
	case http.StatusBadRequest:
		l.Warn(event, "status", code, "reason", "validation", "error", err)
		return echo.NewHTTPError(code, "invalid car data")
	case http.StatusConflict:
		l.Warn(event, "status", code, "reason", "plate_taken")
		return echo.NewHTTPError(code, "license plate already registered")
	case http.StatusNotFound:
		l.Warn(event, "status", code, "reason", "car_not_found")
		return echo.NewHTTPError(code, "car not found")
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot process car")
	}
}

func (h *CarHTTP) GetCars(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.get_cars")

	userID, err := identity(c)
	if err != nil {
		return err
	}

	cars, err := h.Svc.ListVisible(ctx, userID)
	if err != nil {
		l.Error("get_cars_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list cars")
	}

	l.Info("get_cars_success", "count", len(cars))
	return c.JSON(http.StatusOK, cars)
}

func (h *CarHTTP) SearchCars(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.search_cars")

	userID, err := identity(c)
	if err != nil {
		return err
	}
	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_cars_failed", "status", 400, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "query error")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	cars, err := h.Svc.Search(ctx, userID, q, offset, limit)
	if err != nil {
		return carError(l, "search_cars_failed", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": cars,
		"meta": map[string]any{
			"page": offset/limit + 1,
			"size": limit,
		},
	})
}

func (h *CarHTTP) CreateCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.create_car")

	userID, err := identity(c)
	if err != nil {
		return err
	}

	var req transport.CarRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_car_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("create_car_failed", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	car, err := h.Svc.Create(ctx, userID, input(req))
	if err != nil {
		return carError(l, "create_car_failed", err)
	}

	l.Info("create_car_success", "car_id", car.ID)
	return c.JSON(http.StatusCreated, transport.Result{
		Success: true,
		Message: "car created",
		CarID:   car.ID,
	})
}

func (h *CarHTTP) UpdateCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.update_car")

	userID, err := identity(c)
	if err != nil {
		return err
	}
	id, err := carID(c)
	if err != nil {
		l.Warn("update_car_failed", "status", 400, "reason", "bad car_id")
		return err
	}

	var req transport.CarRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_car_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("update_car_failed", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	if err := h.Svc.Update(ctx, userID, id, input(req)); err != nil {
		return carError(l, "update_car_failed", err)
	}

	l.Info("update_car_success", "car_id", id)
	return c.JSON(http.StatusOK, transport.Result{Success: true, Message: "car updated"})
}

func (h *CarHTTP) UpdatePosition(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.update_position")

	userID, err := identity(c)
	if err != nil {
		return err
	}
	id, err := carID(c)
	if err != nil {
		l.Warn("update_position_failed", "status", 400, "reason", "bad car_id")
		return err
	}

	var req transport.PositionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_position_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !req.Latitude.Set || !req.Longitude.Set {
		l.Warn("update_position_failed", "status", 400, "reason", "missing coordinates")
		return echo.NewHTTPError(http.StatusBadRequest, "latitude and longitude are required")
	}

	if err := h.Svc.UpdatePosition(ctx, userID, id, req.Latitude.Value, req.Longitude.Value); err != nil {
		return carError(l, "update_position_failed", err)
	}

	l.Info("update_position_success", "car_id", id)
	return c.JSON(http.StatusOK, transport.Result{Success: true, Message: "position updated"})
}

func (h *CarHTTP) DeleteCar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "car.delete_car")

	userID, err := identity(c)
	if err != nil {
		return err
	}
	id, err := carID(c)
	if err != nil {
		l.Warn("delete_car_failed", "status", 400, "reason", "bad car_id")
		return err
	}

	if err := h.Svc.Delete(ctx, userID, id); err != nil {
		return carError(l, "delete_car_failed", err)
	}

	l.Info("delete_car_success", "car_id", id)
	return c.JSON(http.StatusOK, transport.Result{Success: true, Message: "car deleted"})
}
