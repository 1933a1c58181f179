package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/car_catalog/internal/events"
	"github.com/Skotchmaster/car_catalog/internal/logging"
	"github.com/Skotchmaster/car_catalog/internal/models"
	"github.com/Skotchmaster/car_catalog/internal/repo"
	"github.com/Skotchmaster/car_catalog/internal/search"
)

type CarStore interface {
	RoleOf(ctx context.Context, userID uint) (models.RoleName, error)
	ListCars(ctx context.Context) ([]models.CarView, error)
	ListCarsOwnedBy(ctx context.Context, userID uint) ([]models.CarView, error)
	SearchCars(ctx context.Context, q string, ownerID *uint, offset, limit int) ([]models.CarView, error)
	GetCarView(ctx context.Context, carID uint) (*models.CarView, error)
	CarExists(ctx context.Context, carID uint) (bool, error)
	OwnsCar(ctx context.Context, userID, carID uint) (bool, error)
	CreateCar(ctx context.Context, car *models.Car, ownerID uint) error
	UpdateCar(ctx context.Context, carID uint, car models.Car) error
	UpdateCarPosition(ctx context.Context, carID uint, lat, lng float64) error
	DeleteCar(ctx context.Context, carID uint) error
}

type CarService struct {
	Repo   CarStore
	Index  search.Index
	Events events.Publisher
}

// Scope is the visibility a caller has over the fleet.
type Scope struct {
	All    bool
	UserID uint
}

// OwnerFilter is nil for an unrestricted scope.
func (s Scope) OwnerFilter() *uint {
	if s.All {
		return nil
	}
	id := s.UserID
	return &id
}

// ScopeFor grants the unrestricted scope to VIEWER_ALL only. Every other
// value, including no role at all, is restricted to the user's own cars.
func ScopeFor(userID uint, role models.RoleName) Scope {
	return Scope{All: role == models.RoleViewerAll, UserID: userID}
}

func (s *CarService) Scope(ctx context.Context, userID uint) (Scope, error) {
	role, err := s.Repo.RoleOf(ctx, userID)
	if err != nil {
		return Scope{}, fmt.Errorf("resolve role: %w", err)
	}
	return ScopeFor(userID, role), nil
}

func (s *CarService) ListVisible(ctx context.Context, userID uint) ([]models.CarView, error) {
	scope, err := s.Scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	if scope.All {
		return s.Repo.ListCars(ctx)
	}
	return s.Repo.ListCarsOwnedBy(ctx, userID)
}

func (s *CarService) Search(ctx context.Context, userID uint, q string, offset, limit int) ([]models.CarView, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", ErrValidation)
	}
	scope, err := s.Scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Index != nil {
		return s.Index.Search(ctx, q, scope.OwnerFilter(), offset, limit)
	}
	return s.Repo.SearchCars(ctx, q, scope.OwnerFilter(), offset, limit)
}

type CarInput struct {
	LicensePlate string
	Brand        string
	Color        string
	Model        string
	Latitude     *float64
	Longitude    *float64
}

func (in CarInput) car() (models.Car, error) {
	plate := strings.TrimSpace(in.LicensePlate)
	if plate == "" {
		return models.Car{}, fmt.Errorf("%w: license_plate is required", ErrValidation)
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return models.Car{}, fmt.Errorf("%w: latitude and longitude go together", ErrValidation)
	}
	if in.Latitude != nil {
		if err := validPosition(*in.Latitude, *in.Longitude); err != nil {
			return models.Car{}, err
		}
	}
	return models.Car{
		LicensePlate: plate,
		Brand:        strings.TrimSpace(in.Brand),
		Color:        strings.TrimSpace(in.Color),
		Model:        strings.TrimSpace(in.Model),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}, nil
}

func validPosition(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: position out of range", ErrValidation)
	}
	return nil
}

func (s *CarService) Create(ctx context.Context, userID uint, in CarInput) (*models.Car, error) {
	car, err := in.car()
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateCar(ctx, &car, userID); err != nil {
		return nil, mapCarErr(err)
	}

	s.sync(ctx, car.ID)
	s.publish(ctx, carEvent(events.CarCreated, userID, car))
	return &car, nil
}

func (s *CarService) Update(ctx context.Context, userID, carID uint, in CarInput) error {
	car, err := in.car()
	if err != nil {
		return err
	}
	if err := s.ensureVisible(ctx, userID, carID); err != nil {
		return err
	}
	if err := s.Repo.UpdateCar(ctx, carID, car); err != nil {
		return mapCarErr(err)
	}

	car.ID = carID
	s.sync(ctx, carID)
	s.publish(ctx, carEvent(events.CarUpdated, userID, car))
	return nil
}

func (s *CarService) UpdatePosition(ctx context.Context, userID, carID uint, lat, lng float64) error {
	if err := validPosition(lat, lng); err != nil {
		return err
	}
	if err := s.ensureVisible(ctx, userID, carID); err != nil {
		return err
	}
	if err := s.Repo.UpdateCarPosition(ctx, carID, lat, lng); err != nil {
		return mapCarErr(err)
	}

	s.sync(ctx, carID)
	s.publish(ctx, carEvent(events.CarPositionUpdated, userID, models.Car{ID: carID, Latitude: &lat, Longitude: &lng}))
	return nil
}

func (s *CarService) Delete(ctx context.Context, userID, carID uint) error {
	if err := s.ensureVisible(ctx, userID, carID); err != nil {
		return err
	}
	if err := s.Repo.DeleteCar(ctx, carID); err != nil {
		return mapCarErr(err)
	}

	if s.Index != nil {
		if err := s.Index.Remove(ctx, carID); err != nil {
			logging.FromContext(ctx).Warn("search_remove_failed", "car_id", carID, "error", err)
		}
	}
	s.publish(ctx, carEvent(events.CarDeleted, userID, models.Car{ID: carID}))
	return nil
}

// ensureVisible reports a car outside the caller's scope as not found.
func (s *CarService) ensureVisible(ctx context.Context, userID, carID uint) error {
	scope, err := s.Scope(ctx, userID)
	if err != nil {
		return err
	}

	var ok bool
	if scope.All {
		ok, err = s.Repo.CarExists(ctx, carID)
	} else {
		ok, err = s.Repo.OwnsCar(ctx, userID, carID)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: car %d", ErrNotFound, carID)
	}
	return nil
}

// Reindex puts every stored car into the search index. Cars that fail are
// skipped and reported together; the count is of cars indexed.
func (s *CarService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	cars, err := s.Repo.ListCars(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cars: %w", err)
	}

	var (
		indexed int
		errs    []error
	)
	for _, car := range cars {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if err := s.Index.Put(ctx, car); err != nil {
			errs = append(errs, fmt.Errorf("car %d: %w", car.ID, err))
			continue
		}
		indexed++
	}
	return indexed, errors.Join(errs...)
}

func (s *CarService) sync(ctx context.Context, carID uint) {
	if s.Index == nil {
		return
	}
	l := logging.FromContext(ctx)
	view, err := s.Repo.GetCarView(ctx, carID)
	if err != nil {
		l.Warn("search_sync_failed", "car_id", carID, "error", err)
		return
	}
	if err := s.Index.Put(ctx, *view); err != nil {
		l.Warn("search_sync_failed", "car_id", carID, "error", err)
	}
}

func (s *CarService) publish(ctx context.Context, ev events.CarEvent) {
	if s.Events == nil {
		return
	}
	key := fmt.Sprintf("%d", ev.CarID)
	if err := s.Events.PublishEvent(ctx, events.TopicCars, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", events.TopicCars, "error", err)
	}
}

func carEvent(kind string, userID uint, car models.Car) events.CarEvent {
	return events.CarEvent{
		Type:         kind,
		CarID:        car.ID,
		UserID:       userID,
		LicensePlate: car.LicensePlate,
		Latitude:     car.Latitude,
		Longitude:    car.Longitude,
		At:           time.Now().UTC(),
	}
}

func mapCarErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrPlateTaken):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}
