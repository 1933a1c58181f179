package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/car_catalog/internal/models"
)

const carViewColumns = "c.car_id, c.license_plate, c.brand, c.color, c.model, c.latitude, c.longitude, " +
	"COALESCE(uc.user_id, 0) AS owner_id, COALESCE(u.username, '') AS username"

func (r *GormRepo) carViews(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("cars AS c").
		Select(carViewColumns).
		Joins("LEFT JOIN user_cars AS uc ON uc.car_id = c.car_id").
		Joins("LEFT JOIN users AS u ON u.user_id = uc.user_id")
}

func (r *GormRepo) ListCars(ctx context.Context) ([]models.CarView, error) {
	items := make([]models.CarView, 0)
	if err := r.carViews(ctx).Order("c.car_id ASC").Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ListCarsOwnedBy(ctx context.Context, userID uint) ([]models.CarView, error) {
	items := make([]models.CarView, 0)
	if err := r.carViews(ctx).
		Where("uc.user_id = ?", userID).
		Order("c.car_id ASC").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetCarView(ctx context.Context, carID uint) (*models.CarView, error) {
	var items []models.CarView
	if err := r.carViews(ctx).Where("c.car_id = ?", carID).Limit(1).Scan(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &items[0], nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchCars matches q against plate, brand, model and color. A non-nil
// ownerID restricts the result to that owner's cars.
func (r *GormRepo) SearchCars(ctx context.Context, q string, ownerID *uint, offset, limit int) ([]models.CarView, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"

	tx := r.carViews(ctx).Where(
		`(LOWER(c.license_plate) LIKE ? ESCAPE '\' OR LOWER(c.brand) LIKE ? ESCAPE '\' `+
			`OR LOWER(c.model) LIKE ? ESCAPE '\' OR LOWER(c.color) LIKE ? ESCAPE '\')`,
		pattern, pattern, pattern, pattern,
	)
	if ownerID != nil {
		tx = tx.Where("uc.user_id = ?", *ownerID)
	}

	items := make([]models.CarView, 0, limit)
	if err := tx.Order("c.car_id ASC").Offset(offset).Limit(limit).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CarExists(ctx context.Context, carID uint) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Car{}).Where("car_id = ?", carID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) OwnsCar(ctx context.Context, userID, carID uint) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.UserCar{}).
		Where("user_id = ? AND car_id = ?", userID, carID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCar inserts the car and its ownership row as one unit; if the
// ownership insert fails the car is rolled back.
func (r *GormRepo) CreateCar(ctx context.Context, car *models.Car, ownerID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := plateFree(tx, car.LicensePlate, 0); err != nil {
			return err
		}
		if err := tx.Create(car).Error; err != nil {
			return translate(err)
		}
		return tx.Create(&models.UserCar{UserID: ownerID, CarID: car.ID}).Error
	})
}

// UpdateCar replaces every editable column of the car.
func (r *GormRepo) UpdateCar(ctx context.Context, carID uint, car models.Car) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Car
		if err := tx.Where("car_id = ?", carID).First(&existing).Error; err != nil {
			return err
		}
		if err := plateFree(tx, car.LicensePlate, carID); err != nil {
			return err
		}

		err := tx.Model(&models.Car{}).Where("car_id = ?", carID).Updates(map[string]any{
			"license_plate": car.LicensePlate,
			"brand":         car.Brand,
			"color":         car.Color,
			"model":         car.Model,
			"latitude":      car.Latitude,
			"longitude":     car.Longitude,
		}).Error
		return translate(err)
	})
}

func (r *GormRepo) UpdateCarPosition(ctx context.Context, carID uint, lat, lng float64) error {
	res := r.DB.WithContext(ctx).Model(&models.Car{}).Where("car_id = ?", carID).Updates(map[string]any{
		"latitude":  lat,
		"longitude": lng,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCar removes the ownership rows and then the car.
func (r *GormRepo) DeleteCar(ctx context.Context, carID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("car_id = ?", carID).Delete(&models.UserCar{}).Error; err != nil {
			return err
		}
		res := tx.Where("car_id = ?", carID).Delete(&models.Car{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func plateFree(tx *gorm.DB, plate string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Car{}).Where("license_plate = ?", plate)
	if exceptID != 0 {
		q = q.Where("car_id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrPlateTaken
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrPlateTaken
	}
	return err
}
