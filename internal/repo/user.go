package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/car_catalog/internal/models"
)

// CreateUserWithRole inserts the user and its role assignment in one transaction.
func (r *GormRepo) CreateUserWithRole(ctx context.Context, u *models.User, role models.RoleName) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("username = ?", u.Username).FirstOrCreate(u)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrUserAlreadyExist
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserAlreadyExist
		}

		var rol models.Role
		if err := tx.Where("rol_name = ?", role).First(&rol).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrRoleNotSeeded, role)
			}
			return err
		}

		return tx.Create(&models.UserRole{UserID: u.ID, RoleID: rol.ID}).Error
	})
}

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// RoleOf returns the role assigned to the user, or "" when there is none.
func (r *GormRepo) RoleOf(ctx context.Context, userID uint) (models.RoleName, error) {
	var names []string
	err := r.DB.WithContext(ctx).
		Table("user_roles AS ur").
		Joins("INNER JOIN roles AS r ON r.rol_id = ur.rol_id").
		Where("ur.user_id = ?", userID).
		Limit(1).
		Pluck("r.rol_name", &names).Error
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return models.RoleName(names[0]), nil
}
