package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrPlateTaken       = errors.New("license plate already registered")
	ErrRoleNotSeeded    = errors.New("role is not seeded")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
