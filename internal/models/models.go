package models

import (
	"errors"
	"strings"
)

type RoleName string

const (
	RoleViewerOwn RoleName = "VIEWER_OWN"
	RoleViewerAll RoleName = "VIEWER_ALL"
)

var ErrUnknownRole = errors.New("unknown role")

var Roles = []RoleName{RoleViewerOwn, RoleViewerAll}

// ParseRole accepts only the known role names; matching is case-insensitive.
func ParseRole(s string) (RoleName, error) {
	r := RoleName(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

type User struct {
	ID           uint   `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	Username     string `gorm:"uniqueIndex;not null"                    json:"username"`
	PasswordHash string `gorm:"not null"                                json:"-"`
}

type Role struct {
	ID   uint     `gorm:"column:rol_id;primaryKey;autoIncrement" json:"rol_id"`
	Name RoleName `gorm:"column:rol_name;uniqueIndex;not null"   json:"rol_name"`
}

// UserRole holds exactly one role per user.
type UserRole struct {
	UserID uint `gorm:"column:user_id;primaryKey"   json:"user_id"`
	RoleID uint `gorm:"column:rol_id;not null;index" json:"rol_id"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Role *Role `gorm:"foreignKey:RoleID;references:ID"                           json:"-"`
}

type Car struct {
	ID           uint     `gorm:"column:car_id;primaryKey;autoIncrement" json:"car_id"`
	LicensePlate string   `gorm:"uniqueIndex;not null"                   json:"license_plate"`
	Brand        string   `json:"brand"`
	Color        string   `json:"color"`
	Model        string   `json:"model"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// UserCar links a car to its single owner.
type UserCar struct {
	UserID uint `gorm:"column:user_id;primaryKey"             json:"user_id"`
	CarID  uint `gorm:"column:car_id;primaryKey;uniqueIndex" json:"car_id"`

	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Car  *Car  `gorm:"foreignKey:CarID;references:ID;constraint:OnDelete:CASCADE"  json:"-"`
}

// CarView is a car joined with its owner, as returned by listings.
type CarView struct {
	ID           uint     `gorm:"column:car_id"   json:"car_id"`
	LicensePlate string   `json:"license_plate"`
	Brand        string   `json:"brand"`
	Color        string   `json:"color"`
	Model        string   `json:"model"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	OwnerID      uint     `gorm:"column:owner_id" json:"-"`
	Username     string   `json:"username"`
}

func All() []any {
	return []any{&User{}, &Role{}, &UserRole{}, &Car{}, &UserCar{}}
}
