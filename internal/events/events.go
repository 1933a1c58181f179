package events

import "time"

type UserEvent struct {
	Type     string    `json:"type"`
	UserID   uint      `json:"userID"`
	Username string    `json:"username"`
	Role     string    `json:"role,omitempty"`
	At       time.Time `json:"at"`
}

type CarEvent struct {
	Type         string    `json:"type"`
	CarID        uint      `json:"carID"`
	UserID       uint      `json:"userID"`
	LicensePlate string    `json:"licensePlate,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	At           time.Time `json:"at"`
}

const (
	UserRegistered     = "user_registered"
	UserLoggedIn       = "user_logged_in"
	CarCreated         = "car_created"
	CarUpdated         = "car_updated"
	CarPositionUpdated = "car_position_updated"
	CarDeleted         = "car_deleted"
)
