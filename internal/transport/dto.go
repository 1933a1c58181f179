package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role"     validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type CarRequest struct {
	LicensePlate string     `json:"license_plate" validate:"required,max=32"`
	Brand        string     `json:"brand"         validate:"max=64"`
	Color        string     `json:"color"         validate:"max=64"`
	Model        string     `json:"model"         validate:"max=64"`
	Latitude     Coordinate `json:"latitude"`
	Longitude    Coordinate `json:"longitude"`
}

type PositionRequest struct {
	Latitude  Coordinate `json:"latitude"`
	Longitude Coordinate `json:"longitude"`
}

// Coordinate accepts a JSON number, a numeric string, null or "".
// The last two leave it unset.
type Coordinate struct {
	Value float64
	Set   bool
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = Coordinate{}
		return nil
	}

	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*c = Coordinate{}
			return nil
		}
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid coordinate %s", raw)
	}
	*c = Coordinate{Value: f, Set: true}
	return nil
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

func (c Coordinate) Ptr() *float64 {
	if !c.Set {
		return nil
	}
	v := c.Value
	return &v
}

type AuthData struct {
	AccessToken string `json:"accessToken"`
	UserID      uint   `json:"userId"`
}

type LoginResponse struct {
	Message string   `json:"message"`
	Data    AuthData `json:"data"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CarID   uint   `json:"car_id,omitempty"`
}
