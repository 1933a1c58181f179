package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt with a configurable cost.
type Hasher struct {
	Cost  int
	dummy []byte
}

func New(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("equalize"), cost)
	return Hasher{Cost: cost, dummy: dummy}
}

func (h Hasher) HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

func (h Hasher) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Equalize burns one comparison against a throwaway hash so that a login for
// an unknown username costs the same as one with a wrong password.
func (h Hasher) Equalize(password string) {
	dummy := h.dummy
	if dummy == nil {
		var err error
		if dummy, err = bcrypt.GenerateFromPassword([]byte("equalize"), h.Cost); err != nil {
			return
		}
	}
	_ = bcrypt.CompareHashAndPassword(dummy, []byte(password))
}

func IsTooLong(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}
