package tokens

import "github.com/golang-jwt/jwt/v5"

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is shared by both token kinds, Kind tells them apart.
type Claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}
