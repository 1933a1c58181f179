package httpserver

import (
	"net/http"
	"time"
)

const (
	RefreshCookie = "refreshToken"
	SessionCookie = "sessionId"
)

type CookiePolicy struct {
	Secure   bool
	HTTPOnly bool
}

func (p CookiePolicy) CreateCookie(name, value, path string, ttl time.Duration, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		Expires:  exp,
		HttpOnly: p.HTTPOnly,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (p CookiePolicy) DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: p.HTTPOnly,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
