package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing token")
)

type Config struct {
	Secret        []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("tokens: empty signing secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("tokens: ttl must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("tokens: refresh ttl shorter than access ttl")
	}

	refreshSecret := cfg.RefreshSecret
	if len(refreshSecret) == 0 {
		refreshSecret = cfg.Secret
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		accessSecret:  cfg.Secret,
		refreshSecret: refreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           now,
	}, nil
}

func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) IssueAccessToken(userID uint) (string, time.Time, error) {
	return s.issue(KindAccess, userID, s.accessTTL, s.accessSecret)
}

func (s *Service) IssueRefreshToken(userID uint) (string, time.Time, error) {
	return s.issue(KindRefresh, userID, s.refreshTTL, s.refreshSecret)
}

func (s *Service) issue(kind Kind, userID uint, ttl time.Duration, secret []byte) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, errors.New("tokens: empty user id")
	}

	issuedAt := s.now()
	exp := issuedAt.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify returns the user id carried by a valid token of the expected kind.
// Every failure is reported as ErrInvalidToken.
func (s *Service) Verify(tokenStr string, expected Kind) (uint, error) {
	secret := s.accessSecret
	if expected == KindRefresh {
		secret = s.refreshSecret
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid || claims.Kind != expected {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 0)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

func (s *Service) VerifyAccessToken(tokenStr string) (uint, error) {
	return s.Verify(tokenStr, KindAccess)
}

// Refresh mints a new access token from a refresh token. The refresh token
// itself is not rotated and stays valid until its own expiry.
func (s *Service) Refresh(refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, ErrMissingToken
	}
	userID, err := s.Verify(refreshToken, KindRefresh)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.IssueAccessToken(userID)
}
