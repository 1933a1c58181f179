package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/car_catalog/internal/events"
	"github.com/Skotchmaster/car_catalog/internal/hash"
	"github.com/Skotchmaster/car_catalog/internal/logging"
	"github.com/Skotchmaster/car_catalog/internal/models"
	"github.com/Skotchmaster/car_catalog/internal/repo"
	"github.com/Skotchmaster/car_catalog/internal/tokens"
)

type UserStore interface {
	CreateUserWithRole(ctx context.Context, u *models.User, role models.RoleName) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type AuthService struct {
	Repo   UserStore
	Tokens *tokens.Service
	Hasher hash.Hasher
	Events events.Publisher
}

type LoginResult struct {
	UserID       uint
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type RefreshResult struct {
	AccessToken string
	AccessExp   time.Time
}

func (s *AuthService) Register(ctx context.Context, username, password, role string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	roleName, err := models.ParseRole(role)
	if err != nil {
		return fmt.Errorf("%w: %v %q", ErrValidation, err, role)
	}

	pwHash, err := s.Hasher.HashPassword(password)
	if err != nil {
		if hash.IsTooLong(err) {
			return fmt.Errorf("%w: password too long", ErrValidation)
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return err
	}

	user := models.User{Username: username, PasswordHash: pwHash}
	if err := s.Repo.CreateUserWithRole(ctx, &user, roleName); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return err
	}

	s.publish(ctx, events.TopicUsers, username, events.UserEvent{
		Type:     events.UserRegistered,
		UserID:   user.ID,
		Username: username,
		Role:     string(roleName),
		At:       time.Now().UTC(),
	})
	return nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.Hasher.Equalize(password)
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "status", 500, "error", err)
		return nil, err
	}
	if !s.Hasher.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, accessExp, err := s.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue access token", "error", err)
		return nil, err
	}
	refreshToken, refreshExp, err := s.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue refresh token", "error", err)
		return nil, err
	}

	s.publish(ctx, events.TopicUsers, username, events.UserEvent{
		Type:     events.UserLoggedIn,
		UserID:   user.ID,
		Username: username,
		At:       time.Now().UTC(),
	})

	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh mints a new access token. An empty token fails before any
// verification is attempted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	accessToken, accessExp, err := s.Tokens.Refresh(refreshToken)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidToken) || errors.Is(err, tokens.ErrMissingToken) {
			return nil, ErrInvalidRefreshToken
		}
		logging.FromContext(ctx).With("svc", "auth.refresh").Error("refresh_error", "status", 500, "error", err)
		return nil, err
	}

	return &RefreshResult{AccessToken: accessToken, AccessExp: accessExp}, nil
}

// LogOut has nothing to revoke, tokens stay valid until they expire.
// The caller drops the session cookies.
func (s *AuthService) LogOut(ctx context.Context) {
	logging.FromContext(ctx).With("svc", "auth.logout").Info("logout")
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "error", err)
	}
}
