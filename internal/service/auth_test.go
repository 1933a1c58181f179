package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/car_catalog/internal/events"
	"github.com/Skotchmaster/car_catalog/internal/hash"
	"github.com/Skotchmaster/car_catalog/internal/models"
	"github.com/Skotchmaster/car_catalog/internal/repo"
	"github.com/Skotchmaster/car_catalog/internal/testutil"
	"github.com/Skotchmaster/car_catalog/internal/tokens"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTokens(t *testing.T, c *clock) *tokens.Service {
	t.Helper()
	svc, err := tokens.NewService(tokens.Config{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		Now:        c.Now,
	})
	require.NoError(t, err)
	return svc
}

func newTestAuthService(t *testing.T) (*AuthService, *repo.GormRepo, *clock, *events.Recorder) {
	t.Helper()
	r := repo.New(testutil.OpenDB(t))
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rec := &events.Recorder{}
	return &AuthService{
		Repo:   r,
		Tokens: newTokens(t, c),
		Hasher: hash.New(bcrypt.MinCost),
		Events: rec,
	}, r, c, rec
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, r, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		role     string
	}{
		{name: "empty username", username: "", password: "secret", role: "VIEWER_OWN"},
		{name: "blank username", username: "   ", password: "secret", role: "VIEWER_OWN"},
		{name: "empty password", username: "user", password: "", role: "VIEWER_OWN"},
		{name: "missing role", username: "user", password: "secret", role: ""},
		{name: "unknown role", username: "user", password: "secret", role: "ADMIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(ctx, tt.username, tt.password, tt.role)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	var count int64
	require.NoError(t, r.DB.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAuthService_Register_Conflict(t *testing.T) {
	t.Parallel()

	svc, r, _, rec := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "secret", "VIEWER_OWN"))
	err := svc.Register(ctx, "alice", "other", "VIEWER_ALL")
	assert.ErrorIs(t, err, ErrConflict)

	user, err := r.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", user.PasswordHash)

	role, err := r.RoleOf(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewerOwn, role)

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.TopicUsers, got[0].Topic)
	assert.Equal(t, events.UserRegistered, got[0].Event.(events.UserEvent).Type)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	svc, r, _, _ := newTestAuthService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "secret", "VIEWER_OWN"))
	alice, err := r.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res.UserID)
	assert.Equal(t, res.AccessExp.Add(45*time.Minute), res.RefreshExp)

	id, err := svc.Tokens.VerifyAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	id, err = svc.Tokens.Verify(res.RefreshToken, tokens.KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)
}

func TestAuthService_Login_Failures(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "secret", "VIEWER_OWN"))

	_, err := svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "mallory", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "secret")
	assert.ErrorIs(t, err, ErrValidation)
}

type failingUsers struct{}

func (failingUsers) CreateUserWithRole(context.Context, *models.User, models.RoleName) error {
	return errors.New("disk full")
}

func (failingUsers) FindUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errors.New("disk full")
}

func TestAuthService_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Now()}
	svc := &AuthService{Repo: failingUsers{}, Tokens: newTokens(t, c), Hasher: hash.New(bcrypt.MinCost)}
	ctx := context.Background()

	err := svc.Register(ctx, "alice", "secret", "VIEWER_OWN")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrValidation)

	_, err = svc.Login(ctx, "alice", "secret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()

	svc, _, c, _ := newTestAuthService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "secret", "VIEWER_OWN"))
	login, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	c.t = c.t.Add(16 * time.Minute)
	_, err = svc.Tokens.VerifyAccessToken(login.AccessToken)
	require.Error(t, err)

	res, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	id, err := svc.Tokens.VerifyAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.UserID, id)

	c.t = login.RefreshExp
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
