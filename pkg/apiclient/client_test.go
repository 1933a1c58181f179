package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/car_catalog/internal/events"
	"github.com/Skotchmaster/car_catalog/internal/hash"
	"github.com/Skotchmaster/car_catalog/internal/httpserver"
	"github.com/Skotchmaster/car_catalog/internal/logging"
	authmw "github.com/Skotchmaster/car_catalog/internal/middleware/auth"
	"github.com/Skotchmaster/car_catalog/internal/repo"
	"github.com/Skotchmaster/car_catalog/internal/service"
	"github.com/Skotchmaster/car_catalog/internal/testutil"
	"github.com/Skotchmaster/car_catalog/internal/tokens"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func startServer(t *testing.T) (*httptest.Server, *clock) {
	t.Helper()

	clk := &clock{now: time.Now()}
	ts, err := tokens.NewService(tokens.Config{
		Secret:     []byte("client-test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)

	r := repo.New(testutil.OpenDB(t))
	e := httpserver.New(logging.Discard(), &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:        &service.AuthService{Repo: r, Tokens: ts, Hasher: hash.New(bcrypt.MinCost), Events: events.Nop{}},
			RefreshTTL: ts.RefreshTTL(),
		},
		CarHandler: &httpserver.CarHTTP{Svc: &service.CarService{Repo: r, Events: events.Nop{}}},
		Auth:       authmw.NewBearerAuth(ts),
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, clk
}

func newClient(t *testing.T, srv *httptest.Server, username, role string) *Client {
	t.Helper()
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Register(ctx, username, "secret-pw", role))
	require.NoError(t, c.Login(ctx, username, "secret-pw"))
	require.NotEmpty(t, c.Token())
	require.NotZero(t, c.UserID())
	return c
}

func TestClientCarLifecycle(t *testing.T) {
	t.Parallel()
	srv, _ := startServer(t)
	ctx := context.Background()

	alice := newClient(t, srv, "alice", "VIEWER_OWN")
	bob := newClient(t, srv, "bob", "VIEWER_ALL")

	lat, lng := 52.52, 13.405
	id, err := alice.CreateCar(ctx, CarInput{LicensePlate: "A-1", Brand: "Audi", Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	_, err = bob.CreateCar(ctx, CarInput{LicensePlate: "B-1", Brand: "BMW"})
	require.NoError(t, err)

	cars, err := alice.Cars(ctx)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "A-1", cars[0].LicensePlate)
	assert.Equal(t, "alice", cars[0].Username)

	cars, err = bob.Cars(ctx)
	require.NoError(t, err)
	assert.Len(t, cars, 2)

	require.NoError(t, alice.MoveCar(ctx, id, 48.1, 11.5))
	require.NoError(t, alice.UpdateCar(ctx, id, CarInput{LicensePlate: "A-2", Color: "red"}))

	found, err := bob.Search(ctx, "a-2", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "red", found[0].Color)

	_, err = alice.CreateCar(ctx, CarInput{LicensePlate: "B-1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	require.NoError(t, alice.DeleteCar(ctx, id))
	err = alice.DeleteCar(ctx, id)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClientRefreshesExpiredAccessToken(t *testing.T) {
	t.Parallel()
	srv, clk := startServer(t)
	ctx := context.Background()

	alice := newClient(t, srv, "alice", "VIEWER_OWN")
	before := alice.Token()

	clk.Advance(16 * time.Minute)
	_, err := alice.Cars(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, alice.Token())

	clk.Advance(2 * time.Hour)
	_, err = alice.Cars(ctx)
	assert.True(t, errors.Is(err, ErrSessionExpired), "got %v", err)
	assert.Empty(t, alice.Token())
	assert.Zero(t, alice.UserID())
}

func TestClientLogout(t *testing.T) {
	t.Parallel()
	srv, _ := startServer(t)
	ctx := context.Background()

	alice := newClient(t, srv, "alice", "VIEWER_OWN")
	require.NoError(t, alice.Logout(ctx))
	assert.Empty(t, alice.Token())

	err := alice.Refresh(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = alice.Cars(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestClientLoginFailure(t *testing.T) {
	t.Parallel()
	srv, _ := startServer(t)

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	err = c.Login(context.Background(), "ghost", "pw")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid username or password", apiErr.Message)
}
