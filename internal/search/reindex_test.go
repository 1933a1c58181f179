package search_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/car_catalog/internal/models"
	"github.com/Skotchmaster/car_catalog/internal/repo"
	"github.com/Skotchmaster/car_catalog/internal/search"
	"github.com/Skotchmaster/car_catalog/internal/service"
	"github.com/Skotchmaster/car_catalog/internal/testutil"
)

// memoryES stores indexed documents and answers every search with all of them.
type memoryES struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func (m *memoryES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		hits := make([]map[string]json.RawMessage, 0, len(m.docs))
		for _, d := range m.docs {
			hits = append(hits, map[string]json.RawMessage{"_source": d})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/_doc/"):
		m.docs[r.URL.Path] = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func TestReindexMakesExistingCarsSearchable(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.OpenDB(t))

	alice := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, r.CreateUserWithRole(ctx, alice, models.RoleViewerOwn))

	svc := &service.CarService{Repo: r}
	for _, plate := range []string{"ABC-123", "ABC-124"} {
		_, err := svc.Create(ctx, alice.ID, service.CarInput{LicensePlate: plate, Brand: "Nissan"})
		require.NoError(t, err)
	}

	es := &memoryES{docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(es)
	t.Cleanup(srv.Close)
	client, err := search.NewClient(srv.URL, "", "")
	require.NoError(t, err)
	svc.Index = &search.ESIndex{ES: client, Index: "cars"}

	found, err := svc.Search(ctx, alice.ID, "nissan", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, found)

	n, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err = svc.Search(ctx, alice.ID, "nissan", 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, c := range found {
		assert.Equal(t, alice.ID, c.OwnerID)
		assert.Equal(t, "alice", c.Username)
	}
}
