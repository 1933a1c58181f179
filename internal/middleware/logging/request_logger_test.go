package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/car_catalog/internal/logging"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(middleware.RequestID(), RequestLogger(logging.NewWithWriter(&buf, "info")))
	e.GET("/car/:car_id", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.NoContent(http.StatusOK)
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "car not found")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/car/3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rid := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, rid)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "car not found")

	got := lines(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "inside", got[0]["msg"])
	assert.Equal(t, "/car/:car_id", got[0]["path"])
	assert.Equal(t, rid, got[0]["request_id"])
	assert.Equal(t, "INFO", got[1]["level"])
	assert.EqualValues(t, 200, got[1]["status"])
	assert.Equal(t, "WARN", got[2]["level"])
	assert.EqualValues(t, 404, got[2]["status"])
}
