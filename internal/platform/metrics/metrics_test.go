package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsRequests(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/providers")

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/providers", "200"))

	mw := Middleware()
	err := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/providers", "200"))
	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %f -> %f", before, after)
	}
}

func TestMiddleware_RecordsErrorStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/providers/:id")

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/providers/:id", "404"))

	mw := Middleware()
	err := mw(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})(c)

	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/providers/:id", "404"))
	if after != before+1 {
		t.Errorf("expected 404 counter to increment, got %f -> %f", before, after)
	}
}
