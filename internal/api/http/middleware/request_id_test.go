package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestID(slog.New(slog.DiscardHandler)))
	r.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r, &seen
}

func TestRequestIDGenerated(t *testing.T) {
	r, seen := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rid := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, rid)
	_, err := uuid.Parse(rid)
	assert.NoError(t, err)
	assert.Equal(t, rid, *seen, "handler context carries the same id")
}

func TestRequestIDPropagated(t *testing.T) {
	r, seen := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "client-supplied-id", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "client-supplied-id", *seen)
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(t.Context()))
}
