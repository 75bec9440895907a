package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	now := time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok, "refilled after one second at 60/min")
}

func TestTokenBucketPrune(t *testing.T) {
	now := time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "a", "b"} {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Zero(t, l.Prune())
	assert.Equal(t, 2, l.Len())

	now = now.Add(time.Second)
	assert.Equal(t, 1, l.Prune(), "b is full again")
	assert.Equal(t, 1, l.Len())

	now = now.Add(time.Second)
	assert.Equal(t, 1, l.Prune())
	assert.Zero(t, l.Len())

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok, "a pruned key gets exactly a full bucket")
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (bool, error) { return true, errors.New("redis down") }

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(NewTokenBucket(1, 1), nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestGinMiddlewareFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen error
	r := gin.New()
	r.Use(GinMiddleware(errLimiter{}, func(err error) { seen = err }))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualError(t, seen, "redis down")
}
