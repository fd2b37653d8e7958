package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequestIDMiddleware_GenerateID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(zap.NewNop()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestIDMiddleware_UseProvidedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(zap.NewNop()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	providedID := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, providedID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, providedID, w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), providedID)
}

func setupIdempotencyRouter(store RequestIDStore, status int, calls *int32) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	router := gin.New()
	router.Use(RequestIDMiddleware(logger))
	router.Use(IdempotencyMiddleware(store, logger, 5*time.Minute))
	router.POST("/reserve", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"call": n})
	})
	return router
}

func post(router *gin.Engine, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/reserve", nil)
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryRequestIDStore()
	defer store.Close()
	var calls int32
	router := setupIdempotencyRouter(store, http.StatusOK, &calls)

	first := post(router, "req-1")
	second := post(router, "req-1")

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayHeader))
}

func TestIdempotencyMiddleware_ReplaysConflict(t *testing.T) {
	store := NewInMemoryRequestIDStore()
	defer store.Close()
	var calls int32
	router := setupIdempotencyRouter(store, http.StatusConflict, &calls)

	post(router, "req-1")
	second := post(router, "req-1")

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestIdempotencyMiddleware_ConcurrentDuplicateWaitsForFirst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewInMemoryRequestIDStore()
	defer store.Close()

	var calls int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	router := gin.New()
	router.Use(RequestIDMiddleware(zap.NewNop()))
	router.Use(IdempotencyMiddleware(store, zap.NewNop(), 5*time.Minute))
	router.POST("/reserve", func(c *gin.Context) {
		n := atomic.AddInt32(&calls, 1)
		entered <- struct{}{}
		<-release
		c.JSON(http.StatusOK, gin.H{"call": n})
	})

	responses := make([]*httptest.ResponseRecorder, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		responses[0] = post(router, "req-1")
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		responses[1] = post(router, "req-1")
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, w := range responses {
		require.NotNil(t, w)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"call":1}`, w.Body.String())
	}
	assert.Equal(t, "true", responses[1].Header().Get(ReplayHeader))
}

func TestIdempotencyMiddleware_DoesNotStoreServerErrors(t *testing.T) {
	store := NewInMemoryRequestIDStore()
	defer store.Close()
	var calls int32
	router := setupIdempotencyRouter(store, http.StatusInternalServerError, &calls)

	post(router, "req-1")
	post(router, "req-1")

	assert.Equal(t, int32(2), calls)
}

func TestIdempotencyMiddleware_GeneratedIDsAreNotStored(t *testing.T) {
	store := NewInMemoryRequestIDStore()
	defer store.Close()
	var calls int32
	router := setupIdempotencyRouter(store, http.StatusOK, &calls)

	post(router, "")
	post(router, "")

	assert.Equal(t, int32(2), calls)
}

func TestIdempotencyMiddleware_GETRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewInMemoryRequestIDStore()
	defer store.Close()
	router := gin.New()
	router.Use(RequestIDMiddleware(zap.NewNop()))
	router.Use(IdempotencyMiddleware(store, zap.NewNop(), 5*time.Minute))
	var calls int32
	router.GET("/test", func(c *gin.Context) {
		atomic.AddInt32(&calls, 1)
		c.JSON(http.StatusOK, gin.H{"message": "response"})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "same")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, int32(2), calls)
}

func TestInMemoryRequestIDStore_Expiration(t *testing.T) {
	store := NewInMemoryRequestIDStore()
	defer store.Close()
	ctx := context.Background()

	err := store.Store(ctx, "key", CachedResponse{Status: 200, Body: []byte(`{}`)}, 100*time.Millisecond)
	require.NoError(t, err)

	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, 200, got.Status)

	time.Sleep(150 * time.Millisecond)
	_, err = store.Get(ctx, "key")
	assert.Equal(t, ErrRequestIDNotFound, err)
}

func TestCachedResponseEncoding(t *testing.T) {
	data, err := MarshalCachedResponse(CachedResponse{Status: 409, Body: []byte(`{"success":false}`)})
	require.NoError(t, err)

	got, err := UnmarshalCachedResponse(data)
	require.NoError(t, err)
	assert.Equal(t, 409, got.Status)
	assert.JSONEq(t, `{"success":false}`, string(got.Body))
}
