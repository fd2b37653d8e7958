package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// RequestIDHeader carries the client's correlation id.
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is where the id is kept in the gin context.
	RequestIDContextKey = "request_id"
	// ReplayHeader marks a response served from the idempotency store.
	ReplayHeader = "X-Idempotent-Replay"
)

// CachedResponse is what the idempotency store keeps per request id.
type CachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// RequestIDStore remembers responses of write requests by request id.
type RequestIDStore interface {
	Store(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error
	// Get returns ErrRequestIDNotFound when nothing is stored or it expired.
	Get(ctx context.Context, key string) (CachedResponse, error)
}

// InMemoryRequestIDStore keeps responses in process memory.
type InMemoryRequestIDStore struct {
	mu      sync.RWMutex
	store   map[string]requestIDEntry
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type requestIDEntry struct {
	response  CachedResponse
	expiresAt time.Time
}

// NewInMemoryRequestIDStore starts a store that sweeps expired entries every minute.
func NewInMemoryRequestIDStore() *InMemoryRequestIDStore {
	store := &InMemoryRequestIDStore{
		store:   make(map[string]requestIDEntry),
		cleanup: time.NewTicker(1 * time.Minute),
		done:    make(chan struct{}),
	}

	go store.cleanupExpired()

	return store
}

func (s *InMemoryRequestIDStore) Store(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[key] = requestIDEntry{
		response:  response,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *InMemoryRequestIDStore) Get(ctx context.Context, key string) (CachedResponse, error) {
	s.mu.RLock()
	entry, exists := s.store[key]
	s.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		return CachedResponse{}, ErrRequestIDNotFound
	}
	return entry.response, nil
}

// Close stops the cleanup goroutine.
func (s *InMemoryRequestIDStore) Close() {
	s.once.Do(func() {
		s.cleanup.Stop()
		close(s.done)
	})
}

func (s *InMemoryRequestIDStore) cleanupExpired() {
	for {
		select {
		case <-s.done:
			return
		case <-s.cleanup.C:
			s.mu.Lock()
			now := time.Now()
			for id, entry := range s.store {
				if now.After(entry.expiresAt) {
					delete(s.store, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

var (
	ErrRequestIDNotFound = &RequestIDError{Message: "request ID not found"}
)

type RequestIDError struct {
	Message string
}

func (e *RequestIDError) Error() string {
	return e.Message
}

// RequestIDMiddleware extracts or generates X-Request-ID header
func RequestIDMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
			logger.Debug("Generated new request ID",
				zap.String("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
		}

		c.Set(RequestIDContextKey, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDContextKey, requestID))
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the Gin context
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDContextKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// IdempotencyMiddleware replays the stored response of a write request whose
// request id was already seen on the same route, and stores the response of a
// new one. Successful and conflict responses are stored: a retried
// reservation gets the outcome the first attempt had instead of reserving
// twice. Requests sharing a key while the first is still running wait for it
// and replay its response. The store failing never fails the request.
func IdempotencyMiddleware(store RequestIDStore, logger *zap.Logger, ttl time.Duration) gin.HandlerFunc {
	var inflight singleflight.Group

	return func(c *gin.Context) {
		if isReadOnly(c.Request.Method) {
			c.Next()
			return
		}

		requestID := GetRequestID(c)
		if requestID == "" || c.GetHeader(RequestIDHeader) == "" {
			// generated ids cannot repeat
			c.Next()
			return
		}
		key := c.Request.Method + " " + c.Request.URL.Path + " " + requestID

		handled := false
		v, _, _ := inflight.Do(key, func() (interface{}, error) {
			handled = true
			if cached, ok := lookupResponse(c, store, key, logger); ok {
				return idempotentOutcome{response: cached, replay: true}, nil
			}

			writer := &responseWriter{ResponseWriter: c.Writer}
			c.Writer = writer
			c.Next()

			response := CachedResponse{Status: writer.Status(), Body: writer.body}
			if cacheable(response.Status) && len(response.Body) > 0 {
				storeResponse(c, store, key, response, ttl, logger)
			}
			return idempotentOutcome{response: response}, nil
		})
		outcome := v.(idempotentOutcome)

		switch {
		case handled && !outcome.replay:
			return
		case !handled && !cacheable(outcome.response.Status):
			// the request we waited on failed; this one gets its own attempt
			c.Next()
			return
		}

		logger.Info("Duplicate request detected, returning cached response",
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Bool("concurrent", !handled),
		)
		c.Header(ReplayHeader, "true")
		c.Data(outcome.response.Status, "application/json; charset=utf-8", outcome.response.Body)
		c.Abort()
	}
}

type idempotentOutcome struct {
	response CachedResponse
	replay   bool
}

func lookupResponse(c *gin.Context, store RequestIDStore, key string, logger *zap.Logger) (CachedResponse, bool) {
	cached, err := store.Get(c.Request.Context(), key)
	switch {
	case err == nil:
		return cached, true
	case err != ErrRequestIDNotFound:
		logger.Warn("Error reading idempotency store",
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err),
		)
	}
	return CachedResponse{}, false
}

func storeResponse(c *gin.Context, store RequestIDStore, key string, response CachedResponse, ttl time.Duration, logger *zap.Logger) {
	if err := store.Store(c.Request.Context(), key, response, ttl); err != nil {
		logger.Warn("Failed to store response for idempotency",
			zap.String("request_id", GetRequestID(c)),
			zap.Error(err),
		)
		return
	}
	logger.Debug("Stored response for idempotency",
		zap.String("request_id", GetRequestID(c)),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", response.Status),
	)
}

// MarshalCachedResponse and UnmarshalCachedResponse give stores backed by
// bytes a shared encoding.
func MarshalCachedResponse(r CachedResponse) ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalCachedResponse(data []byte) (CachedResponse, error) {
	var r CachedResponse
	err := json.Unmarshal(data, &r)
	return r, err
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func cacheable(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusConflict
}

// responseWriter captures the response body
type responseWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, []byte(s)...)
	return w.ResponseWriter.WriteString(s)
}
