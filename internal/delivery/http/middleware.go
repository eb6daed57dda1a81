package http

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware keeps the caller's request id or assigns a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// AdminAuthMiddleware requires "Authorization: Bearer <token>". An empty
// token disables the admin endpoints.
func AdminAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
			return
		}

		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

type senderBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	notified bool
}

// SenderLimiter throttles inbound messages per sender. A nil limiter allows everything.
type SenderLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*senderBucket
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	now       func() time.Time
}

// NewSenderLimiter allows perMinute messages per sender with a burst of the
// same size. perMinute <= 0 returns nil.
func NewSenderLimiter(perMinute int) *SenderLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &SenderLimiter{
		buckets:   make(map[string]*senderBucket),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		idleAfter: 10 * time.Minute,
		now:       time.Now,
	}
}

// Allow reports whether the sender may send another message now.
func (l *SenderLimiter) Allow(senderID string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[senderID]
	if !ok {
		b = &senderBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[senderID] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	if allowed {
		b.notified = false
	}
	return allowed
}

// ShouldNotify reports true once per throttled streak so the sender is told
// about the limit only once.
func (l *SenderLimiter) ShouldNotify(senderID string) bool {
	if l == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[senderID]
	if !ok || b.notified {
		return false
	}
	b.notified = true
	return true
}

// Prune drops senders idle for longer than the idle window.
func (l *SenderLimiter) Prune() int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleAfter)
	removed := 0
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}
