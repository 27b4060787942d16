package transport

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/anime-shed/image-annotator-go/internal/logger"
)

// limiterStore keeps one token bucket per client key and forgets idle keys
type limiterStore struct {
	mu           sync.Mutex
	entries      map[string]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	return &limiterStore{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *limiterStore) cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// startJanitor removes idle keys until ctx is done
func (s *limiterStore) startJanitor(ctx context.Context) {
	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.cleanup()
			}
		}
	}()
}

// retryAfter is how long until the limiter will grant a token again
func (s *limiterStore) retryAfter(lim *rate.Limiter) time.Duration {
	r := lim.Reserve()
	if !r.OK() {
		return time.Second
	}
	delay := r.Delay()
	r.Cancel()
	return delay
}

// rateLimiter rejects clients that exceed their token bucket with 429
func rateLimiter(store *limiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		lim := store.get(key)
		if lim.Allow() {
			c.Next()
			return
		}

		wait := store.retryAfter(lim)
		seconds := int(math.Ceil(wait.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))

		logger.WithFields(logrus.Fields{
			"client": key,
			"path":   c.Request.URL.Path,
		}).Warn("Rate limit exceeded")
		abortWithDetail(c, http.StatusTooManyRequests, "rate limit exceeded")
	}
}
