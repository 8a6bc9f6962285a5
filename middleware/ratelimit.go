package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per key and forgets idle keys.
type limiterSet struct {
	mu      sync.Mutex
	r       rate.Limit
	b       int
	buckets map[string]*keyedLimiter
}

func newLimiterSet(r rate.Limit, b int) *limiterSet {
	s := &limiterSet{r: r, b: b, buckets: make(map[string]*keyedLimiter)}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			s.prune(time.Now().Add(-10 * time.Minute))
		}
	}()
	return s
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	kl, ok := s.buckets[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.r, s.b)}
		s.buckets[key] = kl
	}
	kl.lastSeen = time.Now()
	s.mu.Unlock()
	return kl.limiter.Allow()
}

func (s *limiterSet) prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, kl := range s.buckets {
		if kl.lastSeen.Before(cutoff) {
			delete(s.buckets, k)
		}
	}
}

// RateLimit is a token bucket per authenticated player, or per client IP
// before authentication. r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	set := newLimiterSet(r, b)
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetPlayerID(c); id > 0 {
			key = "player:" + strconv.FormatInt(id, 10)
		}
		if !set.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}
