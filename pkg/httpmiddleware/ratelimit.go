package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	// Max requests per Window. Up to Max may arrive in a burst; the budget
	// refills evenly over the window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per client key.
type limiterSet struct {
	every rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{
		every:    rate.Every(cfg.Window / time.Duration(cfg.Max)),
		burst:    cfg.Max,
		idle:     cfg.Window,
		visitors: make(map[string]*visitor),
	}
}

type decision struct {
	allowed    bool
	remaining  int
	resetAt    time.Time
	retryAfter time.Duration
}

func (s *limiterSet) take(key string, now time.Time) decision {
	s.mu.Lock()
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(s.every, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	s.mu.Unlock()

	d := decision{allowed: v.lim.AllowN(now, 1)}
	tokens := v.lim.TokensAt(now)
	d.remaining = max(int(tokens), 0)
	// The bucket is full again after the missing tokens refill.
	missing := float64(s.burst) - tokens
	d.resetAt = now.Add(time.Duration(missing / float64(s.every) * float64(time.Second)))
	if !d.allowed {
		d.retryAfter = time.Duration((1 - tokens) / float64(s.every) * float64(time.Second))
	}
	return d
}

// sweep drops clients idle for longer than a window; their bucket would be
// full by now anyway.
func (s *limiterSet) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.visitors, key)
		}
	}
}

// RateLimit limits each client to cfg.Max requests per cfg.Window. Every
// response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset; rejected requests get 429 with Retry-After and a JSON
// error body in the same shape as the API errors.
//
// Idle clients are never evicted; use RateLimitWithCleanup in servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, newLimiterSet(cfg))
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle
// clients every window until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	set := newLimiterSet(cfg)
	go func() {
		ticker := time.NewTicker(cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				set.sweep(now)
			}
		}
	}()
	return rateLimit(cfg, set)
}

func rateLimit(cfg RateLimitConfig, set *limiterSet) Middleware {
	keyFn := cfg.KeyFunc
	if keyFn == nil {
		keyFn = clientIP
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := set.take(keyFn(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))
			if d.allowed {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(d.retryAfter.Seconds()))
			var e jx.Encoder
			e.ObjStart()
			e.FieldStart("error")
			e.Str("rate limit exceeded")
			e.FieldStart("retry_after")
			e.Int(retry)
			e.ObjEnd()

			h.Set("Retry-After", strconv.Itoa(retry))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write(e.Bytes())
		})
	}
}

// SessionKey keys the limiter on the session token in header, falling back
// to the client IP for requests that carry none.
func SessionKey(header string) func(*http.Request) string {
	return func(r *http.Request) string {
		if tok := r.Header.Get(header); tok != "" {
			return "session:" + tok
		}
		return clientIP(r)
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
