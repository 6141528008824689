package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"medassist/pkg/logger"
)

const ClientIDHeader = "X-Client-ID"

type ClientKeyFunc func(r *http.Request) string

// RateLimiter allows each client at most limit POST requests per sliding
// window. Every POST to the API ends in a call to the clinic backend, so reads
// are not limited.
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	clientKey ClientKeyFunc
	log       *logger.Logger
	now       func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration, clientKey ClientKeyFunc, log *logger.Logger) *RateLimiter {
	if clientKey == nil {
		clientKey = DefaultClientKey
	}
	return &RateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		clientKey: clientKey,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the periodic cleanup of idle clients until Stop.
func (rl *RateLimiter) Start() {
	go rl.cleanup()
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// Sweep forgets clients with no request inside the window and returns how
// many were dropped.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for client, timestamps := range rl.requests {
		if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) >= rl.window {
			delete(rl.requests, client)
			removed++
		}
	}
	return removed
}

// Allow records a request for client and reports whether it is within the
// limit. The second result is how long until the oldest request leaves the
// window, set only when the request is refused.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	if client == "" {
		return true, 0
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[client]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[client] = valid
		return false, rl.window - now.Sub(valid[0])
	}

	rl.requests[client] = append(valid, now)
	return true, 0
}

func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			client := limiter.clientKey(r)
			if ok, retryAfter := limiter.Allow(client); !ok {
				rejectRateLimited(w, limiter.log, r, client, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, client string, retryAfter time.Duration) {
	log.Warn("Rate limit exceeded",
		"request_id", RequestID(r.Context()),
		"client", client,
		"path", r.URL.Path,
	)

	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please slow down")
}

// DefaultClientKey identifies the caller by X-Client-ID, falling back to the
// remote address host.
func DefaultClientKey(r *http.Request) string {
	if id := r.Header.Get(ClientIDHeader); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
