package transport

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// connLimiter caps concurrent websocket connections per IP with atomic
// per-IP counters behind a sync.Map.
type connLimiter struct {
	connections sync.Map // map[string]*int32
	maxPerIP    int
}

func newConnLimiter(maxPerIP int) *connLimiter {
	return &connLimiter{maxPerIP: maxPerIP}
}

func (l *connLimiter) Allow(ip string) bool {
	actual, _ := l.connections.LoadOrStore(ip, new(int32))
	counter := actual.(*int32)
	for {
		current := atomic.LoadInt32(counter)
		if int(current) >= l.maxPerIP {
			return false
		}
		if atomic.CompareAndSwapInt32(counter, current, current+1) {
			return true
		}
	}
}

func (l *connLimiter) Release(ip string) {
	if val, ok := l.connections.Load(ip); ok {
		atomic.AddInt32(val.(*int32), -1)
	}
}

// msgLimiter throttles how many inbound commands a single client IP may
// submit per second (one rate.Limiter per key, lazily created; the read
// pump keys it by the connection's IP).
type msgLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newMsgLimiter(rps float64, burst int) *msgLimiter {
	return &msgLimiter{limiters: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (l *msgLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *msgLimiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

// clientIP extracts the client address: X-Forwarded-For, then X-Real-IP,
// then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
