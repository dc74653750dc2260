// Package httpapi — middleware.go содержит промежуточные обработчики для
// логирования, восстановления после паники и rate-limiting.
package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
)

// RequestLogger логирует запрос: метод, путь, статус, длительность.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"client_ip":  clientIP(r),
			"request_id": chimw.GetReqID(r.Context()),
			"took":       time.Since(started).String(),
		}).Debug("HTTP-запрос")
	})
}

// Recoverer перехватывает панику обработчика и отвечает 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", rec),
					"path":      r.URL.Path,
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "внутренняя ошибка"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RateLimiter ограничивает количество запросов на клиента.
// Использует алгоритм скользящего окна.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую горутину очистки.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	recent := pruneBefore(rl.requests[key], cutoff)
	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

// Middleware отвечает 429, когда клиент превысил лимит.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			writeError(w, common.ErrTooManyAttempts)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for key, times := range rl.requests {
				if recent := pruneBefore(times, cutoff); len(recent) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

// clientIP — адрес клиента без порта (после chimw.RealIP).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// bearerToken достаёт токен из заголовка Authorization.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
