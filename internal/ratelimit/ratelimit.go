// Package ratelimit ограничивает частоту запросов по ключу (token bucket).
//
// Лимитеры ключей, к которым давно не обращались, удаляются фоновой очисткой,
// поэтому карта не растёт от каждого нового IP.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"

	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
)

// DefaultIdleTTL время, после которого неактивный ключ забывается
const DefaultIdleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano последнего обращения
}

// KeyedRateLimiter хранит отдельный лимитер на каждый ключ
type KeyedRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int

	idleTTL  time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// Option настройка лимитера
type Option func(*KeyedRateLimiter)

// WithIdleTTL задаёт время жизни неактивного ключа
func WithIdleTTL(d time.Duration) Option {
	return func(krl *KeyedRateLimiter) {
		if d > 0 {
			krl.idleTTL = d
		}
	}
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(krl *KeyedRateLimiter) { krl.now = now }
}

// New создаёт лимитер: rps запросов в секунду, burst запросов сразу.
// Фоновая очистка работает до вызова Stop.
func New(rps float64, burst int, opts ...Option) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(krl)
	}

	go krl.cleanup()

	return krl
}

// Allow проверяет запрос без блокировки
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Len возвращает число отслеживаемых ключей
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.RLock()
	defer krl.mu.RUnlock()
	return len(krl.limiters)
}

func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	now := krl.now().UnixNano()

	krl.mu.RLock()
	e, exists := krl.limiters[key]
	krl.mu.RUnlock()

	if exists {
		e.lastSeen.Store(now)
		return e.limiter
	}

	krl.mu.Lock()
	defer krl.mu.Unlock()

	if e, exists = krl.limiters[key]; !exists {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen.Store(now)
	return e.limiter
}

// Stop останавливает фоновую очистку
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(krl.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.sweep()
		}
	}
}

// sweep удаляет ключи, неактивные дольше idleTTL, и возвращает их число
func (krl *KeyedRateLimiter) sweep() int {
	cutoff := krl.now().Add(-krl.idleTTL).UnixNano()

	krl.mu.Lock()
	defer krl.mu.Unlock()

	removed := 0
	for key, e := range krl.limiters {
		if e.lastSeen.Load() < cutoff {
			delete(krl.limiters, key)
			removed++
		}
	}
	return removed
}

// Middleware ограничивает запросы по IP клиента
func (krl *KeyedRateLimiter) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !krl.Allow(c.IP()) {
			return domainerrors.TooManyRequests("Слишком много запросов, попробуйте позже")
		}
		return c.Next()
	}
}
