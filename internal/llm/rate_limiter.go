package llm

import (
	"fmt"
	"sync"
	"time"
)

// bucket - простой token bucket с пропорциональным пополнением.
type bucket struct {
	capacity  int
	perWindow int
	window    time.Duration
	available int
	lastCheck time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastCheck)
	b.available += int(float64(b.perWindow) * (float64(elapsed) / float64(b.window)))
	if b.available > b.capacity {
		b.available = b.capacity
	}
	b.lastCheck = now
}

// RateLimiter ограничивает частоту запросов (RPM) и расход токенов (TPH).
type RateLimiter struct {
	mu       sync.Mutex
	requests bucket
	tokens   bucket
}

// NewRateLimiter создает новый rate limiter.
func NewRateLimiter(requestsPerMinute, tokensPerHour int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if tokensPerHour <= 0 {
		tokensPerHour = 90000 // GPT-4 tier 1
	}

	now := time.Now()
	return &RateLimiter{
		requests: bucket{
			capacity:  requestsPerMinute,
			perWindow: requestsPerMinute,
			window:    time.Minute,
			available: requestsPerMinute,
			lastCheck: now,
		},
		tokens: bucket{
			capacity:  tokensPerHour,
			perWindow: tokensPerHour,
			window:    time.Hour,
			available: tokensPerHour,
			lastCheck: now,
		},
	}
}

// AllowRequest проверяет, можно ли выполнить запрос.
func (rl *RateLimiter) AllowRequest() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.requests.refill(time.Now())
	if rl.requests.available <= 0 {
		waitTime := time.Minute / time.Duration(rl.requests.perWindow)
		return fmt.Errorf("превышен лимит запросов (%d RPM), повторите через %v", rl.requests.perWindow, waitTime)
	}

	rl.requests.available--
	return nil
}

// AllowTokens проверяет, можно ли использовать указанное количество токенов.
func (rl *RateLimiter) AllowTokens(tokens int) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens.refill(time.Now())
	if rl.tokens.available < tokens {
		return fmt.Errorf("превышен лимит токенов (%d TPH): требуется %d, доступно %d",
			rl.tokens.perWindow, tokens, rl.tokens.available)
	}

	rl.tokens.available -= tokens
	return nil
}

// ConsumeTokens списывает токены после успешного запроса,
// когда фактический расход превысил оценку.
func (rl *RateLimiter) ConsumeTokens(tokens int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens.available -= tokens
	if rl.tokens.available < 0 {
		rl.tokens.available = 0
	}
}

// GetStats возвращает текущую статистику лимитера.
func (rl *RateLimiter) GetStats() (requestsAvailable int, tokensAvailable int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.requests.refill(now)
	rl.tokens.refill(now)
	return rl.requests.available, rl.tokens.available
}
