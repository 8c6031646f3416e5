package auth

import (
	"errors"
	"sync"
	"time"
)

// ErrTooManyRequests — превышен лимит запросов в окне.
var ErrTooManyRequests = errors.New("превышен лимит запросов")

// RateLimiter ограничивает частоту событий по произвольному ключу
// (адрес источника для входа, идентификатор тенанта для загрузок).
// Скользящее окно фиксированного размера, счётчики в памяти процесса.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*rateCounter
}

type rateCounter struct {
	count    int
	windowAt time.Time
}

// NewRateLimiter создаёт ограничитель: не более limit событий
// на ключ за окно window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string]*rateCounter),
	}
}

// Allow регистрирует событие для ключа и проверяет лимит.
// Возвращает ErrTooManyRequests, если лимит превышен.
func (l *RateLimiter) Allow(key string) error {
	if l.limit <= 0 {
		return nil // лимит отключён
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= l.window {
		// Новое окно
		l.counters[key] = &rateCounter{count: 1, windowAt: now}
		return nil
	}

	c.count++
	if c.count > l.limit {
		return ErrTooManyRequests
	}

	return nil
}

// Reset сбрасывает счётчик для ключа.
// Вызывается после успешного входа, чтобы не штрафовать
// пользователя за предыдущие опечатки.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
}

// Cleanup удаляет устаревшие счётчики. Вызывается периодически,
// чтобы карта не росла неограниченно.
func (l *RateLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, c := range l.counters {
		if now.Sub(c.windowAt) >= l.window {
			delete(l.counters, key)
		}
	}
}
