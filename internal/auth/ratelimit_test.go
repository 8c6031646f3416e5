package auth

import (
	"testing"
	"time"
)

// TestRateLimiterAllow проверяет базовый лимит в пределах окна.
func TestRateLimiterAllow(t *testing.T) {
	l := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := l.Allow("10.0.0.1"); err != nil {
			t.Fatalf("запрос %d должен быть допущен: %v", i+1, err)
		}
	}
	if err := l.Allow("10.0.0.1"); err != ErrTooManyRequests {
		t.Errorf("4-й запрос: ожидалась ErrTooManyRequests, получено %v", err)
	}
}

// TestRateLimiterIndependentKeys проверяет независимость счётчиков по ключам.
func TestRateLimiterIndependentKeys(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)

	if err := l.Allow("10.0.0.1"); err != nil {
		t.Fatalf("первый ключ: %v", err)
	}
	if err := l.Allow("10.0.0.2"); err != nil {
		t.Errorf("лимит одного ключа не должен влиять на другой: %v", err)
	}
}

// TestRateLimiterReset проверяет сброс счётчика после успешного входа.
func TestRateLimiterReset(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)

	_ = l.Allow("10.0.0.1")
	if err := l.Allow("10.0.0.1"); err != ErrTooManyRequests {
		t.Fatal("лимит должен быть исчерпан")
	}

	l.Reset("10.0.0.1")
	if err := l.Allow("10.0.0.1"); err != nil {
		t.Errorf("после Reset запрос должен быть допущен: %v", err)
	}
}

// TestRateLimiterDisabled проверяет, что нулевой лимит отключает ограничение.
func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(0, time.Minute)

	for i := 0; i < 100; i++ {
		if err := l.Allow("10.0.0.1"); err != nil {
			t.Fatalf("лимит отключён, запрос должен быть допущен: %v", err)
		}
	}
}

// TestRateLimiterCleanup проверяет удаление устаревших счётчиков.
func TestRateLimiterCleanup(t *testing.T) {
	l := NewRateLimiter(5, 10*time.Millisecond)

	_ = l.Allow("10.0.0.1")
	time.Sleep(20 * time.Millisecond)
	l.Cleanup()

	l.mu.Lock()
	n := len(l.counters)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("после Cleanup карта должна быть пустой, осталось %d", n)
	}
}
