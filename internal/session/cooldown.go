package session

import (
	"context"
	"sync"
	"time"
)

// Cooldown выдерживает минимальный интервал между успешными обращениями к модели.
// Пришедший раньше времени вызывающий ждёт, а не получает ошибку.
type Cooldown struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewCooldown создаёт шлюз. interval <= 0 отключает ожидание.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval, now: time.Now}
}

// Remaining - сколько ещё ждать до следующего разрешённого вызова.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Cooldown) remainingLocked() time.Duration {
	if c.interval <= 0 || c.last.IsZero() {
		return 0
	}
	return c.interval - c.now().Sub(c.last)
}

// Wait блокируется, пока не истечёт интервал с последнего успешного вызова, или до отмены ctx.
func (c *Cooldown) Wait(ctx context.Context) error {
	for {
		wait := c.Remaining()
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// MarkSuccess отмечает успешный вызов.
func (c *Cooldown) MarkSuccess() {
	c.mu.Lock()
	c.last = c.now()
	c.mu.Unlock()
}
