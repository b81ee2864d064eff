package utils

import (
	"sync"
	"time"
)

// TokenBucket 进程内令牌桶。按补充速率惰性发放令牌，
// capacity 决定可以吸收的突发流量
type TokenBucket struct {
	mu       sync.Mutex
	capacity int64
	tokens   int64
	rate     int64 // 每秒补充的令牌数
	lastFill time.Time
}

// NewTokenBucket 创建令牌桶，初始为满
func NewTokenBucket(capacity, rate int64) *TokenBucket {
	return &TokenBucket{
		capacity: capacity,
		tokens:   capacity,
		rate:     rate,
		lastFill: time.Now(),
	}
}

func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill)
	if elapsed <= 0 {
		return
	}
	added := int64(elapsed.Seconds() * float64(b.rate))
	if added > 0 {
		b.tokens += added
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastFill = now
	}
}

// TakeN 尝试取走 n 个令牌，不足时立即返回 false
func (b *TokenBucket) TakeN(n int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// WaitN 等待最多 timeout 取走 n 个令牌，超时返回 false
func (b *TokenBucket) WaitN(n int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if b.TakeN(n) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
