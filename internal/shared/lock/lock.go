// Package lock 按名称串行化的互斥锁
//
// 任务注册在执行破坏性文件操作之前获取同名锁，
// 抢锁失败的调用方立即返回，不等待。
package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked 锁已被其他调用方持有
	ErrLocked = errors.New("lock held by another caller")

	// ErrNotHeld 释放时锁已不属于当前持有者（租约过期后被他人获取）
	ErrNotHeld = errors.New("lock no longer held")
)

// Unlock 释放锁，可重复调用，重复调用返回首次释放的结果
type Unlock func() error

// Locker 按 key 的非阻塞互斥
type Locker interface {
	// TryLock 尝试获取 key 对应的锁，已被持有时返回 ErrLocked
	TryLock(ctx context.Context, key string) (Unlock, error)
}

// Local 进程内锁
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal 创建进程内锁
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// TryLock 实现 Locker
func (l *Local) TryLock(ctx context.Context, key string) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// Held 当前是否持有 key
func (l *Local) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
