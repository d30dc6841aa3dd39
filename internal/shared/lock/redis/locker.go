// Package redis 基于 Redis 的分布式注册锁
package redis

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"crowdtasks-admin/internal/shared/lock"
)

const (
	// KeyPrefix 锁 key 前缀
	KeyPrefix = "crowdtasks:lock:"

	// DefaultTTL 锁租约时长，持有期间按 TTL/3 周期续约，持有者崩溃后自动过期
	DefaultTTL = 5 * time.Minute
)

// 仅当 value 与持有者 token 一致时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// 仅当 value 与持有者 token 一致时续约
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker Redis 锁（SET NX PX）
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker 从已有客户端创建
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// NewLockerFromURL 从 URL 创建并检测连通性
func NewLockerFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*Locker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewLocker(client, ttl), nil
}

// TryLock 实现 lock.Locker
//
// 持有期间后台按 TTL/3 续约。释放时若租约已丢失（续约失败或 token 不匹配）返回 lock.ErrNotHeld。
func (l *Locker) TryLock(ctx context.Context, key string) (lock.Unlock, error) {
	redisKey := KeyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, lock.ErrLocked
	}

	var lost atomic.Bool
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(redisKey, token, stop, done, &lost)

	var (
		once       sync.Once
		releaseErr error
	)
	return func() error {
		once.Do(func() {
			close(stop)
			<-done
			releaseErr = l.release(redisKey, token)
			if releaseErr == nil && lost.Load() {
				releaseErr = lock.ErrNotHeld
			}
			if releaseErr != nil {
				releaseErr = fmt.Errorf("release lock %s: %w", key, releaseErr)
			}
		})
		return releaseErr
	}, nil
}

// keepAlive 周期续约直到 stop 关闭；续约发现 token 不匹配时标记 lost 并退出
func (l *Locker) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}, lost *atomic.Bool) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := refreshScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				// 网络抖动时下个周期重试，租约在 TTL 内仍有效
				continue
			}
			if n == 0 {
				lost.Store(true)
				return
			}
		}
	}
}

// release 释放不受调用方 ctx 取消影响
func (l *Locker) release(redisKey, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return lock.ErrNotHeld
	}
	return nil
}

// Client 返回底层客户端
func (l *Locker) Client() *redis.Client {
	return l.client
}

// Close 关闭连接
func (l *Locker) Close() error {
	return l.client.Close()
}
