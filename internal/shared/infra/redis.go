package infra

import (
	"context"

	"crowdtasks-admin/internal/config"
	"crowdtasks-admin/internal/shared/eventbus"
	redisbus "crowdtasks-admin/internal/shared/eventbus/redis"
	"crowdtasks-admin/internal/shared/lock"
	redislock "crowdtasks-admin/internal/shared/lock/redis"
)

// NewCoordination 创建注册锁与事件总线
//
// 配置了 Redis URL 时两者共享同一个 Redis 连接，并返回该连接的关闭函数；
// 否则返回进程内锁、内存事件总线和 nil。
func NewCoordination(ctx context.Context, cfg *config.Config) (lock.Locker, eventbus.EventBus, func() error, error) {
	if cfg.RedisURL == "" {
		return lock.NewLocal(), eventbus.NewMemoryEventBus(), nil, nil
	}
	l, err := redislock.NewLockerFromURL(ctx, cfg.RedisURL, cfg.RedisLockTTL)
	if err != nil {
		return nil, nil, nil, err
	}
	return l, redisbus.NewStore(l.Client()), l.Close, nil
}
