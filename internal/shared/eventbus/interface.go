// Package eventbus 生命周期事件总线抽象接口
//
// 任务注册、Run 启动、归档等生命周期事件按主题（task/run）写入事件流，
// 当前由 Redis Streams 实现；未配置 Redis 时使用 NoOp 或内存实现。
package eventbus

import (
	"context"
)

// ============================================================================
// 事件总线接口定义
// ============================================================================

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Reader 事件读取接口
type Reader interface {
	// Events 按写入顺序返回主题下的事件，count <= 0 表示不限制数量
	Events(ctx context.Context, topic string, count int64) ([]*Event, error)
	EventCount(ctx context.Context, topic string) (int64, error)
}

// ============================================================================
// 组合接口
// ============================================================================

// EventBus 事件总线组合接口
type EventBus interface {
	Publisher
	Reader
	Close() error
}
