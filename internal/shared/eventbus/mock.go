package eventbus

import (
	"context"
	"strconv"
	"sync"
)

// ============================================================================
// NoOpEventBus - 空操作的 EventBus 实现
// ============================================================================

// NoOpEventBus 丢弃所有事件
type NoOpEventBus struct{}

// NewNoOpEventBus 创建 NoOpEventBus 实例
func NewNoOpEventBus() *NoOpEventBus {
	return &NoOpEventBus{}
}

func (e *NoOpEventBus) Publish(ctx context.Context, event *Event) error { return nil }

func (e *NoOpEventBus) Events(ctx context.Context, topic string, count int64) ([]*Event, error) {
	return []*Event{}, nil
}

func (e *NoOpEventBus) EventCount(ctx context.Context, topic string) (int64, error) { return 0, nil }

func (e *NoOpEventBus) Close() error { return nil }

// ============================================================================
// MemoryEventBus - 进程内实现（单机 CLI 与测试使用）
// ============================================================================

// MemoryEventBus 在内存中按主题保存事件，超过 MaxStreamLength 时丢弃最旧的事件
type MemoryEventBus struct {
	mu     sync.Mutex
	seq    int64
	topics map[string][]*Event
}

// NewMemoryEventBus 创建内存事件总线
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{topics: make(map[string][]*Event)}
}

func (e *MemoryEventBus) Publish(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	stored := *event
	stored.ID = strconv.FormatInt(e.seq, 10)
	events := append(e.topics[event.Topic], &stored)
	if len(events) > MaxStreamLength {
		events = events[len(events)-MaxStreamLength:]
	}
	e.topics[event.Topic] = events
	return nil
}

func (e *MemoryEventBus) Events(ctx context.Context, topic string, count int64) ([]*Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	events := e.topics[topic]
	if count > 0 && int64(len(events)) > count {
		events = events[:count]
	}
	out := make([]*Event, len(events))
	copy(out, events)
	return out, nil
}

func (e *MemoryEventBus) EventCount(ctx context.Context, topic string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.topics[topic])), nil
}

func (e *MemoryEventBus) Close() error { return nil }

// 确保实现了 EventBus 接口
var (
	_ EventBus = (*NoOpEventBus)(nil)
	_ EventBus = (*MemoryEventBus)(nil)
)
