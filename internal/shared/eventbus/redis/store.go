// Package redis 基于 Redis Streams 的生命周期事件总线
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crowdtasks-admin/internal/shared/eventbus"
)

// Store Redis Streams 事件总线
type Store struct {
	client *redis.Client
	owned  bool
}

// NewStore 基于已有客户端创建事件总线，Close 不会关闭该客户端
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// NewStoreFromURL 解析 Redis URL 创建事件总线
func NewStoreFromURL(ctx context.Context, redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Store{client: client, owned: true}, nil
}

func streamKey(topic string) string {
	return eventbus.KeyPrefix + topic
}

// Publish 写入事件流
func (s *Store) Publish(ctx context.Context, event *eventbus.Event) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(event.Topic),
		MaxLen: eventbus.MaxStreamLength,
		Approx: true,
		Values: map[string]interface{}{
			"type":       event.Type,
			"subject_id": event.SubjectID,
			"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
			"data":       string(dataJSON),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	event.ID = id
	return nil
}

// Events 按写入顺序读取主题事件
func (s *Store) Events(ctx context.Context, topic string, count int64) ([]*eventbus.Event, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if count > 0 {
		msgs, err = s.client.XRangeN(ctx, streamKey(topic), "-", "+", count).Result()
	} else {
		msgs, err = s.client.XRange(ctx, streamKey(topic), "-", "+").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	events := make([]*eventbus.Event, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, decode(topic, msg))
	}
	return events, nil
}

// EventCount 返回主题下的事件数
func (s *Store) EventCount(ctx context.Context, topic string) (int64, error) {
	return s.client.XLen(ctx, streamKey(topic)).Result()
}

// Close 仅关闭由 NewStoreFromURL 创建的客户端
func (s *Store) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

func decode(topic string, msg redis.XMessage) *eventbus.Event {
	event := &eventbus.Event{ID: msg.ID, Topic: topic}
	if v, ok := msg.Values["type"].(string); ok {
		event.Type = v
	}
	if v, ok := msg.Values["subject_id"].(string); ok {
		event.SubjectID = v
	}
	if ts, ok := msg.Values["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			event.Timestamp = t
		}
	}
	if dataStr, ok := msg.Values["data"].(string); ok {
		var data map[string]string
		if err := json.Unmarshal([]byte(dataStr), &data); err == nil {
			event.Data = data
		}
	}
	return event
}

var _ eventbus.EventBus = (*Store)(nil)
