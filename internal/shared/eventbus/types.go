package eventbus

import (
	"time"
)

// ============================================================================
// 事件类型
// ============================================================================

// Event 生命周期事件
type Event struct {
	// ID 由事件流分配（Redis Stream ID 或内存序号）
	ID string `json:"id"`

	// Topic 事件主题，如 TopicTasks
	Topic string `json:"topic"`

	Type      string            `json:"type"`
	SubjectID string            `json:"subject_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// NewEvent 创建带当前时间戳的事件
func NewEvent(topic, eventType, subjectID string, data map[string]string) *Event {
	return &Event{
		Topic:     topic,
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ============================================================================
// 主题与事件类型常量
// ============================================================================

const (
	TopicTasks = "tasks"
	TopicRuns  = "runs"
)

const (
	EventTaskRegistered = "task.registered"
	EventRunStarted     = "run.started"
	EventRunArchived    = "run.archived"
)

const (
	// KeyPrefix Redis Stream key 前缀
	KeyPrefix = "crowdtasks:events:"

	// MaxStreamLength 单个主题保留的最大事件数
	MaxStreamLength = 1000
)
