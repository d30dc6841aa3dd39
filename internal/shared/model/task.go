// Package model 定义核心数据模型
//
// task.go 包含任务相关的数据模型定义：
//   - Task：可复用的众包任务定义（名称唯一，对应磁盘上的前端内容目录）
//   - TaskType：任务类型枚举
package model

import (
	"time"
)

// ============================================================================
// TaskType - 任务类型枚举
// ============================================================================

// TaskType 任务类型，决定内容目录的校验规则和参数解析方式
type TaskType string

const (
	// TaskTypeGeneric 通用任务
	TaskTypeGeneric TaskType = "generic"

	// TaskTypeLegacy 旧版 ParlAI 任务
	TaskTypeLegacy TaskType = "legacy_parlai"

	// TaskTypeMock 测试用任务
	TaskTypeMock TaskType = "mock"
)

// ValidTaskTypes 返回所有可识别的任务类型
func ValidTaskTypes() []TaskType {
	return []TaskType{TaskTypeLegacy, TaskTypeGeneric, TaskTypeMock}
}

// ValidTaskTypeNames 返回所有可识别的任务类型名称
func ValidTaskTypeNames() []string {
	types := ValidTaskTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// Valid 判断任务类型是否可识别
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeGeneric, TaskTypeLegacy, TaskTypeMock:
		return true
	}
	return false
}

// ============================================================================
// Task - 任务定义
// ============================================================================

// Task 众包任务
//
// Task 是可复用的工作单元：
//   - Name 全局唯一，同时决定内容目录的位置
//   - 可选关联 Project（影响 Run 产物的目录命名空间）
//   - 可选关联父任务（注册时从父任务目录克隆内容）
//
// Task 注册后不会被本模块删除，ProjectID 创建后不可修改。
type Task struct {
	// ID 唯一标识
	ID string `json:"id" db:"id" bson:"_id"`

	// Name 任务名称（全局唯一）
	Name string `json:"name" db:"name" bson:"name"`

	// Type 任务类型
	Type TaskType `json:"type" db:"type" bson:"type"`

	// ProjectID 所属项目（可选）
	ProjectID *string `json:"project_id,omitempty" db:"project_id" bson:"project_id,omitempty"`

	// ParentTaskID 父任务（可选，内容从父任务克隆）
	ParentTaskID *string `json:"parent_task_id,omitempty" db:"parent_task_id" bson:"parent_task_id,omitempty"`

	// CreatedAt 创建时间
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// HasProject 判断任务是否关联项目
func (t *Task) HasProject() bool {
	return t.ProjectID != nil && *t.ProjectID != ""
}

// HasParent 判断任务是否由父任务克隆而来
func (t *Task) HasParent() bool {
	return t.ParentTaskID != nil && *t.ParentTaskID != ""
}

func (t *Task) String() string {
	return "Task-" + t.Name + " [" + string(t.Type) + "]"
}

// ============================================================================
// TaskReservation - 任务名预占
// ============================================================================

// TaskReservation 注册过程中对任务名的跨进程预占
//
// 注册在任何文件系统操作之前写入预占，完成或失败后删除。
// 持有者崩溃时预占在 ExpiresAt 之后可被新的注册取代。
type TaskReservation struct {
	// Name 被预占的任务名
	Name string `json:"name" db:"name" bson:"_id"`

	// Token 持有者标识，释放和校验时必须一致
	Token string `json:"token" db:"token" bson:"token"`

	// ExpiresAt 预占过期时间
	ExpiresAt time.Time `json:"expires_at" db:"expires_at" bson:"expires_at"`
}
