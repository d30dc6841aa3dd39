// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：repository/（SQL）、mongostore/（MongoDB）
//   - 初始化时通过依赖注入传入实现（见 infra.NewPersistentStore）
//
// 约定：
//   - Get/Find 找不到实体时返回 ErrNotFound
//   - Create 违反唯一约束（ID 或任务名）时返回 ErrDuplicate
//   - 其它底层错误原样返回，重试策略由调用方或驱动自行决定
package storage

import (
	"context"

	"crowdtasks-admin/internal/shared/model"
)

// TaskStore 任务存储接口
//
// 存储层必须对任务名施加唯一约束，这是并发注册同名任务时的最终保证。
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	FindTaskByName(ctx context.Context, name string) (*model.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]*model.Task, error)
}

// TaskReservationStore 任务名预占接口
//
// 预占在任务记录写入之前跨进程互斥同名注册，使破坏性文件操作只由一个调用方执行。
type TaskReservationStore interface {
	// ReserveTaskName 写入预占；同名预占存在且未过期时返回 ErrDuplicate，已过期的预占被取代
	ReserveTaskName(ctx context.Context, r *model.TaskReservation) error

	// GetTaskReservation 获取当前预占，不存在时返回 ErrNotFound
	GetTaskReservation(ctx context.Context, name string) (*model.TaskReservation, error)

	// ReleaseTaskName 删除 token 匹配的预占，不匹配或不存在时为空操作
	ReleaseTaskName(ctx context.Context, name, token string) error
}

// TaskRunStore 任务执行存储接口
type TaskRunStore interface {
	CreateTaskRun(ctx context.Context, run *model.TaskRun) error
	GetTaskRun(ctx context.Context, id string) (*model.TaskRun, error)
	ListTaskRunsByTask(ctx context.Context, taskID string) ([]*model.TaskRun, error)
}

// AssignmentStore Assignment 存储接口
//
// Assignment 由执行子系统写入，本模块只通过 ListAssignmentsByRun 读取。
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a *model.Assignment) error
	ListAssignmentsByRun(ctx context.Context, runID string) ([]*model.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, status model.AssignmentStatus) error
}

// RequesterStore Requester 存储接口
type RequesterStore interface {
	CreateRequester(ctx context.Context, r *model.Requester) error
	GetRequester(ctx context.Context, id string) (*model.Requester, error)
}

// ProjectStore Project 存储接口
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	FindProjectByName(ctx context.Context, name string) (*model.Project, error)
}

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	TaskStore
	TaskReservationStore
	TaskRunStore
	AssignmentStore
	RequesterStore
	ProjectStore
	Close() error
}
