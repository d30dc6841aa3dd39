// Package storagetest 测试用存储与数据构造
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage"
	sqlitedriver "crowdtasks-admin/internal/shared/storage/driver/sqlite"
	"crowdtasks-admin/internal/shared/storage/repository"
)

// NewSQLite 创建 SQLite 内存数据库存储，测试结束时自动关闭
func NewSQLite(t *testing.T) storage.PersistentStore {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := repository.NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

// Requester 写入一个 Requester
func Requester(t *testing.T, s storage.PersistentStore, id string) *model.Requester {
	t.Helper()
	r := &model.Requester{ID: id, Name: id, Provider: "mock", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateRequester(context.Background(), r))
	return r
}

// Task 直接写入一条任务记录（不经过注册流程）
func Task(t *testing.T, s storage.PersistentStore, id, name string, projectID *string) *model.Task {
	t.Helper()
	task := &model.Task{ID: id, Name: name, Type: model.TaskTypeGeneric, ProjectID: projectID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

// Run 写入一条 TaskRun
func Run(t *testing.T, s storage.PersistentStore, id, taskID, requesterID string) *model.TaskRun {
	t.Helper()
	run := &model.TaskRun{ID: id, TaskID: taskID, RequesterID: requesterID, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateTaskRun(context.Background(), run))
	return run
}

// Assignment 写入一条 Assignment
func Assignment(t *testing.T, s storage.PersistentStore, id, runID string, status model.AssignmentStatus, cost float64) *model.Assignment {
	t.Helper()
	a := &model.Assignment{ID: id, TaskRunID: runID, WorkerID: "worker-" + id, Status: status, Cost: cost, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateAssignment(context.Background(), a))
	return a
}
