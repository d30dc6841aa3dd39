// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证 repository 层所有存储接口的正确性。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"testing"
	"time"

	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage"
	"crowdtasks-admin/internal/shared/storage/dbutil"
	sqlitedriver "crowdtasks-admin/internal/shared/storage/driver/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

// ============================================================================
// Dialect 基础测试
// ============================================================================

func TestDialectTypes(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
	assert.False(t, d.IsUniqueViolation(nil))
	assert.Equal(t, "UPDATE t SET status = ? WHERE id = ?",
		d.Rebind("UPDATE t SET status = $1::varchar WHERE id = $2"))
}

// ============================================================================
// Project / Requester 测试
// ============================================================================

func TestProjectAndRequester(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, s.CreateProject(ctx, &model.Project{ID: "proj-1", Name: "vision", CreatedAt: now}))
	got, err := s.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "vision", got.Name)

	got, err = s.FindProjectByName(ctx, "vision")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ID)

	_, err = s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.CreateProject(ctx, &model.Project{ID: "proj-2", Name: "vision", CreatedAt: now})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, s.CreateRequester(ctx, &model.Requester{ID: "req-1", Name: "lab", Provider: "mock", CreatedAt: now}))
	r, err := s.GetRequester(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "mock", r.Provider)

	_, err = s.GetRequester(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// ============================================================================
// Task 测试
// ============================================================================

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, s.CreateProject(ctx, &model.Project{ID: "proj-1", Name: "vision", CreatedAt: now}))

	root := &model.Task{ID: "task-001", Name: "alpha", Type: model.TaskTypeGeneric, CreatedAt: now}
	require.NoError(t, s.CreateTask(ctx, root))

	child := &model.Task{
		ID:           "task-002",
		Name:         "beta",
		Type:         model.TaskTypeMock,
		ProjectID:    strPtr("proj-1"),
		ParentTaskID: strPtr("task-001"),
		CreatedAt:    now.Add(time.Second),
	}
	require.NoError(t, s.CreateTask(ctx, child))

	got, err := s.GetTask(ctx, "task-002")
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Name)
	assert.Equal(t, model.TaskTypeMock, got.Type)
	require.NotNil(t, got.ProjectID)
	assert.Equal(t, "proj-1", *got.ProjectID)
	require.NotNil(t, got.ParentTaskID)
	assert.Equal(t, "task-001", *got.ParentTaskID)

	got, err = s.GetTask(ctx, "task-001")
	require.NoError(t, err)
	assert.Nil(t, got.ProjectID)
	assert.Nil(t, got.ParentTaskID)

	got, err = s.FindTaskByName(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "task-001", got.ID)

	_, err = s.FindTaskByName(ctx, "gamma")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := s.ListTasks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inProject, err := s.ListTasks(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, inProject, 1)
	assert.Equal(t, "beta", inProject[0].Name)
}

func TestTaskNameUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateTask(ctx, &model.Task{ID: "t1", Name: "alpha", Type: model.TaskTypeGeneric, CreatedAt: now}))
	err := s.CreateTask(ctx, &model.Task{ID: "t2", Name: "alpha", Type: model.TaskTypeGeneric, CreatedAt: now})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestTaskReservation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	require.NoError(t, s.ReserveTaskName(ctx, &model.TaskReservation{Name: "alpha", Token: "a", ExpiresAt: expires}))
	err := s.ReserveTaskName(ctx, &model.TaskReservation{Name: "alpha", Token: "b", ExpiresAt: expires})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := s.GetTaskReservation(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Token)
	assert.Equal(t, expires.UnixMilli(), got.ExpiresAt.UnixMilli())

	// token 不匹配时不释放
	require.NoError(t, s.ReleaseTaskName(ctx, "alpha", "b"))
	_, err = s.GetTaskReservation(ctx, "alpha")
	require.NoError(t, err)

	require.NoError(t, s.ReleaseTaskName(ctx, "alpha", "a"))
	_, err = s.GetTaskReservation(ctx, "alpha")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskReservationExpiredIsReplaced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReserveTaskName(ctx, &model.TaskReservation{Name: "alpha", Token: "crashed", ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, s.ReserveTaskName(ctx, &model.TaskReservation{Name: "alpha", Token: "fresh", ExpiresAt: time.Now().Add(time.Hour)}))

	got, err := s.GetTaskReservation(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Token)
}

// ============================================================================
// TaskRun / Assignment 测试
// ============================================================================

func seedRun(t *testing.T, s *Store, taskID, runID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	if _, err := s.GetTask(ctx, taskID); err != nil {
		require.NoError(t, s.CreateTask(ctx, &model.Task{ID: taskID, Name: "name-" + taskID, Type: model.TaskTypeGeneric, CreatedAt: now}))
	}
	if _, err := s.GetRequester(ctx, "req-1"); err != nil {
		require.NoError(t, s.CreateRequester(ctx, &model.Requester{ID: "req-1", Name: "lab", Provider: "mock", CreatedAt: now}))
	}
	require.NoError(t, s.CreateTaskRun(ctx, &model.TaskRun{
		ID: runID, TaskID: taskID, RequesterID: "req-1", ParamString: "--units=3", CreatedAt: now,
	}))
}

func TestTaskRunCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedRun(t, s, "task-r1", "run-001")
	seedRun(t, s, "task-r1", "run-002")

	got, err := s.GetTaskRun(ctx, "run-001")
	require.NoError(t, err)
	assert.Equal(t, "task-r1", got.TaskID)
	assert.Equal(t, "req-1", got.RequesterID)
	assert.Equal(t, "--units=3", got.ParamString)

	runs, err := s.ListTaskRunsByTask(ctx, "task-r1")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListTaskRunsByTask(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = s.GetTaskRun(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskRunRequiresExistingTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRequester(ctx, &model.Requester{ID: "req-1", Name: "lab", Provider: "mock", CreatedAt: time.Now()}))

	err := s.CreateTaskRun(ctx, &model.TaskRun{ID: "run-x", TaskID: "ghost", RequesterID: "req-1", CreatedAt: time.Now()})
	assert.Error(t, err)
}

func TestAssignmentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	seedRun(t, s, "task-a1", "run-a1")

	assigns := []*model.Assignment{
		{ID: "as-1", TaskRunID: "run-a1", WorkerID: "w1", Status: model.AssignmentStatusApproved, Cost: 5.0, CreatedAt: now},
		{ID: "as-2", TaskRunID: "run-a1", Status: model.AssignmentStatusRejected, Cost: 3.0, CreatedAt: now.Add(time.Second)},
	}
	for _, a := range assigns {
		require.NoError(t, s.CreateAssignment(ctx, a))
	}

	got, err := s.ListAssignmentsByRun(ctx, "run-a1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "as-1", got[0].ID)
	assert.Equal(t, "w1", got[0].WorkerID)
	assert.Equal(t, "", got[1].WorkerID)
	assert.InDelta(t, 5.0, got[0].Cost, 1e-9)

	require.NoError(t, s.UpdateAssignmentStatus(ctx, "as-2", model.AssignmentStatusProcessing))
	got, err = s.ListAssignmentsByRun(ctx, "run-a1")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusProcessing, got[1].Status)

	err = s.UpdateAssignmentStatus(ctx, "missing", model.AssignmentStatusApproved)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	empty, err := s.ListAssignmentsByRun(ctx, "run-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
