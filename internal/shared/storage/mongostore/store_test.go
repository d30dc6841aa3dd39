package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	s, err := NewStore(uri, "crowdtasks_test")
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, s.db.Drop(ctx))
	require.NoError(t, s.ensureIndexes(ctx))

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})
	return s
}

func TestTaskNameUnique(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.CreateTask(ctx, &model.Task{ID: "t1", Name: "alpha", Type: model.TaskTypeGeneric, CreatedAt: now}))
	err := s.CreateTask(ctx, &model.Task{ID: "t2", Name: "alpha", Type: model.TaskTypeGeneric, CreatedAt: now})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	got, err := s.FindTaskByName(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Nil(t, got.ProjectID)

	_, err = s.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskReservation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReserveTaskName(ctx, &model.TaskReservation{Name: "alpha", Token: "a", ExpiresAt: time.Now().Add(time.Hour)}))
	err := s.ReserveTaskName(ctx, &model.TaskReservation{Name: "alpha", Token: "b", ExpiresAt: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, s.ReleaseTaskName(ctx, "alpha", "a"))
	_, err = s.GetTaskReservation(ctx, "alpha")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// 过期预占被新的预占取代
	require.NoError(t, s.ReserveTaskName(ctx, &model.TaskReservation{Name: "beta", Token: "crashed", ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, s.ReserveTaskName(ctx, &model.TaskReservation{Name: "beta", Token: "fresh", ExpiresAt: time.Now().Add(time.Hour)}))
	got, err := s.GetTaskReservation(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Token)
}

func TestRunsAndAssignments(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.CreateTask(ctx, &model.Task{ID: "t1", Name: "alpha", Type: model.TaskTypeGeneric, CreatedAt: now}))
	require.NoError(t, s.CreateRequester(ctx, &model.Requester{ID: "r1", Name: "lab", Provider: "mock", CreatedAt: now}))
	require.NoError(t, s.CreateTaskRun(ctx, &model.TaskRun{ID: "run-1", TaskID: "t1", RequesterID: "r1", ParamString: "x", CreatedAt: now}))

	runs, err := s.ListTaskRunsByTask(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "x", runs[0].ParamString)

	require.NoError(t, s.CreateAssignment(ctx, &model.Assignment{ID: "a1", TaskRunID: "run-1", Status: model.AssignmentStatusProcessing, Cost: 2, CreatedAt: now}))
	require.NoError(t, s.UpdateAssignmentStatus(ctx, "a1", model.AssignmentStatusApproved))

	assigns, err := s.ListAssignmentsByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, assigns, 1)
	assert.Equal(t, model.AssignmentStatusApproved, assigns[0].Status)

	assert.ErrorIs(t, s.UpdateAssignmentStatus(ctx, "nope", model.AssignmentStatusApproved), storage.ErrNotFound)
}
