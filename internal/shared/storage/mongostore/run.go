package mongostore

import (
	"context"

	"crowdtasks-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// TaskRunStore / AssignmentStore
// ============================================================================

func (s *Store) CreateTaskRun(ctx context.Context, run *model.TaskRun) error {
	return insert(ctx, s.col(ColTaskRuns), run)
}

func (s *Store) GetTaskRun(ctx context.Context, id string) (*model.TaskRun, error) {
	return findOne[model.TaskRun](ctx, s.col(ColTaskRuns), byID(id))
}

func (s *Store) ListTaskRunsByTask(ctx context.Context, taskID string) ([]*model.TaskRun, error) {
	return findAll[model.TaskRun](ctx, s.col(ColTaskRuns), byField("task_id", taskID), oldestFirst("_id"))
}

// CreateAssignment 由执行子系统写入；测试中用于准备数据
func (s *Store) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	return insert(ctx, s.col(ColAssignments), a)
}

func (s *Store) ListAssignmentsByRun(ctx context.Context, runID string) ([]*model.Assignment, error) {
	return findAll[model.Assignment](ctx, s.col(ColAssignments), byField("task_run_id", runID), oldestFirst("_id"))
}

func (s *Store) UpdateAssignmentStatus(ctx context.Context, id string, status model.AssignmentStatus) error {
	return setByID(ctx, s.col(ColAssignments), id, bson.D{{Key: "status", Value: status}})
}
