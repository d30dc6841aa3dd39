package mongostore

import (
	"context"
	"time"

	"crowdtasks-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// TaskStore
// ============================================================================

// CreateTask 依赖 tasks.name 唯一索引拒绝同名任务
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	return insert(ctx, s.col(ColTasks), task)
}

func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return findOne[model.Task](ctx, s.col(ColTasks), byID(id))
}

func (s *Store) FindTaskByName(ctx context.Context, name string) (*model.Task, error) {
	return findOne[model.Task](ctx, s.col(ColTasks), byField("name", name))
}

func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*model.Task, error) {
	filter := bson.D{}
	if projectID != "" {
		filter = byField("project_id", projectID)
	}
	return findAll[model.Task](ctx, s.col(ColTasks), filter, oldestFirst("name"))
}

// ============================================================================
// TaskReservationStore
// ============================================================================

// ReserveTaskName 以任务名为 _id 插入预占，先删除同名的过期预占
func (s *Store) ReserveTaskName(ctx context.Context, r *model.TaskReservation) error {
	expired := bson.D{
		{Key: "_id", Value: r.Name},
		{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: time.Now().UTC()}}},
	}
	if _, err := s.col(ColReservations).DeleteOne(ctx, expired); err != nil {
		return wrapError(err)
	}
	return insert(ctx, s.col(ColReservations), r)
}

func (s *Store) GetTaskReservation(ctx context.Context, name string) (*model.TaskReservation, error) {
	return findOne[model.TaskReservation](ctx, s.col(ColReservations), byID(name))
}

func (s *Store) ReleaseTaskName(ctx context.Context, name, token string) error {
	filter := bson.D{{Key: "_id", Value: name}, {Key: "token", Value: token}}
	_, err := s.col(ColReservations).DeleteOne(ctx, filter)
	return wrapError(err)
}

// ============================================================================
// ProjectStore / RequesterStore
// ============================================================================

func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	return insert(ctx, s.col(ColProjects), p)
}

func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return findOne[model.Project](ctx, s.col(ColProjects), byID(id))
}

func (s *Store) FindProjectByName(ctx context.Context, name string) (*model.Project, error) {
	return findOne[model.Project](ctx, s.col(ColProjects), byField("name", name))
}

func (s *Store) CreateRequester(ctx context.Context, r *model.Requester) error {
	return insert(ctx, s.col(ColRequesters), r)
}

func (s *Store) GetRequester(ctx context.Context, id string) (*model.Requester, error) {
	return findOne[model.Requester](ctx, s.col(ColRequesters), byID(id))
}
