// Package repository TaskRun 相关的存储操作
package repository

import (
	"context"

	"crowdtasks-admin/internal/shared/model"
)

// CreateTaskRun 创建任务执行记录
func (s *Store) CreateTaskRun(ctx context.Context, run *model.TaskRun) error {
	query := s.rebind(`
		INSERT INTO task_runs (id, task_id, requester_id, init_params, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	_, err := s.db.ExecContext(ctx, query, run.ID, run.TaskID, run.RequesterID, run.ParamString, run.CreatedAt)
	return s.wrapError(err)
}

// GetTaskRun 获取任务执行记录
func (s *Store) GetTaskRun(ctx context.Context, id string) (*model.TaskRun, error) {
	query := s.rebind(`SELECT id, task_id, requester_id, init_params, created_at FROM task_runs WHERE id = $1`)
	run, err := scanTaskRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.wrapError(err)
	}
	return run, nil
}

// ListTaskRunsByTask 列出任务的全部执行记录（按创建时间升序）
func (s *Store) ListTaskRunsByTask(ctx context.Context, taskID string) ([]*model.TaskRun, error) {
	query := s.rebind(`SELECT id, task_id, requester_id, init_params, created_at
		FROM task_runs WHERE task_id = $1 ORDER BY created_at ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.TaskRun
	for rows.Next() {
		run, err := scanTaskRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanTaskRun(scanner rowScanner) (*model.TaskRun, error) {
	run := &model.TaskRun{}
	var params *string
	if err := scanner.Scan(&run.ID, &run.TaskID, &run.RequesterID, &params, &run.CreatedAt); err != nil {
		return nil, err
	}
	if params != nil {
		run.ParamString = *params
	}
	return run, nil
}
