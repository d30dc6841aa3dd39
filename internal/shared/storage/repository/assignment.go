// Package repository Assignment 相关的存储操作
package repository

import (
	"context"

	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage"
)

// CreateAssignment 创建 Assignment（供执行子系统和测试使用）
func (s *Store) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	query := s.rebind(`
		INSERT INTO assignments (id, task_run_id, worker_id, status, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	_, err := s.db.ExecContext(ctx, query, a.ID, a.TaskRunID, a.WorkerID, a.Status, a.Cost, a.CreatedAt)
	return s.wrapError(err)
}

// ListAssignmentsByRun 列出某次执行的全部 Assignment
func (s *Store) ListAssignmentsByRun(ctx context.Context, runID string) ([]*model.Assignment, error) {
	query := s.rebind(`SELECT id, task_run_id, worker_id, status, cost, created_at
		FROM assignments WHERE task_run_id = $1 ORDER BY created_at ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a := &model.Assignment{}
		var workerID *string
		if err := rows.Scan(&a.ID, &a.TaskRunID, &workerID, &a.Status, &a.Cost, &a.CreatedAt); err != nil {
			return nil, err
		}
		if workerID != nil {
			a.WorkerID = *workerID
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// UpdateAssignmentStatus 更新 Assignment 状态
func (s *Store) UpdateAssignmentStatus(ctx context.Context, id string, status model.AssignmentStatus) error {
	query := s.rebind(`UPDATE assignments SET status = $1::varchar WHERE id = $2`)
	res, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
