// Package repository Task 相关的存储操作
package repository

import (
	"context"

	"crowdtasks-admin/internal/shared/model"
)

const taskColumns = `id, name, type, project_id, parent_task_id, created_at`

// CreateTask 创建任务
// 任务名违反唯一约束时返回 storage.ErrDuplicate
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	query := s.rebind(`
		INSERT INTO tasks (id, name, type, project_id, parent_task_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.Name, task.Type, task.ProjectID, task.ParentTaskID, task.CreatedAt)
	return s.wrapError(err)
}

// GetTask 获取任务
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := s.rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.wrapError(err)
	}
	return task, nil
}

// FindTaskByName 按名称查找任务
func (s *Store) FindTaskByName(ctx context.Context, name string) (*model.Task, error) {
	query := s.rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE name = $1`)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, s.wrapError(err)
	}
	return task, nil
}

// ListTasks 列出任务，projectID 为空时列出全部
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*model.Task, error) {
	var query string
	var args []interface{}
	if projectID != "" {
		query = s.rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY created_at ASC, name ASC`)
		args = []interface{}{projectID}
	} else {
		query = s.rebind(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at ASC, name ASC`)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// scanTask 辅助函数：从数据库行扫描 Task
func scanTask(scanner rowScanner) (*model.Task, error) {
	task := &model.Task{}
	err := scanner.Scan(&task.ID, &task.Name, &task.Type, &task.ProjectID, &task.ParentTaskID, &task.CreatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}
