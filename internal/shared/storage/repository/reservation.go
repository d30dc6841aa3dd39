// Package repository TaskReservation 相关的存储操作
package repository

import (
	"context"
	"time"

	"crowdtasks-admin/internal/shared/model"
)

// ReserveTaskName 写入任务名预占
//
// 先删除同名的过期预占，再插入；主键冲突说明预占仍被他人持有，返回 storage.ErrDuplicate。
func (s *Store) ReserveTaskName(ctx context.Context, r *model.TaskReservation) error {
	purge := s.rebind(`DELETE FROM task_reservations WHERE name = $1 AND expires_at <= $2`)
	if _, err := s.db.ExecContext(ctx, purge, r.Name, time.Now().UnixMilli()); err != nil {
		return err
	}

	query := s.rebind(`INSERT INTO task_reservations (name, token, expires_at) VALUES ($1, $2, $3)`)
	_, err := s.db.ExecContext(ctx, query, r.Name, r.Token, r.ExpiresAt.UnixMilli())
	return s.wrapError(err)
}

// GetTaskReservation 获取任务名预占
func (s *Store) GetTaskReservation(ctx context.Context, name string) (*model.TaskReservation, error) {
	query := s.rebind(`SELECT name, token, expires_at FROM task_reservations WHERE name = $1`)
	r := &model.TaskReservation{}
	var expiresAt int64
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&r.Name, &r.Token, &expiresAt); err != nil {
		return nil, s.wrapError(err)
	}
	r.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return r, nil
}

// ReleaseTaskName 删除 token 匹配的预占
func (s *Store) ReleaseTaskName(ctx context.Context, name, token string) error {
	query := s.rebind(`DELETE FROM task_reservations WHERE name = $1 AND token = $2`)
	_, err := s.db.ExecContext(ctx, query, name, token)
	return err
}
