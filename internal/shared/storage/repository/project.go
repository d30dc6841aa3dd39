// Package repository Project / Requester 相关的存储操作
package repository

import (
	"context"

	"crowdtasks-admin/internal/shared/model"
)

// CreateProject 创建项目
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	query := s.rebind(`INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)`)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.CreatedAt)
	return s.wrapError(err)
}

// GetProject 获取项目
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	query := s.rebind(`SELECT id, name, created_at FROM projects WHERE id = $1`)
	p := &model.Project{}
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
		return nil, s.wrapError(err)
	}
	return p, nil
}

// FindProjectByName 按名称查找项目
func (s *Store) FindProjectByName(ctx context.Context, name string) (*model.Project, error) {
	query := s.rebind(`SELECT id, name, created_at FROM projects WHERE name = $1`)
	p := &model.Project{}
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
		return nil, s.wrapError(err)
	}
	return p, nil
}

// CreateRequester 创建 Requester
func (s *Store) CreateRequester(ctx context.Context, r *model.Requester) error {
	query := s.rebind(`INSERT INTO requesters (id, name, provider, created_at) VALUES ($1, $2, $3, $4)`)
	_, err := s.db.ExecContext(ctx, query, r.ID, r.Name, r.Provider, r.CreatedAt)
	return s.wrapError(err)
}

// GetRequester 获取 Requester
func (s *Store) GetRequester(ctx context.Context, id string) (*model.Requester, error) {
	query := s.rebind(`SELECT id, name, provider, created_at FROM requesters WHERE id = $1`)
	r := &model.Requester{}
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Name, &r.Provider, &r.CreatedAt); err != nil {
		return nil, s.wrapError(err)
	}
	return r, nil
}
