package params

import (
	"sync"

	"crowdtasks-admin/internal/shared/errs"
	"crowdtasks-admin/internal/shared/model"
)

// Registry 按任务类型查找参数模式
type Registry struct {
	mu      sync.RWMutex
	schemas map[model.TaskType]Schema
}

// NewRegistry 创建带默认模式的注册表
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[model.TaskType]Schema)}
	r.Register(model.TaskTypeGeneric, &FlagSchema{Name: string(model.TaskTypeGeneric)})
	r.Register(model.TaskTypeLegacy, &FlagSchema{
		Name:     string(model.TaskTypeLegacy),
		Required: []string{"task"},
		Defaults: map[string]string{"num_conversations": "1"},
	})
	r.Register(model.TaskTypeMock, &FlagSchema{
		Name:     string(model.TaskTypeMock),
		Defaults: map[string]string{"num_assignments": "1"},
		Known:    []string{"num_assignments", "timeout"},
	})
	return r
}

// Register 注册或覆盖某类型的模式
func (r *Registry) Register(t model.TaskType, s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[t] = s
}

// For 返回任务类型的模式
func (r *Registry) For(t model.TaskType) (Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[t]
	if !ok {
		return nil, &errs.InvalidTypeError{Type: string(t), Valid: model.ValidTaskTypeNames()}
	}
	return s, nil
}
