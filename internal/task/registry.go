// Package task 任务注册与查询
//
// Registry 负责任务的创建：校验类型、保证名称唯一、准备内容目录，
// 最后写入任务记录。任务记录只在内容目录就绪后才会创建。
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"crowdtasks-admin/internal/confirm"
	"crowdtasks-admin/internal/metrics"
	"crowdtasks-admin/internal/params"
	"crowdtasks-admin/internal/provision"
	"crowdtasks-admin/internal/shared/errs"
	"crowdtasks-admin/internal/shared/eventbus"
	"crowdtasks-admin/internal/shared/lock"
	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage"
	"crowdtasks-admin/pkg/logging"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name string
	Type model.TaskType

	// Project 所属项目（可选）
	Project *model.Project

	// ProjectName 按名称关联项目（可选，Project 为 nil 时生效）
	// 项目不存在时在内容目录就绪后创建，注册失败不会留下新项目
	ProjectName string

	// ParentTask 父任务（可选），内容目录从父任务克隆
	ParentTask *model.Task

	// SkipConfirm 覆盖已有目录时不再询问
	SkipConfirm bool
}

// Options Registry 的可选依赖
type Options struct {
	Provisioner *provision.Provisioner
	Locker      lock.Locker
	Confirmer   confirm.Confirmer
	Params      *params.Registry
	Metrics     *metrics.Metrics
	Logger      *logging.Logger

	// Events 生命周期事件发布目标，为 nil 时丢弃事件
	Events eventbus.Publisher

	// ReservationTTL 任务名预占的有效期，默认 DefaultReservationTTL
	ReservationTTL time.Duration
}

// DefaultReservationTTL 预占有效期，需覆盖等待覆盖确认的时间
const DefaultReservationTTL = time.Hour

// Registry 任务注册表
type Registry struct {
	store       storage.PersistentStore
	layout      provision.Layout
	provisioner *provision.Provisioner
	locker      lock.Locker
	confirmer   confirm.Confirmer
	params      *params.Registry
	metrics     *metrics.Metrics
	logger      *logging.Logger
	events      eventbus.Publisher
	reserveTTL  time.Duration
}

// NewRegistry 创建任务注册表，未提供的可选依赖使用默认实现
//
// 默认 Locker 为进程内锁，跨进程互斥由存储层的任务名预占保证；
// 默认 Confirmer 为 nil，此时覆盖已有目录一律视为拒绝。
func NewRegistry(store storage.PersistentStore, layout provision.Layout, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Provisioner == nil {
		opts.Provisioner = provision.NewProvisioner(opts.Logger.Named("provision"))
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.Params == nil {
		opts.Params = params.NewRegistry()
	}
	if opts.Events == nil {
		opts.Events = eventbus.NewNoOpEventBus()
	}
	if opts.ReservationTTL <= 0 {
		opts.ReservationTTL = DefaultReservationTTL
	}
	return &Registry{
		store:       store,
		layout:      layout,
		provisioner: opts.Provisioner,
		locker:      opts.Locker,
		confirmer:   opts.Confirmer,
		params:      opts.Params,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		events:      opts.Events,
		reserveTTL:  opts.ReservationTTL,
	}
}

// ============================================================================
// 注册
// ============================================================================

// Register 注册新任务
//
// 执行步骤：
//  1. 校验任务类型
//  2. 检查同名任务，获取同名注册锁并在存储层预占任务名（任一失败视为重名）
//  3. 无父任务时内容目录必须已存在；有父任务时从父任务目录克隆，替换目录前再次确认名称仍属于本次注册
//  4. 按需创建项目并写入任务记录，存储层的唯一约束是最终保证
//  5. 释放预占与锁
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*model.Task, error) {
	start := time.Now()
	t, err := r.register(ctx, req)
	r.metrics.RecordRegistration(req.Type, registrationResult(err), time.Since(start))
	if err != nil {
		r.logger.WithTaskName(req.Name).WithError(err).Warn("Task registration failed",
			slog.String("type", string(req.Type)))
		return nil, err
	}

	extra := []any{slog.String("type", string(t.Type))}
	if t.ParentTaskID != nil {
		extra = append(extra, slog.String("parent_id", *t.ParentTaskID))
	}
	if t.ProjectID != nil {
		extra = append(extra, slog.String("project_id", *t.ProjectID))
	}
	r.logger.WithDuration(time.Since(start)).TaskLog("registered", t.ID, t.Name, extra...)

	data := map[string]string{"name": t.Name, "type": string(t.Type)}
	if t.ParentTaskID != nil {
		data["parent_id"] = *t.ParentTaskID
	}
	if t.ProjectID != nil {
		data["project_id"] = *t.ProjectID
	}
	r.publish(ctx, eventbus.NewEvent(eventbus.TopicTasks, eventbus.EventTaskRegistered, t.ID, data))
	return t, nil
}

// publish 事件发布失败只记录日志，不影响已完成的操作
func (r *Registry) publish(ctx context.Context, ev *eventbus.Event) {
	if err := r.events.Publish(ctx, ev); err != nil {
		r.logger.WithError(err).Warn("Publish event failed",
			slog.String("type", ev.Type), slog.String("subject_id", ev.SubjectID))
	}
}

func (r *Registry) register(ctx context.Context, req RegisterRequest) (*model.Task, error) {
	if !req.Type.Valid() {
		return nil, &errs.InvalidTypeError{Type: string(req.Type), Valid: model.ValidTaskTypeNames()}
	}

	dst, err := r.layout.TaskDir(req.Name, true)
	if err != nil {
		return nil, err
	}

	if err := r.checkNameFree(ctx, req.Name); err != nil {
		return nil, err
	}

	unlock, err := r.locker.TryLock(ctx, "task:"+req.Name)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, &errs.DuplicateNameError{Name: req.Name}
		}
		return nil, fmt.Errorf("acquire registration lock: %w", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			r.logger.WithTaskName(req.Name).WithError(err).Warn("Release registration lock failed")
		}
	}()

	res, err := r.reserve(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	defer r.release(ctx, res)

	// 抢锁期间可能已有其他调用方完成注册
	if err := r.checkNameFree(ctx, req.Name); err != nil {
		return nil, err
	}

	if req.ParentTask == nil {
		if err := provision.ValidateTaskDir(dst, req.Type); err != nil {
			return nil, err
		}
	} else {
		if err := r.cloneFromParent(ctx, req.ParentTask, dst, req.SkipConfirm, r.stillOwned(res)); err != nil {
			return nil, err
		}
	}

	t := &model.Task{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      req.Type,
		CreatedAt: time.Now().UTC(),
	}
	project := req.Project
	if project == nil && req.ProjectName != "" {
		if project, err = r.EnsureProject(ctx, req.ProjectName); err != nil {
			return nil, err
		}
	}
	if project != nil {
		projectID := project.ID
		t.ProjectID = &projectID
	}
	if req.ParentTask != nil {
		parentID := req.ParentTask.ID
		t.ParentTaskID = &parentID
	}

	if err := r.store.CreateTask(ctx, t); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, &errs.DuplicateNameError{Name: req.Name}
		}
		return nil, fmt.Errorf("create task %s: %w", req.Name, err)
	}
	return t, nil
}

// reserve 在存储层预占任务名，预占被他人持有时返回 DuplicateNameError
func (r *Registry) reserve(ctx context.Context, name string) (*model.TaskReservation, error) {
	res := &model.TaskReservation{
		Name:      name,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(r.reserveTTL).UTC(),
	}
	if err := r.store.ReserveTaskName(ctx, res); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, &errs.DuplicateNameError{Name: name}
		}
		return nil, fmt.Errorf("reserve task name %s: %w", name, err)
	}
	return res, nil
}

// release 释放预占，不受调用方 ctx 取消影响
func (r *Registry) release(ctx context.Context, res *model.TaskReservation) {
	if err := r.store.ReleaseTaskName(context.WithoutCancel(ctx), res.Name, res.Token); err != nil {
		r.logger.WithTaskName(res.Name).WithError(err).Warn("Release task name reservation failed")
	}
}

// stillOwned 替换内容目录前的校验：名称未被注册，且预占仍属于本次注册
func (r *Registry) stillOwned(res *model.TaskReservation) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := r.checkNameFree(ctx, res.Name); err != nil {
			return err
		}
		cur, err := r.store.GetTaskReservation(ctx, res.Name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return &errs.DuplicateNameError{Name: res.Name}
		case err != nil:
			return fmt.Errorf("lookup task name reservation %s: %w", res.Name, err)
		case cur.Token != res.Token:
			return &errs.DuplicateNameError{Name: res.Name}
		}
		return nil
	}
}

// checkNameFree 名称已被占用时返回 DuplicateNameError
func (r *Registry) checkNameFree(ctx context.Context, name string) error {
	_, err := r.store.FindTaskByName(ctx, name)
	switch {
	case err == nil:
		return &errs.DuplicateNameError{Name: name}
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("lookup task %s: %w", name, err)
	}
}

func (r *Registry) cloneFromParent(ctx context.Context, parent *model.Task, dst string, skipConfirm bool, beforeSwap func(context.Context) error) error {
	src, err := r.layout.TaskDir(parent.Name, false)
	if err != nil {
		return err
	}

	err = r.provisioner.Clone(ctx, provision.CloneRequest{
		Src:         src,
		Dst:         dst,
		Confirmer:   r.confirmer,
		SkipConfirm: skipConfirm,
		BeforeSwap:  beforeSwap,
	})
	switch {
	case err == nil:
		r.metrics.RecordClone(metrics.ResultSuccess)
	case errors.Is(err, errs.ErrDeclined):
		r.metrics.RecordClone(metrics.ResultDeclined)
	default:
		r.metrics.RecordClone(metrics.ResultFailed)
	}
	return err
}

func registrationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, errs.ErrDuplicateName):
		return metrics.ResultDuplicate
	case errors.Is(err, errs.ErrDeclined):
		return metrics.ResultDeclined
	default:
		return metrics.ResultFailed
	}
}

// ============================================================================
// 查询
// ============================================================================

// Get 按 ID 获取任务
func (r *Registry) Get(ctx context.Context, id string) (*model.Task, error) {
	t, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// FindByName 按名称获取任务
func (r *Registry) FindByName(ctx context.Context, name string) (*model.Task, error) {
	t, err := r.store.FindTaskByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find task %q: %w", name, err)
	}
	return t, nil
}

// List 列出任务，projectID 为空时列出全部
func (r *Registry) List(ctx context.Context, projectID string) ([]*model.Task, error) {
	return r.store.ListTasks(ctx, projectID)
}

// Project 返回任务所属项目，未设置时返回 nil
func (r *Registry) Project(ctx context.Context, t *model.Task) (*model.Project, error) {
	if !t.HasProject() {
		return nil, nil
	}
	p, err := r.store.GetProject(ctx, *t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project of task %s: %w", t.Name, err)
	}
	return p, nil
}

// SetProject 修改任务所属项目
//
// 项目关系在创建后不可变：目标与当前项目相同时为空操作，否则返回 UnsupportedOperationError。
func (r *Registry) SetProject(_ context.Context, t *model.Task, p *model.Project) error {
	current := ""
	if t.HasProject() {
		current = *t.ProjectID
	}
	target := ""
	if p != nil {
		target = p.ID
	}
	if current == target {
		return nil
	}
	return &errs.UnsupportedOperationError{Op: fmt.Sprintf("reassign project of task %q", t.Name)}
}

// EnsureProject 按名称查找项目，不存在时创建
func (r *Registry) EnsureProject(ctx context.Context, name string) (*model.Project, error) {
	p, err := r.store.FindProjectByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("find project %q: %w", name, err)
	}

	p = &model.Project{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	if err := r.store.CreateProject(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return r.store.FindProjectByName(ctx, name)
		}
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	return p, nil
}

// Runs 返回任务的全部 TaskRun
func (r *Registry) Runs(ctx context.Context, t *model.Task) ([]*model.TaskRun, error) {
	runs, err := r.store.ListTaskRunsByTask(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list runs of task %s: %w", t.Name, err)
	}
	return runs, nil
}

// Assignments 返回任务所有 Run 下的 Assignment
func (r *Registry) Assignments(ctx context.Context, t *model.Task) ([]*model.Assignment, error) {
	runs, err := r.Runs(ctx, t)
	if err != nil {
		return nil, err
	}
	var out []*model.Assignment
	for _, run := range runs {
		as, err := r.store.ListAssignmentsByRun(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("list assignments of run %s: %w", run.ID, err)
		}
		out = append(out, as...)
	}
	return out, nil
}

// Source 返回任务内容目录，目录不存在时返回 MissingContentError
func (r *Registry) Source(t *model.Task) (string, error) {
	return r.layout.TaskDir(t.Name, false)
}

// Params 返回任务类型对应的参数模式
func (r *Registry) Params(t *model.Task) (params.Schema, error) {
	return r.params.For(t.Type)
}
