// Package run TaskRun 的创建、查询与产物目录解析
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"crowdtasks-admin/internal/metrics"
	"crowdtasks-admin/internal/params"
	"crowdtasks-admin/internal/provision"
	"crowdtasks-admin/internal/shared/eventbus"
	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/objstore"
	"crowdtasks-admin/internal/shared/storage"
	"crowdtasks-admin/pkg/logging"
)

// Options Manager 的可选依赖
type Options struct {
	Params *params.Registry

	// Archive 产物归档目标，为 nil 时 ArchiveRunDirectory 不可用
	Archive objstore.Uploader

	Metrics *metrics.Metrics
	Logger  *logging.Logger

	// Events 生命周期事件发布目标，为 nil 时丢弃事件
	Events eventbus.Publisher
}

// Manager TaskRun 管理器
type Manager struct {
	store   storage.PersistentStore
	layout  provision.Layout
	params  *params.Registry
	archive objstore.Uploader
	metrics *metrics.Metrics
	logger  *logging.Logger
	events  eventbus.Publisher
}

// NewManager 创建 TaskRun 管理器
func NewManager(store storage.PersistentStore, layout provision.Layout, opts Options) *Manager {
	if opts.Params == nil {
		opts.Params = params.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Events == nil {
		opts.Events = eventbus.NewNoOpEventBus()
	}
	return &Manager{
		store:   store,
		layout:  layout,
		params:  opts.Params,
		archive: opts.Archive,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		events:  opts.Events,
	}
}

// ============================================================================
// 创建
// ============================================================================

// Start 为任务创建新的 TaskRun
//
// task 与 requester 必须已存在于存储中。paramString 原样保存，不创建任何目录。
func (m *Manager) Start(ctx context.Context, task *model.Task, requester *model.Requester, paramString string) (*model.TaskRun, error) {
	stored, err := m.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}
	if _, err := m.store.GetRequester(ctx, requester.ID); err != nil {
		return nil, fmt.Errorf("requester %s: %w", requester.ID, err)
	}

	run := &model.TaskRun{
		ID:          uuid.NewString(),
		TaskID:      stored.ID,
		RequesterID: requester.ID,
		ParamString: paramString,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.store.CreateTaskRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run for task %s: %w", stored.Name, err)
	}

	m.metrics.RecordRunStarted(stored.Type)
	m.logger.RunLog("started", run.ID, stored.ID,
		slog.String("task_name", stored.Name),
		slog.String("requester_id", requester.ID))
	m.publish(ctx, eventbus.NewEvent(eventbus.TopicRuns, eventbus.EventRunStarted, run.ID, map[string]string{
		"task_id":      stored.ID,
		"requester_id": requester.ID,
	}))
	return run, nil
}

func (m *Manager) publish(ctx context.Context, ev *eventbus.Event) {
	if err := m.events.Publish(ctx, ev); err != nil {
		m.logger.WithError(err).Warn("Publish event failed",
			slog.String("type", ev.Type), slog.String("subject_id", ev.SubjectID))
	}
}

// StartWithParams 按任务类型的参数模式解析 args 后创建 TaskRun
func (m *Manager) StartWithParams(ctx context.Context, task *model.Task, requester *model.Requester, args []string) (*model.TaskRun, error) {
	schema, err := m.params.For(task.Type)
	if err != nil {
		return nil, err
	}
	p, err := schema.Parse(args)
	if err != nil {
		return nil, err
	}
	s, err := schema.Serialize(p)
	if err != nil {
		return nil, err
	}
	return m.Start(ctx, task, requester, s)
}

// ============================================================================
// 查询
// ============================================================================

// Get 按 ID 获取 TaskRun
func (m *Manager) Get(ctx context.Context, id string) (*model.TaskRun, error) {
	run, err := m.store.GetTaskRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// Task 返回 Run 所属任务
func (m *Manager) Task(ctx context.Context, run *model.TaskRun) (*model.Task, error) {
	t, err := m.store.GetTask(ctx, run.TaskID)
	if err != nil {
		return nil, fmt.Errorf("task %s of run %s: %w", run.TaskID, run.ID, err)
	}
	return t, nil
}

// Requester 返回 Run 的付费方（按 Run 记录的 RequesterID 查找）
func (m *Manager) Requester(ctx context.Context, run *model.TaskRun) (*model.Requester, error) {
	r, err := m.store.GetRequester(ctx, run.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("requester %s of run %s: %w", run.RequesterID, run.ID, err)
	}
	return r, nil
}

// UsedParams 按任务类型的参数模式解析 Run 的启动参数
func (m *Manager) UsedParams(ctx context.Context, run *model.TaskRun) (params.Params, error) {
	t, err := m.Task(ctx, run)
	if err != nil {
		return nil, err
	}
	schema, err := m.params.For(t.Type)
	if err != nil {
		return nil, err
	}
	return schema.Deserialize(run.ParamString)
}

// ============================================================================
// 产物目录
// ============================================================================

// ResolveRunDirectory 计算 Run 的产物目录
//
// 任务属于项目时目录位于项目命名空间下，否则位于 NO_PROJECT 下。只计算路径，不创建。
func (m *Manager) ResolveRunDirectory(ctx context.Context, run *model.TaskRun) (string, error) {
	projectName, err := m.projectName(ctx, run)
	if err != nil {
		return "", err
	}
	return m.layout.RunDir(run.ID, projectName), nil
}

func (m *Manager) projectName(ctx context.Context, run *model.TaskRun) (string, error) {
	t, err := m.Task(ctx, run)
	if err != nil {
		return "", err
	}
	if !t.HasProject() {
		return "", nil
	}
	p, err := m.store.GetProject(ctx, *t.ProjectID)
	if err != nil {
		return "", fmt.Errorf("project %s of task %s: %w", *t.ProjectID, t.Name, err)
	}
	return p.Name, nil
}

// ArchiveKeyPrefix 返回 Run 产物在对象存储中的 key 前缀，与本地目录命名空间一致
func ArchiveKeyPrefix(projectName, runID string) string {
	if projectName == "" {
		projectName = provision.NoProjectDir
	}
	return path.Join("runs", projectName, runID)
}

// ArchiveRunDirectory 将 Run 产物目录上传到对象存储，返回上传的文件数
func (m *Manager) ArchiveRunDirectory(ctx context.Context, run *model.TaskRun) (int, error) {
	if m.archive == nil {
		return 0, fmt.Errorf("archive run %s: object storage not configured: %w", run.ID, errdefs.ErrFailedPrecondition)
	}

	projectName, err := m.projectName(ctx, run)
	if err != nil {
		return 0, err
	}
	dir := m.layout.RunDir(run.ID, projectName)

	start := time.Now()
	n, err := objstore.ArchiveDir(ctx, m.archive, dir, ArchiveKeyPrefix(projectName, run.ID))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return n, err
		}
		m.logger.WithRunID(run.ID).WithError(err).Error("Run archive failed", slog.Int("uploaded", n))
		return n, err
	}

	m.logger.WithDuration(time.Since(start)).RunLog("archived", run.ID, run.TaskID, slog.Int("files", n))
	m.publish(ctx, eventbus.NewEvent(eventbus.TopicRuns, eventbus.EventRunArchived, run.ID, map[string]string{
		"task_id": run.TaskID,
		"prefix":  ArchiveKeyPrefix(projectName, run.ID),
		"files":   strconv.Itoa(n),
	}))
	return n, nil
}
