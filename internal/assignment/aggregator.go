// Package assignment Assignment 状态统计与过滤
package assignment

import (
	"context"
	"fmt"

	"crowdtasks-admin/internal/metrics"
	"crowdtasks-admin/internal/shared/errs"
	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/shared/storage"
)

// Reader Aggregator 需要的存储能力
type Reader interface {
	ListAssignmentsByRun(ctx context.Context, runID string) ([]*model.Assignment, error)
	ListTaskRunsByTask(ctx context.Context, taskID string) ([]*model.TaskRun, error)
}

var _ Reader = (storage.PersistentStore)(nil)

// Aggregator 只读统计，不修改任何状态
type Aggregator struct {
	store   Reader
	metrics *metrics.Metrics
}

// NewAggregator 创建统计器，m 可为 nil
func NewAggregator(store Reader, m *metrics.Metrics) *Aggregator {
	return &Aggregator{store: store, metrics: m}
}

// CountByStatus 统计 Run 下各状态的 Assignment 数量
//
// 结果包含全部合法状态，没有 Assignment 的状态计为 0。
func (a *Aggregator) CountByStatus(ctx context.Context, runID string) (map[model.AssignmentStatus]int, error) {
	list, err := a.store.ListAssignmentsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list assignments of run %s: %w", runID, err)
	}
	counts := newCounts()
	if err := accumulate(counts, list); err != nil {
		return nil, err
	}
	a.metrics.SetAssignmentCounts(counts)
	return counts, nil
}

// CountByStatusForTask 统计任务所有 Run 下各状态的 Assignment 数量
func (a *Aggregator) CountByStatusForTask(ctx context.Context, taskID string) (map[model.AssignmentStatus]int, error) {
	runs, err := a.store.ListTaskRunsByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list runs of task %s: %w", taskID, err)
	}
	counts := newCounts()
	for _, run := range runs {
		list, err := a.store.ListAssignmentsByRun(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("list assignments of run %s: %w", run.ID, err)
		}
		if err := accumulate(counts, list); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

// Filter 返回 Run 下指定状态的 Assignment，status 为 nil 时返回全部
//
// 顺序与存储返回的顺序一致。
func (a *Aggregator) Filter(ctx context.Context, runID string, status *model.AssignmentStatus) ([]*model.Assignment, error) {
	if status != nil && !status.Valid() {
		return nil, &errs.InvalidStatusError{Status: string(*status)}
	}
	list, err := a.store.ListAssignmentsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list assignments of run %s: %w", runID, err)
	}
	if status == nil {
		return list, nil
	}

	out := make([]*model.Assignment, 0, len(list))
	for _, as := range list {
		if as.Status == *status {
			out = append(out, as)
		}
	}
	return out, nil
}

// ParseStatus 解析状态参数
func ParseStatus(s string) (model.AssignmentStatus, error) {
	st := model.AssignmentStatus(s)
	if !st.Valid() {
		return "", &errs.InvalidStatusError{Status: s}
	}
	return st, nil
}

func newCounts() map[model.AssignmentStatus]int {
	counts := make(map[model.AssignmentStatus]int)
	for _, s := range model.ValidAssignmentStatuses() {
		counts[s] = 0
	}
	return counts
}

// accumulate 存储中出现未知状态视为数据错误
func accumulate(counts map[model.AssignmentStatus]int, list []*model.Assignment) error {
	for _, as := range list {
		if _, ok := counts[as.Status]; !ok {
			return &errs.InvalidStatusError{Status: string(as.Status), Detail: "stored on assignment " + as.ID}
		}
		counts[as.Status]++
	}
	return nil
}
