// Package spend 任务花费统计
//
// 只有处于可计费状态的 Assignment 计入花费，见 model.PayableAssignmentStatuses。
package spend

import (
	"context"
	"fmt"

	"crowdtasks-admin/internal/metrics"
	"crowdtasks-admin/internal/shared/model"
)

// Reader Calculator 需要的存储能力
type Reader interface {
	ListAssignmentsByRun(ctx context.Context, runID string) ([]*model.Assignment, error)
	ListTaskRunsByTask(ctx context.Context, taskID string) ([]*model.TaskRun, error)
}

// RunSpend 单个 Run 的花费明细
type RunSpend struct {
	RunID       string  `json:"run_id"`
	Assignments int     `json:"assignments"`
	Payable     int     `json:"payable"`
	Spend       float64 `json:"spend"`
}

// Summary 任务花费汇总
type Summary struct {
	TaskID string     `json:"task_id"`
	Runs   []RunSpend `json:"runs"`
	Total  float64    `json:"total"`
}

// Calculator 花费计算器
type Calculator struct {
	store   Reader
	metrics *metrics.Metrics
}

// NewCalculator 创建花费计算器，m 可为 nil
func NewCalculator(store Reader, m *metrics.Metrics) *Calculator {
	return &Calculator{store: store, metrics: m}
}

// RunSpend 计算 Run 的花费，没有 Assignment 时为 0
func (c *Calculator) RunSpend(ctx context.Context, runID string) (float64, error) {
	rs, err := c.runSpend(ctx, runID)
	if err != nil {
		return 0, err
	}
	return rs.Spend, nil
}

// TotalSpend 计算任务所有 Run 的花费之和
func (c *Calculator) TotalSpend(ctx context.Context, taskID string) (float64, error) {
	s, err := c.Summary(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return s.Total, nil
}

// Summary 计算任务的逐 Run 花费明细
func (c *Calculator) Summary(ctx context.Context, taskID string) (*Summary, error) {
	runs, err := c.store.ListTaskRunsByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list runs of task %s: %w", taskID, err)
	}

	s := &Summary{TaskID: taskID, Runs: make([]RunSpend, 0, len(runs))}
	for _, run := range runs {
		rs, err := c.runSpend(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		s.Runs = append(s.Runs, rs)
		s.Total += rs.Spend
	}

	c.metrics.SetTaskSpend(taskID, s.Total)
	return s, nil
}

func (c *Calculator) runSpend(ctx context.Context, runID string) (RunSpend, error) {
	list, err := c.store.ListAssignmentsByRun(ctx, runID)
	if err != nil {
		return RunSpend{}, fmt.Errorf("list assignments of run %s: %w", runID, err)
	}

	payable := model.PayableAssignmentStatuses()
	rs := RunSpend{RunID: runID, Assignments: len(list)}
	for _, a := range list {
		if a.Status.Payable() {
			rs.Payable++
		}
		rs.Spend += a.CostOfStatuses(payable)
	}
	return rs, nil
}
