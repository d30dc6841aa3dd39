package model

import "time"

// ============================================================================
// AssignmentStatus - Assignment 状态枚举
// ============================================================================

// AssignmentStatus 本地跟踪的 Assignment 状态
//
// 状态集合与众包平台的 Submission 状态对齐，另加本地的投放前状态：
//   - created / launched：本地已创建、已投放，尚无工人领取
//   - reserved → active → timed_out | awaiting_review
//   - awaiting_review → processing → approved | rejected
//   - returned：工人主动退回
//   - expired：投放过期无人完成
//
// 只有 approved 计入花费（见 PayableAssignmentStatuses）。
type AssignmentStatus string

const (
	AssignmentStatusCreated        AssignmentStatus = "created"
	AssignmentStatusLaunched       AssignmentStatus = "launched"
	AssignmentStatusReserved       AssignmentStatus = "reserved"
	AssignmentStatusActive         AssignmentStatus = "active"
	AssignmentStatusTimedOut       AssignmentStatus = "timed_out"
	AssignmentStatusAwaitingReview AssignmentStatus = "awaiting_review"
	AssignmentStatusProcessing     AssignmentStatus = "processing"
	AssignmentStatusApproved       AssignmentStatus = "approved"
	AssignmentStatusReturned       AssignmentStatus = "returned"
	AssignmentStatusRejected       AssignmentStatus = "rejected"
	AssignmentStatusExpired        AssignmentStatus = "expired"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusCreated,
	AssignmentStatusLaunched,
	AssignmentStatusReserved,
	AssignmentStatusActive,
	AssignmentStatusTimedOut,
	AssignmentStatusAwaitingReview,
	AssignmentStatusProcessing,
	AssignmentStatusApproved,
	AssignmentStatusReturned,
	AssignmentStatusRejected,
	AssignmentStatusExpired,
}

var payableAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusApproved,
}

// ValidAssignmentStatuses 返回全部合法状态（固定顺序，返回副本）
func ValidAssignmentStatuses() []AssignmentStatus {
	out := make([]AssignmentStatus, len(validAssignmentStatuses))
	copy(out, validAssignmentStatuses)
	return out
}

// PayableAssignmentStatuses 返回计入花费的状态集合
func PayableAssignmentStatuses() []AssignmentStatus {
	out := make([]AssignmentStatus, len(payableAssignmentStatuses))
	copy(out, payableAssignmentStatuses)
	return out
}

// Valid 判断状态是否合法
func (s AssignmentStatus) Valid() bool {
	for _, v := range validAssignmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Payable 判断该状态下的花费是否计入
//
// processing 是审批后的短暂中间态，不计入花费，调用方应稍后重新查询。
func (s AssignmentStatus) Payable() bool {
	for _, v := range payableAssignmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsFinal 判断是否为终态
func (s AssignmentStatus) IsFinal() bool {
	switch s {
	case AssignmentStatusApproved, AssignmentStatusRejected,
		AssignmentStatusReturned, AssignmentStatusTimedOut, AssignmentStatusExpired:
		return true
	}
	return false
}

// ============================================================================
// Assignment
// ============================================================================

// Assignment 分配给单个工人的工作单元
//
// 由执行子系统写入，本模块只读。
type Assignment struct {
	ID        string           `json:"id" db:"id" bson:"_id"`
	TaskRunID string           `json:"task_run_id" db:"task_run_id" bson:"task_run_id"`
	WorkerID  string           `json:"worker_id,omitempty" db:"worker_id" bson:"worker_id,omitempty"`
	Status    AssignmentStatus `json:"status" db:"status" bson:"status"`

	// Cost 该 Assignment 的报酬金额
	Cost float64 `json:"cost" db:"cost" bson:"cost"`

	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// CostOfStatuses 若当前状态属于 statuses 则返回 Cost，否则返回 0
func (a *Assignment) CostOfStatuses(statuses []AssignmentStatus) float64 {
	for _, s := range statuses {
		if a.Status == s {
			return a.Cost
		}
	}
	return 0
}
