package marketplace

import (
	"fmt"

	"crowdtasks-admin/internal/shared/errs"
	"crowdtasks-admin/internal/shared/model"
)

// SubmissionStatus 工人作答（Submission）状态
//
// 审批或拒绝之后，Submission 可能短暂处于 PROCESSING，随后才变为 APPROVED 或 REJECTED。
// PROCESSING 永远不是终态，调用方需要重新查询直到状态稳定。
type SubmissionStatus uint8

const (
	SubmissionReserved SubmissionStatus = iota + 1
	SubmissionActive
	SubmissionTimedOut
	SubmissionAwaitingReview
	SubmissionApproved
	SubmissionReturned
	SubmissionRejected
	SubmissionProcessing
)

var submissionStatusNames = map[SubmissionStatus]string{
	SubmissionReserved:       "RESERVED",
	SubmissionActive:         "ACTIVE",
	SubmissionTimedOut:       "TIMED-OUT",
	SubmissionAwaitingReview: "AWAITING REVIEW",
	SubmissionApproved:       "APPROVED",
	SubmissionReturned:       "RETURNED",
	SubmissionRejected:       "REJECTED",
	SubmissionProcessing:     "PROCESSING",
}

// SubmissionStatuses 返回全部 Submission 状态
func SubmissionStatuses() []SubmissionStatus {
	return []SubmissionStatus{
		SubmissionReserved, SubmissionActive, SubmissionTimedOut, SubmissionAwaitingReview,
		SubmissionApproved, SubmissionReturned, SubmissionRejected, SubmissionProcessing,
	}
}

func (s SubmissionStatus) String() string {
	if name, ok := submissionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SubmissionStatus(%d)", uint8(s))
}

// Valid 判断是否为已知状态
func (s SubmissionStatus) Valid() bool {
	_, ok := submissionStatusNames[s]
	return ok
}

// ParseSubmissionStatus 从平台返回的字符串解析状态
func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	for k, v := range submissionStatusNames {
		if v == s {
			return k, nil
		}
	}
	return 0, &errs.InvalidStatusError{Status: s, Detail: "unknown submission status"}
}

// IsTerminal 判断是否为终态
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionApproved, SubmissionReturned, SubmissionRejected, SubmissionTimedOut:
		return true
	case SubmissionReserved, SubmissionActive, SubmissionAwaitingReview, SubmissionProcessing:
		return false
	}
	return false
}

// IsPayable 只有 APPROVED 计入花费
func (s SubmissionStatus) IsPayable() bool {
	return ToAssignmentStatus(s).Payable()
}

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionReserved:       {SubmissionActive, SubmissionTimedOut},
	SubmissionActive:         {SubmissionTimedOut, SubmissionAwaitingReview, SubmissionReturned},
	SubmissionAwaitingReview: {SubmissionProcessing, SubmissionApproved, SubmissionReturned, SubmissionRejected},
	SubmissionProcessing:     {SubmissionApproved, SubmissionRejected},
}

// CanTransition 判断观察到的 Submission 状态变化是否合法
func (s SubmissionStatus) CanTransition(to SubmissionStatus) bool {
	if s == to {
		return s.Valid()
	}
	for _, next := range submissionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateSubmissionTransition 校验 Submission 状态变化
func ValidateSubmissionTransition(from, to SubmissionStatus) error {
	if !from.CanTransition(to) {
		return &errs.InvalidStatusError{
			Status: to.String(),
			Detail: fmt.Sprintf("submission cannot move from %s to %s", from, to),
		}
	}
	return nil
}

// ============================================================================
// 与本地 Assignment 状态的映射
// ============================================================================

// ToAssignmentStatus 将平台 Submission 状态映射为本地 Assignment 状态
func ToAssignmentStatus(s SubmissionStatus) model.AssignmentStatus {
	switch s {
	case SubmissionReserved:
		return model.AssignmentStatusReserved
	case SubmissionActive:
		return model.AssignmentStatusActive
	case SubmissionTimedOut:
		return model.AssignmentStatusTimedOut
	case SubmissionAwaitingReview:
		return model.AssignmentStatusAwaitingReview
	case SubmissionApproved:
		return model.AssignmentStatusApproved
	case SubmissionReturned:
		return model.AssignmentStatusReturned
	case SubmissionRejected:
		return model.AssignmentStatusRejected
	case SubmissionProcessing:
		return model.AssignmentStatusProcessing
	}
	return ""
}

// FromAssignmentStatus 反向映射；本地特有状态（created/launched/expired）没有对应的 Submission
func FromAssignmentStatus(s model.AssignmentStatus) (SubmissionStatus, bool) {
	switch s {
	case model.AssignmentStatusReserved:
		return SubmissionReserved, true
	case model.AssignmentStatusActive:
		return SubmissionActive, true
	case model.AssignmentStatusTimedOut:
		return SubmissionTimedOut, true
	case model.AssignmentStatusAwaitingReview:
		return SubmissionAwaitingReview, true
	case model.AssignmentStatusApproved:
		return SubmissionApproved, true
	case model.AssignmentStatusReturned:
		return SubmissionReturned, true
	case model.AssignmentStatusRejected:
		return SubmissionRejected, true
	case model.AssignmentStatusProcessing:
		return SubmissionProcessing, true
	case model.AssignmentStatusCreated, model.AssignmentStatusLaunched, model.AssignmentStatusExpired:
		return 0, false
	}
	return 0, false
}

// Reconcile 根据平台状态计算本地应存储的 Assignment 状态
//
// 本地已是终态时不会被平台的非终态覆盖（例如本地 approved、平台短暂返回 PROCESSING），
// 而本地 processing 会在平台稳定后更新为 approved/rejected。
// 返回值 changed 表示是否需要写回存储。
func Reconcile(local model.AssignmentStatus, remote SubmissionStatus) (next model.AssignmentStatus, changed bool, err error) {
	if !remote.Valid() {
		return local, false, &errs.InvalidStatusError{Status: remote.String()}
	}
	if !local.Valid() {
		return local, false, &errs.InvalidStatusError{Status: string(local)}
	}
	mapped := ToAssignmentStatus(remote)
	if mapped == local {
		return local, false, nil
	}
	if local.IsFinal() && !mapped.IsFinal() {
		return local, false, nil
	}
	return mapped, true, nil
}
