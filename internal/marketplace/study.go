package marketplace

import (
	"fmt"

	"crowdtasks-admin/internal/shared/errs"
)

// ============================================================================
// StudyStatus
// ============================================================================

// StudyStatus Study 生命周期状态
type StudyStatus uint8

const (
	StudyUnpublished StudyStatus = iota + 1
	StudyScheduled
	StudyActive
	StudyPaused
	StudyAwaitingReview
	StudyCompleted
)

var studyStatusNames = map[StudyStatus]string{
	StudyUnpublished:    "UNPUBLISHED",
	StudyScheduled:      "SCHEDULED",
	StudyActive:         "ACTIVE",
	StudyPaused:         "PAUSED",
	StudyAwaitingReview: "AWAITING REVIEW",
	StudyCompleted:      "COMPLETED",
}

// StudyStatuses 返回全部 Study 状态
func StudyStatuses() []StudyStatus {
	return []StudyStatus{StudyUnpublished, StudyScheduled, StudyActive, StudyPaused, StudyAwaitingReview, StudyCompleted}
}

func (s StudyStatus) String() string {
	if name, ok := studyStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StudyStatus(%d)", uint8(s))
}

// Valid 判断是否为已知状态
func (s StudyStatus) Valid() bool {
	_, ok := studyStatusNames[s]
	return ok
}

// IsTerminal 只有 COMPLETED 是终态
func (s StudyStatus) IsTerminal() bool {
	return s == StudyCompleted
}

// IsLive 是否正在接受工人作答
func (s StudyStatus) IsLive() bool {
	switch s {
	case StudyActive:
		return true
	case StudyUnpublished, StudyScheduled, StudyPaused, StudyAwaitingReview, StudyCompleted:
		return false
	}
	return false
}

// ParseStudyStatus 从平台返回的字符串解析状态
func ParseStudyStatus(s string) (StudyStatus, error) {
	for k, v := range studyStatusNames {
		if v == s {
			return k, nil
		}
	}
	return 0, &errs.InvalidStatusError{Status: s, Detail: "unknown study status"}
}

var studyTransitions = map[StudyStatus][]StudyStatus{
	StudyUnpublished:    {StudyScheduled, StudyActive},
	StudyScheduled:      {StudyActive},
	StudyActive:         {StudyPaused, StudyAwaitingReview},
	StudyPaused:         {StudyActive},
	StudyAwaitingReview: {StudyCompleted},
	StudyCompleted:      nil,
}

// CanTransition 判断观察到的 Study 状态变化是否合法
// 相同状态视为合法（轮询时状态未变化）
func (s StudyStatus) CanTransition(to StudyStatus) bool {
	if s == to {
		return s.Valid()
	}
	for _, next := range studyTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateStudyTransition 校验 Study 状态变化，非法时返回 InvalidStatusError
func ValidateStudyTransition(from, to StudyStatus) error {
	if !from.CanTransition(to) {
		return &errs.InvalidStatusError{
			Status: to.String(),
			Detail: fmt.Sprintf("study cannot move from %s to %s", from, to),
		}
	}
	return nil
}

// ============================================================================
// StudyAction
// ============================================================================

// StudyAction 对 Study 可执行的操作
type StudyAction uint8

const (
	ActionAutomaticallyApprove StudyAction = iota + 1
	ActionManuallyReview
	ActionPublish
	ActionStart
	ActionStop
	ActionUnpublished
)

var studyActionNames = map[StudyAction]string{
	ActionAutomaticallyApprove: "AUTOMATICALLY_APPROVE",
	ActionManuallyReview:       "MANUALLY_REVIEW",
	ActionPublish:              "PUBLISH",
	ActionStart:                "START",
	ActionStop:                 "STOP",
	ActionUnpublished:          "UNPUBLISHED",
}

func (a StudyAction) String() string {
	if name, ok := studyActionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("StudyAction(%d)", uint8(a))
}

// ParseStudyAction 从字符串解析操作
func ParseStudyAction(s string) (StudyAction, error) {
	for k, v := range studyActionNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown study action %q", s)
}

// ExpectedStatus 操作生效后预期观察到的 Study 状态
// 审批策略类操作不改变 Study 状态，返回 ok=false
func (a StudyAction) ExpectedStatus() (StudyStatus, bool) {
	switch a {
	case ActionPublish, ActionStart:
		return StudyActive, true
	case ActionStop:
		return StudyAwaitingReview, true
	case ActionUnpublished:
		return StudyUnpublished, true
	case ActionAutomaticallyApprove, ActionManuallyReview:
		return 0, false
	}
	return 0, false
}

// ============================================================================
// StudyCompletionOption / StudyCodeType
// ============================================================================

// StudyCompletionOption 工人完成 Study 后的回传方式
type StudyCompletionOption uint8

const (
	CompletionCode StudyCompletionOption = iota + 1
	CompletionURL
)

func (o StudyCompletionOption) String() string {
	switch o {
	case CompletionCode:
		return "code"
	case CompletionURL:
		return "url"
	}
	return fmt.Sprintf("StudyCompletionOption(%d)", uint8(o))
}

// StudyCodeType 完成码类别
type StudyCodeType uint8

const (
	CodeCompleted StudyCodeType = iota + 1
	CodeFailedAttentionCheck
	CodeFollowUpStudy
	CodeGiveBonus
	CodeIncompatibleDevice
	CodeNoConsent
	CodeOther
)

var studyCodeTypeNames = map[StudyCodeType]string{
	CodeCompleted:            "COMPLETED",
	CodeFailedAttentionCheck: "FAILED_ATTENTION_CHECK",
	CodeFollowUpStudy:        "FOLLOW_UP_STUDY",
	CodeGiveBonus:            "GIVE_BONUS",
	CodeIncompatibleDevice:   "INCOMPATIBLE_DEVICE",
	CodeNoConsent:            "NO_CONSENT",
	CodeOther:                "OTHER",
}

func (c StudyCodeType) String() string {
	if name, ok := studyCodeTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("StudyCodeType(%d)", uint8(c))
}

// ParseStudyCodeType 从字符串解析完成码类别
func ParseStudyCodeType(s string) (StudyCodeType, error) {
	for k, v := range studyCodeTypeNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown study code type %q", s)
}

// ============================================================================
// IDOption
// ============================================================================

// IDOption 工人身份识别方式
type IDOption uint8

const (
	IDNotRequired IDOption = iota + 1
	IDQuestion
	IDURLParameters
)

func (o IDOption) String() string {
	switch o {
	case IDNotRequired:
		return "not_required"
	case IDQuestion:
		return "question"
	case IDURLParameters:
		return "url_parameters"
	}
	return fmt.Sprintf("IDOption(%d)", uint8(o))
}

// ParseIDOption 从字符串解析身份识别方式
func ParseIDOption(s string) (IDOption, error) {
	switch s {
	case "not_required":
		return IDNotRequired, nil
	case "question":
		return IDQuestion, nil
	case "url_parameters":
		return IDURLParameters, nil
	}
	return 0, fmt.Errorf("unknown id option %q", s)
}
