// Package errs 定义任务生命周期相关的领域错误
//
// 每种错误都提供：
//   - 一个哨兵错误（ErrXxx），用于 errors.Is 判断
//   - 一个携带上下文的结构体（XxxError），错误信息中包含冲突的资源（任务名或路径）
//   - 对应的 containerd errdefs 分类，调用方可直接使用 errdefs.IsAlreadyExists 等判断
//
// 所有错误均原样返回给调用方，不做内部重试。
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
)

var (
	// ErrDuplicateName 任务名称已存在
	ErrDuplicateName = errors.New("duplicate task name")

	// ErrInvalidType 任务类型不可识别
	ErrInvalidType = errors.New("invalid task type")

	// ErrMissingContent 任务内容目录不存在
	ErrMissingContent = errors.New("missing task content")

	// ErrProvisioning 内容目录准备失败（复制失败或用户拒绝覆盖）
	ErrProvisioning = errors.New("provisioning failed")

	// ErrInvalidStatus 状态值不在固定枚举内
	ErrInvalidStatus = errors.New("invalid status")

	// ErrUnsupportedOperation 试图修改不可变关系
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrDeclined 用户拒绝了破坏性操作
	ErrDeclined = errors.New("declined by user")

	// ErrQuestionUnresolved 无法定位平台上的筛选问题
	ErrQuestionUnresolved = errors.New("screening question unresolved")
)

// DuplicateNameError 注册时任务名冲突
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a task named %q already exists", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName || target == errdefs.ErrAlreadyExists
}

// InvalidTypeError 任务类型不可识别
type InvalidTypeError struct {
	Type  string
	Valid []string
}

func (e *InvalidTypeError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("task type %q is not recognized", e.Type)
	}
	return fmt.Sprintf("task type %q is not recognized in [%s]", e.Type, strings.Join(e.Valid, ", "))
}

func (e *InvalidTypeError) Is(target error) bool {
	return target == ErrInvalidType || target == errdefs.ErrInvalidArgument
}

// MissingContentError 根任务或父任务的内容目录不存在
type MissingContentError struct {
	Path string
	// Task 相关任务名（可选）
	Task string
}

func (e *MissingContentError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("no task content for %s at %s", e.Task, e.Path)
	}
	return fmt.Sprintf("no task content at %s", e.Path)
}

func (e *MissingContentError) Is(target error) bool {
	return target == ErrMissingContent || target == errdefs.ErrNotFound
}

// ProvisioningError 目录复制失败或被拒绝
type ProvisioningError struct {
	Path string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning %s: %v", e.Path, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

func (e *ProvisioningError) Is(target error) bool {
	if target == ErrProvisioning {
		return true
	}
	if errors.Is(e.Err, ErrDeclined) {
		return target == errdefs.ErrAborted
	}
	return target == errdefs.ErrFailedPrecondition
}

// InvalidStatusError 状态参数不在固定枚举内
type InvalidStatusError struct {
	Status string
	// Detail 附加说明（可选），如非法的状态迁移
	Detail string
}

func (e *InvalidStatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid status %q: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("invalid status %q", e.Status)
}

func (e *InvalidStatusError) Is(target error) bool {
	return target == ErrInvalidStatus || target == errdefs.ErrInvalidArgument
}

// UnsupportedOperationError 不支持的更新操作
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Op)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation || target == errdefs.ErrNotImplemented
}
