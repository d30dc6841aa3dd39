// Package provision 任务内容目录与 Run 产物目录的准备
//
// 包含两部分：
//   - Layout：文件系统命名规则（任务名 → 内容目录，Run ID → 产物目录）
//   - Provisioner：从父任务克隆内容目录，覆盖已有目录前需要确认
package provision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crowdtasks-admin/internal/shared/errs"
	"crowdtasks-admin/internal/shared/model"

	"github.com/containerd/errdefs"
)

// NoProjectDir 未关联项目的 Run 产物所在的命名空间目录
const NoProjectDir = "NO_PROJECT"

// Layout 目录命名规则
type Layout struct {
	// DataDir 数据根目录，Run 产物位于 DataDir/runs 下
	DataDir string
	// TasksDir 任务内容根目录
	TasksDir string
}

// NewLayout 创建目录布局，tasksDir 为空时使用 dataDir/tasks
func NewLayout(dataDir, tasksDir string) Layout {
	if tasksDir == "" {
		tasksDir = filepath.Join(dataDir, "tasks")
	}
	return Layout{DataDir: dataDir, TasksDir: tasksDir}
}

// TaskDir 返回任务内容目录
//
// notExistsOK 为 false 时目录必须存在，否则返回 MissingContentError。
func (l Layout) TaskDir(name string, notExistsOK bool) (string, error) {
	if err := checkName("task", name); err != nil {
		return "", err
	}
	dir := filepath.Join(l.TasksDir, name)
	if notExistsOK {
		return dir, nil
	}
	if err := ValidateTaskDir(dir, ""); err != nil {
		var mc *errs.MissingContentError
		if errors.As(err, &mc) {
			mc.Task = name
		}
		return "", err
	}
	return dir, nil
}

// RunDir 返回 Run 产物目录（只计算路径，不创建）
func (l Layout) RunDir(runID, projectName string) string {
	ns := projectName
	if ns == "" {
		ns = NoProjectDir
	}
	return filepath.Join(l.DataDir, "runs", ns, runID)
}

// ValidateTaskDir 校验任务内容目录
//
// 目前只检查目录存在；各任务类型所需文件的检查尚未定义。
func ValidateTaskDir(dir string, _ model.TaskType) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &errs.MissingContentError{Path: dir}
		}
		return err
	}
	if !info.IsDir() {
		return &errs.MissingContentError{Path: dir}
	}
	return nil
}

func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid %s name %q: %w", kind, name, errdefs.ErrInvalidArgument)
	}
	return nil
}
