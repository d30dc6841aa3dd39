package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crowdtasks-admin/internal/confirm"
	"crowdtasks-admin/internal/shared/errs"
	"crowdtasks-admin/pkg/logging"
)

// CopyFunc 将目录树 src 复制到已存在的空目录 dst
type CopyFunc func(src, dst string) error

// Option Provisioner 配置项
type Option func(*Provisioner)

// WithCopyFunc 替换目录复制实现，默认为 CopyTree
func WithCopyFunc(fn CopyFunc) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.copy = fn
		}
	}
}

// Provisioner 任务内容目录准备器
type Provisioner struct {
	logger *logging.Logger
	copy   CopyFunc
}

// NewProvisioner 创建目录准备器
func NewProvisioner(logger *logging.Logger, opts ...Option) *Provisioner {
	if logger == nil {
		logger = logging.Nop()
	}
	p := &Provisioner{logger: logger, copy: CopyTree}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CloneRequest 克隆参数
type CloneRequest struct {
	Src string
	Dst string

	// Confirmer dst 已存在时询问是否覆盖，为 nil 时视为拒绝
	Confirmer   confirm.Confirmer
	SkipConfirm bool

	// BeforeSwap 在复制完成、替换 dst 之前调用，返回错误时放弃替换，dst 不变，错误原样返回
	BeforeSwap func(ctx context.Context) error
}

// CloneTaskDir 将父任务目录 src 克隆到 dst，见 Clone
func (p *Provisioner) CloneTaskDir(ctx context.Context, src, dst string, c confirm.Confirmer, skipConfirm bool) error {
	return p.Clone(ctx, CloneRequest{Src: src, Dst: dst, Confirmer: c, SkipConfirm: skipConfirm})
}

// Clone 将父任务目录克隆到目标目录
//
// 执行步骤：
//  1. Src 必须存在，否则返回 MissingContentError
//  2. Dst 已存在时需要确认覆盖（SkipConfirm 为 true 时跳过），拒绝则返回 ProvisioningError 且 Dst 不变
//  3. 先复制到 Dst 同级的临时目录，调用 BeforeSwap，全部成功后再替换 Dst；任一步失败时 Dst 不变
//
// ctx 只在破坏性步骤开始前生效，替换开始后不可取消。
func (p *Provisioner) Clone(ctx context.Context, req CloneRequest) error {
	src, dst, c, skipConfirm := req.Src, req.Dst, req.Confirmer, req.SkipConfirm
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateTaskDir(src, ""); err != nil {
		return err
	}
	if err := checkNotNested(src, dst); err != nil {
		return &errs.ProvisioningError{Path: dst, Err: err}
	}

	exists, err := pathExists(dst)
	if err != nil {
		return &errs.ProvisioningError{Path: dst, Err: err}
	}

	if exists && !skipConfirm {
		if c == nil {
			return &errs.ProvisioningError{Path: dst, Err: fmt.Errorf("no confirmer configured: %w", errs.ErrDeclined)}
		}
		msg := fmt.Sprintf("The task directory %s already exists, and the contents within "+
			"will be deleted and replaced with the contents of %s.", dst, src)
		ok, err := c.Confirm(ctx, msg)
		if err != nil {
			return &errs.ProvisioningError{Path: dst, Err: err}
		}
		if !ok {
			p.logger.Info("Overwrite declined", "dst", dst)
			return &errs.ProvisioningError{Path: dst, Err: errs.ErrDeclined}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	staging, err := p.stage(src, dst)
	if err != nil {
		p.logger.ProvisionLog("clone", src, dst, err)
		return &errs.ProvisioningError{Path: dst, Err: err}
	}
	if req.BeforeSwap != nil {
		if err := req.BeforeSwap(ctx); err != nil {
			os.RemoveAll(staging)
			p.logger.WithError(err).Warn("Clone abandoned before swap", "dst", dst)
			return err
		}
	}
	if err := p.swapIn(staging, dst, exists); err != nil {
		os.RemoveAll(staging)
		p.logger.ProvisionLog("clone", src, dst, err)
		return &errs.ProvisioningError{Path: dst, Err: err}
	}
	if exists {
		p.logger.WithDuration(time.Since(start)).Warn("Task directory overwritten", "src", src, "dst", dst)
	} else {
		p.logger.WithDuration(time.Since(start)).ProvisionLog("clone", src, dst, nil)
	}
	return nil
}

// stage 将 src 复制到 dst 同级的临时目录，失败时不留下临时目录
func (p *Provisioner) stage(src, dst string) (string, error) {
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dst)+".staging-")
	if err != nil {
		return "", err
	}
	if err := p.copy(src, staging); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	if info, err := os.Stat(src); err == nil {
		os.Chmod(staging, info.Mode().Perm())
	}
	return staging, nil
}

// swapIn 用 staging 替换 dst，失败时恢复原 dst；调用方负责清理 staging
func (p *Provisioner) swapIn(staging, dst string, exists bool) error {
	if !exists {
		return os.Rename(staging, dst)
	}

	backup := filepath.Join(filepath.Dir(dst), fmt.Sprintf(".%s.old-%d", filepath.Base(dst), time.Now().UnixNano()))
	if err := os.Rename(dst, backup); err != nil {
		return err
	}
	if err := os.Rename(staging, dst); err != nil {
		// 恢复原目录
		if rerr := os.Rename(backup, dst); rerr != nil {
			p.logger.WithError(rerr).Error("Failed to restore task directory", "dst", dst, "backup", backup)
		}
		return err
	}
	if err := os.RemoveAll(backup); err != nil {
		p.logger.WithError(err).Warn("Failed to remove replaced task directory", "backup", backup)
	}
	return nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func checkNotNested(src, dst string) error {
	a, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	b, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("source and destination are the same directory")
	}
	if strings.HasPrefix(b, a+string(filepath.Separator)) || strings.HasPrefix(a, b+string(filepath.Separator)) {
		return fmt.Errorf("source %s and destination %s are nested", a, b)
	}
	return nil
}
