// Package confirm 破坏性操作前的用户确认
//
// 决策（是否允许覆盖）与执行（目录复制）分离：
// 交互式调用方使用 Prompt，自动化调用方注入 Always(true) / Always(false)。
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Confirmer 向用户展示是/否问题
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Func 函数适配器
type Func func(ctx context.Context, message string) (bool, error)

func (f Func) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Always 返回固定答案的 Confirmer，用于非交互场景
func Always(answer bool) Confirmer {
	return Func(func(ctx context.Context, _ string) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return answer, nil
	})
}

// Prompt 从终端读取 y/n 回答
//
// 所有 Confirm 调用共享同一个读取协程：ctx 取消后已读到的行留给下一次 Confirm，不会丢失。
// Prompt 创建后不可复制。
type Prompt struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewPrompt 创建终端确认器
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{In: in, Out: out}
}

// readLines 逐行读取 In，读到错误（含 EOF）后关闭 lines
func (p *Prompt) readLines() {
	defer close(p.lines)
	r := bufio.NewReader(p.In)
	for {
		line, err := r.ReadString('\n')
		if line != "" || err == nil {
			p.lines <- lineResult{line: line}
		}
		if err != nil {
			if err != io.EOF {
				p.lines <- lineResult{err: err}
			}
			return
		}
	}
}

// Confirm 打印提示并阻塞等待输入，ctx 取消时立即返回；输入结束视为拒绝
func (p *Prompt) Confirm(ctx context.Context, message string) (bool, error) {
	p.once.Do(func() {
		p.lines = make(chan lineResult)
		go p.readLines()
	})

	fmt.Fprintf(p.Out, "%s\nContinue? [y/N]: ", message)

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return false, nil
		}
		if r.err != nil {
			return false, fmt.Errorf("read confirmation: %w", r.err)
		}
		switch strings.ToLower(strings.TrimSpace(r.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
