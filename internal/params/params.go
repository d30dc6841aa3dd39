// Package params 任务参数的解析与序列化
//
// 每种任务类型对应一个 Schema。TaskRun 只保存序列化后的参数串，
// 解析与校验都在这里完成。
package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/containerd/errdefs"
	"gopkg.in/yaml.v3"
)

// Params 解析后的参数
type Params map[string]string

// Get 读取参数
func (p Params) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Keys 返回排序后的参数名
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Args 还原为命令行形式
func (p Params) Args() []string {
	out := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		out = append(out, "--"+k+"="+p[k])
	}
	return out
}

// Schema 参数模式
type Schema interface {
	// Parse 解析命令行形式的参数
	Parse(args []string) (Params, error)
	// Serialize 序列化为持久化的参数串
	Serialize(p Params) (string, error)
	// Deserialize 从参数串还原
	Deserialize(s string) (Params, error)
}

// FlagSchema 基于 --key=value 的参数模式，序列化为 YAML
type FlagSchema struct {
	// Name 模式名称，出现在错误信息中
	Name string

	// Required 必填参数
	Required []string

	// Defaults 未提供时的默认值
	Defaults map[string]string

	// Known 允许的参数名，为空表示不限制
	Known []string
}

// Parse 支持 --key=value、--key value 和 --flag 三种写法
func (s *FlagSchema) Parse(args []string) (Params, error) {
	p := make(Params, len(args)+len(s.Defaults))
	for k, v := range s.Defaults {
		p[k] = v
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return nil, s.invalid("unexpected positional argument %q", arg)
		}
		name := strings.TrimLeft(arg, "-")
		if name == "" {
			return nil, s.invalid("empty flag name")
		}

		if key, value, ok := strings.Cut(name, "="); ok {
			p[key] = value
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			p[name] = args[i+1]
			i++
			continue
		}
		p[name] = "true"
	}

	if err := s.validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Serialize 实现 Schema
func (s *FlagSchema) Serialize(p Params) (string, error) {
	if err := s.validate(p); err != nil {
		return "", err
	}
	if len(p) == 0 {
		return "", nil
	}
	data, err := yaml.Marshal(map[string]string(p))
	if err != nil {
		return "", fmt.Errorf("failed to serialize %s params: %w", s.Name, err)
	}
	return string(data), nil
}

// Deserialize 实现 Schema，空串得到空参数
func (s *FlagSchema) Deserialize(str string) (Params, error) {
	p := Params{}
	if strings.TrimSpace(str) == "" {
		return p, nil
	}
	if err := yaml.Unmarshal([]byte(str), &p); err != nil {
		return nil, s.invalid("malformed param string: %v", err)
	}
	return p, nil
}

func (s *FlagSchema) validate(p Params) error {
	for _, key := range s.Required {
		if v, ok := p[key]; !ok || v == "" {
			return s.invalid("missing required param %q", key)
		}
	}
	if len(s.Known) == 0 {
		return nil
	}
	known := make(map[string]bool, len(s.Known))
	for _, k := range s.Known {
		known[k] = true
	}
	for _, k := range p.Keys() {
		if !known[k] {
			return s.invalid("unknown param %q", k)
		}
	}
	return nil
}

func (s *FlagSchema) invalid(format string, args ...any) error {
	return fmt.Errorf("%s params: %s: %w", s.Name, fmt.Sprintf(format, args...), errdefs.ErrInvalidArgument)
}
