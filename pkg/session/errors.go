package session

import (
	"fmt"

	"github.com/clipilot/clipilot/pkg/transport"
)

// TimeoutError 限时读取在循环预算内未满足终止条件。
// LastOutput 保留已读到的设备文本，提示符/时序错位是最常见的现场故障，
// 没有原始输出无法定位。
type TimeoutError struct {
	Op         string
	Pattern    string
	LastOutput string
}

func (e *TimeoutError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("timeout in %s: pattern %q not detected, last output: %q", e.Op, e.Pattern, tail(e.LastOutput))
	}
	return fmt.Sprintf("timeout in %s, last output: %q", e.Op, tail(e.LastOutput))
}

// PromptNotFoundError 提示符定位耗尽重试；LastOutput 是最后一次读到的原始文本
type PromptNotFoundError struct {
	LastOutput string
}

func (e *PromptNotFoundError) Error() string {
	return fmt.Sprintf("unable to find prompt: %q", tail(e.LastOutput))
}

// EnableModeError 进入/确认特权模式失败
type EnableModeError struct {
	Hint       string
	LastOutput string
}

func (e *EnableModeError) Error() string {
	return fmt.Sprintf("failed to enter enable mode: %s (last output: %q)", e.Hint, tail(e.LastOutput))
}

// ConfigModeError 进入配置模式后校验失败
type ConfigModeError struct {
	Command    string
	LastOutput string
}

func (e *ConfigModeError) Error() string {
	return fmt.Sprintf("failed to enter configuration mode via %q (last output: %q)", e.Command, tail(e.LastOutput))
}

// ExitModeError 退出特权/配置模式后模式标记仍在
type ExitModeError struct {
	Mode       string
	LastOutput string
}

func (e *ExitModeError) Error() string {
	return fmt.Sprintf("failed to exit %s mode (last output: %q)", e.Mode, tail(e.LastOutput))
}

// ConfigRejectedError 配置批次中某条命令的输出命中错误标记；
// 批次立即中止，Command 之后的命令不会下发
type ConfigRejectedError struct {
	Command string
	Output  string
}

func (e *ConfigRejectedError) Error() string {
	return fmt.Sprintf("invalid input detected at command %q (output: %q)", e.Command, tail(e.Output))
}

// AuthenticationError 交互式登录未能建立会话
type AuthenticationError struct {
	Host   string
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("login failed for %s: %s", e.Host, e.Reason)
}

// ChannelClosedError 传输层断开；包装 transport.ErrChannelClosed 以便 errors.Is 判断
type ChannelClosedError struct {
	Detail     string
	LastOutput string
}

func (e *ChannelClosedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("channel closed: %s (last output: %q)", e.Detail, tail(e.LastOutput))
	}
	return "channel closed"
}

func (e *ChannelClosedError) Unwrap() error {
	return transport.ErrChannelClosed
}

// tail 截取错误信息中携带的设备输出尾部，避免告警刷屏撑爆错误串
func tail(s string) string {
	const max = 256
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
