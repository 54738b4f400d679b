package session

import (
	"context"
	"regexp"
	"strings"
)

// ConfigSetOptions 配置批次下发参数
type ConfigSetOptions struct {
	// EnterConfigMode/ExitConfigMode 批次前后是否导航配置模式
	EnterConfigMode bool
	ExitConfigMode  bool
	// ConfigModeCommand 覆盖平台默认的进入配置模式命令
	ConfigModeCommand string
	// CmdVerify 逐条校验命令回显；关闭时退化为限时读取
	CmdVerify bool
	// ErrorPattern 命中即中止批次的错误标记（正则）；
	// 仅在 CmdVerify 关闭的限时策略下生效
	ErrorPattern string
	// DelayFactor 批次内读取的时间缩放，0 沿用会话值
	DelayFactor float64
	// MaxLoops 单条命令读取循环上限，0 使用默认
	MaxLoops int
}

// ConfigSetDefaults 按平台能力生成默认批次参数
func (s *Session) ConfigSetDefaults() ConfigSetOptions {
	return ConfigSetOptions{
		EnterConfigMode: true,
		ExitConfigMode:  true,
		CmdVerify:       s.plat.Caps.CmdVerify && !s.fastMode,
		ErrorPattern:    s.plat.ErrorPattern,
	}
}

// SendConfigSet 下发配置批次。三种策略：
//   - 连发（fastMode 且平台声明耐受）：全部命令一次性写入后整体限时读取；
//   - 限时逐条：每条命令写入后限时读取，可选错误标记即时中止；
//   - 回显校验（默认）：每条命令先等回显、再等尾随提示符，之后才发下一条。
//
// ctx 取消在命令间生效，已发出的命令不可撤回；取消后会话失去同步，
// 下一次命令前会自动重新定位提示符。
func (s *Session) SendConfigSet(ctx context.Context, cmds []string, opts ConfigSetOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendConfigSet(ctx, cmds, opts)
}

func (s *Session) sendConfigSet(ctx context.Context, cmds []string, opts ConfigSetOptions) (string, error) {
	if len(cmds) == 0 {
		return "", nil
	}
	df := opts.DelayFactor
	if df <= 0 {
		df = s.delayFactor
	}
	var out strings.Builder
	if opts.EnterConfigMode {
		o, err := s.configMode(ctx, opts.ConfigModeCommand)
		out.WriteString(o)
		if err != nil {
			return out.String(), err
		}
	}

	var batchErr error
	switch {
	case s.fastMode && s.plat.Caps.FastBurst && opts.ErrorPattern == "" && !opts.CmdVerify:
		batchErr = s.configSetBurst(ctx, cmds, df, opts.MaxLoops, &out)
	case !opts.CmdVerify:
		batchErr = s.configSetTiming(ctx, cmds, df, opts.MaxLoops, opts.ErrorPattern, &out)
	default:
		batchErr = s.configSetVerified(ctx, cmds, df, &out)
	}
	if batchErr != nil {
		if _, rejected := batchErr.(*ConfigRejectedError); !rejected {
			return out.String(), batchErr
		}
		// 配置被拒：尽力退出配置模式后把拒绝错误原样上抛
		s.emit(EventBatchAborted, map[string]interface{}{"error": batchErr.Error()})
		if opts.ExitConfigMode {
			o, _ := s.exitConfigMode(ctx)
			out.WriteString(o)
		}
		return out.String(), batchErr
	}

	if opts.ExitConfigMode {
		o, err := s.exitConfigMode(ctx)
		out.WriteString(o)
		if err != nil {
			return out.String(), err
		}
	}
	return normalizeLinefeeds(stripAnsi(out.String())), nil
}

// configSetBurst 连发策略：全部写入后整体收取
func (s *Session) configSetBurst(ctx context.Context, cmds []string, df float64, maxLoops int, out *strings.Builder) error {
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			s.synced = false
			return err
		}
		if err := s.writeCommand(cmd); err != nil {
			return err
		}
		s.emit(EventCommandSent, map[string]interface{}{"command": cmd})
	}
	data, err := s.readTimed(ctx, df, maxLoops)
	out.WriteString(data)
	if _, ok := err.(*TimeoutError); ok {
		return nil
	}
	return err
}

// configSetTiming 限时逐条策略：每条限时收取，错误标记即时中止
func (s *Session) configSetTiming(ctx context.Context, cmds []string, df float64, maxLoops int, errorPattern string, out *strings.Builder) error {
	var errRe *regexp.Regexp
	if errorPattern != "" {
		var err error
		errRe, err = regexp.Compile(errorPattern)
		if err != nil {
			return err
		}
	}
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			s.synced = false
			return err
		}
		if err := s.writeCommand(cmd); err != nil {
			return err
		}
		s.emit(EventCommandSent, map[string]interface{}{"command": cmd})
		data, err := s.readTimedOrError(ctx, df, maxLoops)
		out.WriteString(data)
		if err != nil {
			if _, ok := err.(*TimeoutError); !ok {
				return err
			}
		}
		if errRe != nil && errRe.MatchString(normalizeLinefeeds(data)) {
			return &ConfigRejectedError{Command: cmd, Output: data}
		}
	}
	return nil
}

// configSetVerified 回显校验策略：每条命令先等回显、再等尾随提示符。
// 快速缓冲的设备可能先吐回显、晚吐提示符，不等提示符就发下一条
// 会让命令与输出逐条错位。
func (s *Session) configSetVerified(ctx context.Context, cmds []string, df float64, out *strings.Builder) error {
	promptRe := s.promptPattern()
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			s.synced = false
			return err
		}
		if err := s.writeCommand(cmd); err != nil {
			return err
		}
		s.emit(EventCommandSent, map[string]interface{}{"command": cmd})
		echoRe, err := regexp.Compile(regexp.QuoteMeta(strings.TrimSpace(cmd)))
		if err != nil {
			return err
		}
		data, err := s.readUntilPattern(ctx, echoRe, "config_cmd_verify")
		out.WriteString(data)
		if err != nil {
			return err
		}
		// 回显读取往往顺带捎上了提示符；没捎上时单独再等一次
		if !promptRe.MatchString(normalizeLinefeeds(data)) {
			more, err := s.readUntilPattern(ctx, promptRe, "config_cmd_prompt")
			out.WriteString(more)
			if err != nil {
				return err
			}
		}
		s.emit(EventEchoVerified, map[string]interface{}{"command": cmd})
	}
	return nil
}
