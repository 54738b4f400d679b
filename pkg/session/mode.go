package session

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// CheckEnableMode 判断当前是否处于特权模式（纯读探测，不改变模式）
func (s *Session) CheckEnableMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkEnableMode(ctx)
}

func (s *Session) checkEnableMode(ctx context.Context) (bool, error) {
	if s.plat.Caps.NoEnableMode {
		return true, nil
	}
	if err := s.writeReturn(); err != nil {
		return false, err
	}
	out, err := s.readUntilPattern(ctx, s.promptPattern(), "check_enable_mode")
	if err != nil {
		return false, err
	}
	check := s.plat.Modes.EnableCheckString
	if check == "" {
		check = "#"
	}
	return strings.Contains(out, check), nil
}

// Enable 进入特权模式。设备可能连续两次询问口令（口令错误重试窗口），
// 第二次询问时重发一次密钥；仍失败按超时处理。
func (s *Session) Enable(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enable(ctx)
}

func (s *Session) enable(ctx context.Context) (string, error) {
	if s.plat.Caps.NoEnableMode {
		return "", nil
	}
	already, err := s.checkEnableMode(ctx)
	if err != nil {
		return "", err
	}
	if already {
		s.mode = ModePrivileged
		return "", nil
	}
	// 无密钥且平台提供交互式提权命令时走登录提权（ASA 的 login）
	if s.secret == "" && s.plat.LoginCommand != "" {
		return s.escalateLogin(ctx)
	}
	s.emit(EventModeAttempt, map[string]interface{}{"mode": "privileged"})

	pwdPattern := s.plat.Modes.EnablePasswordPattern
	if pwdPattern == "" {
		pwdPattern = "ssword"
	}
	pwdRe, err := regexp.Compile(pwdPattern)
	if err != nil {
		return "", err
	}
	combined := regexp.MustCompile("(?:" + pwdPattern + "|" + s.promptPattern().String() + ")")

	if err := s.writeCommand(s.plat.Modes.EnableCommand); err != nil {
		return "", err
	}
	out, err := s.readUntilPattern(ctx, combined, "enable")
	if err != nil {
		return out, s.enableReadError(out, err)
	}
	if pwdRe.MatchString(out) {
		if err := s.writeCommand(s.secret); err != nil {
			return out, err
		}
		more, err := s.readUntilPattern(ctx, combined, "enable")
		out += more
		if err != nil {
			return out, s.enableReadError(out, err)
		}
		// 第二次口令提示：恰好再发一次密钥，之后不再重试
		if pwdRe.MatchString(more) {
			if err := s.writeCommand(s.secret); err != nil {
				return out, err
			}
			more, err = s.readUntilPattern(ctx, s.promptPattern(), "enable")
			out += more
			if err != nil {
				return out, s.enableReadError(out, err)
			}
		}
	}
	enabled, err := s.checkEnableMode(ctx)
	if err != nil {
		return out, err
	}
	if !enabled {
		return out, s.enableFailure(out)
	}
	s.mode = ModePrivileged
	s.emit(EventModeConfirmed, map[string]interface{}{"mode": "privileged"})
	return out, nil
}

// enableReadError 只把读超时折算成提权失败；
// 通道断开等底层错误保留原样，调用方才能据此弃用会话
func (s *Session) enableReadError(out string, err error) error {
	var te *TimeoutError
	if errors.As(err, &te) {
		return s.enableFailure(out)
	}
	return err
}

func (s *Session) enableFailure(out string) error {
	hint := "failed to enter privileged mode"
	if s.secret == "" {
		hint = "failed to enter privileged mode. check that the secret is configured"
	}
	return &EnableModeError{Hint: hint, LastOutput: out}
}

// escalateLogin 通过交互式 login 命令提权：循环应答用户名/口令提示，
// 直到提示符变为特权终止符或尝试次数用尽。
func (s *Session) escalateLogin(ctx context.Context) (string, error) {
	var out strings.Builder
	userRe := regexp.MustCompile(s.plat.Login.UsernamePattern)
	passRe := regexp.MustCompile(s.plat.Login.PasswordPattern)
	if err := s.writeCommand(s.plat.LoginCommand); err != nil {
		return "", err
	}
	for i := 0; i < 10; i++ {
		data, err := s.readTimed(ctx, s.delayFactor, 10)
		out.WriteString(data)
		if err != nil {
			if _, ok := err.(*TimeoutError); !ok {
				return out.String(), err
			}
		}
		chunk := out.String()
		switch {
		case strings.HasSuffix(strings.TrimSpace(chunk), "#"):
			s.mode = ModePrivileged
			s.emit(EventModeConfirmed, map[string]interface{}{"mode": "privileged"})
			return out.String(), nil
		case passRe.MatchString(data):
			if err := s.writeCommand(s.password); err != nil {
				return out.String(), err
			}
		case userRe.MatchString(data):
			if err := s.writeCommand(s.username); err != nil {
				return out.String(), err
			}
		}
	}
	return out.String(), s.enableFailure(out.String())
}

// ExitEnableMode 退出特权模式回到用户模式
func (s *Session) ExitEnableMode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plat.Caps.NoEnableMode {
		return "", nil
	}
	enabled, err := s.checkEnableMode(ctx)
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", nil
	}
	if err := s.writeCommand(s.plat.Modes.DisableCommand); err != nil {
		return "", err
	}
	out, err := s.readUntilPattern(ctx, s.promptPattern(), "exit_enable_mode")
	if err != nil {
		return out, err
	}
	enabled, err = s.checkEnableMode(ctx)
	if err != nil {
		return out, err
	}
	if enabled {
		return out, &ExitModeError{Mode: "privileged", LastOutput: out}
	}
	s.mode = ModeUnprivileged
	return out, nil
}

// CheckConfigMode 判断当前是否处于配置模式（纯读探测，不改变模式）。
// 平台给出校验模式时按模式读取，否则退化为限时读取。
func (s *Session) CheckConfigMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkConfigMode(ctx)
}

func (s *Session) checkConfigMode(ctx context.Context) (bool, error) {
	if s.plat.Caps.NoConfigMode {
		return false, nil
	}
	if err := s.writeReturn(); err != nil {
		return false, err
	}
	var out string
	var err error
	if p := s.plat.Modes.ConfigCheckPattern; p != "" {
		re, cerr := regexp.Compile(p)
		if cerr != nil {
			return false, cerr
		}
		out, err = s.readUntilPattern(ctx, re, "check_config_mode")
	} else {
		out, err = s.readTimed(ctx, s.delayFactor, 10)
		if _, ok := err.(*TimeoutError); ok {
			err = nil
		}
	}
	if err != nil {
		return false, err
	}
	check := s.plat.Modes.ConfigCheckString
	if check == "" {
		check = ")#"
	}
	if strings.Contains(out, check) {
		return true, nil
	}
	if alt := s.plat.Modes.ConfigCheckAlt; alt != "" && strings.Contains(out, alt) {
		return true, nil
	}
	return false, nil
}

// ConfigMode 进入配置模式；cmd 为空时使用平台默认命令
func (s *Session) ConfigMode(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configMode(ctx, cmd)
}

func (s *Session) configMode(ctx context.Context, cmd string) (string, error) {
	if s.plat.Caps.NoConfigMode {
		return "", nil
	}
	if cmd == "" {
		cmd = s.plat.Modes.ConfigEnterCommand
	}
	// 无进入命令的平台（fortinet 等）由配置命令本身进入配置态，进入是空操作
	if cmd == "" {
		return "", nil
	}
	in, err := s.checkConfigMode(ctx)
	if err != nil {
		return "", err
	}
	if in {
		s.mode = ModeConfiguration
		return "", nil
	}
	s.emit(EventModeAttempt, map[string]interface{}{"mode": "configuration"})
	pattern := s.plat.Modes.ConfigEnterPattern
	if pattern == "" {
		pattern = s.promptPattern().String()
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	if err := s.writeCommand(cmd); err != nil {
		return "", err
	}
	out, err := s.readUntilPattern(ctx, re, "config_mode")
	if err != nil {
		return out, &ConfigModeError{Command: cmd, LastOutput: out}
	}
	in, err = s.checkConfigMode(ctx)
	if err != nil {
		return out, err
	}
	if !in {
		return out, &ConfigModeError{Command: cmd, LastOutput: out}
	}
	s.mode = ModeConfiguration
	s.emit(EventModeConfirmed, map[string]interface{}{"mode": "configuration"})
	return out, nil
}

// ExitConfigMode 退出配置模式；不在配置模式时为空操作
func (s *Session) ExitConfigMode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitConfigMode(ctx)
}

func (s *Session) exitConfigMode(ctx context.Context) (string, error) {
	if s.plat.Caps.NoConfigMode {
		return "", nil
	}
	in, err := s.checkConfigMode(ctx)
	if err != nil {
		return "", err
	}
	if !in {
		return "", nil
	}
	cmd := s.plat.Modes.ConfigExitCommand
	if cmd == "" {
		cmd = "end"
	}
	pattern := s.plat.Modes.ConfigExitPattern
	if pattern == "" {
		pattern = s.promptPattern().String()
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	if err := s.writeCommand(cmd); err != nil {
		return "", err
	}
	out, err := s.readUntilPattern(ctx, re, "exit_config_mode")
	if err != nil {
		return out, err
	}
	in, err = s.checkConfigMode(ctx)
	if err != nil {
		return out, err
	}
	if in {
		return out, &ExitModeError{Mode: "configuration", LastOutput: out}
	}
	if s.mode == ModeConfiguration {
		s.mode = ModePrivileged
	}
	return out, nil
}
