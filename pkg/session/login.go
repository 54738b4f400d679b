package session

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// TelnetLogin 无带内认证传输（Telnet/串口）上的交互式登录：
// 循环应答用户名/口令提示，直到出现任一提示符终止符。
// 口令未配置的设备会打印 "assword required, but none set"，直接判定认证失败。
func (s *Session) TelnetLogin(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userPattern := s.plat.Login.UsernamePattern
	if userPattern == "" {
		userPattern = `(?:user:|username|login|user name)`
	}
	pwdPattern := s.plat.Login.PasswordPattern
	if pwdPattern == "" {
		pwdPattern = `assword`
	}
	noPwd := s.plat.Login.NoPasswordPattern
	if noPwd == "" {
		noPwd = "assword required, but none set"
	}
	userRe, err := regexp.Compile("(?i)" + userPattern)
	if err != nil {
		return "", err
	}
	pwdRe, err := regexp.Compile("(?i)" + pwdPattern)
	if err != nil {
		return "", err
	}

	if err := s.sleep(ctx, s.scale(time.Second)); err != nil {
		return "", err
	}
	var collected strings.Builder
	maxLoops := 20
	for i := 0; i < maxLoops; i++ {
		output, err := s.readChannel()
		collected.WriteString(output)
		if err != nil {
			return collected.String(), err
		}
		if strings.Contains(output, noPwd) {
			return collected.String(), &AuthenticationError{Host: s.host, Reason: "device has no password configured"}
		}
		// 终端服务器刚加电时会进入初始配置向导，回答 no 退出
		if strings.Contains(output, "initial configuration dialog") {
			if err := s.writeCommand("no"); err != nil {
				return collected.String(), err
			}
			if err := s.sleep(ctx, s.scale(time.Second)); err != nil {
				return collected.String(), err
			}
			continue
		}
		if userRe.MatchString(output) {
			if err := s.writeCommand(s.username); err != nil {
				return collected.String(), err
			}
			if err := s.sleep(ctx, s.scale(time.Second)); err != nil {
				return collected.String(), err
			}
			output, err = s.readChannel()
			collected.WriteString(output)
			if err != nil {
				return collected.String(), err
			}
		}
		if pwdRe.MatchString(output) {
			if err := s.writeCommand(s.password); err != nil {
				return collected.String(), err
			}
			if err := s.sleep(ctx, s.scale(500*time.Millisecond)); err != nil {
				return collected.String(), err
			}
			output, err = s.readChannel()
			collected.WriteString(output)
			if err != nil {
				return collected.String(), err
			}
		}
		if s.loginDone(output) {
			return collected.String(), nil
		}
		if err := s.writeReturn(); err != nil {
			return collected.String(), err
		}
		if err := s.sleep(ctx, s.scale(500*time.Millisecond)); err != nil {
			return collected.String(), err
		}
	}
	// 最后一搏：再发一次回车看是否已经落在提示符上
	if err := s.writeReturn(); err != nil {
		return collected.String(), err
	}
	if err := s.sleep(ctx, s.scale(500*time.Millisecond)); err != nil {
		return collected.String(), err
	}
	output, err := s.readChannel()
	collected.WriteString(output)
	if err != nil {
		return collected.String(), err
	}
	if s.loginDone(output) {
		return collected.String(), nil
	}
	return collected.String(), &AuthenticationError{Host: s.host, Reason: "login prompt loop exhausted"}
}

// loginDone 输出中出现任一提示符终止符即视为登录完成
func (s *Session) loginDone(output string) bool {
	for _, t := range s.plat.Prompt.Terminators {
		if strings.Contains(output, t) {
			return true
		}
	}
	for _, t := range s.plat.Prompt.AltTerminators {
		if strings.Contains(output, t) {
			return true
		}
	}
	return false
}
