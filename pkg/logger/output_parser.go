package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputPreview 取设备输出的头尾各 maxLines 行，中间省略。
// 设备输出动辄上千行，日志里只留首尾足以定位问题
func OutputPreview(output string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = 5
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.ReplaceAll(output, "\r", "\n")
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) <= maxLines*2 {
		return strings.Join(lines, " | ")
	}
	head := strings.Join(lines[:maxLines], " | ")
	tail := strings.Join(lines[len(lines)-maxLines:], " | ")
	return head + " ... " + tail
}

// DebugCommandOutput 在 debug 级别记录命令输出摘要
func DebugCommandOutput(host, command, output string) {
	if GetLogger().Level < logrus.DebugLevel {
		return
	}
	preview := OutputPreview(output, 5)
	if preview == "" {
		return
	}
	GetLogger().WithFields(logrus.Fields{
		"host":    host,
		"command": command,
		"output":  preview,
	}).Debug("command output")
}
