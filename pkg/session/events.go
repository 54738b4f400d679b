package session

import "github.com/clipilot/clipilot/pkg/logger"

// 引擎的观测事件类型
const (
	EventPromptFound   = "prompt_found"
	EventModeAttempt   = "mode_attempt"
	EventModeConfirmed = "mode_confirmed"
	EventCommandSent   = "command_sent"
	EventEchoVerified  = "echo_verified"
	EventBatchAborted  = "batch_aborted"
	EventSessionClosed = "session_closed"
)

// EventSink 观测边界：引擎只向该接口发事件，不直接依赖日志后端
type EventSink interface {
	Emit(event string, fields map[string]interface{})
}

// NopSink 丢弃全部事件
type NopSink struct{}

func (NopSink) Emit(string, map[string]interface{}) {}

// LogSink 默认实现：转发到全局日志（debug级别）
type LogSink struct{}

func (LogSink) Emit(event string, fields map[string]interface{}) {
	entry := logger.WithField("event", event)
	for k, v := range fields {
		entry = entry.WithField(k, v)
	}
	entry.Debug("session event")
}
