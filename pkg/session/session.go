package session

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/clipilot/clipilot/pkg/transport"
)

// Mode 会话当前模式
type Mode int

const (
	ModeUnprivileged Mode = iota
	ModePrivileged
	ModeConfiguration
)

func (m Mode) String() string {
	switch m {
	case ModePrivileged:
		return "privileged"
	case ModeConfiguration:
		return "configuration"
	default:
		return "unprivileged"
	}
}

// 读循环时间常量：单次休眠量子与静默确认休眠，均按 delayFactor 缩放
const (
	loopDelay    = 100 * time.Millisecond
	confirmDelay = 2 * time.Second
)

// Options 会话参数
type Options struct {
	// DelayFactor 所有时间常量的统一缩放系数；<=0 取 1
	DelayFactor float64
	// Timeout 单次读操作的墙钟预算；决定默认循环上限 timeout/0.1s
	Timeout time.Duration
	// FastMode 跳过回显校验、允许连发写入（fast_cli）
	FastMode bool
	// Secret 特权模式密码
	Secret string
	// Username/Password 交互式登录（Telnet/串口/login提权）凭据
	Username string
	Password string
	// ReturnChar 行结束符；Telnet 下通常为 "\r\n"，默认 "\n"
	ReturnChar string
	// Events 观测事件接收端；nil 使用 LogSink
	Events EventSink
	// Host 仅用于错误与事件标注
	Host string
}

// Session 一台设备的交互式CLI会话。
// 所有读写严格串行，mu 保证多调用方共享同一会话时不会交叉写入。
type Session struct {
	mu   sync.Mutex
	ch   transport.Channel
	plat *driver.Platform

	basePrompt  string
	mode        Mode
	delayFactor float64
	timeout     time.Duration
	fastMode    bool
	secret      string
	username    string
	password    string
	returnChar  string
	host        string
	events      EventSink

	// synced 为 false 时流位置不可信（批次中途取消等），
	// 下一次命令前必须重新定位提示符
	synced bool
	alive  bool
}

// New 创建会话；plat 为 nil 时使用 default 驱动
func New(ch transport.Channel, plat *driver.Platform, opts *Options) *Session {
	if plat == nil {
		plat = driver.Get("default")
	}
	if opts == nil {
		opts = &Options{}
	}
	df := opts.DelayFactor
	if df <= 0 {
		df = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ret := opts.ReturnChar
	if ret == "" {
		ret = "\n"
	}
	events := opts.Events
	if events == nil {
		events = LogSink{}
	}
	return &Session{
		ch:          ch,
		plat:        plat,
		delayFactor: df,
		timeout:     timeout,
		fastMode:    opts.FastMode,
		secret:      opts.Secret,
		username:    opts.Username,
		password:    opts.Password,
		returnChar:  ret,
		host:        opts.Host,
		events:      events,
		alive:       true,
	}
}

// Platform 返回会话绑定的驱动数据
func (s *Session) Platform() *driver.Platform { return s.plat }

// BasePrompt 返回已定位的基准提示符（主机名，不含终止符）
func (s *Session) BasePrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basePrompt
}

// CurrentMode 返回最近一次模式切换后的缓存模式
func (s *Session) CurrentMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Alive 会话是否仍可用（传输未断开且未被放弃）
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Prepare 会话建立后的准备流程：横幅应答、通道探活、准备命令、
// 基准提示符定位、关闭分页、清空缓冲。
func (s *Session) Prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.answerBanners(ctx); err != nil {
		return err
	}
	// 探活：读到任一终止符说明通道已就绪
	if _, err := s.readUntilPattern(ctx, s.promptPattern(), "session_preparation"); err != nil {
		return err
	}
	// 部分设备用户模式下连 show 命令都受限，准备阶段直接提权
	if s.plat.Caps.EnableOnPrep {
		if _, err := s.enable(ctx); err != nil {
			return err
		}
	}
	if err := s.runPrepCommands(ctx); err != nil {
		return err
	}
	if err := s.setBasePrompt(ctx); err != nil {
		return err
	}
	if err := s.disablePaging(ctx); err != nil {
		return err
	}
	if err := s.sleep(ctx, s.scale(300*time.Millisecond)); err != nil {
		return err
	}
	return s.clearBuffer()
}

// runPrepCommands 执行平台准备命令。用户模式下会被设备拒绝的命令
// （adtran 的 "no events" 等）只在特权模式下发送。
func (s *Session) runPrepCommands(ctx context.Context) error {
	if len(s.plat.SessionPrepCommands) == 0 {
		return nil
	}
	if !s.plat.Caps.NoEnableMode && s.mode != ModePrivileged {
		enabled, err := s.checkEnableMode(ctx)
		if err != nil {
			return err
		}
		if !enabled {
			return nil
		}
	}
	for _, cmd := range s.plat.SessionPrepCommands {
		if err := s.writeCommand(cmd); err != nil {
			return err
		}
		if _, err := s.readTimed(ctx, s.delayFactor, 0); err != nil {
			return err
		}
	}
	return nil
}

// answerBanners 处理登录后横幅确认（如 Fortinet post-login-banner 按 'a' 接受）
func (s *Session) answerBanners(ctx context.Context) error {
	if len(s.plat.AutoResponses) == 0 {
		return nil
	}
	var seen string
	for count := 0; count < 30; count++ {
		data, err := s.readChannel()
		if err != nil {
			return err
		}
		seen += data
		answered := false
		for _, ar := range s.plat.AutoResponses {
			if strings.Contains(seen, ar.Expect) {
				if err := s.writeChannel(ar.Send + "\r"); err != nil {
					return err
				}
				answered = true
				break
			}
		}
		if answered {
			break
		}
		if err := s.sleep(ctx, s.scale(330*time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

// disablePaging 按驱动数据关闭分页：单条命令或配置批次二选一
func (s *Session) disablePaging(ctx context.Context) error {
	if cmd := s.plat.Paging.SingleCommand; cmd != "" {
		_, err := s.sendCommand(ctx, cmd, "")
		return err
	}
	if len(s.plat.Paging.Disable) == 0 {
		return nil
	}
	// 分页开关需要特权模式；命令序列自带配置模式导航
	if _, err := s.enable(ctx); err != nil {
		return err
	}
	if err := s.sleep(ctx, s.scale(loopDelay)); err != nil {
		return err
	}
	if err := s.clearBuffer(); err != nil {
		return err
	}
	opts := ConfigSetOptions{
		EnterConfigMode: false,
		ExitConfigMode:  true,
		CmdVerify:       false,
		DelayFactor:     0.25,
	}
	_, err := s.sendConfigSet(ctx, s.plat.Paging.Disable, opts)
	return err
}

// RestorePaging 恢复分页（终端交接给人工前调用）
func (s *Session) RestorePaging(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restorePaging(ctx)
}

func (s *Session) restorePaging(ctx context.Context) error {
	if len(s.plat.Paging.Enable) == 0 {
		return nil
	}
	if _, err := s.enable(ctx); err != nil {
		return err
	}
	opts := ConfigSetOptions{
		EnterConfigMode: false,
		ExitConfigMode:  true,
		CmdVerify:       false,
		DelayFactor:     0.25,
	}
	_, err := s.sendConfigSet(ctx, s.plat.Paging.Enable, opts)
	return err
}

// SendCommand 发送单条命令并读取到期望模式或提示符为止。
// expect 为空时使用基准提示符与终止符组合的默认模式。
func (s *Session) SendCommand(ctx context.Context, cmd string, expect string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendCommand(ctx, cmd, expect)
}

func (s *Session) sendCommand(ctx context.Context, cmd string, expect string) (string, error) {
	if err := s.resync(ctx); err != nil {
		return "", err
	}
	pattern := expect
	if pattern == "" {
		pattern = s.responsePattern()
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	if err := s.writeCommand(cmd); err != nil {
		return "", err
	}
	s.emit(EventCommandSent, map[string]interface{}{"command": cmd})
	out, err := s.readUntilPattern(ctx, re, "send_command")
	if err != nil {
		return out, err
	}
	out = s.sanitizeOutput(out, cmd)
	// 多上下文切换等命令会更换主机名，基准提示符随之失效
	for _, marker := range s.plat.RefreshPromptOn {
		if strings.Contains(cmd, marker) {
			if err := s.setBasePrompt(ctx); err != nil {
				return out, err
			}
			break
		}
	}
	return out, nil
}

// SendCommandTiming 发送单条命令并限时收集输出（无提示符匹配）
func (s *Session) SendCommandTiming(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resync(ctx); err != nil {
		return "", err
	}
	if err := s.writeCommand(cmd); err != nil {
		return "", err
	}
	s.emit(EventCommandSent, map[string]interface{}{"command": cmd})
	out, err := s.readTimed(ctx, s.delayFactor, 0)
	if err != nil {
		return out, err
	}
	return s.sanitizeOutput(out, cmd), nil
}

// SaveConfig 保存运行配置（驱动数据决定命令与确认交互）
func (s *Session) SaveConfig(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plat.Save.Command == "" {
		return "", &ConfigModeError{Command: "save", LastOutput: "save_config not supported on " + s.plat.Name}
	}
	if _, err := s.enable(ctx); err != nil {
		return "", err
	}
	if s.plat.Save.Confirm {
		out, err := s.sendCommandTimingLocked(ctx, s.plat.Save.Command)
		if err != nil {
			return out, err
		}
		resp := s.plat.Save.ConfirmResponse
		if resp == "" {
			resp = s.returnChar
		}
		more, err := s.sendCommandTimingLocked(ctx, resp)
		return out + more, err
	}
	return s.sendCommand(ctx, s.plat.Save.Command, "")
}

// Reload 重启设备；save 为真时先保存。读到重启标记即返回。
func (s *Session) Reload(ctx context.Context, save bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := s.plat.Reload.NoSaveCommand
	if save {
		cmd = s.plat.Reload.SaveCommand
	}
	if cmd == "" {
		return "", &ConfigModeError{Command: "reload", LastOutput: "reload not supported on " + s.plat.Name}
	}
	if _, err := s.enable(ctx); err != nil {
		return "", err
	}
	if s.plat.Reload.Message != "" {
		re, err := regexp.Compile(regexp.QuoteMeta(s.plat.Reload.Message))
		if err != nil {
			return "", err
		}
		if err := s.writeCommand(cmd); err != nil {
			return "", err
		}
		out, err := s.readUntilPattern(ctx, re, "reload")
		// 设备即将断链，会话不再可信
		s.alive = false
		s.synced = false
		return out, err
	}
	out, err := s.sendCommandTimingLocked(ctx, cmd)
	s.alive = false
	s.synced = false
	return out, err
}

// Cleanup 优雅收尾：尽力退出配置模式，再发送最终退出命令。
// 任何一步失败都不阻断后续步骤。
func (s *Session) Cleanup(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.restorePaging(ctx)
	_, _ = s.exitConfigMode(ctx)
	exits := s.plat.ExitCommands
	if len(exits) == 0 {
		exits = []string{"exit"}
	}
	for _, ec := range exits {
		_ = s.writeCommand(ec)
		_ = s.sleep(ctx, 150*time.Millisecond)
	}
}

// Disconnect 收尾并关闭传输通道
func (s *Session) Disconnect(ctx context.Context) error {
	s.Cleanup(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.emit(EventSessionClosed, nil)
	return s.ch.Close()
}

// Abandon 放弃会话（外部取消后调用）：不再发送任何字节，仅标记不可用
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	s.synced = false
}

// resync 流位置不可信时重新定位提示符（批次中途取消后的防护）
func (s *Session) resync(ctx context.Context) error {
	if s.synced {
		return nil
	}
	_, err := s.findPrompt(ctx)
	return err
}

func (s *Session) sendCommandTimingLocked(ctx context.Context, cmd string) (string, error) {
	if err := s.writeCommand(cmd); err != nil {
		return "", err
	}
	out, err := s.readTimed(ctx, s.delayFactor, 0)
	if err != nil {
		return out, err
	}
	return s.sanitizeOutput(out, cmd), nil
}

// ---- 低层读写与文本处理 ----

func (s *Session) writeChannel(data string) error {
	if err := s.ch.Write([]byte(data)); err != nil {
		s.alive = false
		return &ChannelClosedError{Detail: "write failed"}
	}
	return nil
}

func (s *Session) writeCommand(cmd string) error {
	return s.writeChannel(strings.TrimRight(cmd, "\r\n") + s.returnChar)
}

func (s *Session) writeReturn() error {
	return s.writeChannel(s.returnChar)
}

// readChannel 非阻塞取走当前已缓冲的全部字节
func (s *Session) readChannel() (string, error) {
	data, err := s.ch.ReadAvailable()
	if err != nil {
		s.alive = false
		return string(data), &ChannelClosedError{LastOutput: string(data)}
	}
	return string(data), nil
}

// clearBuffer 丢弃滞留字节，避免泄漏进下一次读取
func (s *Session) clearBuffer() error {
	_, err := s.readChannel()
	return err
}

func (s *Session) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) * s.delayFactor)
}

// sleep 可取消休眠：每个休眠点同时是调度让出点
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.synced = false
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) emit(event string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if s.host != "" {
		fields["host"] = s.host
	}
	fields["platform"] = s.plat.Name
	s.events.Emit(event, fields)
}

// promptPattern 终止符集合的正则（主+备用），匹配任意位置
func (s *Session) promptPattern() *regexp.Regexp {
	terms := make([]string, 0, len(s.plat.Prompt.Terminators)+len(s.plat.Prompt.AltTerminators))
	for _, t := range s.plat.Prompt.AltTerminators {
		terms = append(terms, regexp.QuoteMeta(t))
	}
	for _, t := range s.plat.Prompt.Terminators {
		terms = append(terms, regexp.QuoteMeta(t))
	}
	if len(terms) == 0 {
		terms = []string{">", "#"}
	}
	return regexp.MustCompile("(?:" + strings.Join(terms, "|") + ")")
}

// responsePattern 单条命令的默认终止模式：基准提示符或任一终止符
func (s *Session) responsePattern() string {
	if s.basePrompt != "" {
		return "(?:" + regexp.QuoteMeta(s.basePrompt) + "|" + s.promptPattern().String() + ")"
	}
	return s.promptPattern().String()
}

// normalizeLinefeeds 统一换行：CRLF -> LF，孤立 CR 丢弃
func normalizeLinefeeds(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "")
}

// stripAnsi 过滤 ANSI 控制序列与不可见控制符，保留制表符
func stripAnsi(s string) string {
	b := make([]byte, 0, len(s))
	skip := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if skip {
			// CSI 序列以字母结尾
			if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') {
				skip = false
			}
			continue
		}
		if ch == 0x1b {
			skip = true
			continue
		}
		if ch < 0x20 && ch != '\t' && ch != '\n' && ch != '\r' {
			continue
		}
		b = append(b, ch)
	}
	return string(b)
}

// sanitizeOutput 输出清洗：去控制序列、统一换行、剥离命令回显与尾部提示符
func (s *Session) sanitizeOutput(output, cmd string) string {
	out := normalizeLinefeeds(stripAnsi(output))
	lines := strings.Split(out, "\n")
	// 剥离行首的命令回显
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		cmdTrim := strings.TrimSpace(cmd)
		if cmdTrim != "" && (first == cmdTrim || strings.HasSuffix(first, cmdTrim)) {
			lines = lines[1:]
		}
	}
	// 剥离尾部的提示符行
	if len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if s.basePrompt != "" && strings.HasPrefix(last, s.basePrompt) {
			lines = lines[:len(lines)-1]
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n")
}
