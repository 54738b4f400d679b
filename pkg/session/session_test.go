package session

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/clipilot/clipilot/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptChannel 按写入次序应答的假通道：第 n 次写入把 replies[n] 放入读缓冲
type scriptChannel struct {
	mu      sync.Mutex
	pending bytes.Buffer
	replies []string
	writes  []string
	closed  bool
}

func (c *scriptChannel) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrChannelClosed
	}
	idx := len(c.writes)
	c.writes = append(c.writes, string(data))
	if idx < len(c.replies) {
		c.pending.WriteString(c.replies[idx])
	}
	return nil
}

func (c *scriptChannel) ReadAvailable() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending.Len() == 0 {
		if c.closed {
			return nil, transport.ErrChannelClosed
		}
		return nil, nil
	}
	out := make([]byte, c.pending.Len())
	copy(out, c.pending.Bytes())
	c.pending.Reset()
	return out, nil
}

func (c *scriptChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptChannel) writtenCommands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	copy(out, c.writes)
	return out
}

// stepChannel 按读取次序出数据的假通道：第 n 次读返回 steps[n]，与写入无关
type stepChannel struct {
	mu     sync.Mutex
	steps  []string
	i      int
	writes []string
}

func (c *stepChannel) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *stepChannel) ReadAvailable() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.i < len(c.steps) {
		out := c.steps[c.i]
		c.i++
		return []byte(out), nil
	}
	return nil, nil
}

func (c *stepChannel) Close() error { return nil }

// newTestSession 时间缩放调小，保证测试在毫秒级完成
func newTestSession(ch transport.Channel, plat *driver.Platform) *Session {
	return New(ch, plat, &Options{
		DelayFactor: 0.01,
		Timeout:     3 * time.Second,
		Secret:      "s3cret",
		Username:    "admin",
		Password:    "passw0rd",
		Events:      NopSink{},
	})
}

func TestNewDefaults(t *testing.T) {
	ch := &scriptChannel{}
	s := New(ch, nil, nil)
	require.NotNil(t, s.Platform())
	assert.Equal(t, "default", s.Platform().Name)
	assert.Equal(t, 60*time.Second, s.timeout)
	assert.Equal(t, "\n", s.returnChar)
	assert.True(t, s.Alive())
}

func TestSanitizeOutputStripsEchoAndPrompt(t *testing.T) {
	ch := &scriptChannel{}
	s := newTestSession(ch, nil)
	s.basePrompt = "switch1"

	raw := "show version\r\nIOS Software, Version 15.2\r\nswitch1#"
	out := s.sanitizeOutput(raw, "show version")
	assert.Equal(t, "IOS Software, Version 15.2", out)
}

func TestSanitizeOutputDropsAnsiSequences(t *testing.T) {
	ch := &scriptChannel{}
	s := newTestSession(ch, nil)

	raw := "\x1b[2Jinterface up\x1b[0m"
	out := s.sanitizeOutput(raw, "")
	assert.Equal(t, "interface up", out)
}

func TestNormalizeLinefeeds(t *testing.T) {
	assert.Equal(t, "a\nbc", normalizeLinefeeds("a\r\nb\rc"))
}

func TestPrepareEscalatesWhenPlatformRequires(t *testing.T) {
	// ASA 一类设备用户模式下连 show 命令都受限：
	// 准备阶段先提权，准备命令与关闭分页都在特权模式下执行
	plat := driver.Default()
	plat.Caps.EnableOnPrep = true
	plat.SessionPrepCommands = []string{"terminal width 511"}
	plat.Paging.SingleCommand = "terminal pager 0"
	ch := &scriptChannel{replies: []string{
		"fw01> ",                     // 提权前的模式探测
		"Password: ",                 // enable
		"fw01# ",                     // 密钥
		"fw01# ",                     // 提权后的确认探测
		"fw01# ",                     // 准备命令
		"fw01# ",                     // 基准提示符定位
		"terminal pager 0\r\nfw01# ", // 关闭分页
	}}
	ch.pending.WriteString("fw01> ")
	s := newTestSession(ch, plat)

	require.NoError(t, s.Prepare(context.Background()))
	assert.Equal(t, ModePrivileged, s.CurrentMode())
	assert.Equal(t, "fw01", s.BasePrompt())

	secretIdx, prepIdx := -1, -1
	for i, w := range ch.writtenCommands() {
		switch strings.TrimRight(w, "\n") {
		case "s3cret":
			secretIdx = i
		case "terminal width 511":
			prepIdx = i
		}
	}
	require.NotEqual(t, -1, secretIdx)
	require.NotEqual(t, -1, prepIdx)
	assert.Greater(t, prepIdx, secretIdx)
}

func TestPrepareSkipsPrepCommandsAtUserExec(t *testing.T) {
	// 用户模式下会被设备拒绝的准备命令（adtran 的 no events 等）
	// 不在特权模式时直接跳过
	plat := driver.Default()
	plat.SessionPrepCommands = []string{"no events"}
	plat.Paging.SingleCommand = "terminal length 0"
	ch := &scriptChannel{replies: []string{
		"ro1> ",                      // 准备命令前的提权探测：仍在用户模式
		"ro1> ",                      // 基准提示符定位
		"terminal length 0\r\nro1> ", // 关闭分页
	}}
	ch.pending.WriteString("ro1> ")
	s := newTestSession(ch, plat)

	require.NoError(t, s.Prepare(context.Background()))
	assert.NotContains(t, ch.writtenCommands(), "no events\n")
}

func TestCommandAfterTimeoutResyncsPrompt(t *testing.T) {
	// 上一条命令超时后流位置不可信：下一条命令先重新定位提示符，
	// 迟到的旧输出不会串进新命令的结果
	ch := &scriptChannel{replies: []string{
		"STALE OUTPUT STILL STREAMING", // 无提示符，读取超限
		"switch1#",                     // 重新定位提示符
		"show clock\r\n12:00:00 UTC\r\nswitch1#",
	}}
	s := newTestSession(ch, nil)
	s.basePrompt = "switch1"
	s.synced = true

	_, err := s.SendCommand(context.Background(), "show version", "")
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	require.False(t, s.synced)

	out, err := s.SendCommand(context.Background(), "show clock", "")
	require.NoError(t, err)
	assert.Contains(t, out, "12:00:00")
	assert.NotContains(t, out, "STALE")
}

func TestAbandonMarksSessionDead(t *testing.T) {
	ch := &scriptChannel{}
	s := newTestSession(ch, nil)
	require.True(t, s.Alive())
	s.Abandon()
	assert.False(t, s.Alive())
}
