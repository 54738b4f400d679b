package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/clipilot/clipilot/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dropOnWrite 在写入指定命令后立即断开，模拟切换模式瞬间的连接中断
type dropOnWrite struct {
	scriptChannel
	trigger string
}

func (c *dropOnWrite) Write(data []byte) error {
	err := c.scriptChannel.Write(data)
	if strings.TrimRight(string(data), "\r\n") == c.trigger {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	}
	return err
}

func secretWrites(ch *scriptChannel, secret string) int {
	count := 0
	for _, w := range ch.writtenCommands() {
		if strings.TrimRight(w, "\r\n") == secret {
			count++
		}
	}
	return count
}

func TestCheckEnableModeIsPureRead(t *testing.T) {
	ch := &scriptChannel{replies: []string{
		"switch1#",
		"switch1#",
	}}
	s := newTestSession(ch, nil)

	for i := 0; i < 2; i++ {
		enabled, err := s.CheckEnableMode(context.Background())
		require.NoError(t, err)
		assert.True(t, enabled)
	}
	// 探测只发送空回车，不发送任何模式切换命令
	for _, w := range ch.writtenCommands() {
		assert.Equal(t, "\n", w)
	}
	assert.Equal(t, ModeUnprivileged, s.CurrentMode())
}

func TestEnableSendsSecretOnPasswordPrompt(t *testing.T) {
	ch := &scriptChannel{replies: []string{
		"switch1>",   // 模式探测：未提权
		"Password: ", // enable 命令
		"switch1#",   // 密钥
		"switch1#",   // 提权后的再次探测
	}}
	s := newTestSession(ch, nil)

	_, err := s.Enable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModePrivileged, s.CurrentMode())
	assert.Equal(t, 1, secretWrites(ch, "s3cret"))
}

func TestEnableResendsSecretOnSecondPrompt(t *testing.T) {
	// 设备连续两次索要口令：恰好重发一次密钥，不多不少
	ch := &scriptChannel{replies: []string{
		"switch1>",   // 模式探测
		"Password: ", // enable 命令
		"Password: ", // 第一次密钥
		"switch1#",   // 第二次密钥
		"switch1#",   // 提权后的探测
	}}
	s := newTestSession(ch, nil)

	_, err := s.Enable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModePrivileged, s.CurrentMode())
	assert.Equal(t, 2, secretWrites(ch, "s3cret"))
}

func TestEnablePropagatesChannelLoss(t *testing.T) {
	// 提权命令发出后连接断开：必须报通道错误而不是提权失败，
	// 调用方据此丢弃会话而不是提示检查密钥
	ch := &dropOnWrite{
		scriptChannel: scriptChannel{replies: []string{"switch1>"}},
		trigger:       "enable",
	}
	s := newTestSession(ch, nil)

	_, err := s.Enable(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrChannelClosed)
	var emErr *EnableModeError
	assert.False(t, errors.As(err, &emErr))
	assert.False(t, s.Alive())
}

func TestEnableAlreadyPrivilegedIsNoop(t *testing.T) {
	ch := &scriptChannel{replies: []string{"switch1#"}}
	s := newTestSession(ch, nil)

	out, err := s.Enable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
	// 只有模式探测的回车，没有 enable 命令
	for _, w := range ch.writtenCommands() {
		assert.Equal(t, "\n", w)
	}
}

func TestEnableNoEnableModePlatform(t *testing.T) {
	plat := driver.Default()
	plat.Caps.NoEnableMode = true
	ch := &scriptChannel{}
	s := newTestSession(ch, plat)

	_, err := s.Enable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ch.writtenCommands())
}

func TestExitEnableMode(t *testing.T) {
	ch := &scriptChannel{replies: []string{
		"switch1#", // 探测：已提权
		"switch1>", // disable
		"switch1>", // 退出后的探测
	}}
	s := newTestSession(ch, nil)

	_, err := s.ExitEnableMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeUnprivileged, s.CurrentMode())
	writes := ch.writtenCommands()
	assert.Contains(t, writes, "disable\n")
}

func TestCheckConfigModeIdempotent(t *testing.T) {
	ch := &scriptChannel{replies: []string{
		"switch1(config)#",
		"switch1(config)#",
	}}
	s := newTestSession(ch, nil)

	for i := 0; i < 2; i++ {
		in, err := s.CheckConfigMode(context.Background())
		require.NoError(t, err)
		assert.True(t, in)
	}
	for _, w := range ch.writtenCommands() {
		assert.Equal(t, "\n", w)
	}
}

func TestCheckConfigModeAltMarker(t *testing.T) {
	plat := driver.Default()
	plat.Modes.ConfigCheckAlt = ")*#"
	ch := &scriptChannel{replies: []string{"gw-1(config)*#"}}
	s := newTestSession(ch, plat)

	in, err := s.CheckConfigMode(context.Background())
	require.NoError(t, err)
	assert.True(t, in)
}

func TestConfigModeEnterAndVerify(t *testing.T) {
	ch := &scriptChannel{replies: []string{
		"switch1#",         // 配置模式探测：不在
		"switch1(config)#", // config term
		"switch1(config)#", // 进入后的确认探测
	}}
	s := newTestSession(ch, nil)

	_, err := s.ConfigMode(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ModeConfiguration, s.CurrentMode())
	assert.Contains(t, ch.writtenCommands(), "config term\n")
}

func TestConfigModeFailureReportsOutput(t *testing.T) {
	plat := driver.Default()
	plat.Modes.ConfigEnterPattern = `\)#`
	ch := &scriptChannel{replies: []string{
		"switch1#", // 探测：不在配置模式
		"% Invalid input\nswitch1#",
	}}
	s := newTestSession(ch, plat)
	s.timeout = 300 * time.Millisecond

	_, err := s.ConfigMode(context.Background(), "")
	require.Error(t, err)
	var cmErr *ConfigModeError
	require.ErrorAs(t, err, &cmErr)
}

func TestConfigModeWithoutEnterCommandStillExits(t *testing.T) {
	// fortinet 一类平台没有统一进入命令，配置态由配置命令自身带入；
	// 进入是空操作，但检查与退出必须照常工作
	plat := driver.Default()
	plat.Caps.NoEnableMode = true
	plat.Modes.ConfigEnterCommand = ""
	plat.Modes.ConfigExitCommand = "end"
	plat.Modes.ConfigCheckString = ") #"
	plat.Modes.ConfigCheckAlt = ") $"
	ch := &scriptChannel{replies: []string{
		"fw1 (port1) #", // 退出前的探测：在配置子壳里
		"fw1 #",         // end
		"fw1 #",         // 退出后的确认探测
	}}
	s := newTestSession(ch, plat)

	out, err := s.ConfigMode(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, ch.writtenCommands())

	_, err = s.ExitConfigMode(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ch.writtenCommands(), "end\n")
}

func TestExitConfigModeWhenOutsideIsNoop(t *testing.T) {
	ch := &scriptChannel{replies: []string{"switch1#"}}
	s := newTestSession(ch, nil)

	out, err := s.ExitConfigMode(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
	for _, w := range ch.writtenCommands() {
		assert.Equal(t, "\n", w)
	}
}
