package session

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlatformWithDisconnect() *driver.Platform {
	plat := driver.Default()
	plat.DisconnectPattern = "Received disconnect"
	return plat
}

func TestReadTimedConfirmsQuiescence(t *testing.T) {
	// 首次空读后必须等确认休眠再读一次：慢速设备的尾部输出不能丢
	ch := &stepChannel{steps: []string{
		"first chunk ",
		"",
		"late tail",
		"",
		"",
	}}
	s := newTestSession(ch, nil)

	out, err := s.readTimed(context.Background(), s.delayFactor, 0)
	require.NoError(t, err)
	assert.Equal(t, "first chunk late tail", out)
}

func TestReadTimedStopsOnDoubleEmptyRead(t *testing.T) {
	ch := &stepChannel{steps: []string{"all data", "", ""}}
	s := newTestSession(ch, nil)

	out, err := s.readTimed(context.Background(), s.delayFactor, 0)
	require.NoError(t, err)
	assert.Equal(t, "all data", out)
	// 静默确认后不再读取
	assert.Equal(t, 3, ch.i)
}

func TestReadTimedExhaustsLoops(t *testing.T) {
	ch := &stepChannel{}
	s := newTestSession(ch, nil)

	_, err := s.readTimed(context.Background(), s.delayFactor, 5)
	require.Error(t, err)
	var timeout *TimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestReadTimedOrErrorDetectsDisconnect(t *testing.T) {
	plat := testPlatformWithDisconnect()
	ch := &stepChannel{steps: []string{
		"Received disconnect from 10.0.0.1",
		"",
		"",
	}}
	s := newTestSession(ch, plat)

	_, err := s.readTimedOrError(context.Background(), s.delayFactor, 0)
	require.Error(t, err)
	var closed *ChannelClosedError
	require.ErrorAs(t, err, &closed)
	assert.False(t, s.Alive())
}

func TestReadTimedOrErrorStopsMidStream(t *testing.T) {
	// 断链标记一出现就失败，不再白白读完剩余的刷屏输出；
	// 标记跨读取边界到达也必须命中
	plat := testPlatformWithDisconnect()
	steps := []string{"Received dis", "connect from 10.0.0.1"}
	for i := 0; i < 40; i++ {
		steps = append(steps, "spam line\r\n")
	}
	ch := &stepChannel{steps: steps}
	s := newTestSession(ch, plat)

	_, err := s.readTimedOrError(context.Background(), s.delayFactor, 0)
	require.Error(t, err)
	var closed *ChannelClosedError
	require.ErrorAs(t, err, &closed)
	assert.Less(t, ch.i, 5)
	assert.False(t, s.Alive())
}

func TestReadTimedExhaustionBreaksSync(t *testing.T) {
	// 预算耗尽时设备仍在输出：流位置不再可信，需要重新定位提示符
	steps := make([]string, 10)
	for i := range steps {
		steps[i] = "still printing\r\n"
	}
	ch := &stepChannel{steps: steps}
	s := newTestSession(ch, nil)
	s.synced = true

	_, err := s.readTimed(context.Background(), s.delayFactor, 5)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.False(t, s.synced)
}

func TestReadUntilPatternTimeoutBreaksSync(t *testing.T) {
	ch := &stepChannel{steps: []string{"partial output"}}
	s := newTestSession(ch, nil)
	s.timeout = 300 * time.Millisecond
	s.synced = true

	_, err := s.readUntilPattern(context.Background(), regexp.MustCompile(`never-appears`), "test")
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.False(t, s.synced)
}

func TestReadUntilPatternMatchesAcrossReads(t *testing.T) {
	// 模式跨两次读取边界到达，也必须命中
	ch := &stepChannel{steps: []string{"swit", "ch1#"}}
	s := newTestSession(ch, nil)

	out, err := s.readUntilPattern(context.Background(), regexp.MustCompile(`switch1#`), "test")
	require.NoError(t, err)
	assert.Equal(t, "switch1#", out)
}

func TestReadUntilPatternTimeout(t *testing.T) {
	ch := &stepChannel{steps: []string{"partial output"}}
	s := newTestSession(ch, nil)
	s.timeout = 500 * time.Millisecond

	_, err := s.readUntilPattern(context.Background(), regexp.MustCompile(`never-appears`), "test")
	require.Error(t, err)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Contains(t, timeout.LastOutput, "partial output")
}

func TestReadUntilPatternCancellable(t *testing.T) {
	ch := &stepChannel{}
	s := newTestSession(ch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.readUntilPattern(ctx, regexp.MustCompile(`x`), "test")
	assert.ErrorIs(t, err, context.Canceled)
}
