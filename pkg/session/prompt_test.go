package session

import (
	"context"
	"testing"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPromptTakesLastLine(t *testing.T) {
	ch := &scriptChannel{replies: []string{
		"banner line\r\nmotd line\r\nswitch1#",
	}}
	s := newTestSession(ch, nil)

	prompt, err := s.FindPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "switch1#", prompt)
}

func TestFindPromptSkipsNegativeMarkers(t *testing.T) {
	plat := driver.Default()
	plat.Prompt.NegativeMarkers = []string{"Failure"}
	// 第一轮候选携带负面标记，必须丢弃并重试
	ch := &scriptChannel{replies: []string{
		"Failure: command timed out#",
		"edge1#",
	}}
	s := newTestSession(ch, plat)

	prompt, err := s.FindPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "edge1#", prompt)
	assert.NotContains(t, prompt, "Failure")
}

func TestFindPromptRejectsMissingTerminator(t *testing.T) {
	plat := driver.Default()
	plat.FindPromptLoops = 2
	ch := &scriptChannel{replies: []string{
		"loading...",
		"still loading...",
	}}
	s := newTestSession(ch, plat)

	_, err := s.FindPrompt(context.Background())
	require.Error(t, err)
	var notFound *PromptNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.LastOutput, "still loading")
}

func TestSetBasePromptStripsTerminator(t *testing.T) {
	ch := &scriptChannel{replies: []string{"switch1#"}}
	s := newTestSession(ch, nil)

	base, err := s.SetBasePrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "switch1", base)
	assert.Equal(t, "switch1", s.BasePrompt())
}

func TestSetBasePromptStripsAltTerminatorFirst(t *testing.T) {
	plat := driver.Default()
	plat.Prompt.AltTerminators = []string{"*>", "*#"}
	// 配置未保存状态下提示符带星号，剥离两字符备用终止符
	ch := &scriptChannel{replies: []string{"gw-media*#"}}
	s := newTestSession(ch, plat)

	base, err := s.SetBasePrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gw-media", base)
}

func TestFindPromptRetriesOnEmptyReads(t *testing.T) {
	// 前两次回车读不到任何回显，第三次返回提示符
	ch := &scriptChannel{replies: []string{
		"",
		"",
		"core1>",
	}}
	s := newTestSession(ch, nil)

	prompt, err := s.FindPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "core1>", prompt)
	// 空读后必须补发回车诱导提示符
	assert.GreaterOrEqual(t, len(ch.writtenCommands()), 3)
}
