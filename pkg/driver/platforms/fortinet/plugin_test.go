package fortinet

import (
	"testing"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformRegistered(t *testing.T) {
	p := driver.Get("fortinet")
	require.Equal(t, "fortinet", p.Name)
}

func TestFlatModeModel(t *testing.T) {
	p := platform()
	assert.True(t, p.Caps.NoEnableMode)
	// 配置态真实存在：没有统一进入命令，但检查与退出必须可用，
	// 否则留在 config 子壳里的会话永远退不出来
	assert.False(t, p.Caps.NoConfigMode)
	assert.Empty(t, p.Modes.ConfigEnterCommand)
	assert.Equal(t, ") #", p.Modes.ConfigCheckString)
	assert.Equal(t, ") $", p.Modes.ConfigCheckAlt)
	assert.Equal(t, "end", p.Modes.ConfigExitCommand)
}

func TestConfigPromptExcludedFromBasePrompt(t *testing.T) {
	p := platform()
	// "name (global) #" 形态的配置态提示符不能被当成基准提示符
	assert.Contains(t, p.Prompt.NegativeMarkers, ") #")
	assert.Contains(t, p.Prompt.NegativeMarkers, ") $")
}

func TestPostLoginBannerResponse(t *testing.T) {
	p := platform()
	require.Len(t, p.AutoResponses, 1)
	assert.Equal(t, "to accept", p.AutoResponses[0].Expect)
	assert.Equal(t, "a", p.AutoResponses[0].Send)
}
