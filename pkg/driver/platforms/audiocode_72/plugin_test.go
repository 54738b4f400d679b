package audiocode_72

import (
	"testing"

	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformRegistered(t *testing.T) {
	p := driver.Get("audiocode_72")
	require.Equal(t, "audiocode_72", p.Name)
}

func TestUnsavedConfigPromptVariants(t *testing.T) {
	p := platform()
	// 配置未保存时提示符带星号，两字符备用终止符与星号配置标记都要在
	assert.Contains(t, p.Prompt.AltTerminators, "*>")
	assert.Contains(t, p.Prompt.AltTerminators, "*#")
	assert.Equal(t, ")*#", p.Modes.ConfigCheckAlt)
}

func TestPagingRequiresConfigBatch(t *testing.T) {
	p := platform()
	assert.Empty(t, p.Paging.SingleCommand)
	assert.NotEmpty(t, p.Paging.Disable)
	assert.Equal(t, "config system", p.Paging.Disable[0])
}

func TestSaveNeedsConfirmation(t *testing.T) {
	p := platform()
	assert.Equal(t, "write", p.Save.Command)
	assert.True(t, p.Save.Confirm)
	assert.Equal(t, "done", p.Save.ConfirmResponse)
}
