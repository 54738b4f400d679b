package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFallsBackToDefault(t *testing.T) {
	p := Get("no_such_vendor_platform")
	require.NotNil(t, p)
	assert.Equal(t, "default", p.Name)
}

func TestGetNormalizesName(t *testing.T) {
	Register(&Platform{Name: "acme_os"})
	p := Get("  ACME_OS ")
	assert.Equal(t, "acme_os", p.Name)
}

func TestGetVendorPrefixFallback(t *testing.T) {
	Register(&Platform{Name: "acme_router"})
	// 同厂商的未知型号回退到任一 acme_ 驱动
	p := Get("acme_switch_9000")
	assert.Contains(t, p.Name, "acme_")
}

func TestRegisterOverrides(t *testing.T) {
	Register(&Platform{Name: "dup_os", ErrorPattern: "old"})
	Register(&Platform{Name: "dup_os", ErrorPattern: "new"})
	assert.Equal(t, "new", Get("dup_os").ErrorPattern)
}

func TestNamesIncludesDefault(t *testing.T) {
	assert.Contains(t, Names(), "default")
}

func TestDefaultPlatformSemantics(t *testing.T) {
	p := Default()
	assert.Equal(t, []string{">", "#"}, p.Prompt.Terminators)
	assert.Equal(t, "enable", p.Modes.EnableCommand)
	assert.Equal(t, ")#", p.Modes.ConfigCheckString)
	assert.True(t, p.Caps.CmdVerify)
	assert.Equal(t, "write mem", p.Save.Command)
}
