package logger

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputPreviewShortOutputKeptWhole(t *testing.T) {
	out := OutputPreview("line1\r\nline2\nline3", 5)
	assert.Equal(t, "line1 | line2 | line3", out)
}

func TestOutputPreviewLongOutputElided(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "line%d\n", i)
	}
	out := OutputPreview(b.String(), 2)
	assert.Equal(t, "line1 | line2 ... line39 | line40", out)
}
