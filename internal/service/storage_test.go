package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipilot/clipilot/internal/config"
)

func TestSlugSanitizesSegments(t *testing.T) {
	assert.Equal(t, "show_running-config", slug("show running-config"))
	assert.Equal(t, "core1_lab", slug("core1/lab"))
	assert.Equal(t, "a.b_c", slug(" a.b c "))
}

func TestLocalWriterLaysOutHierarchy(t *testing.T) {
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Backup.Prefix = "configs"
	cfg.Backup.Local.BaseDir = base
	cfg.Backup.Local.MkdirIfMissing = true

	w := &localWriter{cfg: cfg}
	meta := StorageMeta{
		SaveDir:    "nightly",
		TaskID:     "task-1",
		DeviceName: "core1",
		Host:       "10.0.0.1",
		Filename:   "show version",
	}
	obj, err := w.Write(context.Background(), meta, "IOS output\n")
	require.NoError(t, err)

	path := strings.TrimPrefix(obj.URI, "file://")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "IOS output\n", string(data))
	assert.Contains(t, path, "configs")
	assert.Contains(t, path, "nightly")
	assert.Contains(t, path, "core1")
	assert.Contains(t, path, "task-1")
	assert.True(t, strings.HasSuffix(path, "show_version.txt"))
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.True(t, strings.HasPrefix(obj.Checksum, "sha256:"))
}

func TestLocalWriterFallsBackToHostLabel(t *testing.T) {
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Backup.Local.BaseDir = base
	cfg.Backup.Local.MkdirIfMissing = true

	w := &localWriter{cfg: cfg}
	obj, err := w.Write(context.Background(), StorageMeta{Host: "10.0.0.9", Filename: "out"}, "x")
	require.NoError(t, err)
	assert.Contains(t, obj.URI, "10.0.0.9")
}

func TestDelegatingWriterDefaultsToLocal(t *testing.T) {
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Backup.StorageBackend = "local"
	cfg.Backup.Local.BaseDir = base
	cfg.Backup.Local.MkdirIfMissing = true

	w := NewStorageWriter(cfg)
	obj, err := w.Write(context.Background(), StorageMeta{Host: "h1", Filename: "f"}, "content")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.URI, "file://"))
}
