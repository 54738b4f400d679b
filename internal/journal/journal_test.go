package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, Init(Options{Path: path, ConnMaxLifetime: time.Minute}))
	t.Cleanup(func() { _ = Close() })
}

func TestTaskLifecycle(t *testing.T) {
	initTestDB(t)

	taskID, err := BeginTask(KindExec, "10.0.0.1", 22, "cisco_asa", "admin", "show version")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	rec, err := GetTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, rec.Status)
	assert.Equal(t, "cisco_asa", rec.Platform)

	require.NoError(t, FinishTask(taskID, StatusSuccess, "Cisco Adaptive Security Appliance", ""))
	rec, err = GetTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Contains(t, rec.Output, "Adaptive Security")
}

func TestCommandRecordsKeepOrder(t *testing.T) {
	initTestDB(t)

	taskID, err := BeginTask(KindConfig, "10.0.0.2", 22, "default", "admin", "a\nb")
	require.NoError(t, err)

	require.NoError(t, RecordCommand(taskID, 1, "interface eth0", "", true))
	require.NoError(t, RecordCommand(taskID, 0, "config term", "", true))
	require.NoError(t, RecordCommand(taskID, 2, "no shutdown", "% err", false))

	cmds, err := ListCommands(taskID)
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, "config term", cmds[0].Command)
	assert.Equal(t, "no shutdown", cmds[2].Command)
	assert.False(t, cmds[2].Success)
}

func TestListTasksFiltersByKind(t *testing.T) {
	initTestDB(t)

	_, err := BeginTask(KindExec, "10.0.0.3", 22, "default", "admin", "show run")
	require.NoError(t, err)
	_, err = BeginTask(KindConfig, "10.0.0.3", 22, "default", "admin", "hostname x")
	require.NoError(t, err)

	execs, err := ListTasks(KindExec, 10, 0)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, KindExec, execs[0].Kind)

	all, err := ListTasks("", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTouchDeviceUpserts(t *testing.T) {
	initTestDB(t)

	require.NoError(t, TouchDevice("10.0.0.4", 22, "fortinet", "ssh", "admin"))
	require.NoError(t, TouchDevice("10.0.0.4", 22, "fortinet", "telnet", "admin"))

	var count int64
	require.NoError(t, DB().Model(&DeviceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var rec DeviceRecord
	require.NoError(t, DB().First(&rec).Error)
	assert.Equal(t, "telnet", rec.Transport)
}

func TestHealthRequiresInit(t *testing.T) {
	initTestDB(t)
	assert.NoError(t, Health())
}
