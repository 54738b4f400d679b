package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BeginTask 登记一条运行中的任务流水，返回任务ID
func BeginTask(kind, host string, port int, platform, username string, commands string) (string, error) {
	rec := &TaskRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		Host:      host,
		Port:      port,
		Platform:  platform,
		Username:  username,
		Commands:  commands,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	err := WithRetry(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	}, 3, 50*time.Millisecond)
	return rec.ID, err
}

// FinishTask 回填任务结果
func FinishTask(taskID, status, output, errMsg string) error {
	now := time.Now()
	return WithRetry(func(tx *gorm.DB) error {
		return tx.Model(&TaskRecord{}).Where("id = ?", taskID).Updates(map[string]interface{}{
			"status":    status,
			"output":    output,
			"error_msg": errMsg,
			"end_time":  now,
			"duration":  gorm.Expr("CAST((julianday(?) - julianday(start_time)) * 86400000 AS INTEGER)", now),
		}).Error
	}, 3, 50*time.Millisecond)
}

// RecordCommand 追加单条命令的结果明细
func RecordCommand(taskID string, seq int, command, output string, success bool) error {
	rec := &CommandRecord{
		TaskID:  taskID,
		Seq:     seq,
		Command: command,
		Output:  output,
		Success: success,
	}
	return WithRetry(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	}, 3, 50*time.Millisecond)
}

// TouchDevice 登记/刷新设备信息（端点唯一）
func TouchDevice(host string, port int, platform, transport, username string) error {
	rec := &DeviceRecord{
		ID:        uuid.NewString(),
		Host:      host,
		Port:      port,
		Platform:  platform,
		Transport: transport,
		Username:  username,
		LastSeen:  time.Now(),
	}
	return WithRetry(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "host"}, {Name: "port"}, {Name: "username"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"platform":  platform,
				"transport": transport,
				"last_seen": rec.LastSeen,
			}),
		}).Create(rec).Error
	}, 3, 50*time.Millisecond)
}

// GetTask 查询任务流水
func GetTask(taskID string) (*TaskRecord, error) {
	var rec TaskRecord
	if err := db.Where("id = ?", taskID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListTasks 按时间倒序分页查询任务流水
func ListTasks(kind string, limit, offset int) ([]TaskRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := db.Model(&TaskRecord{}).Order("created_at DESC").Limit(limit).Offset(offset)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var recs []TaskRecord
	err := q.Find(&recs).Error
	return recs, err
}

// ListCommands 查询任务内的命令明细（按序）
func ListCommands(taskID string) ([]CommandRecord, error) {
	var recs []CommandRecord
	err := db.Where("task_id = ?", taskID).Order("seq ASC").Find(&recs).Error
	return recs, err
}
