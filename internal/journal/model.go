package journal

import (
	"time"
)

// TaskRecord 一次设备任务（命令执行或配置下发）的流水记录
type TaskRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Kind      string    `json:"kind" gorm:"type:varchar(16);not null;index"`
	Host      string    `json:"host" gorm:"type:varchar(64);not null;index"`
	Port      int       `json:"port" gorm:"not null;default:22"`
	Platform  string    `json:"platform" gorm:"type:varchar(64);not null"`
	Username  string    `json:"username" gorm:"type:varchar(64)"`
	Commands  string    `json:"commands" gorm:"type:text;not null"`
	Status    string    `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	Output    string    `json:"output" gorm:"type:text"`
	ErrorMsg  string    `json:"error_msg" gorm:"type:text"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (TaskRecord) TableName() string {
	return "task_records"
}

// 任务状态枚举
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// 任务类型枚举
const (
	KindExec   = "exec"
	KindConfig = "config"
	KindBackup = "backup"
)

// CommandRecord 任务内单条命令的结果明细
type CommandRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID    string    `json:"task_id" gorm:"type:varchar(64);not null;index"`
	Seq       int       `json:"seq" gorm:"not null"`
	Command   string    `json:"command" gorm:"type:text;not null"`
	Output    string    `json:"output" gorm:"type:text"`
	Success   bool      `json:"success" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (CommandRecord) TableName() string {
	return "command_records"
}

// DeviceRecord 已接入设备的登记信息
type DeviceRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Host      string    `json:"host" gorm:"type:varchar(64);not null;index:idx_device_endpoint,unique"`
	Port      int       `json:"port" gorm:"not null;default:22;index:idx_device_endpoint,unique"`
	Platform  string    `json:"platform" gorm:"type:varchar(64);not null"`
	Transport string    `json:"transport" gorm:"type:varchar(16);not null;default:'ssh'"`
	Username  string    `json:"username" gorm:"type:varchar(64);index:idx_device_endpoint,unique"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (DeviceRecord) TableName() string {
	return "device_records"
}
