package service

// DeviceTarget 一台目标设备的连接参数
type DeviceTarget struct {
	Host      string `json:"host" binding:"required"`
	Port      int    `json:"port"`
	Platform  string `json:"platform"`
	Transport string `json:"transport"` // ssh | telnet | serial，默认 ssh
	Username  string `json:"username"`
	Password  string `json:"password"`
	Secret    string `json:"secret"`
	// Name 设备别名，备份目录与结果标注使用；为空用 Host
	Name string `json:"name"`
	// SerialDevice 串口设备路径（transport=serial 时必填）
	SerialDevice string `json:"serial_device"`
	BaudRate     int    `json:"baud_rate"`
	// DelayFactor/FastMode 覆盖平台默认的交互节奏
	DelayFactor float64 `json:"delay_factor"`
	FastMode    bool    `json:"fast_mode"`
}

// ExecRequest 批量命令执行请求
type ExecRequest struct {
	Devices  []DeviceTarget `json:"devices" binding:"required"`
	Commands []string       `json:"commands" binding:"required"`
	// Backup 执行输出是否写入备份存储
	Backup  bool   `json:"backup"`
	SaveDir string `json:"save_dir"`
	Backend string `json:"backend"`
}

// ConfigRequest 批量配置下发请求
type ConfigRequest struct {
	Devices  []DeviceTarget `json:"devices" binding:"required"`
	Commands []string       `json:"commands" binding:"required"`
	// SaveConfig 下发成功后保存运行配置
	SaveConfig bool `json:"save_config"`
	// ErrorPattern 覆盖平台默认的错误标记
	ErrorPattern string `json:"error_pattern"`
	// NoVerify 关闭回显校验（慢速链路可提速）
	NoVerify bool `json:"no_verify"`
}

// CommandResult 单条命令结果
type CommandResult struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

// DeviceResult 单台设备的执行结果
type DeviceResult struct {
	Host       string          `json:"host"`
	Name       string          `json:"name,omitempty"`
	TaskID     string          `json:"task_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Commands   []CommandResult `json:"commands,omitempty"`
	Output     string          `json:"output,omitempty"`
	BackupURI  string          `json:"backup_uri,omitempty"`
}
