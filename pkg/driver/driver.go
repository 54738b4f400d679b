package driver

// PromptSpec 提示符识别参数：终止符集合与反向标记。
// 反向标记命中的行永远不会被当作提示符（告警日志刷屏、配置片段误读等场景），
// 该检查先于终止符检查执行。
type PromptSpec struct {
	// Terminators 主终止符，例如 ">"、"#"
	Terminators []string
	// AltTerminators 备用终止符（配置未保存等状态），例如 "*>"、"*#"
	AltTerminators []string
	// NegativeMarkers 候选提示符中不允许出现的子串，例如 "Failure"
	NegativeMarkers []string
}

// ModeCommands 模式切换命令与校验数据
type ModeCommands struct {
	// EnableCommand 进入特权模式命令；空串表示设备无特权模式
	EnableCommand string
	// EnablePasswordPattern 特权密码提示匹配，例如 "ssword"
	EnablePasswordPattern string
	// EnableCheckString 特权模式提示符标记，例如 "#"
	EnableCheckString string
	// DisableCommand 退出特权模式命令
	DisableCommand string
	// ConfigEnterCommand 进入配置模式命令；空串表示必须由调用方提供
	ConfigEnterCommand string
	// ConfigEnterPattern 进入配置模式后的读取终止模式（正则）
	ConfigEnterPattern string
	// ConfigExitCommand 退出配置模式命令
	ConfigExitCommand string
	// ConfigExitPattern 退出配置模式后的读取终止模式（正则）
	ConfigExitPattern string
	// ConfigCheckString 配置模式提示符标记，例如 ")#"
	ConfigCheckString string
	// ConfigCheckAlt 备用配置模式标记（提示符格式随设备状态变化），例如 ")*#"
	ConfigCheckAlt string
	// ConfigCheckPattern 配置模式检查的读取终止模式；空串退化为限时读取
	ConfigCheckPattern string
}

// PagingCommands 分页控制命令集（有序，作为配置批次下发）
type PagingCommands struct {
	// Disable 关闭分页命令序列；空表示该设备无需或无法关闭
	Disable []string
	// Enable 恢复分页命令序列（会话优雅退出时执行）
	Enable []string
	// SingleCommand 非配置态的单条关闭分页命令，例如 "terminal length 0"
	SingleCommand string
}

// LoginSequence Telnet/串口交互式登录的提示匹配
type LoginSequence struct {
	// UsernamePattern 用户名提示（正则，忽略大小写）
	UsernamePattern string
	// PasswordPattern 密码提示（正则，忽略大小写）
	PasswordPattern string
	// NoPasswordPattern 设备未配置密码时的失败文案
	NoPasswordPattern string
}

// Capabilities 能力开关：引擎按此选择分发策略
type Capabilities struct {
	// FastBurst 允许连发写入后一次性限时读取（最快、最不安全）
	FastBurst bool
	// CmdVerify 配置批次默认逐条回显校验
	CmdVerify bool
	// NoEnableMode 设备无特权模式（enable/disable 为空操作）
	NoEnableMode bool
	// NoConfigMode 设备无独立配置模式（配置批次不包裹模式切换）
	NoConfigMode bool
	// EnableOnPrep 会话准备阶段即提权（ASA 等设备用户模式下 show 命令受限）
	EnableOnPrep bool
}

// SaveSpec 保存配置命令数据
type SaveSpec struct {
	Command string
	// Confirm 保存后需要确认交互
	Confirm bool
	// ConfirmResponse 确认应答；空串发送回车
	ConfirmResponse string
}

// ReloadSpec 重启命令数据
type ReloadSpec struct {
	SaveCommand   string // 保存后重启
	NoSaveCommand string // 不保存直接重启
	// Message 重启开始的输出标记，读到即认为命令已生效
	Message string
}

// AutoResponse 自动应答对：会话准备阶段输出命中 Expect 时自动发送 Send
type AutoResponse struct {
	Expect string
	Send   string
}

// Platform 单个厂商/OS族的全部驱动数据。引擎是唯一实现，Platform 只是参数。
type Platform struct {
	Name    string
	Prompt  PromptSpec
	Modes   ModeCommands
	Paging  PagingCommands
	Login   LoginSequence
	Caps    Capabilities
	Save    SaveSpec
	Reload  ReloadSpec
	// SessionPrepCommands 会话建立后立即执行的准备命令（如关闭控制台日志）
	SessionPrepCommands []string
	// FindPromptLoops 提示符定位外层循环上限；0 使用默认 20
	FindPromptLoops int
	// ErrorPattern 配置批次的默认错误标记（正则）
	ErrorPattern string
	// DisconnectPattern 读取过程中的断链标记，命中立即失败
	DisconnectPattern string
	// ExitCommands 优雅退出时按序尝试的命令
	ExitCommands []string
	// RefreshPromptOn 命令包含这些子串时执行后必须重新定位基准提示符
	// （多上下文设备切换上下文会改变主机名）
	RefreshPromptOn []string
	// LoginCommand 无 enable 密钥时通过交互式登录提权的命令（如 ASA 的 "login"）
	LoginCommand string
	// AutoResponses 会话准备阶段的自动应答（登录横幅确认等）
	AutoResponses []AutoResponse
}

// Default 兜底平台：通用 >/# 提示符、标准 enable/config 语义
func Default() *Platform {
	return &Platform{
		Name: "default",
		Prompt: PromptSpec{
			Terminators: []string{">", "#"},
		},
		Modes: ModeCommands{
			EnableCommand:         "enable",
			EnablePasswordPattern: "ssword",
			EnableCheckString:     "#",
			DisableCommand:        "disable",
			ConfigEnterCommand:    "config term",
			ConfigEnterPattern:    `\)#`,
			ConfigExitCommand:     "end",
			ConfigExitPattern:     "#",
			ConfigCheckString:     ")#",
			ConfigCheckPattern:    "#",
		},
		Caps: Capabilities{CmdVerify: true, FastBurst: true},
		Save: SaveSpec{Command: "write mem"},
		Login: LoginSequence{
			UsernamePattern:   `(?i)(?:user:|username|login|user name)`,
			PasswordPattern:   `(?i)assword`,
			NoPasswordPattern: `assword required, but none set`,
		},
		ExitCommands: []string{"exit", "quit"},
	}
}
