package adtran_os

import "github.com/clipilot/clipilot/pkg/driver"

// AdtranOS 驱动数据。
// 该设备的 SNMP 失败日志会刷屏终端，提示符候选必须排除 "Failure" 行；
// 回显校验默认关闭（部分固件回显不稳定）。
func platform() *driver.Platform {
	return &driver.Platform{
		Name: "adtran_os",
		Prompt: driver.PromptSpec{
			Terminators:     []string{">", "#"},
			NegativeMarkers: []string{"Failure", "config"},
		},
		Modes: driver.ModeCommands{
			EnableCommand:         "enable",
			EnablePasswordPattern: "ssword:",
			EnableCheckString:     "#",
			DisableCommand:        "disable",
			ConfigEnterCommand:    "config term",
			ConfigEnterPattern:    `\)#`,
			ConfigExitCommand:     "end",
			ConfigExitPattern:     "#",
			ConfigCheckString:     ")#",
			ConfigCheckPattern:    "#",
		},
		Paging: driver.PagingCommands{
			SingleCommand: "terminal length 0",
		},
		Caps: driver.Capabilities{CmdVerify: false, FastBurst: true},
		Save: driver.SaveSpec{Command: "write mem"},
		Login: driver.LoginSequence{
			UsernamePattern:   `(?i)(?:user:|username|login|user name)`,
			PasswordPattern:   `(?i)assword`,
			NoPasswordPattern: `assword required, but none set`,
		},
		// 关闭控制台事件输出，避免日志与提示符检测互相干扰
		SessionPrepCommands: []string{"no events"},
		DisconnectPattern:   "Received disconnect",
		ExitCommands:        []string{"exit"},
	}
}

func init() {
	driver.Register(platform())
}
