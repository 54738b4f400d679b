package cisco_asa

import "github.com/clipilot/clipilot/pkg/driver"

// CiscoASA 驱动数据。
// 多上下文模式下 changeto 会更换主机名，执行后需要重新定位基准提示符；
// 未提供 enable 密钥时通过 "login" 交互提权到 15 级。
func platform() *driver.Platform {
	return &driver.Platform{
		Name: "cisco_asa",
		Prompt: driver.PromptSpec{
			Terminators:     []string{">", "#"},
			NegativeMarkers: []string{"config"},
		},
		Modes: driver.ModeCommands{
			EnableCommand:         "enable",
			EnablePasswordPattern: "ssword",
			EnableCheckString:     "#",
			DisableCommand:        "disable",
			ConfigEnterCommand:    "config term",
			ConfigEnterPattern:    `\)#`,
			ConfigExitCommand:     "end",
			ConfigExitPattern:     "#",
			ConfigCheckString:     ")#",
			ConfigCheckPattern:    `[>#]`,
		},
		Paging: driver.PagingCommands{
			SingleCommand: "terminal pager 0",
		},
		Caps: driver.Capabilities{CmdVerify: true, FastBurst: true, EnableOnPrep: true},
		Save: driver.SaveSpec{Command: "write mem"},
		Login: driver.LoginSequence{
			UsernamePattern:   `(?i)(?:user:|username|login|user name)`,
			PasswordPattern:   `(?i)assword`,
			NoPasswordPattern: `assword required, but none set`,
		},
		SessionPrepCommands: []string{"terminal width 511"},
		RefreshPromptOn:     []string{"changeto"},
		LoginCommand:        "login",
		ExitCommands:        []string{"exit"},
	}
}

func init() {
	driver.Register(platform())
}
