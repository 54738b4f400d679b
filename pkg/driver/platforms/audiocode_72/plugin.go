package audiocode_72

import "github.com/clipilot/clipilot/pkg/driver"

// Audiocode 7.2 固件驱动数据。
// 配置未保存时提示符带星号前缀（*> / *#），需要备用终止符；
// 分页关闭必须通过配置批次下发，单条命令不可用。
func platform() *driver.Platform {
	return &driver.Platform{
		Name: "audiocode_72",
		Prompt: driver.PromptSpec{
			Terminators:     []string{">", "#"},
			AltTerminators:  []string{"*>", "*#"},
			NegativeMarkers: []string{"Failure"},
		},
		Modes: driver.ModeCommands{
			EnableCommand:         "enable",
			EnablePasswordPattern: "ssword",
			EnableCheckString:     "#",
			DisableCommand:        "disable",
			// 配置模式入口因子系统而异（config system / config voip ...），
			// 由调用方显式提供
			ConfigEnterCommand: "",
			ConfigEnterPattern: "#",
			ConfigExitCommand:  "exit",
			ConfigExitPattern:  "#",
			ConfigCheckString:  ")#",
			ConfigCheckAlt:     ")*#",
			ConfigCheckPattern: "#",
		},
		Paging: driver.PagingCommands{
			Disable: []string{"config system", "cli-settings", "window-height 0", "exit"},
			Enable:  []string{"config system", "cli-settings", "window-height automatic", "exit"},
		},
		Caps: driver.Capabilities{CmdVerify: false},
		Save: driver.SaveSpec{Command: "write", Confirm: true, ConfirmResponse: "done"},
		Reload: driver.ReloadSpec{
			SaveCommand:   "reload now",
			NoSaveCommand: "reload without-saving",
		},
		Login: driver.LoginSequence{
			UsernamePattern:   `(?i)(?:user:|username|login|user name)`,
			PasswordPattern:   `(?i)assword`,
			NoPasswordPattern: `assword required, but none set`,
		},
		ExitCommands: []string{"exit"},
	}
}

func init() {
	driver.Register(platform())
}
