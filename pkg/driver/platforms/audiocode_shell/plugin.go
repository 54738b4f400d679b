package audiocode_shell

import "github.com/clipilot/clipilot/pkg/driver"

// Audiocode 6.6 Shell 模式驱动数据。
// 提示符固定为 "/>"（无主机名），没有特权模式；
// 配置模式标记为路径片段 /CONFiguration，退出命令是 ".."。
func platform() *driver.Platform {
	return &driver.Platform{
		Name: "audiocode_shell",
		Prompt: driver.PromptSpec{
			Terminators:     []string{"/>"},
			NegativeMarkers: []string{"Failure"},
		},
		Modes: driver.ModeCommands{
			ConfigEnterCommand: "",
			ConfigEnterPattern: "/>",
			ConfigExitCommand:  "..",
			ConfigExitPattern:  "/>",
			ConfigCheckString:  "/CONFiguration",
			// 空模式串：配置检查退化为限时读取
			ConfigCheckPattern: "",
		},
		Caps: driver.Capabilities{CmdVerify: false, NoEnableMode: true},
		Save: driver.SaveSpec{
			Command:         "SaveConfiguration",
			Confirm:         true,
			ConfirmResponse: "Configuration has been saved",
		},
		Reload: driver.ReloadSpec{
			SaveCommand:   "SaveAndReset",
			NoSaveCommand: "ReSetDevice",
			Message:       "Resetting the board",
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
