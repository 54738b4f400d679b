package fortinet

import "github.com/clipilot/clipilot/pkg/driver"

// Fortinet 驱动数据。
// 无特权模式，配置态由 "config xxx" 命令本身进入（无统一进入命令），
// 但配置态是真实存在的：提示符形如 "name (xxx) #"，检查与退出（end）照常工作，
// 定位基准提示符时必须排除配置态提示符。
// 开启 post-login-banner 的设备登录后要求按 'a' 确认。
func platform() *driver.Platform {
	return &driver.Platform{
		Name: "fortinet",
		Prompt: driver.PromptSpec{
			Terminators:     []string{"#", "$"},
			NegativeMarkers: []string{") #", ") $"},
		},
		Modes: driver.ModeCommands{
			ConfigEnterCommand: "",
			ConfigExitCommand:  "end",
			ConfigExitPattern:  `(#|\$)`,
			ConfigCheckString:  ") #",
			ConfigCheckAlt:     ") $",
			ConfigCheckPattern: "",
		},
		Paging: driver.PagingCommands{
			Disable: []string{"config global", "config system console", "set output standard", "end", "end"},
			Enable:  []string{"config global", "config system console", "set output more", "end", "end"},
		},
		Caps: driver.Capabilities{
			CmdVerify:    false,
			NoEnableMode: true,
		},
		Login: driver.LoginSequence{
			UsernamePattern:   `(?i)(?:user:|username|login|user name)`,
			PasswordPattern:   `(?i)assword`,
			NoPasswordPattern: `assword required, but none set`,
		},
		AutoResponses: []driver.AutoResponse{
			{Expect: "to accept", Send: "a"},
		},
		ExitCommands: []string{"quit"},
	}
}

func init() {
	driver.Register(platform())
}
