package audiocode_66

import "github.com/clipilot/clipilot/pkg/driver"

// Audiocode 6.6 固件驱动数据：与 7.2 相同的提示符语义，分页命令集不同
func platform() *driver.Platform {
	return &driver.Platform{
		Name: "audiocode_66",
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
			ConfigEnterCommand:    "",
			ConfigEnterPattern:    "#",
			ConfigExitCommand:     "exit",
			ConfigExitPattern:     "#",
			ConfigCheckString:     ")#",
			ConfigCheckAlt:        ")*#",
			ConfigCheckPattern:    "#",
		},
		Paging: driver.PagingCommands{
			Disable: []string{"config system", "cli-terminal", "set window-height 0", "exit"},
			Enable:  []string{"config system", "cli-terminal", "set window-height 100", "exit"},
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
