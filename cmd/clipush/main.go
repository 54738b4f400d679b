package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clipilot/clipilot/internal/config"
	"github.com/clipilot/clipilot/internal/service"
	"github.com/clipilot/clipilot/pkg/logger"

	// 平台驱动注册
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/adtran_os"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/audiocode_66"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/audiocode_72"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/audiocode_shell"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/cisco_asa"
	_ "github.com/clipilot/clipilot/pkg/driver/platforms/fortinet"
)

// clipush 单设备命令/配置下发工具：绕过服务端直连设备，适合调试与脚本化
func main() {
	var (
		host       = flag.String("host", "", "device host (required)")
		port       = flag.Int("port", 0, "device port (default 22/23 by transport)")
		platform   = flag.String("platform", "default", "device platform name")
		transportF = flag.String("transport", "ssh", "transport: ssh|telnet|serial")
		username   = flag.String("user", "", "login username")
		password   = flag.String("pass", "", "login password (or CLIPUSH_PASSWORD env)")
		secret     = flag.String("secret", "", "enable secret (or CLIPUSH_SECRET env)")
		serialDev  = flag.String("serial", "", "serial device path, e.g. /dev/ttyUSB0")
		baud       = flag.Int("baud", 0, "serial baud rate")
		cmdList    = flag.String("cmds", "", "comma separated commands")
		cmdFile    = flag.String("file", "", "file with one command per line")
		configMode = flag.Bool("config", false, "send as configuration batch")
		saveAfter  = flag.Bool("save", false, "save configuration after config batch")
		fastMode   = flag.Bool("fast", false, "fast mode (skip echo verification)")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall task timeout")
		jsonOut    = flag.Bool("json", false, "print result as JSON")
		cfgPath    = flag.String("config-file", "", "optional clipilot config file")
	)
	flag.Parse()

	if *host == "" {
		fmt.Fprintln(os.Stderr, "missing required -host")
		flag.Usage()
		os.Exit(2)
	}
	commands, err := collectCommands(*cmdList, *cmdFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read commands: %v\n", err)
		os.Exit(2)
	}
	if len(commands) == 0 {
		fmt.Fprintln(os.Stderr, "no commands given: use -cmds or -file")
		os.Exit(2)
	}

	cfg := &config.Config{}
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	_ = logger.Init(logger.Config{Level: "warn", Format: "text", Output: "console"})

	pass := *password
	if pass == "" {
		pass = os.Getenv("CLIPUSH_PASSWORD")
	}
	sec := *secret
	if sec == "" {
		sec = os.Getenv("CLIPUSH_SECRET")
	}

	target := service.DeviceTarget{
		Host:         *host,
		Port:         *port,
		Platform:     *platform,
		Transport:    *transportF,
		Username:     *username,
		Password:     pass,
		Secret:       sec,
		SerialDevice: *serialDev,
		BaudRate:     *baud,
		FastMode:     *fastMode,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sess, err := service.NewDialer(cfg).Dial(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}
	defer sess.Disconnect(context.Background())

	type result struct {
		Command string `json:"command"`
		Output  string `json:"output"`
	}
	var results []result
	exitCode := 0

	if *configMode {
		if _, err := sess.Enable(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "enable failed: %v\n", err)
			os.Exit(1)
		}
		out, err := sess.SendConfigSet(ctx, commands, sess.ConfigSetDefaults())
		results = append(results, result{Command: strings.Join(commands, "; "), Output: out})
		if err != nil {
			fmt.Fprintf(os.Stderr, "config push failed: %v\n", err)
			exitCode = 1
		} else if *saveAfter {
			if _, err := sess.SaveConfig(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
				exitCode = 1
			}
		}
	} else {
		for _, cmd := range commands {
			out, err := sess.SendCommand(ctx, cmd, "")
			results = append(results, result{Command: cmd, Output: out})
			if err != nil {
				fmt.Fprintf(os.Stderr, "command %q failed: %v\n", cmd, err)
				exitCode = 1
				break
			}
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{
			"host":    *host,
			"prompt":  sess.BasePrompt(),
			"results": results,
		})
	} else {
		for _, r := range results {
			fmt.Printf("===== %s =====\n%s\n", r.Command, r.Output)
		}
	}
	os.Exit(exitCode)
}

// collectCommands 合并 -cmds 与 -file 的命令来源
func collectCommands(list, file string) ([]string, error) {
	var commands []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			commands = append(commands, c)
		}
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			commands = append(commands, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return commands, nil
}
