package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/clipilot/clipilot/internal/config"
	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/clipilot/clipilot/pkg/session"
	"github.com/clipilot/clipilot/pkg/transport"
)

// Dialer 按设备参数建立并准备好会话：传输拨号、交互登录、会话准备
type Dialer struct {
	cfg *config.Config
}

// NewDialer 创建拨号器
func NewDialer(cfg *config.Config) *Dialer {
	return &Dialer{cfg: cfg}
}

// Dial 建立设备会话（已完成 Prepare，可直接下发命令）
func (d *Dialer) Dial(ctx context.Context, target DeviceTarget) (*session.Session, error) {
	plat := driver.Get(target.Platform)

	opts := d.cfg.SessionOptions(plat.Name)
	opts.Secret = target.Secret
	opts.Username = target.Username
	opts.Password = target.Password
	opts.Host = target.Host
	if target.DelayFactor > 0 {
		opts.DelayFactor = target.DelayFactor
	}
	if target.FastMode {
		opts.FastMode = true
	}

	tr := strings.ToLower(strings.TrimSpace(target.Transport))
	if tr == "" {
		tr = "ssh"
	}

	var ch transport.Channel
	var err error
	interactiveLogin := false
	switch tr {
	case "ssh":
		sshCfg := &transport.SSHConfig{
			Timeout:   d.cfg.SSH.ConnectTimeout,
			KeepAlive: d.cfg.SSH.KeepAliveInterval,
			TermType:  d.cfg.SSH.TermType,
		}
		port := target.Port
		if port <= 0 {
			port = 22
		}
		ch, err = transport.DialSSH(ctx, sshCfg, &transport.SSHOptions{
			Host:     target.Host,
			Port:     port,
			Username: target.Username,
			Password: target.Password,
		})
	case "telnet":
		ch, err = transport.DialTelnet(&transport.TelnetOptions{
			Host: target.Host,
			Port: target.Port,
		})
		// Telnet 换行需要回车换行，登录走带内交互
		if opts.ReturnChar == "" {
			opts.ReturnChar = "\r\n"
		}
		interactiveLogin = true
	case "serial":
		ch, err = transport.DialSerial(&transport.SerialOptions{
			Device:   target.SerialDevice,
			BaudRate: target.BaudRate,
		})
		interactiveLogin = true
	default:
		return nil, fmt.Errorf("unsupported transport: %s", target.Transport)
	}
	if err != nil {
		return nil, err
	}

	sess := session.New(ch, plat, &opts)
	if interactiveLogin {
		if _, err := sess.TelnetLogin(ctx); err != nil {
			_ = ch.Close()
			return nil, err
		}
	}
	if err := sess.Prepare(ctx); err != nil {
		sess.Cleanup(ctx)
		_ = ch.Close()
		return nil, err
	}
	return sess, nil
}
