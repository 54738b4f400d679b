package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig SSH传输配置
type SSHConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	TermType  string        `yaml:"term_type"`
}

// SSHOptions SSH连接参数
type SSHOptions struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// sshChannel 基于 x/crypto/ssh 的交互式 PTY 通道
type sshChannel struct {
	conn    *ssh.Client
	session *ssh.Session
	stdin   interface{ Write([]byte) (int, error) }
	pump    *pump
}

// DialSSH 建立SSH连接并打开交互式Shell。
// 网络设备普遍只支持旧版算法，这里显式放宽 kex/cipher/MAC 列表。
func DialSSH(ctx context.Context, cfg *SSHConfig, opts *SSHOptions) (Channel, error) {
	if cfg == nil {
		cfg = &SSHConfig{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	port := opts.Port
	if port < 1 || port > 65535 {
		port = 22
	}

	sshConfig := &ssh.ClientConfig{
		User:            opts.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
		Config: ssh.Config{
			// 兼容旧设备的密钥交换算法
			KeyExchanges: []string{
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha256",
				"diffie-hellman-group-exchange-sha1",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
			},
			// 兼容旧设备的加密算法
			Ciphers: []string{
				"aes128-ctr", "aes192-ctr", "aes256-ctr",
				"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
				"aes128-cbc", "aes192-cbc", "aes256-cbc", "3des-cbc",
			},
			// 兼容旧设备的MAC算法
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com", "hmac-sha2-256",
				"hmac-sha1", "hmac-sha1-96",
			},
		},
		HostKeyAlgorithms: []string{
			"ssh-rsa", "rsa-sha2-256", "rsa-sha2-512",
			"ecdsa-sha2-nistp256", "ecdsa-sha2-nistp384", "ecdsa-sha2-nistp521",
		},
	}

	if opts.Password != "" {
		// 同时尝试 password 与 keyboard-interactive，提高与网络设备的兼容性
		sshConfig.Auth = []ssh.AuthMethod{
			ssh.Password(opts.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = opts.Password
				}
				return answers, nil
			}),
		}
	}

	address := fmt.Sprintf("%s:%d", opts.Host, port)
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SSH connection: %w", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// 启用回显，兼容网络设备CLI；终端类型带回退
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	terms := []string{"vt100", "xterm", "ansi", "dumb"}
	if cfg.TermType != "" {
		terms = append([]string{cfg.TermType}, terms...)
	}
	var ptyErr error
	for _, term := range terms {
		if ptyErr = session.RequestPty(term, 80, 511, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request pty: %w", ptyErr)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to get stderr: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	ch := &sshChannel{
		conn:    client,
		session: session,
		stdin:   stdin,
		pump:    newPump(stdout, stderr),
	}

	if cfg.KeepAlive > 0 {
		go ch.keepAlive(cfg.KeepAlive)
	}
	return ch, nil
}

func (c *sshChannel) Write(data []byte) error {
	if _, err := c.stdin.Write(data); err != nil {
		return ErrChannelClosed
	}
	return nil
}

func (c *sshChannel) ReadAvailable() ([]byte, error) {
	return c.pump.drain()
}

func (c *sshChannel) Close() error {
	c.session.Close()
	return c.conn.Close()
}

// keepAlive 周期性发送保活请求；失败时关闭连接让读协程尽快感知断链
func (c *sshChannel) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if _, _, err := c.conn.SendRequest("keepalive@openssh.com", false, nil); err != nil {
			c.Close()
			return
		}
	}
}
