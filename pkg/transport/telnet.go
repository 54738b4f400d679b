package transport

import (
	"fmt"

	"github.com/reiver/go-telnet"
)

// TelnetOptions Telnet连接参数（登录交互由会话层的登录序列完成）
type TelnetOptions struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// telnetChannel 基于 reiver/go-telnet 的通道；协商由库内部处理
type telnetChannel struct {
	conn *telnet.Conn
	pump *pump
}

// DialTelnet 建立Telnet连接
func DialTelnet(opts *TelnetOptions) (Channel, error) {
	port := opts.Port
	if port < 1 || port > 65535 {
		port = 23
	}
	conn, err := telnet.DialTo(fmt.Sprintf("%s:%d", opts.Host, port))
	if err != nil {
		return nil, fmt.Errorf("failed to dial telnet: %w", err)
	}
	return &telnetChannel{conn: conn, pump: newPump(conn)}, nil
}

func (c *telnetChannel) Write(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return ErrChannelClosed
	}
	return nil
}

func (c *telnetChannel) ReadAvailable() ([]byte, error) {
	return c.pump.drain()
}

func (c *telnetChannel) Close() error {
	return c.conn.Close()
}
