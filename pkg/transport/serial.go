package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialOptions 串口连接参数（console口直连）
type SerialOptions struct {
	Device   string `json:"device"`    // 例如 /dev/ttyUSB0
	BaudRate int    `json:"baud_rate"` // 默认 9600
}

type serialChannel struct {
	port serial.Port
	pump *pump
}

// DialSerial 打开串口通道
func DialSerial(opts *SerialOptions) (Channel, error) {
	baud := opts.BaudRate
	if baud <= 0 {
		baud = 9600
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(opts.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", opts.Device, err)
	}
	return &serialChannel{port: port, pump: newPump(port)}, nil
}

func (c *serialChannel) Write(data []byte) error {
	if _, err := c.port.Write(data); err != nil {
		return ErrChannelClosed
	}
	return nil
}

func (c *serialChannel) ReadAvailable() ([]byte, error) {
	return c.pump.drain()
}

func (c *serialChannel) Close() error {
	return c.port.Close()
}
