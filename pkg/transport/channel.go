package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// ErrChannelClosed 通道已关闭（底层连接断开后所有读写返回该错误）
var ErrChannelClosed = errors.New("transport: channel closed")

// Channel 原始字节通道：交互引擎唯一依赖的传输边界。
// Write 将字节写入远端；ReadAvailable 非阻塞返回当前已缓冲的全部字节，
// 没有数据时返回空切片而非阻塞。
type Channel interface {
	Write(data []byte) error
	ReadAvailable() ([]byte, error)
	Close() error
}

// pump 后台读取协程与缓冲区：把阻塞的 io.Reader 转成非阻塞的 ReadAvailable。
// stdout 与 stderr 合并到同一缓冲区，提示符检测需要看到全部输出。
type pump struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	wg     sync.WaitGroup
}

func newPump(readers ...io.Reader) *pump {
	p := &pump{}
	for _, r := range readers {
		if r == nil {
			continue
		}
		p.wg.Add(1)
		go p.run(r)
	}
	return p
}

func (p *pump) run(r io.Reader) {
	defer p.wg.Done()
	chunk := make([]byte, 2048)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			p.mu.Lock()
			p.buf.Write(chunk[:n])
			p.mu.Unlock()
		}
		if err != nil {
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()
			return
		}
	}
}

// drain 取走当前缓冲的全部字节。缓冲为空且读协程已退出时返回 ErrChannelClosed，
// 保证断链前已到达的数据不会丢失。
func (p *pump) drain() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buf.Len() == 0 {
		if p.closed {
			return nil, ErrChannelClosed
		}
		return nil, nil
	}
	out := make([]byte, p.buf.Len())
	copy(out, p.buf.Bytes())
	p.buf.Reset()
	return out, nil
}
