package transport

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPumpDrainsBufferedBytes(t *testing.T) {
	r, w := io.Pipe()
	p := newPump(r)

	go func() {
		_, _ = w.Write([]byte("hostname# "))
	}()

	var got []byte
	waitFor(t, func() bool {
		data, err := p.drain()
		require.NoError(t, err)
		got = append(got, data...)
		return len(got) > 0
	})
	assert.Equal(t, "hostname# ", string(got))

	// 无数据时返回空而非阻塞
	data, err := p.drain()
	require.NoError(t, err)
	assert.Empty(t, data)
	_ = w.Close()
}

func TestPumpMergesMultipleReaders(t *testing.T) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	p := newPump(r1, r2)

	go func() { _, _ = w1.Write([]byte("out")) }()
	go func() { _, _ = w2.Write([]byte("err")) }()

	var got string
	waitFor(t, func() bool {
		data, _ := p.drain()
		got += string(data)
		return len(got) == 6
	})
	assert.Contains(t, got, "out")
	assert.Contains(t, got, "err")
	_ = w1.Close()
	_ = w2.Close()
}

func TestPumpReportsClosedAfterBufferEmpty(t *testing.T) {
	r, w := io.Pipe()
	p := newPump(r)

	_, _ = w.Write([]byte("final words"))
	_ = w.Close()

	// 断链前已到达的数据必须先读到
	var got []byte
	waitFor(t, func() bool {
		data, err := p.drain()
		got = append(got, data...)
		if err != nil {
			return true
		}
		return false
	})
	assert.Equal(t, "final words", string(got))

	_, err := p.drain()
	assert.ErrorIs(t, err, ErrChannelClosed)
}
