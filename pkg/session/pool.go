package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DialFunc 建立并准备好一个设备会话（传输拨号 + Prepare）
type DialFunc func(ctx context.Context, target Target) (*Session, error)

// Target 池键：一台设备的连接坐标
type Target struct {
	Host     string
	Port     int
	Username string
	Platform string
}

func (t Target) key() string {
	return fmt.Sprintf("%s:%d@%s/%s", t.Host, t.Port, t.Username, t.Platform)
}

// PoolConfig 会话池配置
type PoolConfig struct {
	MaxIdle     int           `yaml:"max_idle" mapstructure:"max_idle"`
	MaxActive   int           `yaml:"max_active" mapstructure:"max_active"`
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// Pool 设备会话池。同一设备的会话复用已定位的提示符与模式状态，
// 避免重复的登录和准备开销；空闲超时后优雅断开。
// 同一设备允许并存多条会话，按会话指针归还，并发拨号互不覆盖。
type Pool struct {
	dial        DialFunc
	sessions    map[string][]*pooledSession
	mutex       sync.RWMutex
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

type pooledSession struct {
	sess     *Session
	target   Target
	lastUsed time.Time
	inUse    bool
	created  time.Time
}

// NewPool 创建会话池并启动空闲清理协程
func NewPool(cfg *PoolConfig, dial DialFunc) *Pool {
	if cfg == nil {
		cfg = &PoolConfig{}
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 8
	}
	maxActive := cfg.MaxActive
	if maxActive <= 0 {
		maxActive = 64
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	p := &Pool{
		dial:        dial,
		sessions:    make(map[string][]*pooledSession),
		maxIdle:     maxIdle,
		maxActive:   maxActive,
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	go p.cleanupLoop()
	return p
}

// Get 获取设备会话：优先复用空闲且存活的会话，否则新建
func (p *Pool) Get(ctx context.Context, target Target) (*Session, error) {
	key := target.key()

	p.mutex.Lock()
	kept := p.sessions[key][:0]
	var reuse *pooledSession
	for _, ps := range p.sessions[key] {
		if !ps.sess.Alive() && !ps.inUse {
			continue
		}
		kept = append(kept, ps)
		if reuse == nil && !ps.inUse {
			reuse = ps
		}
	}
	p.sessions[key] = kept
	if reuse != nil {
		reuse.inUse = true
		reuse.lastUsed = time.Now()
		p.mutex.Unlock()
		return reuse.sess, nil
	}
	if p.activeCount() >= p.maxActive {
		p.mutex.Unlock()
		return nil, fmt.Errorf("session pool is full, active sessions: %d", p.maxActive)
	}
	p.mutex.Unlock()

	// 拨号在锁外进行，交互式准备可能耗时数秒
	sess, err := p.dial(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to establish session to %s: %w", target.Host, err)
	}

	p.mutex.Lock()
	p.sessions[key] = append(p.sessions[key], &pooledSession{
		sess:     sess,
		target:   target,
		lastUsed: time.Now(),
		inUse:    true,
		created:  time.Now(),
	})
	p.mutex.Unlock()
	return sess, nil
}

// Release 归还会话；会话已失效时从池中移除
func (p *Pool) Release(target Target, sess *Session) {
	key := target.key()
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for i, ps := range p.sessions[key] {
		if ps.sess != sess {
			continue
		}
		if !ps.sess.Alive() {
			p.sessions[key] = append(p.sessions[key][:i], p.sessions[key][i+1:]...)
			return
		}
		ps.inUse = false
		ps.lastUsed = time.Now()
		return
	}
}

// Discard 归还并断开指定会话
func (p *Pool) Discard(ctx context.Context, target Target, sess *Session) error {
	key := target.key()
	p.mutex.Lock()
	var found *pooledSession
	for i, ps := range p.sessions[key] {
		if ps.sess == sess {
			found = ps
			p.sessions[key] = append(p.sessions[key][:i], p.sessions[key][i+1:]...)
			break
		}
	}
	p.mutex.Unlock()
	if found == nil {
		return nil
	}
	return found.sess.Disconnect(ctx)
}

// Close 断开全部会话并停止清理协程
func (p *Pool) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mutex.Lock()
	defer p.mutex.Unlock()
	var lastErr error
	for key, list := range p.sessions {
		for _, ps := range list {
			if err := ps.sess.Disconnect(ctx); err != nil {
				lastErr = err
			}
		}
		delete(p.sessions, key)
	}
	return lastErr
}

// Stats 池统计信息
func (p *Pool) Stats() map[string]interface{} {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	total := 0
	for _, list := range p.sessions {
		total += len(list)
	}
	return map[string]interface{}{
		"total_sessions":  total,
		"active_sessions": p.activeCount(),
		"idle_sessions":   p.idleCount(),
		"max_idle":        p.maxIdle,
		"max_active":      p.maxActive,
	}
}

// Health 池健康检查：有会话但全部失联视为异常
func (p *Pool) Health() error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	total := 0
	for _, list := range p.sessions {
		for _, ps := range list {
			total++
			if ps.sess.Alive() {
				return nil
			}
		}
	}
	if total == 0 {
		return nil
	}
	return fmt.Errorf("all pooled sessions are disconnected")
}

func (p *Pool) activeCount() int {
	count := 0
	for _, list := range p.sessions {
		for _, ps := range list {
			if ps.inUse {
				count++
			}
		}
	}
	return count
}

func (p *Pool) idleCount() int {
	count := 0
	for _, list := range p.sessions {
		for _, ps := range list {
			if !ps.inUse {
				count++
			}
		}
	}
	return count
}

func (p *Pool) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.cleanupExpired()
		}
	}
}

// cleanupExpired 回收空闲超时与已失联的会话，并压缩超额空闲
func (p *Pool) cleanupExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.mutex.Lock()
	now := time.Now()
	var victims []*pooledSession
	for key, list := range p.sessions {
		kept := list[:0]
		for _, ps := range list {
			if !ps.inUse && (now.Sub(ps.lastUsed) > p.idleTimeout || !ps.sess.Alive()) {
				victims = append(victims, ps)
				continue
			}
			kept = append(kept, ps)
		}
		if len(kept) == 0 {
			delete(p.sessions, key)
		} else {
			p.sessions[key] = kept
		}
	}
	if excess := p.idleCount() - p.maxIdle; excess > 0 {
		for key, list := range p.sessions {
			kept := list[:0]
			for _, ps := range list {
				if excess > 0 && !ps.inUse {
					victims = append(victims, ps)
					excess--
					continue
				}
				kept = append(kept, ps)
			}
			if len(kept) == 0 {
				delete(p.sessions, key)
			} else {
				p.sessions[key] = kept
			}
			if excess <= 0 {
				break
			}
		}
	}
	p.mutex.Unlock()

	for _, ps := range victims {
		_ = ps.sess.Disconnect(ctx)
	}
}
