package driver

import (
	"strings"
	"sync"
)

// 注册中心：按平台名称获取驱动数据
var (
	registryMu sync.RWMutex
	registry   = map[string]*Platform{
		"default": Default(),
	}
)

// Register 注册一个平台驱动；平台包在 init() 中调用
func Register(p *Platform) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Name] = p
}

// Get 获取指定平台驱动；未注册时按厂商前缀回退，最终回退 default
func Get(name string) *Platform {
	registryMu.RLock()
	defer registryMu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := registry[key]; ok {
		return p
	}
	// 厂商前缀回退：cisco_xxx -> 任一 cisco_ 平台族的同前缀项
	if i := strings.IndexByte(key, '_'); i > 0 {
		vendor := key[:i+1]
		for k, p := range registry {
			if strings.HasPrefix(k, vendor) {
				return p
			}
		}
	}
	return registry["default"]
}

// Names 返回已注册平台名（测试与API枚举用）
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
