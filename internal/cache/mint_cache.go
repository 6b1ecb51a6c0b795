package cache

import (
	"sync"

	"solaboard/internal/types"
)

// MintCache 缓存 mint 精度，进程内有效，不落盘
type MintCache struct {
	mu       sync.RWMutex
	decimals map[types.Pubkey]uint8
}

func NewMintCache() *MintCache {
	return &MintCache{decimals: make(map[types.Pubkey]uint8)}
}

// Lookup 返回命中的精度以及未命中的 mint（去重，保持输入顺序）
func (c *MintCache) Lookup(mints []types.Pubkey) (map[types.Pubkey]uint8, []types.Pubkey) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hit := make(map[types.Pubkey]uint8, len(mints))
	var missing []types.Pubkey
	seen := make(map[types.Pubkey]struct{}, len(mints))
	for _, m := range mints {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		if d, ok := c.decimals[m]; ok {
			hit[m] = d
		} else {
			missing = append(missing, m)
		}
	}
	return hit, missing
}

func (c *MintCache) Insert(values map[types.Pubkey]uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for m, d := range values {
		c.decimals[m] = d
	}
}

func (c *MintCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.decimals)
}
