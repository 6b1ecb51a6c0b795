package metadata

import (
	"context"
	"fmt"

	"solaboard/internal/cache"
	"solaboard/internal/consts"
	"solaboard/internal/ledger"
	"solaboard/internal/logic/layout"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/types"
)

// DecimalsSource 决定最小单位与展示数量之间的换算精度
type DecimalsSource interface {
	Decimals(ctx context.Context, mints []types.Pubkey) (map[types.Pubkey]uint8, error)
}

// NativeDecimals 所有 mint 统一按原生 1e9 换算
type NativeDecimals struct{}

func (NativeDecimals) Decimals(_ context.Context, mints []types.Pubkey) (map[types.Pubkey]uint8, error) {
	out := make(map[types.Pubkey]uint8, len(mints))
	for _, m := range mints {
		out[m] = consts.NativeDecimals
	}
	return out, nil
}

// MintDecimals 读取 mint 账户的 decimals，结果进程内缓存
type MintDecimals struct {
	ledger ledger.Ledger
	cache  *cache.MintCache
}

func NewMintDecimals(l ledger.Ledger, c *cache.MintCache) *MintDecimals {
	return &MintDecimals{ledger: l, cache: c}
}

func (s *MintDecimals) Decimals(ctx context.Context, mints []types.Pubkey) (map[types.Pubkey]uint8, error) {
	hit, missing := s.cache.Lookup(mints)
	if len(missing) == 0 {
		return hit, nil
	}

	infos, err := s.ledger.GetMultipleAccounts(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load mint accounts: %w", err)
	}

	fetched := make(map[types.Pubkey]uint8, len(missing))
	for i, info := range infos {
		mint := missing[i]
		if info == nil {
			logger.Warnf("[MintDecimals] mint 账户不存在: mint=%s", mint)
			continue
		}
		m, err := layout.DecodeMint(info.Data)
		if err != nil {
			logger.Warnf("[MintDecimals] mint 解析失败: mint=%s err=%v", mint, err)
			continue
		}
		fetched[mint] = m.Decimals
	}
	s.cache.Insert(fetched)

	for m, d := range fetched {
		hit[m] = d
	}
	return hit, nil
}
