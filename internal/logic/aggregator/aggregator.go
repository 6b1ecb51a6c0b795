package aggregator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"solaboard/internal/consts"
	"solaboard/internal/ledger"
	"solaboard/internal/logic/domain"
	"solaboard/internal/logic/layout"
	"solaboard/internal/logic/metadata"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/tools"
	"solaboard/internal/types"
	"solaboard/pkg/utils"

	"github.com/zeromicro/go-zero/core/mr"
)

type Options struct {
	TokenProgram types.Pubkey // 列举代币账户时使用的程序
	NativeImage  string       // SOL 图标
	Concurrency  int          // 元数据 / 链下拉取的并发上限，<=0 不限制
}

// Aggregator 组装钱包的代币列表：余额 + 代币账户 + 元数据
type Aggregator struct {
	ledger   ledger.Ledger
	reader   metadata.Reader
	fetcher  metadata.URIFetcher
	decimals metadata.DecimalsSource
	opts     Options
}

func New(l ledger.Ledger, reader metadata.Reader, fetcher metadata.URIFetcher, decimals metadata.DecimalsSource, opts Options) *Aggregator {
	return &Aggregator{ledger: l, reader: reader, fetcher: fetcher, decimals: decimals, opts: opts}
}

// Aggregate 生成完整列表，原生 SOL 在首位，其余保持节点返回的顺序。
// owner 为零值表示未连接钱包，直接返回空列表且不发起请求。
func (a *Aggregator) Aggregate(ctx context.Context, owner types.Pubkey) (tokens []domain.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Aggregator] panic: %v\n%s", r, debug.Stack())
			tokens, err = nil, fmt.Errorf("aggregate panic: %v", r)
		}
	}()

	if owner.IsZero() {
		return []domain.Token{}, nil
	}
	start := time.Now()

	// 1. 余额与代币账户并发获取
	var (
		balance  uint64
		accounts []ledger.KeyedAccount
	)
	err = mr.Finish(func() error {
		var err error
		balance, err = a.ledger.GetBalance(ctx, owner)
		return err
	}, func() error {
		var err error
		accounts, err = a.ledger.GetTokenAccountsByOwner(ctx, owner, a.opts.TokenProgram)
		return err
	})
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, "load balances", err)
	}

	// 2. 解析代币账户，单条失败跳过
	holdings := a.decodeHoldings(owner, accounts)

	// 3. 换算数量并生成占位条目
	list, err := a.placeholders(ctx, holdings)
	if err != nil {
		return nil, err
	}

	// 4. 链上元数据，5. 链下图片
	metas := a.resolveMetadata(ctx, holdings, list)
	a.resolveImages(ctx, metas, list)

	tokens = make([]domain.Token, 0, len(list)+1)
	tokens = append(tokens, domain.NativeToken(domain.ToDisplayAmount(balance, consts.NativeDecimals), a.opts.NativeImage))
	tokens = append(tokens, list...)

	logger.Infof("[Aggregator] owner=%s 代币账户=%d 有效=%d 耗时=%v", owner, len(accounts), len(holdings), time.Since(start))
	return tokens, nil
}

func (a *Aggregator) decodeHoldings(owner types.Pubkey, accounts []ledger.KeyedAccount) []domain.TokenHolding {
	holdings := make([]domain.TokenHolding, 0, len(accounts))
	for _, acc := range accounts {
		if !tools.IsTokenAccountOf(acc.Account.Owner, a.opts.TokenProgram) {
			logger.Warnf("[Aggregator] 账户不属于 Token 程序: account=%s program=%s", acc.Pubkey, acc.Account.Owner)
			continue
		}
		decoded, err := layout.DecodeTokenAccount(acc.Account.Data)
		if err != nil {
			logger.Warnf("[Aggregator] 代币账户解析失败: account=%s err=%v", acc.Pubkey, err)
			continue
		}
		if decoded.Owner != owner {
			logger.Warnf("[Aggregator] 代币账户 owner 不匹配: account=%s owner=%s", acc.Pubkey, decoded.Owner)
			continue
		}
		holdings = append(holdings, domain.TokenHolding{
			Account:   acc.Pubkey,
			Mint:      decoded.Mint,
			Owner:     decoded.Owner,
			RawAmount: decoded.Amount,
		})
	}
	return holdings
}

func (a *Aggregator) placeholders(ctx context.Context, holdings []domain.TokenHolding) ([]domain.Token, error) {
	list := make([]domain.Token, len(holdings))
	if len(holdings) == 0 {
		return list, nil
	}

	decimals, err := a.decimals.Decimals(ctx, distinctMints(holdings))
	if err != nil {
		return nil, domain.NewError(domain.KindNetwork, "load decimals", err)
	}
	for i, h := range holdings {
		d, ok := decimals[h.Mint]
		if !ok {
			logger.Warnf("[Aggregator] 缺少 mint 精度，按原生精度换算: mint=%s", h.Mint)
			d = consts.NativeDecimals
		}
		list[i] = domain.PlaceholderToken(h.Mint, domain.ToDisplayAmount(h.RawAmount, d))
	}
	return list, nil
}

// resolveMetadata 每个 mint 读一次，成功则覆盖名称和符号；返回下标对齐的元数据（失败为 nil）
func (a *Aggregator) resolveMetadata(ctx context.Context, holdings []domain.TokenHolding, list []domain.Token) []*domain.TokenMetadata {
	mints := distinctMints(holdings)
	settled := utils.SettleAll(ctx, len(mints), a.opts.Concurrency, func(ctx context.Context, i int) (*domain.TokenMetadata, error) {
		return a.reader.ReadMetadata(ctx, mints[i])
	})

	byMint := make(map[types.Pubkey]*domain.TokenMetadata, len(mints))
	for i, s := range settled {
		if !s.Ok() {
			logger.Debugf("[Aggregator] 元数据读取失败: mint=%s err=%v", mints[i], s.Err)
			continue
		}
		byMint[mints[i]] = s.Value
	}

	metas := make([]*domain.TokenMetadata, len(holdings))
	for i, h := range holdings {
		meta, ok := byMint[h.Mint]
		if !ok {
			continue
		}
		list[i].Name = meta.Name
		list[i].Symbol = meta.Symbol
		metas[i] = meta
	}
	return metas
}

// resolveImages 按列表下标拉取链下 JSON，有 image 字段才标记 HasImage
func (a *Aggregator) resolveImages(ctx context.Context, metas []*domain.TokenMetadata, list []domain.Token) {
	var indexes []int
	for i, meta := range metas {
		if meta != nil && metadata.IsWebURI(meta.Uri) {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return
	}

	settled := utils.SettleAll(ctx, len(indexes), a.opts.Concurrency, func(ctx context.Context, i int) (*domain.OffChainMetadata, error) {
		return a.fetcher.Fetch(ctx, metas[indexes[i]].Uri)
	})
	for i, s := range settled {
		idx := indexes[i]
		if !s.Ok() {
			logger.Debugf("[Aggregator] 链下元数据拉取失败: uri=%s err=%v", metas[idx].Uri, s.Err)
			continue
		}
		if s.Value == nil || s.Value.Image == nil {
			continue
		}
		list[idx].HasImage = true
		list[idx].Image = *s.Value.Image
	}
}

func distinctMints(holdings []domain.TokenHolding) []types.Pubkey {
	seen := make(map[types.Pubkey]struct{}, len(holdings))
	mints := make([]types.Pubkey, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Mint]; ok {
			continue
		}
		seen[h.Mint] = struct{}{}
		mints = append(mints, h.Mint)
	}
	return mints
}
