package domain

import (
	"fmt"
	"strconv"

	"solaboard/internal/consts"
	"solaboard/internal/types"
)

// Token 表示列表中的一行展示数据，每次聚合整体重建
type Token struct {
	TokenAddress string  `json:"tokenAddress"` // mint 地址，原生 SOL 为空
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Amount       float64 `json:"amount"` // 已换算的展示数量
	HasImage     bool    `json:"hasImage"`
	Image        string  `json:"image"`
}

func (t Token) IsNative() bool {
	return t.TokenAddress == ""
}

// Mint 原生 SOL 返回 NativeSOLMint
func (t Token) Mint() (types.Pubkey, error) {
	if t.IsNative() {
		return consts.NativeSOLMint, nil
	}
	return types.TryPubkeyFromBase58(t.TokenAddress)
}

// Display 形如 "2.5 SOL"
func (t Token) Display() string {
	return strconv.FormatFloat(t.Amount, 'f', -1, 64) + " " + t.Symbol
}

// NativeToken 原生 SOL 条目，始终排在第一位
func NativeToken(amount float64, image string) Token {
	return Token{
		Name:     consts.NativeName,
		Symbol:   consts.NativeSymbol,
		Amount:   amount,
		HasImage: true,
		Image:    image,
	}
}

// PlaceholderToken 元数据缺失时的默认条目
func PlaceholderToken(mint types.Pubkey, amount float64) Token {
	return Token{
		TokenAddress: mint.String(),
		Name:         consts.UnknownTokenName,
		Symbol:       consts.UnknownTokenSymbol,
		Amount:       amount,
	}
}

// TokenHolding 解码后的代币账户
type TokenHolding struct {
	Account   types.Pubkey // 代币账户地址
	Mint      types.Pubkey
	Owner     types.Pubkey
	RawAmount uint64 // 最小单位数量
}

// TokenMetadata Metaplex 链上元数据中用到的字段
type TokenMetadata struct {
	Mint   types.Pubkey
	Name   string
	Symbol string
	Uri    string
}

// OffChainMetadata 链下 JSON，只关心 image
type OffChainMetadata struct {
	Image *string `json:"image"`
}

// ShortAddress 窄屏展示时截断地址
func ShortAddress(addr string, max int) string {
	if max <= 0 || len(addr) <= max {
		return addr
	}
	return addr[:max]
}

func (h TokenHolding) String() string {
	return fmt.Sprintf("account=%s mint=%s amount=%d", h.Account, h.Mint, h.RawAmount)
}
