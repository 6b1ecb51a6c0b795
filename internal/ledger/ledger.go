package ledger

import (
	"context"

	"solaboard/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// AccountInfo 链上账户，Data 已做 base64 解码
type AccountInfo struct {
	Owner    types.Pubkey
	Lamports uint64
	Data     []byte
}

// KeyedAccount 带地址的账户，getTokenAccountsByOwner 的单条结果
type KeyedAccount struct {
	Pubkey  types.Pubkey
	Account AccountInfo
}

// LatestBlockhash 交易使用的 blockhash 及其有效期
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureStatus getSignatureStatuses 的单条结果
type SignatureStatus struct {
	Slot               uint64
	ConfirmationStatus string
	Err                any // 非 nil 表示链上执行失败
}

// Ledger 对节点的只读查询与提交，不做重试
type Ledger interface {
	GetBalance(ctx context.Context, owner types.Pubkey) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner, program types.Pubkey) ([]KeyedAccount, error)
	// GetAccountInfo 账户不存在时返回 nil, nil
	GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error)
	// GetMultipleAccounts 结果与入参对齐，不存在的账户为 nil
	GetMultipleAccounts(ctx context.Context, addrs []types.Pubkey) ([]*AccountInfo, error)
	GetLatestBlockhash(ctx context.Context) (LatestBlockhash, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error)
	// GetSignatureStatus 节点尚未看到该签名时返回 nil, nil
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

// Confirmer 等待签名达到指定确认级别
type Confirmer interface {
	Confirm(ctx context.Context, signature string, blockhash LatestBlockhash) error
}

var commitmentRank = map[string]int{
	"processed": 1,
	"confirmed": 2,
	"finalized": 3,
}

// Reached 当前状态是否已达到目标确认级别
func Reached(status, target string) bool {
	got, ok := commitmentRank[status]
	if !ok {
		return false
	}
	return got >= commitmentRank[target]
}
