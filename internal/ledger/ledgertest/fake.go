// Package ledgertest 提供内存版 Ledger，供各业务包的单元测试使用
package ledgertest

import (
	"context"
	"errors"
	"sync"

	"solaboard/internal/ledger"
	"solaboard/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

var ErrNotConfigured = errors.New("ledgertest: not configured")

// Fake 内存 Ledger，Errors 按方法名注入失败
type Fake struct {
	mu sync.Mutex

	Balances      map[types.Pubkey]uint64
	TokenAccounts map[types.Pubkey][]ledger.KeyedAccount // owner -> accounts
	Accounts      map[types.Pubkey]*ledger.AccountInfo
	Blockhash     ledger.LatestBlockhash
	Height        uint64
	Statuses      map[string]*ledger.SignatureStatus
	Errors        map[string]error

	Calls map[string]int
	Sent  []sdktypes.Transaction
	// Programs 记录 GetTokenAccountsByOwner 收到的 program
	Programs []types.Pubkey
}

func New() *Fake {
	return &Fake{
		Balances:      map[types.Pubkey]uint64{},
		TokenAccounts: map[types.Pubkey][]ledger.KeyedAccount{},
		Accounts:      map[types.Pubkey]*ledger.AccountInfo{},
		Statuses:      map[string]*ledger.SignatureStatus{},
		Errors:        map[string]error{},
		Calls:         map[string]int{},
	}
}

func (f *Fake) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	return f.Errors[method]
}

// TotalCalls 所有方法调用次数之和
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		n += c
	}
	return n
}

func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *Fake) SetAccount(addr types.Pubkey, info *ledger.AccountInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[addr] = info
}

func (f *Fake) GetBalance(ctx context.Context, owner types.Pubkey) (uint64, error) {
	if err := f.record("GetBalance"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Balances[owner], nil
}

func (f *Fake) GetTokenAccountsByOwner(ctx context.Context, owner, program types.Pubkey) ([]ledger.KeyedAccount, error) {
	if err := f.record("GetTokenAccountsByOwner"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Programs = append(f.Programs, program)
	return append([]ledger.KeyedAccount(nil), f.TokenAccounts[owner]...), nil
}

func (f *Fake) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*ledger.AccountInfo, error) {
	if err := f.record("GetAccountInfo"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Accounts[addr], nil
}

func (f *Fake) GetMultipleAccounts(ctx context.Context, addrs []types.Pubkey) ([]*ledger.AccountInfo, error) {
	if err := f.record("GetMultipleAccounts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ledger.AccountInfo, len(addrs))
	for i, a := range addrs {
		out[i] = f.Accounts[a]
	}
	return out, nil
}

func (f *Fake) GetLatestBlockhash(ctx context.Context) (ledger.LatestBlockhash, error) {
	if err := f.record("GetLatestBlockhash"); err != nil {
		return ledger.LatestBlockhash{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Blockhash.Blockhash == "" {
		return ledger.LatestBlockhash{}, ErrNotConfigured
	}
	return f.Blockhash, nil
}

func (f *Fake) GetBlockHeight(ctx context.Context) (uint64, error) {
	if err := f.record("GetBlockHeight"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Height, nil
}

// SendTransaction 返回交易第一个签名的 base58
func (f *Fake) SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error) {
	if err := f.record("SendTransaction"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, tx)
	if len(tx.Signatures) == 0 {
		return "", errors.New("ledgertest: unsigned transaction")
	}
	return base58.Encode(tx.Signatures[0]), nil
}

func (f *Fake) GetSignatureStatus(ctx context.Context, signature string) (*ledger.SignatureStatus, error) {
	if err := f.record("GetSignatureStatus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Statuses[signature], nil
}

// Confirmer 立即返回预设结果
type Confirmer struct {
	Err   error
	Calls int
}

func (c *Confirmer) Confirm(ctx context.Context, signature string, blockhash ledger.LatestBlockhash) error {
	c.Calls++
	return c.Err
}

var (
	_ ledger.Ledger    = (*Fake)(nil)
	_ ledger.Confirmer = (*Confirmer)(nil)
)
