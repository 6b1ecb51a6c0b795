package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"solaboard/internal/config"
	"solaboard/internal/ledger"
	"solaboard/internal/logic/domain"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/types"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/zeromicro/go-zero/core/jsonx"
)

var ErrNoKeypair = errors.New("wallet: no keypair configured")

// Provider 钱包身份提供方：连接状态、签名、签名并发送
type Provider interface {
	// PublicKey 未连接时 ok=false
	PublicKey() (pk types.Pubkey, ok bool)
	SignTransaction(ctx context.Context, msg sdktypes.Message) (sdktypes.Transaction, error)
}

// Sender 可选能力：由钱包直接签名并广播
type Sender interface {
	SignAndSend(ctx context.Context, msg sdktypes.Message) (string, error)
}

// KeypairWallet 本地密钥钱包
type KeypairWallet struct {
	mu        sync.RWMutex
	account   sdktypes.Account
	loaded    bool
	connected bool

	ledger ledger.Ledger // SignAndSend 使用，可为 nil

	// approve 签名前确认，返回 false 视为用户拒绝
	approve func(ctx context.Context, msg sdktypes.Message) bool
}

// NewKeypairWallet 空钱包，调用 Load* 后 Connect
func NewKeypairWallet(l ledger.Ledger) *KeypairWallet {
	return &KeypairWallet{ledger: l}
}

// NewFromAccount 直接使用已有账户，处于已连接状态
func NewFromAccount(account sdktypes.Account, l ledger.Ledger) *KeypairWallet {
	return &KeypairWallet{account: account, loaded: true, connected: true, ledger: l}
}

// NewFromConfig 按配置加载密钥：先读文件，再读环境变量
func NewFromConfig(c config.WalletConfig, l ledger.Ledger) (*KeypairWallet, error) {
	w := NewKeypairWallet(l)
	switch {
	case c.KeypairPath != "":
		if err := w.LoadFile(c.KeypairPath); err != nil {
			return nil, err
		}
	case c.SecretEnv != "" && os.Getenv(c.SecretEnv) != "":
		if err := w.LoadBase58(os.Getenv(c.SecretEnv)); err != nil {
			return nil, err
		}
	default:
		logger.Warnf("[Wallet] 未配置密钥，钱包保持未连接状态")
		return w, nil
	}
	if c.AutoConnect {
		if err := w.Connect(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// LoadFile 读取 solana-keygen 生成的 JSON 数组格式密钥
func (w *KeypairWallet) LoadFile(path string) error {
	raw, err := os.ReadFile(expandHome(path))
	if err != nil {
		return fmt.Errorf("read keypair file: %w", err)
	}
	var nums []int
	if err := jsonx.Unmarshal(raw, &nums); err != nil {
		return fmt.Errorf("parse keypair file: %w", err)
	}
	secret := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("parse keypair file: byte %d out of range", i)
		}
		secret[i] = byte(n)
	}
	return w.LoadBytes(secret)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (w *KeypairWallet) LoadBytes(secret []byte) error {
	account, err := sdktypes.AccountFromBytes(secret)
	if err != nil {
		return fmt.Errorf("invalid keypair: %w", err)
	}
	w.setAccount(account)
	return nil
}

func (w *KeypairWallet) LoadBase58(secret string) error {
	account, err := sdktypes.AccountFromBase58(strings.TrimSpace(secret))
	if err != nil {
		return fmt.Errorf("invalid keypair: %w", err)
	}
	w.setAccount(account)
	return nil
}

func (w *KeypairWallet) setAccount(account sdktypes.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.account = account
	w.loaded = true
}

// SetApprover 设置签名确认回调，nil 表示自动同意
func (w *KeypairWallet) SetApprover(fn func(ctx context.Context, msg sdktypes.Message) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.approve = fn
}

func (w *KeypairWallet) Connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded {
		return ErrNoKeypair
	}
	w.connected = true
	logger.Infof("[Wallet] 已连接: %s", w.account.PublicKey.ToBase58())
	return nil
}

func (w *KeypairWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connected {
		logger.Infof("[Wallet] 已断开: %s", w.account.PublicKey.ToBase58())
	}
	w.connected = false
}

func (w *KeypairWallet) PublicKey() (types.Pubkey, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.connected {
		return types.Pubkey{}, false
	}
	return types.PubkeyFromCommon(w.account.PublicKey), true
}

func (w *KeypairWallet) SignTransaction(ctx context.Context, msg sdktypes.Message) (sdktypes.Transaction, error) {
	w.mu.RLock()
	account, connected, approve := w.account, w.connected, w.approve
	w.mu.RUnlock()

	if !connected {
		return sdktypes.Transaction{}, domain.ErrWalletNotConnected
	}
	if err := ctx.Err(); err != nil {
		return sdktypes.Transaction{}, err
	}
	if approve != nil && !approve(ctx, msg) {
		return sdktypes.Transaction{}, domain.ErrSignatureRejected
	}
	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: msg,
		Signers: []sdktypes.Account{account},
	})
	if err != nil {
		return sdktypes.Transaction{}, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// SignAndSend 签名后通过 ledger 广播
func (w *KeypairWallet) SignAndSend(ctx context.Context, msg sdktypes.Message) (string, error) {
	if w.ledger == nil {
		return "", errors.New("wallet: no ledger for sending")
	}
	tx, err := w.SignTransaction(ctx, msg)
	if err != nil {
		return "", err
	}
	return w.ledger.SendTransaction(ctx, tx)
}

var (
	_ Provider = (*KeypairWallet)(nil)
	_ Sender   = (*KeypairWallet)(nil)
)
