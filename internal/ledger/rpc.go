package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"solaboard/internal/config"
	"solaboard/internal/logic/domain"
	"solaboard/internal/metrics"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/types"

	"github.com/blocto/solana-go-sdk/client"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"golang.org/x/time/rate"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type contextValue[T any] struct {
	Value T `json:"value"`
}

type rpcAccount struct {
	Lamports uint64   `json:"lamports"`
	Owner    string   `json:"owner"`
	Data     []string `json:"data"` // [payload, encoding]
}

type rpcKeyedAccount struct {
	Pubkey  string     `json:"pubkey"`
	Account rpcAccount `json:"account"`
}

type rpcSignatureStatus struct {
	Slot               uint64  `json:"slot"`
	ConfirmationStatus *string `json:"confirmationStatus"`
	Err                any     `json:"err"`
}

// RpcLedger 基于 JSON-RPC 的 Ledger 实现
type RpcLedger struct {
	client     *client.Client
	limiter    *rate.Limiter // nil 表示不限速
	commitment string
	timeout    time.Duration
}

func NewRpcLedger(c config.RpcConfig) *RpcLedger {
	var limiter *rate.Limiter
	if c.MaxRps > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.MaxRps), max(c.Burst, 1))
	}
	return &RpcLedger{
		client:     client.NewClient(c.Endpoint),
		limiter:    limiter,
		commitment: c.Commitment,
		timeout:    c.RequestTimeout(),
	}
}

func (l *RpcLedger) prepare(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if l.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		return ctx, cancel, nil
	}
	return ctx, func() {}, nil
}

// call 发起一次原始调用并把 result 解到 out
func (l *RpcLedger) call(ctx context.Context, out any, method string, params ...any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveRpc(method, start, err) }()

	ctx, cancel, err := l.prepare(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	body, err := l.client.RpcClient.Call(ctx, append([]any{method}, params...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (l *RpcLedger) GetBalance(ctx context.Context, owner types.Pubkey) (balance uint64, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRpc("getBalance", start, err) }()

	ctx, cancel, err := l.prepare(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	balance, err = l.client.GetBalance(ctx, owner.String())
	if err != nil {
		return 0, fmt.Errorf("getBalance: %w", err)
	}
	return balance, nil
}

func (l *RpcLedger) GetTokenAccountsByOwner(ctx context.Context, owner, program types.Pubkey) ([]KeyedAccount, error) {
	var result contextValue[[]json.RawMessage]
	err := l.call(ctx, &result, "getTokenAccountsByOwner",
		owner.String(),
		map[string]any{"programId": program.String()},
		map[string]any{"encoding": "base64", "commitment": l.commitment},
	)
	if err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccount, 0, len(result.Value))
	for i, raw := range result.Value {
		var item rpcKeyedAccount
		if err := json.Unmarshal(raw, &item); err != nil {
			logger.Warnf("[Ledger] 代币账户记录解析失败: index=%d err=%v", i, err)
			continue
		}
		pubkey, err := types.TryPubkeyFromBase58(item.Pubkey)
		if err != nil {
			logger.Warnf("[Ledger] 代币账户地址非法: index=%d err=%v", i, err)
			continue
		}
		info, err := decodeAccount(&item.Account)
		if err != nil {
			logger.Warnf("[Ledger] 代币账户数据解析失败: account=%s err=%v", item.Pubkey, err)
			continue
		}
		accounts = append(accounts, KeyedAccount{Pubkey: pubkey, Account: *info})
	}
	return accounts, nil
}

func (l *RpcLedger) GetAccountInfo(ctx context.Context, addr types.Pubkey) (*AccountInfo, error) {
	var result contextValue[*rpcAccount]
	err := l.call(ctx, &result, "getAccountInfo",
		addr.String(),
		map[string]any{"encoding": "base64", "commitment": l.commitment},
	)
	if err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}
	return decodeAccount(result.Value)
}

func (l *RpcLedger) GetMultipleAccounts(ctx context.Context, addrs []types.Pubkey) ([]*AccountInfo, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(addrs))
	for i, a := range addrs {
		keys[i] = a.String()
	}

	var result contextValue[[]*rpcAccount]
	err := l.call(ctx, &result, "getMultipleAccounts",
		keys,
		map[string]any{"encoding": "base64", "commitment": l.commitment},
	)
	if err != nil {
		return nil, err
	}
	if len(result.Value) != len(addrs) {
		return nil, fmt.Errorf("getMultipleAccounts: 返回账户数与请求不一致: got=%d want=%d", len(result.Value), len(addrs))
	}

	infos := make([]*AccountInfo, len(addrs))
	for i, acc := range result.Value {
		if acc == nil {
			continue
		}
		// 账户存在但无法解析时不能当作不存在处理
		info, err := decodeAccount(acc)
		if err != nil {
			logger.Warnf("[Ledger] 账户数据解析失败: account=%s err=%v", keys[i], err)
			return nil, domain.NewError(domain.KindDecode, "getMultipleAccounts", fmt.Errorf("account %s: %w", keys[i], err))
		}
		infos[i] = info
	}
	return infos, nil
}

func (l *RpcLedger) GetLatestBlockhash(ctx context.Context) (LatestBlockhash, error) {
	var result contextValue[struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}]
	err := l.call(ctx, &result, "getLatestBlockhash", map[string]any{"commitment": l.commitment})
	if err != nil {
		return LatestBlockhash{}, err
	}
	if _, err := types.HashFromBase58(result.Value.Blockhash); err != nil {
		return LatestBlockhash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	return LatestBlockhash{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

func (l *RpcLedger) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := l.call(ctx, &height, "getBlockHeight", map[string]any{"commitment": l.commitment}); err != nil {
		return 0, err
	}
	return height, nil
}

func (l *RpcLedger) SendTransaction(ctx context.Context, tx sdktypes.Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	var signature string
	err = l.call(ctx, &signature, "sendTransaction",
		base64.StdEncoding.EncodeToString(raw),
		map[string]any{"encoding": "base64", "preflightCommitment": l.commitment},
	)
	if err != nil {
		return "", err
	}
	if signature == "" {
		return "", errors.New("sendTransaction: empty signature")
	}
	return signature, nil
}

func (l *RpcLedger) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var result contextValue[[]*rpcSignatureStatus]
	err := l.call(ctx, &result, "getSignatureStatuses",
		[]string{signature},
		map[string]any{"searchTransactionHistory": false},
	)
	if err != nil {
		return nil, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	s := result.Value[0]
	status := &SignatureStatus{Slot: s.Slot, Err: s.Err}
	if s.ConfirmationStatus != nil {
		status.ConfirmationStatus = *s.ConfirmationStatus
	}
	return status, nil
}

func decodeAccount(acc *rpcAccount) (*AccountInfo, error) {
	owner, err := types.TryPubkeyFromBase58(acc.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if len(acc.Data) != 2 || acc.Data[1] != "base64" {
		return nil, fmt.Errorf("unexpected data encoding %v", acc.Data)
	}
	data, err := base64.StdEncoding.DecodeString(acc.Data[0])
	if err != nil {
		return nil, fmt.Errorf("decode base64 data: %w", err)
	}
	return &AccountInfo{Owner: owner, Lamports: acc.Lamports, Data: data}, nil
}
