package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solaboard/internal/consts"
	"solaboard/internal/logic/domain"
	"solaboard/internal/logic/transfer"
	"solaboard/internal/metrics"
	"solaboard/internal/notify"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/types"
	"solaboard/internal/wallet"
)

// Aggregator 生成代币列表
type Aggregator interface {
	Aggregate(ctx context.Context, owner types.Pubkey) ([]domain.Token, error)
}

// Sender 提交转账
type Sender interface {
	Send(ctx context.Context, req transfer.Request) (string, error)
}

// Wallet 可连接 / 断开的钱包
type Wallet interface {
	wallet.Provider
	Connect() error
	Disconnect()
}

// Dashboard 持有当前代币列表与选中代币。
// 每次 Refresh / Disconnect 递增 generation，旧一轮的聚合结果直接丢弃。
type Dashboard struct {
	agg     Aggregator
	sender  Sender
	wallet  Wallet
	toaster *notify.Toaster

	mu         sync.Mutex
	tokens     []domain.Token
	selected   *domain.Token
	generation uint64
	pending    notify.Handle // 进行中的加载通知，新一轮复用
}

func New(agg Aggregator, sender Sender, w Wallet, toaster *notify.Toaster) *Dashboard {
	return &Dashboard{agg: agg, sender: sender, wallet: w, toaster: toaster}
}

// Connect 连接钱包并加载列表
func (d *Dashboard) Connect(ctx context.Context) error {
	if err := d.wallet.Connect(); err != nil {
		d.toaster.Error(ctx, "", consts.MsgWalletNotFound, err.Error())
		return domain.NewError(domain.KindPrecondition, "connect", err)
	}
	return d.Refresh(ctx)
}

// Disconnect 断开钱包，清空列表与选择
func (d *Dashboard) Disconnect() {
	d.wallet.Disconnect()
	d.mu.Lock()
	d.generation++
	d.tokens = nil
	d.selected = nil
	h := d.takePending()
	d.mu.Unlock()
	metrics.TokensListed.Set(0)
	d.cancelLoading(context.Background(), h)
}

// Refresh 重新聚合。未连接钱包时列表为空且不发请求。
func (d *Dashboard) Refresh(ctx context.Context) error {
	owner, connected := d.wallet.PublicKey()

	d.mu.Lock()
	d.generation++
	gen := d.generation
	if !connected {
		d.tokens = nil
		d.selected = nil
		h := d.takePending()
		d.mu.Unlock()
		metrics.TokensListed.Set(0)
		d.cancelLoading(ctx, h)
		return nil
	}
	if d.pending == "" {
		d.pending = notify.NewHandle()
	}
	h := d.pending
	d.mu.Unlock()

	d.toaster.LoadingOn(ctx, h, consts.MsgLoadingTokens)
	tokens, err := d.agg.Aggregate(ctx, owner)

	if !d.apply(gen, tokens, err) {
		metrics.Aggregations.WithLabelValues("stale").Inc()
		logger.Debugf("[Dashboard] 丢弃过期的聚合结果: gen=%d", gen)
		return domain.NewError(domain.KindStale, "refresh", domain.ErrStaleGeneration)
	}

	if err != nil {
		metrics.Aggregations.WithLabelValues("failed").Inc()
		logger.Errorf("[Dashboard] 加载代币失败: owner=%s kind=%s err=%v", owner, domain.KindOf(err), err)
		d.toaster.Error(ctx, h, consts.MsgSomethingWrong, err.Error())
		return err
	}
	metrics.Aggregations.WithLabelValues("ok").Inc()
	logger.Infof("[Dashboard] 代币列表已更新: owner=%s count=%d", owner, len(tokens))
	d.toaster.Success(ctx, h, consts.MsgTokensFetched, "")
	return nil
}

// takePending 取走进行中的加载通知，调用方持有 mu
func (d *Dashboard) takePending() notify.Handle {
	h := d.pending
	d.pending = ""
	return h
}

// cancelLoading 被作废的加载通知需要落到终态
func (d *Dashboard) cancelLoading(ctx context.Context, h notify.Handle) {
	if h == "" {
		return
	}
	d.toaster.Error(ctx, h, consts.MsgLoadCancelled, domain.ErrWalletNotConnected.Error())
}

// apply 仅当 gen 仍是最新一轮时整体替换列表，失败时清空
func (d *Dashboard) apply(gen uint64, tokens []domain.Token, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		return false
	}
	d.pending = ""
	if err != nil {
		tokens = nil
	}
	d.tokens = tokens
	if d.selected != nil && indexOf(tokens, d.selected.TokenAddress) < 0 {
		d.selected = nil
	}
	metrics.TokensListed.Set(float64(len(tokens)))
	return true
}

// Tokens 当前列表的副本
func (d *Dashboard) Tokens() []domain.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Token(nil), d.tokens...)
}

func (d *Dashboard) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

// Select 选中列表中的代币，地址为 mint（原生 SOL 为空串）
func (d *Dashboard) Select(tokenAddress string) (domain.Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := indexOf(d.tokens, tokenAddress)
	if i < 0 {
		return domain.Token{}, domain.NewError(domain.KindValidation, "select",
			fmt.Errorf("%w: %q", domain.ErrTokenNotListed, tokenAddress))
	}
	tk := d.tokens[i]
	d.selected = &tk
	return tk, nil
}

// Selected 当前选中的代币
func (d *Dashboard) Selected() (domain.Token, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return domain.Token{}, false
	}
	return *d.selected, true
}

// ClearSelection 对话框关闭
func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = nil
}

// Send 对选中的代币发起转账。提交前确认该代币仍在当前列表中，并使用最新一轮的数据。
func (d *Dashboard) Send(ctx context.Context, recipient, amount string) (string, error) {
	req := transfer.Request{Recipient: recipient, Amount: amount}

	d.mu.Lock()
	if d.selected != nil {
		i := indexOf(d.tokens, d.selected.TokenAddress)
		if i < 0 {
			address := d.selected.TokenAddress
			d.selected = nil
			d.mu.Unlock()
			err := domain.NewError(domain.KindPrecondition, "send", fmt.Errorf("%w: %q", domain.ErrTokenNotListed, address))
			d.toaster.Error(ctx, "", consts.MsgTokenNotChosen, err.Error())
			return "", err
		}
		tk := d.tokens[i]
		req.Token = &tk
	}
	d.mu.Unlock()

	sig, err := d.sender.Send(ctx, req)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("[Dashboard] 转账未完成: kind=%s err=%v", domain.KindOf(err), err)
	}
	return sig, err
}

func indexOf(tokens []domain.Token, address string) int {
	for i := range tokens {
		if tokens[i].TokenAddress == address {
			return i
		}
	}
	return -1
}
