package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"solaboard/internal/consts"
	"solaboard/internal/ledger"
	"solaboard/internal/logic/domain"
	"solaboard/internal/logic/metadata"
	"solaboard/internal/metrics"
	"solaboard/internal/notify"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/types"
	"solaboard/internal/wallet"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
)

// Request 一次转账请求，Token 为 nil 表示未选择代币
type Request struct {
	Token     *domain.Token
	Recipient string
	Amount    string // 展示单位，例如 "1.5"
}

type Options struct {
	TokenProgram types.Pubkey
	SignAndSend  bool // 钱包支持时由钱包直接广播
}

// Submitter 构建并提交 SPL 转账，必要时为接收方创建 ATA
type Submitter struct {
	ledger    ledger.Ledger
	wallet    wallet.Provider
	confirmer ledger.Confirmer
	decimals  metadata.DecimalsSource
	toaster   *notify.Toaster
	opts      Options

	onState func(State)
}

func NewSubmitter(
	l ledger.Ledger,
	w wallet.Provider,
	confirmer ledger.Confirmer,
	decimals metadata.DecimalsSource,
	toaster *notify.Toaster,
	opts Options,
) *Submitter {
	return &Submitter{ledger: l, wallet: w, confirmer: confirmer, decimals: decimals, toaster: toaster, opts: opts}
}

// OnState 注册状态变化回调，每次转账都从 Idle 开始
func (s *Submitter) OnState(fn func(State)) {
	s.onState = fn
}

// tracker 记录单次调用的状态推进
type tracker struct {
	state   State
	started time.Time
	onState func(State)
}

func (t *tracker) enter(next State) {
	if !CanTransition(t.state, next) {
		logger.Errorf("[Transfer] 非法状态迁移: %s -> %s", t.state, next)
		return
	}
	t.state = next
	if t.onState != nil {
		t.onState(next)
	}
}

// plan 校验通过后的转账参数
type plan struct {
	owner     types.Pubkey
	mint      types.Pubkey
	recipient types.Pubkey
	amount    string // 已校验为正数的十进制文本
}

// Send 执行一次转账，成功返回交易签名
func (s *Submitter) Send(ctx context.Context, req Request) (string, error) {
	t := &tracker{state: StateIdle, started: time.Now(), onState: s.onState}
	t.enter(StateValidating)

	owner, err := s.preconditions(req)
	if err != nil {
		return "", s.fail(ctx, t, "", err)
	}

	h := s.toaster.Loading(ctx, consts.MsgProcessingTx)
	sig, err := s.execute(ctx, t, owner, req)
	if err != nil {
		return "", s.fail(ctx, t, h, err)
	}

	t.enter(StateSucceeded)
	s.toaster.Success(ctx, h, consts.MsgTxSuccessful, sig)
	metrics.Transfers.WithLabelValues(StateSucceeded.String(), "").Inc()
	logger.Infof("[Transfer] 转账成功: mint=%s to=%s amount=%s sig=%s cost=%v",
		req.Token.TokenAddress, req.Recipient, req.Amount, sig, time.Since(t.started))
	return sig, nil
}

func (s *Submitter) preconditions(req Request) (types.Pubkey, error) {
	owner, ok := s.wallet.PublicKey()
	if !ok {
		return types.Pubkey{}, domain.NewError(domain.KindPrecondition, "wallet", domain.ErrWalletNotConnected)
	}
	if req.Token == nil {
		return types.Pubkey{}, domain.NewError(domain.KindPrecondition, "token", domain.ErrNoTokenSelected)
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return types.Pubkey{}, domain.NewError(domain.KindPrecondition, "recipient", domain.ErrEmptyRecipient)
	}
	return owner, nil
}

func (s *Submitter) execute(ctx context.Context, t *tracker, owner types.Pubkey, req Request) (string, error) {
	// 1. 校验输入，不发起任何网络请求
	p, err := validate(owner, req)
	if err != nil {
		return "", err
	}

	// 2. 解析发送方 / 接收方账户
	t.enter(StateResolvingAccounts)
	senderATA, recipientATA, createRecipient, err := s.resolveAccounts(ctx, p)
	if err != nil {
		return "", err
	}
	decimals, err := s.mintDecimals(ctx, p.mint)
	if err != nil {
		return "", err
	}

	// 3. 组装指令
	t.enter(StateBuilding)
	amount, err := domain.ParseBaseUnits(p.amount, decimals)
	if err != nil {
		return "", domain.NewError(domain.KindValidation, "amount", err)
	}
	program := s.opts.TokenProgram
	instructions := make([]sdktypes.Instruction, 0, 2)
	if createRecipient {
		instructions = append(instructions, createAssociatedAccountIx(p.owner, recipientATA, p.recipient, p.mint, program))
	}
	instructions = append(instructions, transferIx(senderATA, recipientATA, p.owner, program, amount))
	logger.Debugf("[Transfer] 交易指令: %s", describeInstructions(instructions))

	blockhash, err := s.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return "", domain.NewError(domain.KindNetwork, "latest blockhash", err)
	}
	msg := sdktypes.NewMessage(sdktypes.NewMessageParam{
		FeePayer:        p.owner.ToCommon(),
		RecentBlockhash: blockhash.Blockhash,
		Instructions:    instructions,
	})

	// 4. 签名并提交
	t.enter(StateSigning)
	sig, err := s.signAndSubmit(ctx, t, msg)
	if err != nil {
		return "", err
	}

	// 5. 等待确认
	t.enter(StateConfirming)
	if err := s.confirmer.Confirm(ctx, sig, blockhash); err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.NewError(domain.KindConfirmation, "confirm", err)
		}
		return "", fmt.Errorf("sig %s: %w", sig, err)
	}
	return sig, nil
}

func validate(owner types.Pubkey, req Request) (plan, error) {
	if req.Token.IsNative() {
		return plan{}, domain.NewError(domain.KindValidation, "token", domain.ErrNativeTransfer)
	}
	mint, err := req.Token.Mint()
	if err != nil {
		return plan{}, domain.NewError(domain.KindValidation, "mint", err)
	}
	recipient, err := types.TryPubkeyFromBase58(strings.TrimSpace(req.Recipient))
	if err != nil {
		return plan{}, domain.NewError(domain.KindValidation, "recipient", err)
	}
	if !recipient.IsOnCurve() {
		return plan{}, domain.NewError(domain.KindValidation, "recipient",
			fmt.Errorf("recipient %s is not a wallet address (off curve)", recipient))
	}
	text := strings.TrimSpace(req.Amount)
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return plan{}, domain.NewError(domain.KindValidation, "amount", fmt.Errorf("invalid amount %q: %w", req.Amount, err))
	}
	if !amount.IsPositive() {
		return plan{}, domain.NewError(domain.KindValidation, "amount", fmt.Errorf("amount must be positive, got %s", amount))
	}
	return plan{owner: owner, mint: mint, recipient: recipient, amount: text}, nil
}

// resolveAccounts 发送方 ATA 必须存在；接收方 ATA 不存在时需要创建
func (s *Submitter) resolveAccounts(ctx context.Context, p plan) (sender, recipient types.Pubkey, create bool, err error) {
	program := s.opts.TokenProgram
	sender, err = AssociatedTokenAddress(p.owner, p.mint, program)
	if err != nil {
		return sender, recipient, false, domain.NewError(domain.KindValidation, "sender account", err)
	}
	recipient, err = AssociatedTokenAddress(p.recipient, p.mint, program)
	if err != nil {
		return sender, recipient, false, domain.NewError(domain.KindValidation, "recipient account", err)
	}

	infos, err := s.ledger.GetMultipleAccounts(ctx, []types.Pubkey{sender, recipient})
	if err != nil {
		kind := domain.KindOf(err)
		if kind == domain.KindUnknown {
			kind = domain.KindNetwork
		}
		return sender, recipient, false, domain.NewError(kind, "resolve accounts", err)
	}
	if len(infos) != 2 {
		return sender, recipient, false, domain.NewError(domain.KindDecode, "resolve accounts",
			fmt.Errorf("expected 2 accounts, got %d", len(infos)))
	}
	if infos[0] == nil {
		return sender, recipient, false, domain.NewError(domain.KindPrecondition, "sender account",
			fmt.Errorf("%w: %s", domain.ErrSenderNoAccount, p.mint))
	}
	if infos[1] == nil {
		logger.Infof("[Transfer] 接收方 ATA 不存在，将创建: owner=%s ata=%s", p.recipient, recipient)
		return sender, recipient, true, nil
	}
	return sender, recipient, false, nil
}

func (s *Submitter) mintDecimals(ctx context.Context, mint types.Pubkey) (uint8, error) {
	values, err := s.decimals.Decimals(ctx, []types.Pubkey{mint})
	if err != nil {
		return 0, domain.NewError(domain.KindNetwork, "mint decimals", err)
	}
	d, ok := values[mint]
	if !ok {
		return 0, domain.NewError(domain.KindDecode, "mint decimals", fmt.Errorf("decimals unknown for mint %s", mint))
	}
	return d, nil
}

func (s *Submitter) signAndSubmit(ctx context.Context, t *tracker, msg sdktypes.Message) (string, error) {
	if sender, ok := s.wallet.(wallet.Sender); ok && s.opts.SignAndSend {
		sig, err := sender.SignAndSend(ctx, msg)
		if err != nil {
			return "", signingError(err, domain.KindNetwork)
		}
		t.enter(StateSubmitting)
		return sig, nil
	}

	tx, err := s.wallet.SignTransaction(ctx, msg)
	if err != nil {
		return "", signingError(err, domain.KindSigning)
	}
	t.enter(StateSubmitting)
	sig, err := s.ledger.SendTransaction(ctx, tx)
	if err != nil {
		return "", domain.NewError(domain.KindNetwork, "send transaction", err)
	}
	return sig, nil
}

func signingError(err error, fallback domain.ErrorKind) error {
	switch {
	case errors.Is(err, domain.ErrWalletNotConnected):
		return domain.NewError(domain.KindPrecondition, "sign", err)
	case errors.Is(err, domain.ErrSignatureRejected):
		return domain.NewError(domain.KindSigning, "sign", err)
	default:
		return domain.NewError(fallback, "sign", err)
	}
}

// fail 进入 Failed，发出一条失败通知
func (s *Submitter) fail(ctx context.Context, t *tracker, h notify.Handle, err error) error {
	from := t.state
	t.enter(StateFailed)
	kind := domain.KindOf(err)
	metrics.Transfers.WithLabelValues(StateFailed.String(), kind.String()).Inc()
	logger.Errorf("[Transfer] 转账失败: state=%s kind=%s err=%v", from, kind, err)
	s.toaster.Error(ctx, h, failureMessage(err), err.Error())
	return err
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrWalletNotConnected):
		return consts.MsgWalletNotFound
	case errors.Is(err, domain.ErrNoTokenSelected):
		return consts.MsgTokenNotChosen
	case errors.Is(err, domain.ErrEmptyRecipient):
		return consts.MsgRecipientAbsent
	default:
		return consts.MsgSomethingWrong
	}
}
