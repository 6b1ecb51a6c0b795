package transfer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"solaboard/internal/consts"
	"solaboard/internal/ledger"
	"solaboard/internal/ledger/ledgertest"
	"solaboard/internal/logic/domain"
	"solaboard/internal/logic/metadata"
	"solaboard/internal/notify"
	"solaboard/internal/types"
	"solaboard/internal/wallet"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger    *ledgertest.Fake
	confirmer *ledgertest.Confirmer
	recorder  *notify.Recorder
	wallet    *wallet.KeypairWallet
	owner     types.Pubkey
	mint      types.Pubkey
	recipient types.Pubkey
	sub       *Submitter
	states    []State
}

func randomKey() types.Pubkey {
	return types.PubkeyFromCommon(sdktypes.NewAccount().PublicKey)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	account := sdktypes.NewAccount()
	f := &fixture{
		ledger:    ledgertest.New(),
		confirmer: &ledgertest.Confirmer{},
		recorder:  notify.NewRecorder(),
		owner:     types.PubkeyFromCommon(account.PublicKey),
		mint:      randomKey(),
		recipient: randomKey(),
	}
	f.ledger.Blockhash = ledger.LatestBlockhash{
		Blockhash:            base58.Encode(bytes.Repeat([]byte{9}, 32)),
		LastValidBlockHeight: 1000,
	}
	f.wallet = wallet.NewFromAccount(account, f.ledger)

	senderATA, err := AssociatedTokenAddress(f.owner, f.mint, consts.TokenProgram2022)
	require.NoError(t, err)
	f.ledger.SetAccount(senderATA, &ledger.AccountInfo{Owner: consts.TokenProgram2022, Data: make([]byte, 165)})

	f.sub = NewSubmitter(f.ledger, f.wallet, f.confirmer, metadata.NativeDecimals{},
		notify.NewToaster(f.recorder), Options{TokenProgram: consts.TokenProgram2022})
	f.sub.OnState(func(s State) { f.states = append(f.states, s) })
	return f
}

func (f *fixture) token() *domain.Token {
	tk := domain.PlaceholderToken(f.mint, 10)
	return &tk
}

func (f *fixture) request(amount string) Request {
	return Request{Token: f.token(), Recipient: f.recipient.String(), Amount: amount}
}

// decompile 还原交易中的指令
func decompile(tx sdktypes.Transaction) []sdktypes.Instruction {
	msg := tx.Message
	out := make([]sdktypes.Instruction, 0, len(msg.Instructions))
	for _, ci := range msg.Instructions {
		ix := sdktypes.Instruction{ProgramID: msg.Accounts[ci.ProgramIDIndex], Data: ci.Data}
		for _, idx := range ci.Accounts {
			ix.Accounts = append(ix.Accounts, sdktypes.AccountMeta{PubKey: msg.Accounts[idx]})
		}
		out = append(out, ix)
	}
	return out
}

var happyPath = []State{
	StateValidating, StateResolvingAccounts, StateBuilding,
	StateSigning, StateSubmitting, StateConfirming, StateSucceeded,
}

func TestSend_CreatesMissingRecipientAccount(t *testing.T) {
	f := newFixture(t)

	sig, err := f.sub.Send(context.Background(), f.request("1.5"))
	require.NoError(t, err)
	require.Len(t, f.ledger.Sent, 1)
	assert.Equal(t, base58.Encode(f.ledger.Sent[0].Signatures[0]), sig)

	ixs := decompile(f.ledger.Sent[0])
	require.Len(t, ixs, 2)
	assert.True(t, IsCreateAssociatedAccount(ixs[0]), "create must come first")
	assert.True(t, IsTokenTransfer(ixs[1]))
	assert.False(t, IsTokenTransfer(ixs[0]))
	assert.Equal(t, []byte{1}, ixs[0].Data, "idempotent create")
	assert.Equal(t, "createATA,transfer", describeInstructions(ixs))

	recipientATA, err := AssociatedTokenAddress(f.recipient, f.mint, consts.TokenProgram2022)
	require.NoError(t, err)
	assert.Equal(t, f.owner, types.PubkeyFromCommon(ixs[0].Accounts[0].PubKey), "owner funds creation")
	assert.Equal(t, recipientATA, types.PubkeyFromCommon(ixs[0].Accounts[1].PubKey))
	assert.Equal(t, consts.TokenProgram2022, types.PubkeyFromCommon(ixs[1].ProgramID))
	assert.Equal(t, uint64(1_500_000_000), binary.LittleEndian.Uint64(ixs[1].Data[1:9]))

	assert.Equal(t, happyPath, f.states)
	assert.Equal(t, 1, f.confirmer.Calls)
	assert.Equal(t, 1, f.recorder.Count(notify.LevelSuccess))
	assert.Equal(t, 0, f.recorder.Count(notify.LevelError))
}

func TestSend_ExistingRecipientAccount(t *testing.T) {
	f := newFixture(t)
	recipientATA, err := AssociatedTokenAddress(f.recipient, f.mint, consts.TokenProgram2022)
	require.NoError(t, err)
	f.ledger.SetAccount(recipientATA, &ledger.AccountInfo{Owner: consts.TokenProgram2022, Data: make([]byte, 165)})

	_, err = f.sub.Send(context.Background(), f.request("2"))
	require.NoError(t, err)

	ixs := decompile(f.ledger.Sent[0])
	require.Len(t, ixs, 1)
	assert.True(t, IsTokenTransfer(ixs[0]))
}

func TestSend_InvalidRecipientMakesNoNetworkCall(t *testing.T) {
	cases := map[string]string{
		"not base58": "0OIl-not-an-address",
		"short":      base58.Encode([]byte{1, 2, 3}),
	}
	for name, recipient := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request("1")
			req.Recipient = recipient

			_, err := f.sub.Send(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.Zero(t, f.ledger.TotalCalls())
			assert.Equal(t, []State{StateValidating, StateFailed}, f.states)
			assert.Equal(t, 1, f.recorder.Count(notify.LevelError))
		})
	}
}

func TestSend_OffCurveRecipientRejected(t *testing.T) {
	f := newFixture(t)
	pda, err := AssociatedTokenAddress(f.owner, f.mint, consts.TokenProgram2022)
	require.NoError(t, err)
	req := f.request("1")
	req.Recipient = pda.String()

	_, err = f.sub.Send(context.Background(), req)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Zero(t, f.ledger.TotalCalls())
}

func TestSend_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sub.Send(ctx, Request{Recipient: f.recipient.String(), Amount: "1"})
	assert.ErrorIs(t, err, domain.ErrNoTokenSelected)

	_, err = f.sub.Send(ctx, Request{Token: f.token(), Recipient: "  ", Amount: "1"})
	assert.ErrorIs(t, err, domain.ErrEmptyRecipient)

	f.wallet.Disconnect()
	_, err = f.sub.Send(ctx, f.request("1"))
	assert.ErrorIs(t, err, domain.ErrWalletNotConnected)
	assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))

	assert.Zero(t, f.ledger.TotalCalls())
	msgs := make([]string, 0)
	for _, n := range f.recorder.All() {
		msgs = append(msgs, n.Message)
	}
	assert.Equal(t, []string{consts.MsgTokenNotChosen, consts.MsgRecipientAbsent, consts.MsgWalletNotFound}, msgs)
}

func TestSend_InvalidAmount(t *testing.T) {
	for _, amount := range []string{"", "abc", "0", "-1", "0.0000000001"} {
		f := newFixture(t)
		_, err := f.sub.Send(context.Background(), f.request(amount))
		require.Error(t, err, amount)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), amount)
		assert.Empty(t, f.ledger.Sent, amount)
	}
}

func TestSend_NativeTokenRejected(t *testing.T) {
	f := newFixture(t)
	native := domain.NativeToken(1, "")
	_, err := f.sub.Send(context.Background(), Request{Token: &native, Recipient: f.recipient.String(), Amount: "1"})
	assert.ErrorIs(t, err, domain.ErrNativeTransfer)
}

func TestSend_SenderWithoutAccount(t *testing.T) {
	f := newFixture(t)
	f.mint = randomKey()

	_, err := f.sub.Send(context.Background(), f.request("1"))
	assert.ErrorIs(t, err, domain.ErrSenderNoAccount)
	assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))
	assert.Empty(t, f.ledger.Sent)
	assert.Equal(t, []State{StateValidating, StateResolvingAccounts, StateFailed}, f.states)
}

func TestSend_SigningRejected(t *testing.T) {
	f := newFixture(t)
	f.wallet.SetApprover(func(context.Context, sdktypes.Message) bool { return false })

	_, err := f.sub.Send(context.Background(), f.request("1"))
	assert.ErrorIs(t, err, domain.ErrSignatureRejected)
	assert.Equal(t, domain.KindSigning, domain.KindOf(err))
	assert.Empty(t, f.ledger.Sent)
	assert.Equal(t, StateSigning, f.states[len(f.states)-2])
}

func TestSend_SubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.Errors["SendTransaction"] = errors.New("node unhealthy")

	_, err := f.sub.Send(context.Background(), f.request("1"))
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
	assert.Equal(t, StateSubmitting, f.states[len(f.states)-2])
	assert.Zero(t, f.confirmer.Calls)
}

func TestSend_UndecodableAccountIsNotMissing(t *testing.T) {
	f := newFixture(t)
	f.ledger.Errors["GetMultipleAccounts"] = domain.NewError(domain.KindDecode, "getMultipleAccounts", errors.New("bad base64"))

	_, err := f.sub.Send(context.Background(), f.request("1"))
	require.Error(t, err)
	assert.Equal(t, domain.KindDecode, domain.KindOf(err))
	assert.NotErrorIs(t, err, domain.ErrSenderNoAccount)
	assert.Equal(t, StateResolvingAccounts, f.states[len(f.states)-2])
	assert.Empty(t, f.ledger.Sent)
}

func TestSend_ConfirmFailure(t *testing.T) {
	f := newFixture(t)
	f.confirmer.Err = domain.NewError(domain.KindConfirmation, "confirm", domain.ErrBlockHeightExpired)

	_, err := f.sub.Send(context.Background(), f.request("1"))
	assert.ErrorIs(t, err, domain.ErrBlockHeightExpired)
	assert.Equal(t, domain.KindConfirmation, domain.KindOf(err))

	// 失败通知替换同一 Handle 的 loading
	all := f.recorder.All()
	require.Len(t, all, 2)
	assert.Equal(t, notify.LevelLoading, all[0].Level)
	assert.Equal(t, notify.LevelError, all[1].Level)
	assert.Equal(t, all[0].Handle, all[1].Handle)
	assert.Equal(t, consts.MsgSomethingWrong, all[1].Message)
}

func TestSend_UntypedConfirmErrorClassified(t *testing.T) {
	f := newFixture(t)
	f.confirmer.Err = errors.New("boom")

	_, err := f.sub.Send(context.Background(), f.request("1"))
	assert.Equal(t, domain.KindConfirmation, domain.KindOf(err))
}

func TestSend_SignAndSendPath(t *testing.T) {
	f := newFixture(t)
	f.sub.opts.SignAndSend = true

	sig, err := f.sub.Send(context.Background(), f.request("1"))
	require.NoError(t, err)
	require.Len(t, f.ledger.Sent, 1)
	assert.Equal(t, base58.Encode(f.ledger.Sent[0].Signatures[0]), sig)
	assert.Equal(t, happyPath, f.states)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateValidating))
	assert.False(t, CanTransition(StateIdle, StateBuilding))
	assert.True(t, CanTransition(StateSigning, StateFailed))
	assert.False(t, CanTransition(StateSucceeded, StateFailed))
	assert.False(t, CanTransition(StateFailed, StateIdle))
	assert.Equal(t, "resolving_accounts", StateResolvingAccounts.String())
	assert.Equal(t, "unknown", State(42).String())
}
