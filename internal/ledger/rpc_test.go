package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"solaboard/internal/config"
	"solaboard/internal/consts"
	"solaboard/internal/logic/domain"
	"solaboard/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeRpc 按 method 返回预设 result，记录收到的请求
type fakeRpc struct {
	mu      sync.Mutex
	results map[string]string
	errors  map[string]string
	calls   []rpcCall
}

func newFakeRpc() *fakeRpc {
	return &fakeRpc{results: map[string]string{}, errors: map[string]string{}}
}

func (f *fakeRpc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call rpcCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	result, ok := f.results[call.Method]
	rpcErr, failed := f.errors[call.Method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case failed:
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"` + rpcErr + `"}}`))
	case ok:
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	default:
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
	}
}

func (f *fakeRpc) lastCall(method string) (rpcCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method {
			return f.calls[i], true
		}
	}
	return rpcCall{}, false
}

func newTestLedger(t *testing.T, f *fakeRpc) *RpcLedger {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewRpcLedger(config.RpcConfig{Endpoint: srv.URL, Commitment: "confirmed", MaxRps: 1000, Burst: 10})
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestRpcLedger_GetBalance(t *testing.T) {
	f := newFakeRpc()
	f.results["getBalance"] = `{"context":{"slot":1},"value":2500000000}`
	l := newTestLedger(t, f)

	balance, err := l.GetBalance(context.Background(), consts.WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), balance)
}

func TestRpcLedger_GetTokenAccountsByOwner(t *testing.T) {
	f := newFakeRpc()
	good := `{"pubkey":"` + consts.WSOLMintStr + `","account":{"lamports":2039280,"owner":"` + consts.TokenProgram2022Str + `","data":["` + b64([]byte{1, 2, 3}) + `","base64"],"executable":false,"rentEpoch":18446744073709551615,"space":165}}`
	badData := `{"pubkey":"` + consts.SystemProgramStr + `","account":{"lamports":1,"owner":"` + consts.TokenProgram2022Str + `","data":["***","base64"]}}`
	badKey := `{"pubkey":"nope","account":{"lamports":1,"owner":"` + consts.TokenProgram2022Str + `","data":["","base64"]}}`
	f.results["getTokenAccountsByOwner"] = `{"context":{"slot":1},"value":[` + good + `,` + badData + `,` + badKey + `]}`
	l := newTestLedger(t, f)

	owner := consts.SystemProgram
	accounts, err := l.GetTokenAccountsByOwner(context.Background(), owner, consts.TokenProgram2022)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, consts.WSOLMint, accounts[0].Pubkey)
	assert.Equal(t, []byte{1, 2, 3}, accounts[0].Account.Data)
	assert.Equal(t, consts.TokenProgram2022, accounts[0].Account.Owner)

	call, ok := f.lastCall("getTokenAccountsByOwner")
	require.True(t, ok)
	require.Len(t, call.Params, 3)
	assert.JSONEq(t, `"`+owner.String()+`"`, string(call.Params[0]))
	assert.JSONEq(t, `{"programId":"`+consts.TokenProgram2022Str+`"}`, string(call.Params[1]))
}

func TestRpcLedger_Accounts(t *testing.T) {
	f := newFakeRpc()
	acc := `{"lamports":5,"owner":"` + consts.TokenProgramStr + `","data":["` + b64([]byte{9}) + `","base64"]}`
	f.results["getMultipleAccounts"] = `{"context":{"slot":1},"value":[` + acc + `,null]}`
	f.results["getAccountInfo"] = `{"context":{"slot":1},"value":null}`
	l := newTestLedger(t, f)
	ctx := context.Background()

	infos, err := l.GetMultipleAccounts(ctx, []types.Pubkey{consts.WSOLMint, consts.SystemProgram})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.NotNil(t, infos[0])
	assert.Equal(t, uint64(5), infos[0].Lamports)
	assert.Nil(t, infos[1])

	_, err = l.GetMultipleAccounts(ctx, []types.Pubkey{consts.WSOLMint})
	assert.Error(t, err, "length mismatch")

	bad := `{"lamports":5,"owner":"` + consts.TokenProgramStr + `","data":["%%%","base64"]}`
	f.results["getMultipleAccounts"] = `{"context":{"slot":1},"value":[` + bad + `,null]}`
	infos, err = l.GetMultipleAccounts(ctx, []types.Pubkey{consts.WSOLMint, consts.SystemProgram})
	require.Error(t, err)
	assert.Equal(t, domain.KindDecode, domain.KindOf(err))
	assert.Nil(t, infos)

	info, err := l.GetAccountInfo(ctx, consts.WSOLMint)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestRpcLedger_Blockhash(t *testing.T) {
	f := newFakeRpc()
	f.results["getLatestBlockhash"] = `{"context":{"slot":1},"value":{"blockhash":"` + consts.TokenProgramStr + `","lastValidBlockHeight":300}}`
	f.results["getBlockHeight"] = `290`
	l := newTestLedger(t, f)
	ctx := context.Background()

	bh, err := l.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	assert.Equal(t, consts.TokenProgramStr, bh.Blockhash)
	assert.Equal(t, uint64(300), bh.LastValidBlockHeight)

	height, err := l.GetBlockHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(290), height)

	f.results["getLatestBlockhash"] = `{"context":{"slot":1},"value":{"blockhash":"short","lastValidBlockHeight":300}}`
	_, err = l.GetLatestBlockhash(ctx)
	assert.Error(t, err)
}

func TestRpcLedger_SendAndStatus(t *testing.T) {
	f := newFakeRpc()
	f.results["sendTransaction"] = `"5sig"`
	f.results["getSignatureStatuses"] = `{"context":{"slot":1},"value":[{"slot":10,"confirmations":0,"err":null,"confirmationStatus":"processed"}]}`
	l := newTestLedger(t, f)
	ctx := context.Background()

	payer := sdktypes.NewAccount()
	tx, err := sdktypes.NewTransaction(sdktypes.NewTransactionParam{
		Message: sdktypes.NewMessage(sdktypes.NewMessageParam{
			FeePayer:        payer.PublicKey,
			RecentBlockhash: consts.TokenProgramStr,
			Instructions: []sdktypes.Instruction{{
				ProgramID: common.SystemProgramID,
				Accounts:  []sdktypes.AccountMeta{{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true}},
				Data:      []byte{},
			}},
		}),
		Signers: []sdktypes.Account{payer},
	})
	require.NoError(t, err)

	sig, err := l.SendTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "5sig", sig)

	call, ok := f.lastCall("sendTransaction")
	require.True(t, ok)
	require.Len(t, call.Params, 2)
	assert.JSONEq(t, `{"encoding":"base64","preflightCommitment":"confirmed"}`, string(call.Params[1]))

	status, err := l.GetSignatureStatus(ctx, sig)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "processed", status.ConfirmationStatus)
	assert.Nil(t, status.Err)

	f.results["getSignatureStatuses"] = `{"context":{"slot":1},"value":[null]}`
	status, err = l.GetSignatureStatus(ctx, sig)
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestRpcLedger_RpcError(t *testing.T) {
	f := newFakeRpc()
	f.errors["getBlockHeight"] = "node is behind"
	l := newTestLedger(t, f)

	_, err := l.GetBlockHeight(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node is behind")

	_, err = l.GetLatestBlockhash(context.Background())
	assert.Error(t, err, "method not found")
}

func TestReached(t *testing.T) {
	assert.True(t, Reached("processed", "processed"))
	assert.True(t, Reached("finalized", "confirmed"))
	assert.False(t, Reached("processed", "confirmed"))
	assert.False(t, Reached("", "processed"))
}
