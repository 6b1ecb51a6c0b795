package consts

// NativeDecimals lamports 与 SOL 的换算精度（1e9）
const NativeDecimals uint8 = 9

// 列表展示常量
const (
	NativeName   = "Solana"
	NativeSymbol = "SOL"

	UnknownTokenName   = "Unknown Token"
	UnknownTokenSymbol = "UKT"
)

// 通知文案
const (
	MsgLoadingTokens   = "Loading Tokens"
	MsgTokensFetched   = "Tokens fetched successfully"
	MsgLoadCancelled   = "Token loading cancelled"
	MsgSomethingWrong  = "Something went wrong, please check logs"
	MsgProcessingTx    = "Processing transaction"
	MsgTxSuccessful    = "Transaction successful"
	MsgWalletNotFound  = "Wallet not found"
	MsgTokenNotChosen  = "Please select a token"
	MsgRecipientAbsent = "Please enter a recipient address"
)
