package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 用户可见错误的分类
type ErrorKind int

const (
	KindUnknown      ErrorKind = 0
	KindValidation   ErrorKind = 1 // ❌ 输入非法（地址、数量）
	KindPrecondition ErrorKind = 2 // 🔌 钱包未连接 / 未选择代币 / 接收方为空
	KindNetwork      ErrorKind = 3 // 🌐 RPC 或 HTTP 失败
	KindSigning      ErrorKind = 4 // ✋ 钱包拒绝签名
	KindConfirmation ErrorKind = 5 // ⏳ 确认超时、区块高度过期或链上执行失败
	KindDecode       ErrorKind = 6 // 🧩 数据结构不符
	KindStale        ErrorKind = 7 // 🕒 被更新的一轮聚合取代
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindNetwork:
		return "network"
	case KindSigning:
		return "signing"
	case KindConfirmation:
		return "confirmation"
	case KindDecode:
		return "decode"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrNoTokenSelected    = errors.New("no token selected")
	ErrEmptyRecipient     = errors.New("recipient is empty")
	ErrTokenNotListed     = errors.New("selected token is not in the current list")
	ErrSenderNoAccount    = errors.New("sender has no token account for mint")
	ErrNativeTransfer     = errors.New("native SOL transfer is not supported")
	ErrStaleGeneration    = errors.New("aggregation superseded by a newer pass")
	ErrSignatureRejected  = errors.New("wallet rejected the signature request")
	ErrBlockHeightExpired = errors.New("block height exceeded, transaction expired")
	ErrConfirmTimeout     = errors.New("confirmation timed out")
)

// Error 带分类的错误，Op 表示失败的步骤
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 取出错误分类，非 *Error 返回 KindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
