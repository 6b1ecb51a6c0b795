package layout

import (
	"fmt"

	"solaboard/internal/types"

	"github.com/near/borsh-go"
)

const (
	TokenAccountSize = 165 // SPL token account 基础长度，Token-2022 扩展追加在后面
	MintSize         = 82

	accountTypeOffset = TokenAccountSize // Token-2022 账户类型字节
	accountTypeMint   = 1
	accountTypeToken  = 2
)

// TokenAccount SPL Token 账户布局，COption 是 u32 标记 + 值
type TokenAccount struct {
	Mint                 types.Pubkey
	Owner                types.Pubkey
	Amount               uint64
	DelegateOption       uint32
	Delegate             types.Pubkey
	State                uint8
	IsNativeOption       uint32
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption uint32
	CloseAuthority       types.Pubkey
}

// AccountState 账户状态
const (
	AccountUninitialized uint8 = 0
	AccountInitialized   uint8 = 1
	AccountFrozen        uint8 = 2
)

// DecodeTokenAccount 解析代币账户数据，长度或账户类型不符时返回 error
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account data too short: %d", len(data))
	}
	if len(data) > TokenAccountSize && data[accountTypeOffset] != accountTypeToken {
		return nil, fmt.Errorf("unexpected account type %d", data[accountTypeOffset])
	}

	var acc TokenAccount
	if err := borsh.Deserialize(&acc, data[:TokenAccountSize]); err != nil {
		return nil, fmt.Errorf("borsh decode token account: %w", err)
	}
	if acc.State == AccountUninitialized {
		return nil, fmt.Errorf("token account not initialized")
	}
	return &acc, nil
}

// Mint SPL Mint 账户布局
type Mint struct {
	MintAuthorityOption   uint32
	MintAuthority         types.Pubkey
	Supply                uint64
	Decimals              uint8
	IsInitialized         bool
	FreezeAuthorityOption uint32
	FreezeAuthority       types.Pubkey
}

func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("mint data too short: %d", len(data))
	}
	var m Mint
	if err := borsh.Deserialize(&m, data[:MintSize]); err != nil {
		return nil, fmt.Errorf("borsh decode mint: %w", err)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("mint not initialized")
	}
	return &m, nil
}
