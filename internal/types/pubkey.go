package types

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// IsOnCurve 是否为 ed25519 曲线上的点（PDA 一定不在曲线上）
func (p Pubkey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

// ToCommon 转换为 SDK 的 PublicKey，用于构造指令
func (p Pubkey) ToCommon() common.PublicKey {
	return common.PublicKey(p)
}

func PubkeyFromCommon(pk common.PublicKey) Pubkey {
	return Pubkey(pk)
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	return TryPubkeyFromBytes(data)
}

func TryPubkeyFromBytes(data []byte) (Pubkey, error) {
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32", len(data))
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 仅用于常量，非法输入直接 panic
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}
