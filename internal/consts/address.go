package consts

import "solaboard/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	SystemProgramStr          = "11111111111111111111111111111111"
	TokenProgramStr           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramStr = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	TokenMetaProgramIdStr     = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	WSOLMintStr = "So11111111111111111111111111111111111111112"
)

var (
	// 特殊语义地址
	NativeSOLMint = types.Pubkey{} // 原生 SOL（非 SPL），列表中 TokenAddress 为空

	// Programs
	SystemProgram          = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram           = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022       = types.PubkeyFromBase58(TokenProgram2022Str)
	AssociatedTokenProgram = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	TokenMetaProgram       = types.PubkeyFromBase58(TokenMetaProgramIdStr)

	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
)

// TokenProgramByName 配置名映射到程序地址
func TokenProgramByName(name string) (types.Pubkey, bool) {
	switch name {
	case "token2022":
		return TokenProgram2022, true
	case "token":
		return TokenProgram, true
	default:
		return types.Pubkey{}, false
	}
}
