package tools

import (
	"solaboard/internal/consts"
	"solaboard/internal/types"
)

// IsSPLTokenProgram 支持 Token v1（Tokenkeg...）和 Token-2022（Tokenz...）
func IsSPLTokenProgram(programId types.Pubkey) bool {
	return programId == consts.TokenProgram || programId == consts.TokenProgram2022
}

// IsTokenAccountOf 账户由 program 持有，且 program 为 SPL Token 程序
func IsTokenAccountOf(accountOwner, program types.Pubkey) bool {
	return IsSPLTokenProgram(accountOwner) && accountOwner == program
}
