package transfer

import (
	"fmt"
	"strings"

	"solaboard/internal/consts"
	"solaboard/internal/tools"
	"solaboard/internal/types"

	"github.com/blocto/solana-go-sdk/common"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	sdktypes "github.com/blocto/solana-go-sdk/types"
)

// AssociatedTokenAddress ATA 地址：seeds = [owner, tokenProgram, mint]
func AssociatedTokenAddress(owner, mint, tokenProgram types.Pubkey) (types.Pubkey, error) {
	pda, _, err := common.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		consts.AssociatedTokenProgram.ToCommon(),
	)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return types.PubkeyFromCommon(pda), nil
}

// createAssociatedAccountIx 创建 ATA，funder 付租金。
// SDK 的 associated_token_account.Create 固定使用旧 Token 程序，这里手动组装。
// 使用 CreateIdempotent，账户已存在时不会失败。
func createAssociatedAccountIx(funder, ata, owner, mint, tokenProgram types.Pubkey) sdktypes.Instruction {
	return sdktypes.Instruction{
		ProgramID: consts.AssociatedTokenProgram.ToCommon(),
		Accounts: []sdktypes.AccountMeta{
			{PubKey: funder.ToCommon(), IsSigner: true, IsWritable: true},
			{PubKey: ata.ToCommon(), IsSigner: false, IsWritable: true},
			{PubKey: owner.ToCommon(), IsSigner: false, IsWritable: false},
			{PubKey: mint.ToCommon(), IsSigner: false, IsWritable: false},
			{PubKey: consts.SystemProgram.ToCommon(), IsSigner: false, IsWritable: false},
			{PubKey: tokenProgram.ToCommon(), IsSigner: false, IsWritable: false},
		},
		Data: []byte{1}, // CreateIdempotent
	}
}

// transferIx SPL Transfer，程序地址替换为实际使用的 Token 程序
func transferIx(from, to, authority, tokenProgram types.Pubkey, amount uint64) sdktypes.Instruction {
	ix := sdktoken.Transfer(sdktoken.TransferParam{
		From:   from.ToCommon(),
		To:     to.ToCommon(),
		Auth:   authority.ToCommon(),
		Amount: amount,
	})
	ix.ProgramID = tokenProgram.ToCommon()
	return ix
}

// IsCreateAssociatedAccount 判断指令是否为 ATA 创建（Create / CreateIdempotent）
func IsCreateAssociatedAccount(ix sdktypes.Instruction) bool {
	if types.PubkeyFromCommon(ix.ProgramID) != consts.AssociatedTokenProgram {
		return false
	}
	switch len(ix.Data) {
	case 0:
		return true
	case 1:
		return ix.Data[0] == 0 || ix.Data[0] == 1
	default:
		return false
	}
}

// IsTokenTransfer 判断指令是否为 Token 程序的 Transfer
func IsTokenTransfer(ix sdktypes.Instruction) bool {
	if !tools.IsSPLTokenProgram(types.PubkeyFromCommon(ix.ProgramID)) {
		return false
	}
	return len(ix.Data) == 9 && ix.Data[0] == byte(sdktoken.InstructionTransfer)
}

// describeInstructions 日志用的指令摘要，如 "createATA,transfer"
func describeInstructions(ixs []sdktypes.Instruction) string {
	names := make([]string, 0, len(ixs))
	for _, ix := range ixs {
		switch {
		case IsCreateAssociatedAccount(ix):
			names = append(names, "createATA")
		case IsTokenTransfer(ix):
			names = append(names, "transfer")
		default:
			names = append(names, types.PubkeyFromCommon(ix.ProgramID).String())
		}
	}
	return strings.Join(names, ",")
}
