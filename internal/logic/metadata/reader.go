package metadata

import (
	"context"
	"errors"
	"fmt"

	"solaboard/internal/consts"
	"solaboard/internal/ledger"
	"solaboard/internal/logic/domain"
	"solaboard/internal/logic/layout"
	"solaboard/internal/metrics"
	"solaboard/internal/types"

	"github.com/blocto/solana-go-sdk/common"
)

var ErrMetadataNotFound = errors.New("metadata account not found")

const metadataSeed = "metadata"

// Reader 读取 mint 的链上元数据
type Reader interface {
	ReadMetadata(ctx context.Context, mint types.Pubkey) (*domain.TokenMetadata, error)
}

// MetadataAddress 元数据 PDA: ["metadata", program, mint]
func MetadataAddress(mint types.Pubkey) (types.Pubkey, error) {
	program := consts.TokenMetaProgram.ToCommon()
	pda, _, err := common.FindProgramAddress(
		[][]byte{[]byte(metadataSeed), program.Bytes(), mint[:]},
		program,
	)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}
	return types.PubkeyFromCommon(pda), nil
}

// ChainReader 通过 Ledger 读取并解析 Metaplex 账户
type ChainReader struct {
	ledger ledger.Ledger
}

func NewChainReader(l ledger.Ledger) *ChainReader {
	return &ChainReader{ledger: l}
}

func (r *ChainReader) ReadMetadata(ctx context.Context, mint types.Pubkey) (meta *domain.TokenMetadata, err error) {
	defer func() { metrics.MetadataLookups.WithLabelValues("onchain", metrics.Result(err)).Inc() }()

	addr, err := MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	info, err := r.ledger.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrMetadataNotFound
	}
	if info.Owner != consts.TokenMetaProgram {
		return nil, fmt.Errorf("metadata account %s owned by %s", addr, info.Owner)
	}

	decoded, err := layout.DecodeMetadata(info.Data)
	if err != nil {
		return nil, err
	}
	if decoded.Mint != mint {
		return nil, fmt.Errorf("metadata mint mismatch: got %s want %s", decoded.Mint, mint)
	}
	return &domain.TokenMetadata{
		Mint:   mint,
		Name:   decoded.Name,
		Symbol: decoded.Symbol,
		Uri:    decoded.Uri,
	}, nil
}
