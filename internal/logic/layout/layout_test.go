package layout

import (
	"testing"

	"solaboard/internal/consts"
	"solaboard/internal/types"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSerialize(t *testing.T, v any) []byte {
	t.Helper()
	data, err := borsh.Serialize(v)
	require.NoError(t, err)
	return data
}

func TestDecodeTokenAccount(t *testing.T) {
	src := TokenAccount{
		Mint:   consts.WSOLMint,
		Owner:  consts.SystemProgram,
		Amount: 1_000_000,
		State:  AccountInitialized,
	}
	data := mustSerialize(t, src)
	require.Len(t, data, TokenAccountSize)

	t.Run("legacy size", func(t *testing.T) {
		acc, err := DecodeTokenAccount(data)
		require.NoError(t, err)
		assert.Equal(t, consts.WSOLMint, acc.Mint)
		assert.Equal(t, uint64(1_000_000), acc.Amount)
	})

	t.Run("token-2022 with extensions", func(t *testing.T) {
		ext := append(append([]byte{}, data...), accountTypeToken, 0, 0, 0, 0)
		acc, err := DecodeTokenAccount(ext)
		require.NoError(t, err)
		assert.Equal(t, consts.SystemProgram, acc.Owner)
	})

	t.Run("wrong account type", func(t *testing.T) {
		ext := append(append([]byte{}, data...), accountTypeMint)
		_, err := DecodeTokenAccount(ext)
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := DecodeTokenAccount(data[:100])
		assert.Error(t, err)
	})

	t.Run("uninitialized", func(t *testing.T) {
		empty := mustSerialize(t, TokenAccount{})
		_, err := DecodeTokenAccount(empty)
		assert.Error(t, err)
	})
}

func TestDecodeMint(t *testing.T) {
	data := mustSerialize(t, Mint{Supply: 10, Decimals: 6, IsInitialized: true})
	require.Len(t, data, MintSize)

	m, err := DecodeMint(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), m.Decimals)

	_, err = DecodeMint(data[:40])
	assert.Error(t, err)
}

func TestDecodeMetadata(t *testing.T) {
	mint := types.PubkeyFromBase58(consts.WSOLMintStr)
	src := Metadata{
		Key:    MetadataKeyV1,
		Mint:   mint,
		Name:   "Wrapped SOL\x00\x00\x00",
		Symbol: "WSOL\x00\x00",
		Uri:    "https://example.com/wsol.json\x00\x00",
	}
	// 真实账户在 uri 之后还有其它字段
	data := append(mustSerialize(t, src), make([]byte, 64)...)

	t.Run("valid", func(t *testing.T) {
		m, err := DecodeMetadata(data)
		require.NoError(t, err)
		assert.Equal(t, mint, m.Mint)
		assert.Equal(t, "Wrapped SOL", m.Name)
		assert.Equal(t, "WSOL", m.Symbol)
		assert.Equal(t, "https://example.com/wsol.json", m.Uri)
	})

	t.Run("bad key", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[0] = 9
		_, err := DecodeMetadata(bad)
		assert.Error(t, err)
	})

	t.Run("huge length prefix", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[metadataHeaderSize] = 0xFF
		bad[metadataHeaderSize+3] = 0x7F
		_, err := DecodeMetadata(bad)
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := DecodeMetadata(data[:metadataHeaderSize+6])
		assert.Error(t, err)
	})
}
