package layout

import (
	"encoding/binary"
	"fmt"
	"strings"

	"solaboard/internal/types"

	"github.com/near/borsh-go"
)

const (
	MetadataKeyV1 uint8 = 4

	metadataHeaderSize = 1 + 32 + 32
	maxNameLen         = 32 * 4
	maxSymbolLen       = 10 * 4
	maxUriLen          = 200 * 4
)

// Metadata Metaplex 元数据账户的前缀部分，之后的字段不需要
type Metadata struct {
	Key             uint8
	UpdateAuthority types.Pubkey
	Mint            types.Pubkey
	Name            string
	Symbol          string
	Uri             string
}

// DecodeMetadata 解析元数据，字符串去掉尾部 \x00 填充
func DecodeMetadata(data []byte) (*Metadata, error) {
	if len(data) < metadataHeaderSize {
		return nil, fmt.Errorf("metadata data too short: %d", len(data))
	}
	if data[0] != MetadataKeyV1 {
		return nil, fmt.Errorf("unexpected metadata key %d", data[0])
	}
	// 先检查字符串长度前缀，避免异常数据触发超大分配
	if err := checkStrings(data[metadataHeaderSize:], maxNameLen, maxSymbolLen, maxUriLen); err != nil {
		return nil, err
	}

	var m Metadata
	if err := borsh.Deserialize(&m, data); err != nil {
		return nil, fmt.Errorf("borsh decode metadata: %w", err)
	}
	m.Name = trimPadding(m.Name)
	m.Symbol = trimPadding(m.Symbol)
	m.Uri = trimPadding(m.Uri)
	return &m, nil
}

func checkStrings(data []byte, limits ...int) error {
	offset := 0
	for i, limit := range limits {
		if offset+4 > len(data) {
			return fmt.Errorf("metadata string %d: missing length prefix", i)
		}
		n := int(binary.LittleEndian.Uint32(data[offset:]))
		if n > limit || offset+4+n > len(data) {
			return fmt.Errorf("metadata string %d: bad length %d", i, n)
		}
		offset += 4 + n
	}
	return nil
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
