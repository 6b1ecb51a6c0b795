package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// decodeEvent 解析 EncodeEvent 的输出，msg 为目标消息
func decodeEvent(data []byte, msg proto.Message) (uint32, error) {
	if len(data) < 4 {
		return 0, errors.New("decodeEvent: data too short")
	}
	eventType := binary.LittleEndian.Uint32(data[:4])
	if err := proto.Unmarshal(data[4:], msg); err != nil {
		return 0, fmt.Errorf("decodeEvent: unmarshal %T: %w", msg, err)
	}
	return eventType, nil
}

func TestEventCodec(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"handle": "h1", "level": "success"})
	require.NoError(t, err)

	data, err := EncodeEvent(EventNotification, msg)
	require.NoError(t, err)

	var out structpb.Struct
	eventType, err := decodeEvent(data, &out)
	require.NoError(t, err)
	assert.Equal(t, EventNotification, eventType)
	assert.Equal(t, "h1", out.Fields["handle"].GetStringValue())

	_, err = decodeEvent([]byte{1, 2}, &out)
	assert.Error(t, err)
}

func TestPartitionForKey(t *testing.T) {
	key := []byte("7f1c8a52-0d0e-4a3e-9b43-000000000001")
	p := PartitionForKey(key, 8)
	assert.Equal(t, p, PartitionForKey(key, 8))
	assert.GreaterOrEqual(t, p, int32(0))
	assert.Less(t, p, int32(8))

	assert.Equal(t, int32(0), PartitionForKey(key, 1))
	assert.Equal(t, int32(0), PartitionForKey(nil, 8))
}
