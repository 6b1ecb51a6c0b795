package mq

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "solaboard-test-notify"

// 不可达的 broker：librdkafka 延迟连接，创建 producer 不会失败
func unreachableProducer(t *testing.T) *kafka.Producer {
	t.Helper()
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":    "127.0.0.1:1",
		"message.timeout.ms":   1000,
		"socket.timeout.ms":    1000,
		"reconnect.backoff.ms": 100,
	})
	require.NoError(t, err)
	t.Cleanup(producer.Close)
	return producer
}

func TestSendKafkaJobs_Empty(t *testing.T) {
	ok, failed := SendKafkaJobs(context.Background(), unreachableProducer(t), nil, time.Second)
	assert.Empty(t, ok)
	assert.Empty(t, failed)
}

// 测试超时场景
func TestSendKafkaJobs_Timeout(t *testing.T) {
	jobs := []*KafkaJob{
		{Topic: testTopic, Partition: kafka.PartitionAny, Key: []byte("h1"), Value: []byte("a")},
		{Topic: testTopic, Partition: kafka.PartitionAny, Key: []byte("h2"), Value: []byte("b")},
	}
	ok, failed := SendKafkaJobs(context.Background(), unreachableProducer(t), jobs, 20*time.Millisecond)
	assert.Empty(t, ok)
	assert.Len(t, failed, 2)
}

// 测试上下文取消
func TestSendKafkaJobs_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []*KafkaJob{{Topic: testTopic, Partition: kafka.PartitionAny, Value: []byte("a")}}
	ok, failed := SendKafkaJobs(ctx, unreachableProducer(t), jobs, time.Second)
	assert.Empty(t, ok)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, context.Canceled)
}

// 需要真实 Kafka：KAFKA_BROKERS=127.0.0.1:9092
func TestSendKafkaJobs_RealKafka(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": brokers, "allow.auto.create.topics": true})
	require.NoError(t, err)
	defer producer.Close()

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"group.id":          "solaboard-test-" + time.Now().Format("20060102150405"),
		"auto.offset.reset": "earliest",
	})
	require.NoError(t, err)
	defer consumer.Close()
	require.NoError(t, consumer.Subscribe(testTopic, nil))

	jobs := []*KafkaJob{
		{Topic: testTopic, Partition: kafka.PartitionAny, Key: []byte("handle-1"), Value: []byte("loading")},
		{Topic: testTopic, Partition: kafka.PartitionAny, Key: []byte("handle-1"), Value: []byte("success")},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ok, failed := SendKafkaJobs(ctx, producer, jobs, 5*time.Second)
	assert.Len(t, ok, 2)
	assert.Empty(t, failed)

	received := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg, err := consumer.ReadMessage(10 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, "handle-1", string(msg.Key))
		received[string(msg.Value)] = true
	}
	assert.True(t, received["loading"])
	assert.True(t, received["success"])
}
