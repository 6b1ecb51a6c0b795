package mq

import (
	"context"
	"fmt"
	"os"
	"time"

	"solaboard/internal/config"
	"solaboard/internal/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize  = 32 * 1024
	defaultLingerMs   = 5
	defaultPartitions = 3
)

// NewKafkaProducer 创建 Kafka 生产者，通知 topic 不存在时自动创建
func NewKafkaProducer(cfg config.KafkaProducerConfig) (*kafka.Producer, error) {
	if err := ensureTopic(cfg); err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         clientID(),

		// 可靠性保障
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试（交给 librdkafka，业务层不重试）
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		// 通知消息很小，不压缩
		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

func ensureTopic(cfg config.KafkaProducerConfig) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	meta, err := adminClient.GetMetadata(nil, true, 10000)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}
	if _, ok := meta.Topics[cfg.Topic]; ok {
		return nil
	}

	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = defaultPartitions
	}
	logger.Infof("[Kafka] 创建 topic %s: partitions=%d replication=%d", cfg.Topic, partitions, replicationFactor)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := adminClient.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	for _, result := range results {
		if code := result.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
	}
	return nil
}

func clientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "solaboard-" + host
}
