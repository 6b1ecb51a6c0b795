package notify

import (
	"context"
	"time"

	"solaboard/internal/metrics"
	"solaboard/internal/mq"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"google.golang.org/protobuf/types/known/structpb"
)

// KafkaSink 把通知编码为带类型前缀的 protobuf 发往 Kafka，同一 Handle 固定分区
type KafkaSink struct {
	producer   *kafka.Producer
	topic      string
	partitions int
	timeout    time.Duration
}

func NewKafkaSink(producer *kafka.Producer, topic string, partitions int, timeout time.Duration) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, partitions: partitions, timeout: timeout}
}

// EncodeNotification 通知 -> 事件字节
func EncodeNotification(n Notification) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"handle":  string(n.Handle),
		"level":   n.Level.String(),
		"message": n.Message,
		"detail":  n.Detail,
		"at":      n.At.UnixMilli(),
	})
	if err != nil {
		return nil, err
	}
	return utils.EncodeEvent(utils.EventNotification, msg)
}

func (s *KafkaSink) job(n Notification) (*mq.KafkaJob, error) {
	value, err := EncodeNotification(n)
	if err != nil {
		return nil, err
	}
	key := []byte(n.Handle)
	return &mq.KafkaJob{
		Topic:     s.topic,
		Partition: utils.PartitionForKey(key, s.partitions),
		Key:       key,
		Value:     value,
	}, nil
}

func (s *KafkaSink) Notify(ctx context.Context, n Notification) {
	job, err := s.job(n)
	if err != nil {
		metrics.Notifications.WithLabelValues("kafka", "error").Inc()
		logger.Warnf("[KafkaSink] 编码通知失败: handle=%s err=%v", n.Handle, err)
		return
	}
	_, failed := mq.SendKafkaJobs(ctx, s.producer, []*mq.KafkaJob{job}, s.timeout)
	if len(failed) > 0 {
		metrics.Notifications.WithLabelValues("kafka", "error").Inc()
		logger.Warnf("[KafkaSink] 发送通知失败: handle=%s err=%v", n.Handle, failed[0].Err)
		return
	}
	metrics.Notifications.WithLabelValues("kafka", "ok").Inc()
}

func (s *KafkaSink) Close() {
	s.producer.Flush(1000)
	s.producer.Close()
}
