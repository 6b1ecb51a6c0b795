package notify

import (
	"context"
	"fmt"
	"time"

	"solaboard/internal/config"
	"solaboard/internal/metrics"
	"solaboard/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// RedisSink 以 Handle 为 key 保存最新通知，供前端轮询或订阅
type RedisSink struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSink(cfg config.RedisNotifyConfig) *RedisSink {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisSinkWithClient(rdb, cfg.KeyPrefix, time.Duration(cfg.TTLSec)*time.Second)
}

func NewRedisSinkWithClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisSink) key(h Handle) string {
	return fmt.Sprintf("%s:%s", s.prefix, h)
}

func (s *RedisSink) Notify(ctx context.Context, n Notification) {
	err := s.set(ctx, n)
	metrics.Notifications.WithLabelValues("redis", metrics.Result(err)).Inc()
	if err != nil {
		logger.Warnf("[RedisSink] 写入通知失败: handle=%s err=%v", n.Handle, err)
	}
}

func (s *RedisSink) set(ctx context.Context, n Notification) error {
	payload, err := jsonx.Marshal(n)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(n.Handle), payload, s.ttl).Err()
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
