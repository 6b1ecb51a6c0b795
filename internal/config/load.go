package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProgramToken2022 = "token2022"
	ProgramToken     = "token"

	AmountModeNative = "native"
	AmountModeMint   = "mint"

	defaultEndpoint     = "https://api.devnet.solana.com"
	defaultCommitment   = "processed"
	defaultPollMs       = 500
	defaultNativeImage  = "/images/solana-logo.png"
	defaultConcurrency  = 8
	defaultUriTimeoutMs = 10000
	defaultRedisPrefix  = "notify"
	defaultRedisTTLSec  = 3600
	defaultSendTimeout  = 5000
	defaultKafkaTopic   = "board-notify"
	defaultPartitions   = 3
	defaultMetricsPath  = "/metrics"
)

// Load 读取 yaml 配置并补全默认值
func Load(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// MustLoad 读取失败直接退出。
// 不用 go-zero conf：它按 json tag 绑定字段，这里的配置只有 snake_case 的 yaml tag。
func MustLoad(path string, c *BoardConfig) {
	loaded, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	*c = *loaded
}

func Parse(data []byte) (*BoardConfig, error) {
	var c BoardConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *BoardConfig) fillDefaults() {
	if c.Rpc.Endpoint == "" {
		c.Rpc.Endpoint = defaultEndpoint
	}
	if c.Rpc.Commitment == "" {
		c.Rpc.Commitment = defaultCommitment
	}
	if c.Rpc.PollIntervalMs <= 0 {
		c.Rpc.PollIntervalMs = defaultPollMs
	}
	if c.Rpc.Burst <= 0 {
		c.Rpc.Burst = 1
	}
	if c.Token.Program == "" {
		c.Token.Program = ProgramToken2022
	}
	if c.Token.AmountMode == "" {
		c.Token.AmountMode = AmountModeNative
	}
	if c.Dashboard.NativeImage == "" {
		c.Dashboard.NativeImage = defaultNativeImage
	}
	if c.Dashboard.MetadataConcurrency <= 0 {
		c.Dashboard.MetadataConcurrency = defaultConcurrency
	}
	if c.Dashboard.UriTimeoutMs <= 0 {
		c.Dashboard.UriTimeoutMs = defaultUriTimeoutMs
	}
	if c.Notify.Redis.KeyPrefix == "" {
		c.Notify.Redis.KeyPrefix = defaultRedisPrefix
	}
	if c.Notify.Redis.TTLSec <= 0 {
		c.Notify.Redis.TTLSec = defaultRedisTTLSec
	}
	if c.Notify.Kafka.Topic == "" {
		c.Notify.Kafka.Topic = defaultKafkaTopic
	}
	if c.Notify.Kafka.Partitions <= 0 {
		c.Notify.Kafka.Partitions = defaultPartitions
	}
	if c.Notify.Kafka.SendTimeoutMs <= 0 {
		c.Notify.Kafka.SendTimeoutMs = defaultSendTimeout
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

func (c *BoardConfig) Validate() error {
	switch strings.ToLower(c.Token.Program) {
	case ProgramToken2022, ProgramToken:
	default:
		return fmt.Errorf("token.program must be %q or %q, got %q", ProgramToken2022, ProgramToken, c.Token.Program)
	}
	switch c.Token.AmountMode {
	case AmountModeNative, AmountModeMint:
	default:
		return fmt.Errorf("token.amount_mode must be %q or %q, got %q", AmountModeNative, AmountModeMint, c.Token.AmountMode)
	}
	switch c.Rpc.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment %q not supported", c.Rpc.Commitment)
	}
	if c.Rpc.MaxRps < 0 {
		return fmt.Errorf("rpc.max_rps must be >= 0")
	}
	return nil
}
