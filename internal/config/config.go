package config

import (
	"solaboard/internal/pkg/logger"
	"time"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig 表示 Solana 节点连接配置
type RpcConfig struct {
	Endpoint          string  `yaml:"endpoint"`            // HTTP JSON-RPC 地址
	WsEndpoint        string  `yaml:"ws_endpoint"`         // WebSocket 地址，为空时轮询确认
	Commitment        string  `yaml:"commitment"`          // 交易确认级别：processed / confirmed / finalized
	RequestTimeoutMs  int     `yaml:"request_timeout_ms"`  // 单次请求超时（毫秒），0 表示不限制
	ConfirmTimeoutSec int     `yaml:"confirm_timeout_sec"` // 等待确认的最长时间（秒），0 表示只依赖区块高度过期
	PollIntervalMs    int     `yaml:"poll_interval_ms"`    // 轮询签名状态间隔（毫秒）
	MaxRps            float64 `yaml:"max_rps"`             // 请求限速（每秒），0 表示不限速
	Burst             int     `yaml:"burst"`               // 限速桶容量
}

func (c *RpcConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *RpcConfig) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutSec) * time.Second
}

func (c *RpcConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// TokenConfig 表示代币程序与数量换算配置
type TokenConfig struct {
	Program    string `yaml:"program"`     // token2022 / token
	AmountMode string `yaml:"amount_mode"` // native: 固定 1e9 换算; mint: 按 mint 精度换算
}

// WalletConfig 表示签名钱包配置
type WalletConfig struct {
	KeypairPath string `yaml:"keypair_path"`  // solana-keygen 生成的 JSON 私钥文件
	SecretEnv   string `yaml:"secret_env"`    // 存放 base58 私钥的环境变量名
	SignAndSend bool   `yaml:"sign_and_send"` // 由钱包负责签名并发送
	AutoConnect bool   `yaml:"auto_connect"`  // 启动时自动连接
}

// DashboardConfig 表示面板刷新相关配置
type DashboardConfig struct {
	RefreshIntervalSec  int    `yaml:"refresh_interval_sec"` // 周期刷新间隔（秒），0 表示只在连接时刷新
	NativeImage         string `yaml:"native_image"`         // SOL 图标路径
	MetadataConcurrency int    `yaml:"metadata_concurrency"` // 元数据并发上限
	UriTimeoutMs        int    `yaml:"uri_timeout_ms"`       // 链下 JSON 拉取超时（毫秒）
}

// RedisNotifyConfig 表示通知写入 Redis 的配置
type RedisNotifyConfig struct {
	Addr      string `yaml:"addr"`       // Redis 地址，为空时关闭
	Password  string `yaml:"password"`   // 密码
	DB        int    `yaml:"db"`         // 库编号
	KeyPrefix string `yaml:"key_prefix"` // key 前缀
	TTLSec    int    `yaml:"ttl_sec"`    // 通知保留时间（秒）
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers       string `yaml:"brokers"`         // Kafka broker 地址，多个用英文逗号分隔，为空时关闭
	BatchSize     int    `yaml:"batch_size"`      // 批处理大小（单位字节）
	LingerMs      int    `yaml:"linger_ms"`       // 批处理最大延迟（毫秒）
	Topic         string `yaml:"topic"`           // 通知事件 topic
	Partitions    int    `yaml:"partitions"`      // topic 分区数
	SendTimeoutMs int    `yaml:"send_timeout_ms"` // 单条消息等待 ack 的超时时间
}

// NotifyConfig 表示通知下游配置
type NotifyConfig struct {
	Log   bool                `yaml:"log"`   // 输出到日志
	Redis RedisNotifyConfig   `yaml:"redis"` // Redis 下游
	Kafka KafkaProducerConfig `yaml:"kafka"` // Kafka 下游
}

// MetricsConfig 表示 prometheus 暴露配置
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // 例如 :9100，为空时不启动
	Path       string `yaml:"path"`        // 默认 /metrics
}

// BoardConfig 是主配置结构体
type BoardConfig struct {
	LogConf   LogConfig       `yaml:"logger"`    // 日志配置
	Rpc       RpcConfig       `yaml:"rpc"`       // 节点配置
	Token     TokenConfig     `yaml:"token"`     // 代币配置
	Wallet    WalletConfig    `yaml:"wallet"`    // 钱包配置
	Dashboard DashboardConfig `yaml:"dashboard"` // 面板配置
	Notify    NotifyConfig    `yaml:"notify"`    // 通知配置
	Metrics   MetricsConfig   `yaml:"metrics"`   // 监控配置
}
