package svc

import (
	"errors"
	"strings"
	"time"

	"solaboard/internal/cache"
	"solaboard/internal/config"
	"solaboard/internal/consts"
	"solaboard/internal/ledger"
	"solaboard/internal/logic/aggregator"
	"solaboard/internal/logic/dashboard"
	"solaboard/internal/logic/metadata"
	"solaboard/internal/logic/transfer"
	"solaboard/internal/mq"
	"solaboard/internal/notify"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/wallet"
)

// ServiceContext 包含面板运行所需的全部资源
type ServiceContext struct {
	Config     config.BoardConfig
	Ledger     *ledger.RpcLedger
	Confirmer  ledger.Confirmer
	MintCache  *cache.MintCache
	Aggregator *aggregator.Aggregator
	Submitter  *transfer.Submitter
	Wallet     *wallet.KeypairWallet
	Toaster    *notify.Toaster
	Dashboard  *dashboard.Dashboard

	kafkaSink *notify.KafkaSink
	redisSink *notify.RedisSink
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c config.BoardConfig) (*ServiceContext, error) {
	sc := &ServiceContext{Config: c, MintCache: cache.NewMintCache()}

	// 1. 节点与确认
	sc.Ledger = ledger.NewRpcLedger(c.Rpc)
	poller := ledger.NewPollingConfirmer(sc.Ledger, c.Rpc.Commitment, c.Rpc.PollInterval(), c.Rpc.ConfirmTimeout())
	if c.Rpc.WsEndpoint != "" {
		sc.Confirmer = ledger.NewWsConfirmer(c.Rpc.WsEndpoint, poller)
	} else {
		sc.Confirmer = poller
	}

	program, ok := consts.TokenProgramByName(strings.ToLower(c.Token.Program))
	if !ok {
		return nil, errors.New("unknown token program: " + c.Token.Program)
	}

	// 2. 数量换算精度
	var decimals metadata.DecimalsSource = metadata.NativeDecimals{}
	if c.Token.AmountMode == config.AmountModeMint {
		decimals = metadata.NewMintDecimals(sc.Ledger, sc.MintCache)
	} else {
		logger.Warnf("[Svc] amount_mode=native: 所有代币按 1e9 换算，与 mint 自身精度可能不一致")
	}

	// 3. 通知下游
	sink, err := sc.buildSink(c.Notify)
	if err != nil {
		sc.Close()
		return nil, err
	}
	sc.Toaster = notify.NewToaster(sink)

	// 4. 钱包
	sc.Wallet, err = wallet.NewFromConfig(c.Wallet, sc.Ledger)
	if err != nil {
		sc.Close()
		return nil, err
	}

	// 5. 业务组件
	sc.Aggregator = aggregator.New(
		sc.Ledger,
		metadata.NewChainReader(sc.Ledger),
		metadata.NewHttpFetcher(time.Duration(c.Dashboard.UriTimeoutMs)*time.Millisecond),
		decimals,
		aggregator.Options{
			TokenProgram: program,
			NativeImage:  c.Dashboard.NativeImage,
			Concurrency:  c.Dashboard.MetadataConcurrency,
		},
	)
	sc.Submitter = transfer.NewSubmitter(sc.Ledger, sc.Wallet, sc.Confirmer, decimals, sc.Toaster, transfer.Options{
		TokenProgram: program,
		SignAndSend:  c.Wallet.SignAndSend,
	})
	sc.Dashboard = dashboard.New(sc.Aggregator, sc.Submitter, sc.Wallet, sc.Toaster)

	logger.Infof("[Svc] 服务上下文初始化完成: endpoint=%s program=%s amount_mode=%s", c.Rpc.Endpoint, program, c.Token.AmountMode)
	return sc, nil
}

func (sc *ServiceContext) buildSink(c config.NotifyConfig) (notify.Sink, error) {
	sinks := notify.MultiSink{}
	if c.Log {
		sinks = append(sinks, notify.LogSink{})
	}
	if c.Redis.Addr != "" {
		sc.redisSink = notify.NewRedisSink(c.Redis)
		sinks = append(sinks, sc.redisSink)
	}
	if c.Kafka.Brokers != "" {
		producer, err := mq.NewKafkaProducer(c.Kafka)
		if err != nil {
			logger.Errorf("[Svc] Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		sc.kafkaSink = notify.NewKafkaSink(producer, c.Kafka.Topic, c.Kafka.Partitions,
			time.Duration(c.Kafka.SendTimeoutMs)*time.Millisecond)
		sinks = append(sinks, sc.kafkaSink)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notify.LogSink{})
	}
	return sinks, nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.kafkaSink != nil {
		sc.kafkaSink.Close()
	}
	if sc.redisSink != nil {
		_ = sc.redisSink.Close()
	}
}
