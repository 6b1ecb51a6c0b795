package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"solaboard/internal/config"
	"solaboard/internal/logic/dashboard"
	"solaboard/internal/logic/domain"
	"solaboard/internal/metrics"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/service"
	"solaboard/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/board.yaml", "the config file")

const addressWidth = 40

// tablePrinter 每次刷新成功后把列表写入日志
type tablePrinter struct {
	*dashboard.Dashboard
}

func (p tablePrinter) Connect(ctx context.Context) error {
	if err := p.Dashboard.Connect(ctx); err != nil {
		return err
	}
	p.print()
	return nil
}

func (p tablePrinter) Refresh(ctx context.Context) error {
	if err := p.Dashboard.Refresh(ctx); err != nil {
		return err
	}
	p.print()
	return nil
}

func (p tablePrinter) print() {
	for i, tk := range p.Tokens() {
		address := tk.TokenAddress
		if tk.IsNative() {
			address = "-"
		}
		logger.Infof("[Board] %2d  %-14s %-24s %s", i, tk.Name, tk.Display(), domain.ShortAddress(address, addressWidth))
	}
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.BoardConfig
	config.MustLoad(*configFile, &c)
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		logx.Errorf("logger init failed: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()
	sg.Add(service.NewRefreshService(
		tablePrinter{serviceContext.Dashboard},
		time.Duration(c.Dashboard.RefreshIntervalSec)*time.Second,
		c.Rpc.RequestTimeout()*4,
		c.Wallet.AutoConnect,
	))
	if c.Metrics.ListenAddr != "" {
		sg.Add(metrics.NewServer(c.Metrics.ListenAddr, c.Metrics.Path))
	}

	logx.Infof("Starting board, endpoint=%s", c.Rpc.Endpoint)

	// 启动服务
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
