package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"solaboard/internal/config"
	"solaboard/internal/logic/domain"
	"solaboard/internal/pkg/logger"
	"solaboard/internal/svc"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/zeromicro/go-zero/core/logx"
)

var (
	configFile = flag.String("f", "etc/board.yaml", "the config file")
	mint       = flag.String("mint", "", "mint address of the token to send")
	to         = flag.String("to", "", "recipient wallet address")
	amount     = flag.String("amount", "", "amount in display units, e.g. 1.5")
	yes        = flag.Bool("y", false, "sign without confirmation")
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v", r)
			os.Exit(2)
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
		logx.Errorf("init failed: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	if !*yes {
		serviceContext.Wallet.SetApprover(confirmOnStdin)
	}

	// 先加载列表，再按 mint 选择代币
	ctx := context.Background()
	board := serviceContext.Dashboard
	if err := board.Connect(ctx); err != nil {
		fail(err)
	}
	if *mint != "" {
		if _, err := board.Select(*mint); err != nil {
			fail(err)
		}
	}

	sig, err := board.Send(ctx, *to, *amount)
	if err != nil {
		fail(err)
	}
	fmt.Println(sig)
}

func confirmOnStdin(_ context.Context, msg sdktypes.Message) bool {
	fmt.Fprintf(os.Stderr, "Send %s of %s to %s with %d instruction(s)? [y/N] ",
		*amount, *mint, *to, len(msg.Instructions))
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", domain.KindOf(err), err)
	logger.Sync()
	os.Exit(1)
}
