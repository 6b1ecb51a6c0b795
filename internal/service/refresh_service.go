package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"solaboard/internal/logic/domain"
	"solaboard/internal/pkg/logger"
)

// Refresher 由 dashboard.Dashboard 实现
type Refresher interface {
	Connect(ctx context.Context) error
	Refresh(ctx context.Context) error
	Disconnect()
}

// RefreshService 启动时连接钱包并加载列表，之后按固定间隔刷新。
// 实现 go-zero service.Service。
type RefreshService struct {
	board       Refresher
	interval    time.Duration
	timeout     time.Duration
	autoConnect bool
	stopChan    chan struct{}
	ctx         context.Context
	cancel      func(err error)
}

// NewRefreshService interval 为 0 时只在启动时加载一次
func NewRefreshService(board Refresher, interval, timeout time.Duration, autoConnect bool) *RefreshService {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &RefreshService{
		board:       board,
		interval:    interval,
		timeout:     timeout,
		autoConnect: autoConnect,
		stopChan:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *RefreshService) Start() {
	if s.autoConnect {
		s.run("connect", s.board.Connect)
	} else {
		s.run("refresh", s.board.Refresh)
	}
	if s.interval > 0 {
		s.scheduleNext()
	}
	<-s.stopChan
}

func (s *RefreshService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		// 已 Stop 则不再刷新
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		s.run("refresh", s.board.Refresh)
		s.scheduleNext()
	})
}

func (s *RefreshService) Stop() {
	s.cancel(errors.New("RefreshService stop"))
	s.board.Disconnect()
	select {
	case <-s.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(s.stopChan)
	}
}

func (s *RefreshService) run(op string, fn func(ctx context.Context) error) {
	if err := s.safeRun(fn); err != nil && domain.KindOf(err) != domain.KindStale {
		logger.Warnf("[RefreshService] %s 失败: %v", op, err)
	}
}

func (s *RefreshService) safeRun(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[RefreshService] panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("refresh panic: %v", r)
		}
	}()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return fn(ctx)
}
