package utils

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/threading"
)

// ErrTaskAborted 任务没有正常返回（panic 被 RunSafe 吞掉）
var ErrTaskAborted = errors.New("task aborted before settling")

// Settled 单个任务的结果，Err 为 nil 表示 fulfilled
type Settled[T any] struct {
	Value T
	Err   error
}

func (s Settled[T]) Ok() bool {
	return s.Err == nil
}

// SettleAll 并发执行 n 个任务并等待全部结束，结果按下标对齐。
// 单个任务失败或 panic 不影响其它任务；limit <= 0 表示不限制并发。
func SettleAll[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) []Settled[T] {
	results := make([]Settled[T], n)
	if n == 0 {
		return results
	}
	for i := range results {
		results[i].Err = ErrTaskAborted
	}

	var sem chan struct{}
	if limit > 0 && limit < n {
		sem = make(chan struct{}, limit)
	}

	group := threading.NewRoutineGroup()
	for i := 0; i < n; i++ {
		idx := i
		group.RunSafe(func() {
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[idx].Err = ctx.Err()
					return
				}
			}
			v, err := fn(ctx, idx)
			results[idx] = Settled[T]{Value: v, Err: err}
		})
	}
	group.Wait()
	return results
}
