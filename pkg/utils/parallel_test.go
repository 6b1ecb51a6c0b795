package utils

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleAll(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		result := SettleAll(context.Background(), 0, 4, func(ctx context.Context, i int) (int, error) {
			return i * 2, nil
		})
		assert.Empty(t, result)
	})

	// 测试多元素输入 - 确保顺序正确
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		result := SettleAll(context.Background(), len(input), 3, func(ctx context.Context, i int) (int, error) {
			// 添加随机延迟，测试顺序保持
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return input[i] * 2, nil
		})
		assert.Equal(t, []int{2, 4, 6, 8, 10}, values(result))
	})

	// 部分失败不影响其它任务
	t.Run("partial failure", func(t *testing.T) {
		boom := errors.New("boom")
		result := SettleAll(context.Background(), 4, 0, func(ctx context.Context, i int) (string, error) {
			if i%2 == 0 {
				return "", boom
			}
			return "ok", nil
		})
		require.Len(t, result, 4)
		assert.ErrorIs(t, result[0].Err, boom)
		assert.True(t, result[1].Ok())
		assert.Equal(t, "ok", result[1].Value)
		assert.ErrorIs(t, result[2].Err, boom)
		assert.Equal(t, []string{"ok", "ok"}, values(result))
	})

	// panic 被吞掉并记为失败
	t.Run("panic is contained", func(t *testing.T) {
		result := SettleAll(context.Background(), 2, 0, func(ctx context.Context, i int) (int, error) {
			if i == 0 {
				panic("bad record")
			}
			return 7, nil
		})
		assert.ErrorIs(t, result[0].Err, ErrTaskAborted)
		assert.Equal(t, 7, result[1].Value)
	})

	// 测试并发上限
	t.Run("concurrency limit", func(t *testing.T) {
		var maxConcurrent, current int32
		SettleAll(context.Background(), 40, 5, func(ctx context.Context, i int) (int, error) {
			c := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&maxConcurrent)
				if c <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, c) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return i, nil
		})
		assert.LessOrEqual(t, maxConcurrent, int32(5))
		assert.Greater(t, maxConcurrent, int32(0))
	})

	// 上下文取消后排队中的任务直接失败
	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		result := SettleAll(ctx, 5, 1, func(ctx context.Context, i int) (int, error) {
			time.Sleep(5 * time.Millisecond)
			return i, nil
		})
		failed := 0
		for _, r := range result {
			if errors.Is(r.Err, context.Canceled) {
				failed++
			}
		}
		assert.Greater(t, failed, 0)
	})
}

// values 只取成功的结果，顺序与输入一致
func values[T any](settled []Settled[T]) []T {
	out := make([]T, 0, len(settled))
	for _, s := range settled {
		if s.Ok() {
			out = append(out, s.Value)
		}
	}
	return out
}
