package ledger

import (
	"context"
	"fmt"
	"time"

	"solaboard/internal/logic/domain"
	"solaboard/internal/pkg/logger"
)

// PollingConfirmer 轮询 getSignatureStatuses 直到达到确认级别或 blockhash 过期
type PollingConfirmer struct {
	ledger     Ledger
	commitment string
	interval   time.Duration
	timeout    time.Duration // 0 表示只依赖区块高度过期
}

func NewPollingConfirmer(ledger Ledger, commitment string, interval, timeout time.Duration) *PollingConfirmer {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PollingConfirmer{ledger: ledger, commitment: commitment, interval: interval, timeout: timeout}
}

func (c *PollingConfirmer) Confirm(ctx context.Context, signature string, blockhash LatestBlockhash) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		done, err := c.check(ctx, signature, blockhash)
		if done {
			return err
		}
		if err != nil {
			logger.Debugf("[Confirmer] 查询状态失败: sig=%s err=%v", signature, err)
		}

		select {
		case <-ctx.Done():
			return domain.NewError(domain.KindConfirmation, "confirm", fmt.Errorf("%w: %v", domain.ErrConfirmTimeout, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// check 返回 done=true 表示已得出结论（成功或失败）
func (c *PollingConfirmer) check(ctx context.Context, signature string, blockhash LatestBlockhash) (bool, error) {
	status, err := c.ledger.GetSignatureStatus(ctx, signature)
	if err != nil {
		return false, err
	}
	if status != nil {
		if status.Err != nil {
			return true, domain.NewError(domain.KindConfirmation, "confirm", fmt.Errorf("transaction failed: %v", status.Err))
		}
		if Reached(status.ConfirmationStatus, c.commitment) {
			return true, nil
		}
		return false, nil
	}
	return checkExpired(ctx, c.ledger, blockhash)
}

// checkExpired 当前区块高度超过 lastValidBlockHeight 即判定过期
func checkExpired(ctx context.Context, ledger Ledger, blockhash LatestBlockhash) (bool, error) {
	if blockhash.LastValidBlockHeight == 0 {
		return false, nil
	}
	height, err := ledger.GetBlockHeight(ctx)
	if err != nil {
		return false, err
	}
	if height > blockhash.LastValidBlockHeight {
		return true, domain.NewError(domain.KindConfirmation, "confirm", domain.ErrBlockHeightExpired)
	}
	return false, nil
}
