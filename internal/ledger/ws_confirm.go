package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solaboard/internal/logic/domain"
	"solaboard/internal/pkg/logger"

	"github.com/gorilla/websocket"
)

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsMessage struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Value struct {
				Err any `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

type wsRead struct {
	msg wsMessage
	err error
}

const signatureSubscribeID uint64 = 1

// WsConfirmer 通过 signatureSubscribe 等待确认，连接失败时退回轮询
type WsConfirmer struct {
	endpoint   string
	commitment string
	dialer     websocket.Dialer
	poller     *PollingConfirmer
}

func NewWsConfirmer(endpoint string, poller *PollingConfirmer) *WsConfirmer {
	return &WsConfirmer{
		endpoint:   endpoint,
		commitment: poller.commitment,
		dialer:     websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		poller:     poller,
	}
}

func (c *WsConfirmer) Confirm(ctx context.Context, signature string, blockhash LatestBlockhash) error {
	if c.poller.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.poller.timeout)
		defer cancel()
	}

	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		logger.Warnf("[WsConfirmer] websocket 连接失败，改为轮询: %v", err)
		return c.poller.Confirm(ctx, signature, blockhash)
	}
	defer conn.Close()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      signatureSubscribeID,
		Method:  "signatureSubscribe",
		Params:  []any{signature, map[string]string{"commitment": c.commitment}},
	}
	if err := conn.WriteJSON(req); err != nil {
		logger.Warnf("[WsConfirmer] 订阅请求发送失败，改为轮询: %v", err)
		return c.poller.Confirm(ctx, signature, blockhash)
	}

	done := make(chan struct{})
	defer close(done)
	reads := make(chan wsRead)
	go readLoop(conn, reads, done)

	ticker := time.NewTicker(c.poller.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.NewError(domain.KindConfirmation, "confirm", fmt.Errorf("%w: %v", domain.ErrConfirmTimeout, ctx.Err()))

		case r := <-reads:
			if r.err != nil {
				logger.Warnf("[WsConfirmer] 连接中断，改为轮询: %v", r.err)
				return c.poller.Confirm(ctx, signature, blockhash)
			}
			finished, err := handleMessage(r.msg)
			if finished {
				return err
			}
			// 订阅生效前交易可能已经落地，不会再收到通知，订阅成功后补查一次状态
			if isSubscribeAck(r.msg) {
				if done, err := c.check(ctx, signature, blockhash); done {
					return err
				}
			}

		case <-ticker.C:
			if done, err := c.check(ctx, signature, blockhash); done {
				return err
			}
		}
	}
}

// check 先查签名状态再判断过期，与轮询确认一致
func (c *WsConfirmer) check(ctx context.Context, signature string, blockhash LatestBlockhash) (bool, error) {
	done, err := c.poller.check(ctx, signature, blockhash)
	if !done && err != nil {
		logger.Debugf("[WsConfirmer] 查询状态失败: sig=%s err=%v", signature, err)
	}
	return done, err
}

func isSubscribeAck(msg wsMessage) bool {
	return msg.ID != nil && *msg.ID == signatureSubscribeID && msg.Error == nil
}

// handleMessage 返回 finished=true 表示确认流程结束
func handleMessage(msg wsMessage) (bool, error) {
	if msg.ID != nil && *msg.ID == signatureSubscribeID {
		if msg.Error != nil {
			return true, domain.NewError(domain.KindNetwork, "signatureSubscribe", msg.Error)
		}
		return false, nil
	}
	if msg.Method != "signatureNotification" || msg.Params == nil {
		return false, nil
	}
	if txErr := msg.Params.Result.Value.Err; txErr != nil {
		return true, domain.NewError(domain.KindConfirmation, "confirm", fmt.Errorf("transaction failed: %v", txErr))
	}
	return true, nil
}

func readLoop(conn *websocket.Conn, out chan<- wsRead, done <-chan struct{}) {
	for {
		var r wsRead
		_, data, err := conn.ReadMessage()
		if err != nil {
			r.err = err
		} else if err := json.Unmarshal(data, &r.msg); err != nil {
			logger.Debugf("[WsConfirmer] 忽略无法解析的消息: %v", err)
			continue
		}

		select {
		case out <- r:
		case <-done:
			return
		}
		if r.err != nil {
			return
		}
	}
}
