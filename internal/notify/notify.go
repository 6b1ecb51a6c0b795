package notify

import (
	"context"
	"time"

	"solaboard/internal/metrics"
	"solaboard/internal/pkg/logger"

	"github.com/google/uuid"
)

// Level 通知状态，同一 Handle 上 Loading 会被 Success / Error 替换
type Level int

const (
	LevelLoading Level = 0 // 🕒 处理中
	LevelSuccess Level = 1 // ✅ 成功
	LevelError   Level = 2 // ❌ 失败
)

func (l Level) String() string {
	switch l {
	case LevelLoading:
		return "loading"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Handle 标识一条可被更新的通知
type Handle string

func NewHandle() Handle {
	return Handle(uuid.NewString())
}

type Notification struct {
	Handle  Handle    `json:"handle"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"` // 交易签名等附加信息
	At      time.Time `json:"at"`
}

// Sink 通知下游，发送失败只记日志，不影响业务流程
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// Toaster 业务侧使用的通知入口
type Toaster struct {
	sink Sink
	now  func() time.Time
}

func NewToaster(sink Sink) *Toaster {
	return &Toaster{sink: sink, now: time.Now}
}

// Loading 发出一条新的处理中通知并返回其 Handle
func (t *Toaster) Loading(ctx context.Context, message string) Handle {
	h := NewHandle()
	t.emit(ctx, h, LevelLoading, message, "")
	return h
}

// LoadingOn 在已有 Handle 上重新显示处理中，h 为空时等同 Loading
func (t *Toaster) LoadingOn(ctx context.Context, h Handle, message string) Handle {
	return t.emit(ctx, h, LevelLoading, message, "")
}

// Success h 为空时生成新的 Handle
func (t *Toaster) Success(ctx context.Context, h Handle, message, detail string) Handle {
	return t.emit(ctx, h, LevelSuccess, message, detail)
}

func (t *Toaster) Error(ctx context.Context, h Handle, message, detail string) Handle {
	return t.emit(ctx, h, LevelError, message, detail)
}

func (t *Toaster) emit(ctx context.Context, h Handle, level Level, message, detail string) Handle {
	if h == "" {
		h = NewHandle()
	}
	t.sink.Notify(ctx, Notification{Handle: h, Level: level, Message: message, Detail: detail, At: t.now()})
	return h
}

// LogSink 输出到日志
type LogSink struct{}

func (LogSink) Notify(_ context.Context, n Notification) {
	switch n.Level {
	case LevelError:
		logger.Errorf("[Notify] %s %s %s", n.Handle, n.Message, n.Detail)
	default:
		logger.Infof("[Notify] %s [%s] %s %s", n.Handle, n.Level, n.Message, n.Detail)
	}
	metrics.Notifications.WithLabelValues("log", "ok").Inc()
}

// MultiSink 依次投递到多个下游
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}
