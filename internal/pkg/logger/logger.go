package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // console / json
	LogDir   string // 为空时只输出到 stdout
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的日志
}

const (
	defaultFileName   = "board.log"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
	defaultMaxAgeDays = 7
)

var (
	mu    sync.RWMutex
	sugar = newDefault()
)

func newDefault() *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Init 按配置替换全局 logger
func Init(opt LogOption) error {
	level, err := parseLevel(opt.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(opt.Format) {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return fmt.Errorf("unknown log format %q", opt.Format)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, defaultFileName),
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()

	mu.Lock()
	old := sugar
	sugar = l
	mu.Unlock()
	_ = old.Sync()
	return nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return level, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return level, nil
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...any) { current().Debugf(format, args...) }

func Infof(format string, args ...any) { current().Infof(format, args...) }

func Warnf(format string, args ...any) { current().Warnf(format, args...) }

func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	_ = current().Sync()
}
