package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空时只输出到标准输出
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志
}

const (
	logFileName   = "wallet-core.log"
	maxSizeMB     = 200
	maxBackups    = 10
	maxAgeDays    = 7
	callerSkipOne = 1
)

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	// 未调用 Init 前使用 Nop，避免测试与库调用方产生多余输出
	sugar.Store(zap.NewNop().Sugar())
}

// Init 根据配置初始化全局 logger，可重复调用（后一次覆盖前一次）
func Init(opt LogOption) error {
	level := zapcore.InfoLevel
	if opt.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opt.Level))); err != nil {
			return err
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opt.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return err
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, logFileName),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkipOne))
	sugar.Store(l.Sugar())
	return nil
}

func Debugf(template string, args ...any) { sugar.Load().Debugf(template, args...) }
func Infof(template string, args ...any)  { sugar.Load().Infof(template, args...) }
func Warnf(template string, args ...any)  { sugar.Load().Warnf(template, args...) }
func Errorf(template string, args ...any) { sugar.Load().Errorf(template, args...) }

// Sync 刷新缓冲区，进程退出前调用
func Sync() {
	_ = sugar.Load().Sync()
}
