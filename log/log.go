package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger = newLogger(zapcore.InfoLevel, false)
	lLock  sync.RWMutex
)

func newLogger(level zapcore.Level, json bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

// 初始化全局日志，level可为debug/info/warn/error
func Init(level string, json bool) (err error) {
	lv := zapcore.InfoLevel
	if level != "" {
		if err = lv.UnmarshalText([]byte(level)); err != nil {
			return
		}
	}
	l := newLogger(lv, json)
	lLock.Lock()
	old := logger
	logger = l
	lLock.Unlock()
	_ = old.Sync()
	return
}

func get() *zap.Logger {
	lLock.RLock()
	defer lLock.RUnlock()
	return logger
}

func Debug(msg string, fields ...zap.Field) {
	get().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	get().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	get().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	get().Error(msg, fields...)
}

func Sync() {
	_ = get().Sync()
}
