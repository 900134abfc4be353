package logger

import (
	"fmt"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Sync() error
}

type ZapLogger struct {
	*zap.SugaredLogger
}

func New(cfg config.Logger) (ZapLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return ZapLogger{}, fmt.Errorf("parse level error: %w", err)
	}

	output := cfg.Output
	if len(output) == 0 {
		output = []string{"stdout"}
	}

	errOutput := cfg.ErrOutput
	if len(errOutput) == 0 {
		errOutput = []string{"stderr"}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = output
	zcfg.ErrorOutputPaths = errOutput
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zcfg.Build()
	if err != nil {
		return ZapLogger{}, fmt.Errorf("build logger error: %w", err)
	}

	return ZapLogger{l.Sugar()}, nil
}

// Nop discards everything. Used by tests.
func Nop() ZapLogger {
	return ZapLogger{zap.NewNop().Sugar()}
}
