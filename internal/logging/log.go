package logging

import (
	"context"
	"os"

	zap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console zap.SugaredLogger writing to stderr. Debug
// output is enabled by verbose or by ECGPREP_DEBUG=true.
func NewLogger(verbose bool) *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	if debugMode, ok := os.LookupEnv("ECGPREP_DEBUG"); ok && debugMode == "true" {
		verbose = true
	}
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		config.Development = false
		config.DisableStacktrace = true
		config.DisableCaller = true
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger.Named("ecgprep").Sugar()
}

type loggerKey struct{}

// WithLogger returns a copy of parent context in which the
// value associated with logger key is the supplied logger.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger in the context.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
		return logger
	}
	return NewLogger(false)
}
