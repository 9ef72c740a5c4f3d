package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// New builds the process logger for env and installs it as the zap global.
// When extra is non-nil, JSON entries are also written to it (CloudWatch Logs
// in deployed environments).
func New(env, level string, extra io.Writer) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	var log *zap.Logger
	if extra != nil {
		stdoutEncoder := zapcore.NewConsoleEncoder(config.EncoderConfig)
		if config.Encoding == "json" {
			stdoutEncoder = zapcore.NewJSONEncoder(config.EncoderConfig)
		}
		jsonConfig := config.EncoderConfig
		jsonConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewTee(
			zapcore.NewCore(stdoutEncoder, zapcore.Lock(unbuffered(os.Stdout)), config.Level),
			zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.Lock(zapcore.AddSync(extra)), config.Level),
		)
		log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		var err error
		log, err = config.Build()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	zap.ReplaceGlobals(log)
	return log, nil
}

// unbuffered hides the file's Sync. Stdout is never buffered and syncing it
// fails with EINVAL when it is a pipe.
func unbuffered(f *os.File) zapcore.WriteSyncer {
	return zapcore.AddSync(struct{ io.Writer }{f})
}

// FromContext returns the global logger tagged with the request ID, if any.
func FromContext(c *gin.Context) *zap.Logger {
	if c != nil {
		if rid := c.GetString(RequestIDKey); rid != "" {
			return zap.L().With(zap.String(RequestIDKey, rid))
		}
	}
	return zap.L()
}
