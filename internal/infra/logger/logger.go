// Package logger is a centralized wrapper around zap used throughout the
// node. It supports dynamic level changes and retargeting the output
// stream at runtime via zap.AtomicLevel plus a mutex.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	// mu guards the global logger state against concurrent reconfiguration.
	mu sync.Mutex
	// log holds the current zap.Logger instance used across the node.
	log *zap.Logger
	// logLevel allows the level to change without rebuilding the core.
	logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	// encoderCfg holds the message formatting settings.
	encoderCfg = defaultEncoderConfig()
	// writer is the current log sink, either stdout or a rotating file.
	writer = zapcore.Lock(zapcore.AddSync(os.Stdout))
)

// defaultEncoderConfig builds a colored console encoder with a short
// caller and a fixed time layout.
func defaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rebuildLoggerLocked rebuilds the global logger from the current writer
// and level. Callers must already hold mu. AddCallerSkip(1) hides this
// package's own wrapper functions from the reported caller.
func rebuildLoggerLocked() {
	encoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(encoder, writer, logLevel)
	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init configures the global logger's level (debug, info (default), warn,
// error; compared case-insensitively) and output destination. When file
// is non-empty, output is redirected to a lumberjack-rotated file instead
// of stdout.
func Init(level, file string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "debug":
		logLevel.SetLevel(zap.DebugLevel)
	case "warn":
		logLevel.SetLevel(zap.WarnLevel)
	case "error":
		logLevel.SetLevel(zap.ErrorLevel)
	default:
		logLevel.SetLevel(zap.InfoLevel)
	}

	if file != "" {
		writer = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	} else {
		writer = zapcore.Lock(zapcore.AddSync(os.Stdout))
	}

	encoderCfg = defaultEncoderConfig()
	rebuildLoggerLocked()
}

// SetWriter retargets the logger's output stream and rebuilds the core.
// Callable at runtime, e.g. to redirect logs into an interactive shell's
// own output pane. A nil w restores stdout.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if w == nil {
		writer = zapcore.Lock(zapcore.AddSync(os.Stdout))
	} else {
		writer = zapcore.Lock(zapcore.AddSync(w))
	}

	rebuildLoggerLocked()
}

// Logger returns the current zap.Logger, lazily creating a stdout default
// on first access.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if log == nil {
		rebuildLoggerLocked()
	}
	return log
}

// IsDebugEnabled reports whether the debug level is currently enabled.
func IsDebugEnabled() bool {
	return Logger().Level() <= zap.DebugLevel
}

func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Logger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Logger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Fatal logs at Fatal level, flushes, and exits the process.
func Fatal(msg string, fields ...zap.Field) {
	Logger().Fatal(msg, fields...)
	_ = Logger().Sync()
	os.Exit(1)
}

// Debugf formats via fmt.Sprintf. Use sparingly: formatting allocates,
// and structured fields are preferable on hot paths.
func Debugf(msg string, a ...any) { Logger().Debug(fmt.Sprintf(msg, a...)) }
func Infof(msg string, a ...any)  { Logger().Info(fmt.Sprintf(msg, a...)) }
func Warnf(msg string, a ...any)  { Logger().Warn(fmt.Sprintf(msg, a...)) }
func Errorf(msg string, a ...any) { Logger().Error(fmt.Sprintf(msg, a...)) }
