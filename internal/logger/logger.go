package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is silent until Init runs, so library code and tests can log freely.
var Log = zap.NewNop().Sugar()

// Init replaces the global logger.
// With a logPath, entries are appended to that file without colour and the
// file is rotated once it grows past 10 MB; otherwise they go to stderr,
// keeping stdout free for command output.
func Init(verbose bool, logPath string) {
	var w io.Writer = os.Stderr
	color := true
	if logPath != "" {
		w = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10,
			MaxBackups: 3,
		}
		color = false
	}
	Log = New(w, verbose, color)
}

// New builds a console logger writing to w.
func New(w io.Writer, verbose, color bool) *zap.SugaredLogger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderConfig.EncodeCaller = nil
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core).Sugar()
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}
